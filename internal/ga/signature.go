// Package ga implements a Clifford (geometric) algebra over real
// coefficients for an arbitrary metric signature (p, q, r).
//
// Basis blades are identified by a bitmask over the n = p+q+r generators:
// bit i set means generator e(i+1) is a factor. The first p generators square
// to +1, the next q to -1 and the last r to 0.
package ga

import (
	"fmt"

	"amari/internal/engineerr"
)

// MaxGenerators bounds n so that 2^n coefficient slices stay practical.
const MaxGenerators = 10

type Signature struct {
	P int `json:"p"`
	Q int `json:"q"`
	R int `json:"r"`
}

// Euclidean3 is the default signature used when callers omit one.
var Euclidean3 = Signature{P: 3}

func NewSignature(p, q, r int) (Signature, error) {
	sig := Signature{P: p, Q: q, R: r}
	if err := sig.Validate(); err != nil {
		return Signature{}, err
	}
	return sig, nil
}

func (s Signature) Validate() error {
	if s.P < 0 || s.Q < 0 || s.R < 0 {
		return engineerr.Shapef("signature %s has a negative count", s)
	}
	if s.Dim() > MaxGenerators {
		return engineerr.Shapef("signature %s has %d generators, limit is %d", s, s.Dim(), MaxGenerators)
	}
	return nil
}

func (s Signature) Dim() int {
	return s.P + s.Q + s.R
}

func (s Signature) BladeCount() int {
	return 1 << s.Dim()
}

// Metric returns the square of generator i (0-based).
func (s Signature) Metric(i int) float64 {
	switch {
	case i < s.P:
		return 1
	case i < s.P+s.Q:
		return -1
	default:
		return 0
	}
}

func (s Signature) IsEuclidean() bool {
	return s.Q == 0 && s.R == 0
}

func (s Signature) String() string {
	return fmt.Sprintf("(%d,%d,%d)", s.P, s.Q, s.R)
}
