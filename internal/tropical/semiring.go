// Package tropical implements matrix algebra over the min-plus and max-plus
// semirings and shortest-path search by tropical closure.
package tropical

import (
	"math"

	"amari/internal/engineerr"
)

type Kind string

const (
	KindMinPlus Kind = "min_plus"
	KindMaxPlus Kind = "max_plus"
)

// Semiring selects which convention is active. The zero value is min-plus.
type Semiring struct {
	Kind Kind
}

var (
	MinPlus = Semiring{Kind: KindMinPlus}
	MaxPlus = Semiring{Kind: KindMaxPlus}
)

func ParseSemiring(name string) (Semiring, error) {
	switch name {
	case "", "min", "min_plus", "min-plus":
		return MinPlus, nil
	case "max", "max_plus", "max-plus":
		return MaxPlus, nil
	default:
		return Semiring{}, engineerr.Shapef("unsupported semiring: %s", name)
	}
}

func (s Semiring) normalize() Semiring {
	if s.isMax() {
		return MaxPlus
	}
	return MinPlus
}

func (s Semiring) isMax() bool {
	return s.Kind == KindMaxPlus
}

func (s Semiring) String() string {
	if s.isMax() {
		return string(KindMaxPlus)
	}
	return string(KindMinPlus)
}

// Zero is the ⊕ identity and the ⊗ annihilator.
func (s Semiring) Zero() float64 {
	if s.isMax() {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

// One is the ⊗ identity.
func (s Semiring) One() float64 {
	return 0
}

func (s Semiring) IsZero(x float64) bool {
	return x == s.Zero()
}

func (s Semiring) Add(a, b float64) float64 {
	if s.isMax() {
		return math.Max(a, b)
	}
	return math.Min(a, b)
}

// Mul is ordinary addition, except that the zero element annihilates and
// never meets an opposite infinity.
func (s Semiring) Mul(a, b float64) float64 {
	if s.IsZero(a) || s.IsZero(b) {
		return s.Zero()
	}
	return a + b
}

// Better reports whether a strictly improves on b under ⊕.
func (s Semiring) Better(a, b float64) bool {
	if s.isMax() {
		return a > b
	}
	return a < b
}
