package ga

import (
	"fmt"

	"amari/internal/engineerr"
)

// CayleyTable is the full multiplication table of a signature: Entries[i][j]
// is the product of blades i and j.
type CayleyTable struct {
	ID         string           `json:"id"`
	Signature  Signature        `json:"signature"`
	BasisCount int              `json:"basis_count"`
	Entries    [][]BladeProduct `json:"entries"`
}

func TableID(sig Signature) string {
	return fmt.Sprintf("cayley_%d_%d_%d", sig.P, sig.Q, sig.R)
}

func ComputeCayleyTable(sig Signature) (CayleyTable, error) {
	if err := sig.Validate(); err != nil {
		return CayleyTable{}, err
	}
	n := sig.BladeCount()
	entries := make([][]BladeProduct, n)
	for i := 0; i < n; i++ {
		row := make([]BladeProduct, n)
		for j := 0; j < n; j++ {
			row[j] = MultiplyBlades(i, j, sig)
		}
		entries[i] = row
	}
	return CayleyTable{
		ID:         TableID(sig),
		Signature:  sig,
		BasisCount: n,
		Entries:    entries,
	}, nil
}

// Multiply evaluates the geometric product through the precomputed table.
func (t CayleyTable) Multiply(a, b Multivector) (Multivector, error) {
	if err := sameSignature(a, b); err != nil {
		return Multivector{}, err
	}
	if a.sig != t.Signature {
		return Multivector{}, engineerr.Shapef("table %s does not match signature %s", t.ID, a.sig)
	}
	out := Zero(a.sig)
	for i, ca := range a.coeffs {
		if ca == 0 {
			continue
		}
		for j, cb := range b.coeffs {
			p := t.Entries[i][j]
			if cb == 0 || p.Sign == 0 {
				continue
			}
			out.coeffs[p.Blade] += p.Sign * ca * cb
		}
	}
	return out, nil
}
