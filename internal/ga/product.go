package ga

import (
	"math/bits"

	"amari/internal/engineerr"
)

// BladeProduct is the product of two basis blades: Sign times blade Blade.
// A Sign of 0 means a degenerate generator annihilated the term.
type BladeProduct struct {
	Blade int     `json:"blade"`
	Sign  float64 `json:"sign"`
}

// MultiplyBlades applies the canonical basis-blade rule: the result blade is
// a xor b; the sign is the parity of the transpositions needed to sort the
// concatenated generator lists, times the metric of every shared generator.
func MultiplyBlades(a, b int, sig Signature) BladeProduct {
	sign := reorderSign(a, b)
	shared := a & b
	for shared != 0 {
		i := bits.TrailingZeros(uint(shared))
		metric := sig.Metric(i)
		if metric == 0 {
			return BladeProduct{Blade: a ^ b, Sign: 0}
		}
		sign *= metric
		shared &^= 1 << i
	}
	return BladeProduct{Blade: a ^ b, Sign: sign}
}

// reorderSign counts, for every generator of a, how many generators of b
// have a lower index and must be swapped past it.
func reorderSign(a, b int) float64 {
	swaps := 0
	a >>= 1
	for a != 0 {
		swaps += bits.OnesCount(uint(a & b))
		a >>= 1
	}
	if swaps%2 == 0 {
		return 1
	}
	return -1
}

func GeometricProduct(a, b Multivector) (Multivector, error) {
	if err := sameSignature(a, b); err != nil {
		return Multivector{}, err
	}
	if len(a.coeffs) != a.sig.BladeCount() {
		return Multivector{}, engineerr.Shapef("multivector has %d coefficients, signature %s needs %d", len(a.coeffs), a.sig, a.sig.BladeCount())
	}
	out := Zero(a.sig)
	for i, ca := range a.coeffs {
		if ca == 0 {
			continue
		}
		for j, cb := range b.coeffs {
			if cb == 0 {
				continue
			}
			p := MultiplyBlades(i, j, a.sig)
			if p.Sign == 0 {
				continue
			}
			out.coeffs[p.Blade] += p.Sign * ca * cb
		}
	}
	return out, nil
}

// Product folds GeometricProduct over its arguments left to right.
func Product(first Multivector, rest ...Multivector) (Multivector, error) {
	acc := first
	for _, mv := range rest {
		next, err := GeometricProduct(acc, mv)
		if err != nil {
			return Multivector{}, err
		}
		acc = next
	}
	return acc, nil
}
