package ga

import (
	"math"
	"math/bits"

	"amari/internal/engineerr"
)

// Multivector is an immutable element of the algebra. The zero value is not
// usable; build one with New or the helpers below.
type Multivector struct {
	sig    Signature
	coeffs []float64
}

func New(coefficients []float64, sig Signature) (Multivector, error) {
	if err := sig.Validate(); err != nil {
		return Multivector{}, err
	}
	if len(coefficients) != sig.BladeCount() {
		return Multivector{}, engineerr.Shapef("signature %s needs %d coefficients, got %d", sig, sig.BladeCount(), len(coefficients))
	}
	return Multivector{sig: sig, coeffs: append([]float64(nil), coefficients...)}, nil
}

func Zero(sig Signature) Multivector {
	return Multivector{sig: sig, coeffs: make([]float64, sig.BladeCount())}
}

func Scalar(value float64, sig Signature) Multivector {
	mv := Zero(sig)
	mv.coeffs[0] = value
	return mv
}

// Basis returns the unit blade e(i+1) for generator index i.
func Basis(i int, sig Signature) (Multivector, error) {
	if i < 0 || i >= sig.Dim() {
		return Multivector{}, engineerr.Shapef("generator %d out of range for signature %s", i, sig)
	}
	mv := Zero(sig)
	mv.coeffs[1<<i] = 1
	return mv, nil
}

// FromVector embeds grade-1 components, one per generator.
func FromVector(components []float64, sig Signature) (Multivector, error) {
	if len(components) != sig.Dim() {
		return Multivector{}, engineerr.Shapef("signature %s needs %d vector components, got %d", sig, sig.Dim(), len(components))
	}
	mv := Zero(sig)
	for i, c := range components {
		mv.coeffs[1<<i] = c
	}
	return mv, nil
}

func (m Multivector) Signature() Signature { return m.sig }

func (m Multivector) Len() int { return len(m.coeffs) }

func (m Multivector) Coefficients() []float64 {
	return append([]float64(nil), m.coeffs...)
}

func (m Multivector) Get(blade int) float64 {
	if blade < 0 || blade >= len(m.coeffs) {
		return 0
	}
	return m.coeffs[blade]
}

func (m Multivector) ScalarPart() float64 {
	return m.Get(0)
}

// Vector returns the grade-1 components in generator order.
func (m Multivector) Vector() []float64 {
	out := make([]float64, m.sig.Dim())
	for i := range out {
		out[i] = m.coeffs[1<<i]
	}
	return out
}

// Grade is the number of generators in a blade.
func Grade(blade int) int {
	return bits.OnesCount(uint(blade))
}

// Grade keeps only the coefficients of blades with the requested grade.
func (m Multivector) Grade(k int) Multivector {
	out := Zero(m.sig)
	for blade, c := range m.coeffs {
		if Grade(blade) == k {
			out.coeffs[blade] = c
		}
	}
	return out
}

// SumOfGrades keeps the coefficients whose grade is in grades.
func (m Multivector) SumOfGrades(grades ...int) Multivector {
	keep := make(map[int]bool, len(grades))
	for _, g := range grades {
		keep[g] = true
	}
	out := Zero(m.sig)
	for blade, c := range m.coeffs {
		if keep[Grade(blade)] {
			out.coeffs[blade] = c
		}
	}
	return out
}

// Reverse flips the generator order inside every blade, which scales a
// grade-k blade by (-1)^(k(k-1)/2).
func (m Multivector) Reverse() Multivector {
	out := Zero(m.sig)
	for blade, c := range m.coeffs {
		k := Grade(blade)
		if (k*(k-1)/2)%2 == 1 {
			c = -c
		}
		out.coeffs[blade] = c
	}
	return out
}

// GradeInvolution negates odd-grade blades.
func (m Multivector) GradeInvolution() Multivector {
	out := Zero(m.sig)
	for blade, c := range m.coeffs {
		if Grade(blade)%2 == 1 {
			c = -c
		}
		out.coeffs[blade] = c
	}
	return out
}

func (m Multivector) Add(o Multivector) (Multivector, error) {
	if err := sameSignature(m, o); err != nil {
		return Multivector{}, err
	}
	out := Zero(m.sig)
	for i := range out.coeffs {
		out.coeffs[i] = m.coeffs[i] + o.coeffs[i]
	}
	return out, nil
}

func (m Multivector) Sub(o Multivector) (Multivector, error) {
	if err := sameSignature(m, o); err != nil {
		return Multivector{}, err
	}
	out := Zero(m.sig)
	for i := range out.coeffs {
		out.coeffs[i] = m.coeffs[i] - o.coeffs[i]
	}
	return out, nil
}

func (m Multivector) Scale(f float64) Multivector {
	out := Zero(m.sig)
	for i, c := range m.coeffs {
		out.coeffs[i] = c * f
	}
	return out
}

// WithScalar returns a copy whose scalar coefficient is replaced.
func (m Multivector) WithScalar(value float64) Multivector {
	out := Multivector{sig: m.sig, coeffs: m.Coefficients()}
	out.coeffs[0] = value
	return out
}

// Norm is sqrt(|<m ~m>_0|).
func (m Multivector) Norm() float64 {
	sq, err := GeometricProduct(m, m.Reverse())
	if err != nil {
		return 0
	}
	return math.Sqrt(math.Abs(sq.ScalarPart()))
}

// Magnitude is the Euclidean length of the coefficient vector.
func (m Multivector) Magnitude() float64 {
	var sum float64
	for _, c := range m.coeffs {
		sum += c * c
	}
	return math.Sqrt(sum)
}

func (m Multivector) ApproxEqual(o Multivector, tol float64) bool {
	if m.sig != o.sig || len(m.coeffs) != len(o.coeffs) {
		return false
	}
	for i := range m.coeffs {
		if math.Abs(m.coeffs[i]-o.coeffs[i]) > tol {
			return false
		}
	}
	return true
}

// Summary groups coefficients by grade for display.
type Summary struct {
	Coefficients []float64   `json:"coefficients"`
	Scalar       float64     `json:"scalar"`
	Grades       [][]float64 `json:"grades"`
	Magnitude    float64     `json:"magnitude"`
	Norm         float64     `json:"norm"`
	Signature    Signature   `json:"signature"`
}

func (m Multivector) Summary() Summary {
	n := m.sig.Dim()
	grades := make([][]float64, n+1)
	for k := range grades {
		grades[k] = []float64{}
	}
	for blade, c := range m.coeffs {
		k := Grade(blade)
		grades[k] = append(grades[k], c)
	}
	return Summary{
		Coefficients: m.Coefficients(),
		Scalar:       m.ScalarPart(),
		Grades:       grades,
		Magnitude:    m.Magnitude(),
		Norm:         m.Norm(),
		Signature:    m.sig,
	}
}

func sameSignature(a, b Multivector) error {
	if a.sig != b.sig {
		return engineerr.Shapef("signature mismatch: %s vs %s", a.sig, b.sig)
	}
	if len(a.coeffs) != len(b.coeffs) {
		return engineerr.Shapef("coefficient count mismatch: %d vs %d", len(a.coeffs), len(b.coeffs))
	}
	return nil
}
