package tropical

import (
	"math"

	"amari/internal/engineerr"
)

// Matrix is an immutable dense matrix over one semiring.
type Matrix struct {
	semiring Semiring
	rows     int
	cols     int
	data     []float64
}

// NewMatrix copies rows into a matrix. NaN is not a semiring element and is
// rejected; absent edges are written as the semiring's Zero.
func NewMatrix(rows [][]float64, s Semiring) (Matrix, error) {
	s = s.normalize()
	if len(rows) == 0 {
		return Matrix{semiring: s}, nil
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Matrix{}, engineerr.Shapef("row %d has %d columns, expected %d", i, len(row), cols)
		}
		for j, v := range row {
			if math.IsNaN(v) {
				return Matrix{}, engineerr.Shapef("entry [%d][%d] is NaN", i, j)
			}
		}
		data = append(data, row...)
	}
	return Matrix{semiring: s, rows: len(rows), cols: cols, data: data}, nil
}

func filled(rows, cols int, s Semiring, value float64) Matrix {
	s = s.normalize()
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = value
	}
	return Matrix{semiring: s, rows: rows, cols: cols, data: data}
}

// Identity has One on the diagonal and Zero elsewhere.
func Identity(n int, s Semiring) Matrix {
	m := filled(n, n, s, s.Zero())
	for i := 0; i < n; i++ {
		m.data[i*n+i] = s.One()
	}
	return m
}

func (m Matrix) Semiring() Semiring { return m.semiring }
func (m Matrix) Rows() int          { return m.rows }
func (m Matrix) Cols() int          { return m.cols }
func (m Matrix) IsSquare() bool     { return m.rows == m.cols }

func (m Matrix) At(i, j int) float64 {
	return m.data[i*m.cols+j]
}

func (m Matrix) Rows2D() [][]float64 {
	out := make([][]float64, m.rows)
	for i := range out {
		out[i] = append([]float64(nil), m.data[i*m.cols:(i+1)*m.cols]...)
	}
	return out
}

func (m Matrix) Equal(o Matrix) bool {
	if m.rows != o.rows || m.cols != o.cols || m.semiring != o.semiring {
		return false
	}
	for i := range m.data {
		if m.data[i] != o.data[i] {
			return false
		}
	}
	return true
}

// Multiply computes (A ⊗ B)[i][j] = ⊕_k A[i][k] ⊗ B[k][j].
func Multiply(a, b Matrix) (Matrix, error) {
	if a.semiring != b.semiring {
		return Matrix{}, engineerr.Shapef("semiring mismatch: %s vs %s", a.semiring, b.semiring)
	}
	if a.cols != b.rows {
		return Matrix{}, engineerr.Shapef("dimensions incompatible: %dx%d * %dx%d", a.rows, a.cols, b.rows, b.cols)
	}
	s := a.semiring
	out := filled(a.rows, b.cols, s, s.Zero())
	for i := 0; i < a.rows; i++ {
		for k := 0; k < a.cols; k++ {
			aik := a.data[i*a.cols+k]
			if s.IsZero(aik) {
				continue
			}
			for j := 0; j < b.cols; j++ {
				idx := i*out.cols + j
				out.data[idx] = s.Add(out.data[idx], s.Mul(aik, b.data[k*b.cols+j]))
			}
		}
	}
	return out, nil
}

// ElementwiseAdd computes A ⊕ B.
func ElementwiseAdd(a, b Matrix) (Matrix, error) {
	if a.semiring != b.semiring {
		return Matrix{}, engineerr.Shapef("semiring mismatch: %s vs %s", a.semiring, b.semiring)
	}
	if a.rows != b.rows || a.cols != b.cols {
		return Matrix{}, engineerr.Shapef("dimensions differ: %dx%d vs %dx%d", a.rows, a.cols, b.rows, b.cols)
	}
	out := filled(a.rows, a.cols, a.semiring, 0)
	for i := range out.data {
		out.data[i] = a.semiring.Add(a.data[i], b.data[i])
	}
	return out, nil
}

// Power returns A^k by repeated squaring; A^0 is the identity.
func Power(a Matrix, k int) (Matrix, error) {
	if !a.IsSquare() {
		return Matrix{}, engineerr.Shapef("power needs a square matrix, got %dx%d", a.rows, a.cols)
	}
	if k < 0 {
		return Matrix{}, engineerr.Domainf("negative tropical power %d", k)
	}
	result := Identity(a.rows, a.semiring)
	base := a
	for k > 0 {
		var err error
		if k&1 == 1 {
			if result, err = Multiply(result, base); err != nil {
				return Matrix{}, err
			}
		}
		if k >>= 1; k > 0 {
			if base, err = Multiply(base, base); err != nil {
				return Matrix{}, err
			}
		}
	}
	return result, nil
}
