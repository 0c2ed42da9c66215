// Package automata runs cellular automata whose cells are multivectors.
package automata

import (
	"amari/internal/engineerr"
	"amari/internal/ga"
)

// Grid is an immutable W×H board stored row-major (index y*W + x).
type Grid struct {
	width  int
	height int
	sig    ga.Signature
	cells  []ga.Multivector
}

func NewGrid(width, height int, cells []ga.Multivector) (Grid, error) {
	if width <= 0 || height <= 0 {
		return Grid{}, engineerr.Shapef("grid dimensions must be positive, got %dx%d", width, height)
	}
	if len(cells) != width*height {
		return Grid{}, engineerr.Shapef("grid %dx%d needs %d cells, got %d", width, height, width*height, len(cells))
	}
	sig := cells[0].Signature()
	for i, c := range cells {
		if c.Signature() != sig || c.Len() != sig.BladeCount() {
			return Grid{}, engineerr.Shapef("cell %d has signature %s, grid uses %s", i, c.Signature(), sig)
		}
	}
	return Grid{width: width, height: height, sig: sig, cells: append([]ga.Multivector(nil), cells...)}, nil
}

// FromCoefficients builds a grid from one coefficient slice per cell.
func FromCoefficients(width, height int, sig ga.Signature, cells [][]float64) (Grid, error) {
	if err := sig.Validate(); err != nil {
		return Grid{}, err
	}
	if len(cells) != width*height {
		return Grid{}, engineerr.Shapef("grid %dx%d needs %d cells, got %d", width, height, width*height, len(cells))
	}
	mvs := make([]ga.Multivector, len(cells))
	for i, coeffs := range cells {
		mv, err := ga.New(coeffs, sig)
		if err != nil {
			return Grid{}, engineerr.Shapef("cell %d: %v", i, err)
		}
		mvs[i] = mv
	}
	return NewGrid(width, height, mvs)
}

func (g Grid) Width() int                 { return g.width }
func (g Grid) Height() int                { return g.height }
func (g Grid) Signature() ga.Signature    { return g.sig }
func (g Grid) At(x, y int) ga.Multivector { return g.cells[g.index(x, y)] }

func (g Grid) index(x, y int) int {
	x = ((x % g.width) + g.width) % g.width
	y = ((y % g.height) + g.height) % g.height
	return y*g.width + x
}

func (g Grid) Cells() []ga.Multivector {
	return append([]ga.Multivector(nil), g.cells...)
}

// Coefficients returns every cell's coefficients in row-major order.
func (g Grid) Coefficients() [][]float64 {
	out := make([][]float64, len(g.cells))
	for i, c := range g.cells {
		out[i] = c.Coefficients()
	}
	return out
}

// Total is the component-wise sum of all cells.
func (g Grid) Total() ga.Multivector {
	sum := make([]float64, g.sig.BladeCount())
	for _, c := range g.cells {
		for i, v := range c.Coefficients() {
			sum[i] += v
		}
	}
	mv, _ := ga.New(sum, g.sig)
	return mv
}

// Equal reports bit-identical cells.
func (g Grid) Equal(o Grid) bool {
	if g.width != o.width || g.height != o.height || g.sig != o.sig {
		return false
	}
	for i := range g.cells {
		a, b := g.cells[i].Coefficients(), o.cells[i].Coefficients()
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}
