package automata

import (
	"fmt"

	"amari/internal/engineerr"
	"amari/internal/ga"
)

type EvolveOptions struct {
	History bool
}

// Evolution holds the final grid and, when requested, every intermediate
// grid starting with the initial state.
type Evolution struct {
	Final   Grid
	Steps   int
	History []Grid
}

// Step applies rule once to every cell of grid with toroidal neighborhoods.
func Step(grid Grid, rule Rule) (Grid, error) {
	if rule == nil {
		return Grid{}, engineerr.Shapef("rule is required")
	}
	offs := rule.Neighborhood().offsets()
	next := make([]ga.Multivector, len(grid.cells))
	neighbors := make([]ga.Multivector, len(offs))
	for y := 0; y < grid.height; y++ {
		for x := 0; x < grid.width; x++ {
			for i, o := range offs {
				neighbors[i] = grid.At(x+o.dx, y+o.dy)
			}
			cell, err := rule.Apply(grid.At(x, y), neighbors)
			if err != nil {
				return Grid{}, fmt.Errorf("cell (%d,%d): %w", x, y, err)
			}
			if cell.Signature() != grid.sig {
				return Grid{}, engineerr.Shapef("rule %s changed the cell signature at (%d,%d)", rule.Name(), x, y)
			}
			next[y*grid.width+x] = cell
		}
	}
	return Grid{width: grid.width, height: grid.height, sig: grid.sig, cells: next}, nil
}

// Evolve applies Step exactly steps times.
func Evolve(grid Grid, rule Rule, steps int, opts EvolveOptions) (Evolution, error) {
	if steps < 0 {
		return Evolution{}, engineerr.Shapef("steps must be non-negative, got %d", steps)
	}
	out := Evolution{Final: grid, Steps: steps}
	if opts.History {
		out.History = make([]Grid, 0, steps+1)
		out.History = append(out.History, grid)
	}
	current := grid
	for i := 0; i < steps; i++ {
		next, err := Step(current, rule)
		if err != nil {
			return Evolution{}, fmt.Errorf("step %d: %w", i+1, err)
		}
		current = next
		if opts.History {
			out.History = append(out.History, current)
		}
	}
	out.Final = current
	return out, nil
}
