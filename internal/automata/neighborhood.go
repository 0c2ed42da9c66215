package automata

import "fmt"

type Neighborhood int

const (
	VonNeumann Neighborhood = iota
	Moore
)

func (n Neighborhood) String() string {
	switch n {
	case VonNeumann:
		return "von_neumann"
	case Moore:
		return "moore"
	default:
		return fmt.Sprintf("neighborhood(%d)", int(n))
	}
}

type offset struct{ dx, dy int }

// offsets lists neighbor displacements in scan order: dy from -1 to 1,
// then dx from -1 to 1, skipping the cell itself.
func (n Neighborhood) offsets() []offset {
	var out []offset
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if n == VonNeumann && dx != 0 && dy != 0 {
				continue
			}
			out = append(out, offset{dx: dx, dy: dy})
		}
	}
	return out
}
