package tropical

import (
	"fmt"

	"amari/internal/engineerr"
)

// Closure is the result of repeated tropical self-multiplication of a graph.
type Closure struct {
	Distances  Matrix
	Iterations int
	// pred[i][j] is the vertex preceding j on the best i→j path, -1 if none.
	pred [][]int
}

type PathResult struct {
	Source     int     `json:"source"`
	Target     int     `json:"target"`
	Distance   float64 `json:"distance"`
	Reachable  bool    `json:"reachable"`
	Path       []int   `json:"path,omitempty"`
	Iterations int     `json:"iterations"`
}

type DistancesResult struct {
	Source            int         `json:"source"`
	Distances         []float64   `json:"distances"`
	ReachableVertices []int       `json:"reachable_vertices"`
	AllPairs          [][]float64 `json:"all_pairs_distances"`
	Iterations        int         `json:"iterations"`
}

// Close computes the min-plus closure of an adjacency matrix: D1 = A and
// D(m+1) = D(m) ⊗ A until a fixpoint, at most n-1 products. The diagonal is
// forced to 0. A negative self loop, a negative diagonal after closure, or a
// matrix still shrinking after n products reports ErrNegativeCycle.
func Close(adj Matrix) (Closure, error) {
	if adj.semiring.isMax() {
		return Closure{}, engineerr.Shapef("shortest paths need the min-plus semiring, got %s", adj.semiring)
	}
	if !adj.IsSquare() {
		return Closure{}, engineerr.Shapef("adjacency matrix must be square, got %dx%d", adj.rows, adj.cols)
	}
	n := adj.rows
	s := adj.semiring

	a := Matrix{semiring: s, rows: n, cols: n, data: append([]float64(nil), adj.data...)}
	for i := 0; i < n; i++ {
		if a.data[i*n+i] < 0 {
			return Closure{}, fmt.Errorf("%w: vertex %d has a negative self loop", engineerr.ErrNegativeCycle, i)
		}
		a.data[i*n+i] = s.One()
	}

	pred := make([][]int, n)
	for i := range pred {
		pred[i] = make([]int, n)
		for j := range pred[i] {
			pred[i][j] = -1
			if i != j && !s.IsZero(a.data[i*n+j]) {
				pred[i][j] = i
			}
		}
	}

	d := a
	iterations := 0
	for iterations < n {
		next, changed := relax(d, a, pred)
		if !changed {
			break
		}
		d = next
		iterations++
		if iterations == n {
			return Closure{}, fmt.Errorf("%w: distances still decreasing after %d products", engineerr.ErrNegativeCycle, n)
		}
	}
	for i := 0; i < n; i++ {
		if d.data[i*n+i] < 0 {
			return Closure{}, fmt.Errorf("%w: vertex %d lies on a negative cycle", engineerr.ErrNegativeCycle, i)
		}
	}
	return Closure{Distances: d, Iterations: iterations, pred: pred}, nil
}

// relax computes d ⊗ a and records, for each improved entry, the
// intermediate vertex that achieved the minimum.
func relax(d, a Matrix, pred [][]int) (Matrix, bool) {
	n := d.rows
	s := d.semiring
	next := Matrix{semiring: s, rows: n, cols: n, data: append([]float64(nil), d.data...)}
	changed := false
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			dik := d.data[i*n+k]
			if s.IsZero(dik) {
				continue
			}
			for j := 0; j < n; j++ {
				if k == j {
					continue
				}
				candidate := s.Mul(dik, a.data[k*n+j])
				if s.Better(candidate, next.data[i*n+j]) {
					next.data[i*n+j] = candidate
					pred[i][j] = k
					changed = true
				}
			}
		}
	}
	return next, changed
}

// Path walks predecessors back from target; nil when unreachable.
func (c Closure) Path(source, target int) []int {
	n := c.Distances.rows
	if c.Distances.semiring.IsZero(c.Distances.At(source, target)) {
		return nil
	}
	if source == target {
		return []int{source}
	}
	rev := []int{target}
	cur := target
	for steps := 0; cur != source; steps++ {
		if steps > n {
			return nil
		}
		cur = c.pred[source][cur]
		if cur < 0 {
			return nil
		}
		rev = append(rev, cur)
	}
	path := make([]int, len(rev))
	for i, v := range rev {
		path[len(rev)-1-i] = v
	}
	return path
}

func checkVertex(name string, v, n int) error {
	if v < 0 || v >= n {
		return engineerr.Shapef("%s vertex %d out of range [0, %d)", name, v, n)
	}
	return nil
}

// ShortestPath returns the min-plus distance from source to target and,
// when withPath is set, the vertex sequence realising it.
func ShortestPath(adj Matrix, source, target int, withPath bool) (PathResult, error) {
	if !adj.IsSquare() {
		return PathResult{}, engineerr.Shapef("adjacency matrix must be square, got %dx%d", adj.rows, adj.cols)
	}
	if err := checkVertex("source", source, adj.rows); err != nil {
		return PathResult{}, err
	}
	if err := checkVertex("target", target, adj.rows); err != nil {
		return PathResult{}, err
	}
	closure, err := Close(adj)
	if err != nil {
		return PathResult{}, err
	}
	dist := closure.Distances.At(source, target)
	result := PathResult{
		Source:     source,
		Target:     target,
		Distance:   dist,
		Reachable:  !closure.Distances.semiring.IsZero(dist),
		Iterations: closure.Iterations,
	}
	if withPath {
		result.Path = closure.Path(source, target)
	}
	return result, nil
}

// Distances returns every distance from source plus the all-pairs matrix.
func Distances(adj Matrix, source int) (DistancesResult, error) {
	if !adj.IsSquare() {
		return DistancesResult{}, engineerr.Shapef("adjacency matrix must be square, got %dx%d", adj.rows, adj.cols)
	}
	if err := checkVertex("source", source, adj.rows); err != nil {
		return DistancesResult{}, err
	}
	closure, err := Close(adj)
	if err != nil {
		return DistancesResult{}, err
	}
	all := closure.Distances.Rows2D()
	row := all[source]
	reachable := make([]int, 0, len(row))
	for v, d := range row {
		if !closure.Distances.semiring.IsZero(d) {
			reachable = append(reachable, v)
		}
	}
	return DistancesResult{
		Source:            source,
		Distances:         append([]float64(nil), row...),
		ReachableVertices: reachable,
		AllPairs:          all,
		Iterations:        closure.Iterations,
	}, nil
}
