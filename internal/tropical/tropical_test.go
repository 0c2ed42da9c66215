package tropical

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"amari/internal/engineerr"
)

var inf = math.Inf(1)

func mustMatrix(t *testing.T, rows [][]float64, s Semiring) Matrix {
	t.Helper()
	m, err := NewMatrix(rows, s)
	if err != nil {
		t.Fatalf("new matrix: %v", err)
	}
	return m
}

func TestNewMatrixRejectsRaggedRows(t *testing.T) {
	_, err := NewMatrix([][]float64{{1, 2}, {3}}, MinPlus)
	if !errors.Is(err, engineerr.ErrShape) {
		t.Fatalf("expected ErrShape, got: %v", err)
	}
}

func TestNewMatrixRejectsNaN(t *testing.T) {
	nan := math.NaN()
	_, err := NewMatrix([][]float64{{0, nan}, {math.Inf(1), 0}}, MinPlus)
	if !errors.Is(err, engineerr.ErrShape) {
		t.Fatalf("expected ErrShape, got: %v", err)
	}
	if _, err := NewMatrix([][]float64{{0, math.Inf(1)}, {math.Inf(1), 0}}, MinPlus); err != nil {
		t.Fatalf("infinite entries are the min-plus zero: %v", err)
	}
}

func TestMultiplyMinPlus(t *testing.T) {
	a := mustMatrix(t, [][]float64{{0, 3, inf}, {2, 0, 1}, {inf, 4, 0}}, MinPlus)
	b := mustMatrix(t, [][]float64{{0, 1}, {2, 0}, {3, 2}}, MinPlus)
	got, err := Multiply(a, b)
	if err != nil {
		t.Fatalf("multiply: %v", err)
	}
	want := [][]float64{{0, 1}, {2, 0}, {3, 2}}
	if !reflect.DeepEqual(got.Rows2D(), want) {
		t.Fatalf("unexpected product: got=%v want=%v", got.Rows2D(), want)
	}
}

func TestMultiplyZeroElementAnnihilates(t *testing.T) {
	a := mustMatrix(t, [][]float64{{inf, inf}}, MinPlus)
	b := mustMatrix(t, [][]float64{{math.Inf(-1)}, {1}}, MinPlus)
	got, err := Multiply(a, b)
	if err != nil {
		t.Fatalf("multiply: %v", err)
	}
	if v := got.At(0, 0); !math.IsInf(v, 1) {
		t.Fatalf("expected +Inf, got %v", v)
	}
}

func TestMultiplyMaxPlus(t *testing.T) {
	ninf := math.Inf(-1)
	a := mustMatrix(t, [][]float64{{1, ninf}, {0, 2}}, MaxPlus)
	b := mustMatrix(t, [][]float64{{3}, {4}}, MaxPlus)
	got, err := Multiply(a, b)
	if err != nil {
		t.Fatalf("multiply: %v", err)
	}
	want := [][]float64{{4}, {6}}
	if !reflect.DeepEqual(got.Rows2D(), want) {
		t.Fatalf("unexpected product: got=%v want=%v", got.Rows2D(), want)
	}
}

func TestMultiplyShapeMismatch(t *testing.T) {
	a := mustMatrix(t, [][]float64{{1, 2}}, MinPlus)
	b := mustMatrix(t, [][]float64{{1, 2}}, MinPlus)
	if _, err := Multiply(a, b); !errors.Is(err, engineerr.ErrShape) {
		t.Fatalf("expected ErrShape, got: %v", err)
	}
}

func TestMultiplyByIdentity(t *testing.T) {
	for _, s := range []Semiring{MinPlus, MaxPlus} {
		a := mustMatrix(t, [][]float64{{0, 7, s.Zero()}, {-2, 3.5, 1}, {s.Zero(), 4, 9}}, s)
		id := Identity(3, s)
		left, err := Multiply(id, a)
		if err != nil {
			t.Fatalf("multiply: %v", err)
		}
		right, err := Multiply(a, id)
		if err != nil {
			t.Fatalf("multiply: %v", err)
		}
		if !left.Equal(a) || !right.Equal(a) {
			t.Fatalf("%s identity changed matrix: left=%v right=%v want=%v", s, left.Rows2D(), right.Rows2D(), a.Rows2D())
		}
	}
}

func TestPower(t *testing.T) {
	a := mustMatrix(t, [][]float64{{0, 1, inf}, {inf, 0, 1}, {inf, inf, 0}}, MinPlus)
	got, err := Power(a, 2)
	if err != nil {
		t.Fatalf("power: %v", err)
	}
	if got.At(0, 2) != 2 {
		t.Fatalf("expected two-hop distance 2, got %v", got.At(0, 2))
	}
	zero, err := Power(a, 0)
	if err != nil {
		t.Fatalf("power 0: %v", err)
	}
	if !zero.Equal(Identity(3, MinPlus)) {
		t.Fatalf("A^0 should be identity, got %v", zero.Rows2D())
	}
}

func specGraph(t *testing.T) Matrix {
	t.Helper()
	return mustMatrix(t, [][]float64{
		{0, 2, inf, 1},
		{inf, 0, 3, 2},
		{inf, inf, 0, 1},
		{inf, inf, inf, 0},
	}, MinPlus)
}

func TestShortestPathExample(t *testing.T) {
	got, err := ShortestPath(specGraph(t), 0, 2, true)
	if err != nil {
		t.Fatalf("shortest path: %v", err)
	}
	if got.Distance != 5 || !got.Reachable {
		t.Fatalf("unexpected distance: %+v", got)
	}
	if !reflect.DeepEqual(got.Path, []int{0, 1, 2}) {
		t.Fatalf("unexpected path: %v", got.Path)
	}
}

func TestShortestPathUnreachable(t *testing.T) {
	got, err := ShortestPath(specGraph(t), 3, 0, true)
	if err != nil {
		t.Fatalf("shortest path: %v", err)
	}
	if got.Reachable || !math.IsInf(got.Distance, 1) || got.Path != nil {
		t.Fatalf("expected unreachable result, got %+v", got)
	}
}

func TestShortestPathPrefersLongerCheaperRoute(t *testing.T) {
	g := mustMatrix(t, [][]float64{
		{0, 10, 1, inf},
		{inf, 0, inf, 1},
		{inf, 1, 0, 8},
		{inf, inf, inf, 0},
	}, MinPlus)
	got, err := ShortestPath(g, 0, 3, true)
	if err != nil {
		t.Fatalf("shortest path: %v", err)
	}
	if got.Distance != 3 || !reflect.DeepEqual(got.Path, []int{0, 2, 1, 3}) {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestShortestPathNegativeEdgesWithoutCycle(t *testing.T) {
	g := mustMatrix(t, [][]float64{
		{0, 4, 2},
		{inf, 0, inf},
		{inf, -3, 0},
	}, MinPlus)
	got, err := ShortestPath(g, 0, 1, true)
	if err != nil {
		t.Fatalf("shortest path: %v", err)
	}
	if got.Distance != -1 || !reflect.DeepEqual(got.Path, []int{0, 2, 1}) {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestShortestPathNegativeCycle(t *testing.T) {
	g := mustMatrix(t, [][]float64{
		{0, 1, inf},
		{inf, 0, -3},
		{1, inf, 0},
	}, MinPlus)
	_, err := ShortestPath(g, 0, 2, false)
	if !errors.Is(err, engineerr.ErrNegativeCycle) {
		t.Fatalf("expected ErrNegativeCycle, got: %v", err)
	}

	loop := mustMatrix(t, [][]float64{{-1}}, MinPlus)
	if _, err := ShortestPath(loop, 0, 0, false); !errors.Is(err, engineerr.ErrNegativeCycle) {
		t.Fatalf("expected ErrNegativeCycle for negative self loop, got: %v", err)
	}
}

func TestShortestPathValidatesVertices(t *testing.T) {
	if _, err := ShortestPath(specGraph(t), 0, 4, false); !errors.Is(err, engineerr.ErrShape) {
		t.Fatalf("expected ErrShape, got: %v", err)
	}
	rect := mustMatrix(t, [][]float64{{0, 1}}, MinPlus)
	if _, err := ShortestPath(rect, 0, 0, false); !errors.Is(err, engineerr.ErrShape) {
		t.Fatalf("expected ErrShape for non-square matrix, got: %v", err)
	}
}

func TestDistancesFromSource(t *testing.T) {
	got, err := Distances(specGraph(t), 0)
	if err != nil {
		t.Fatalf("distances: %v", err)
	}
	want := []float64{0, 2, 5, 1}
	if !reflect.DeepEqual(got.Distances, want) {
		t.Fatalf("unexpected distances: got=%v want=%v", got.Distances, want)
	}
	if !reflect.DeepEqual(got.ReachableVertices, []int{0, 1, 2, 3}) {
		t.Fatalf("unexpected reachable set: %v", got.ReachableVertices)
	}
	if len(got.AllPairs) != 4 || !math.IsInf(got.AllPairs[3][0], 1) {
		t.Fatalf("unexpected all pairs matrix: %v", got.AllPairs)
	}
}
