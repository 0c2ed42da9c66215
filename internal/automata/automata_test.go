package automata

import (
	"errors"
	"math"
	"testing"

	"amari/internal/engineerr"
	"amari/internal/ga"
)

func scalarGrid(t *testing.T, width, height int, sig ga.Signature, values []float64) Grid {
	t.Helper()
	cells := make([]ga.Multivector, len(values))
	for i, v := range values {
		cells[i] = ga.Scalar(v, sig)
	}
	g, err := NewGrid(width, height, cells)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	return g
}

type recordingRule struct {
	nb   Neighborhood
	seen [][]float64
}

func (r *recordingRule) Name() string               { return "recording" }
func (r *recordingRule) Neighborhood() Neighborhood { return r.nb }
func (r *recordingRule) Apply(cell ga.Multivector, neighbors []ga.Multivector) (ga.Multivector, error) {
	vals := make([]float64, len(neighbors))
	for i, n := range neighbors {
		vals[i] = n.ScalarPart()
	}
	r.seen = append(r.seen, vals)
	return cell, nil
}

func TestNeighborScanOrderWrapsAround(t *testing.T) {
	g := scalarGrid(t, 3, 3, ga.Euclidean3, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8})

	moore := &recordingRule{nb: Moore}
	if _, err := Step(g, moore); err != nil {
		t.Fatalf("step: %v", err)
	}
	want := []float64{8, 6, 7, 2, 1, 5, 3, 4}
	for i, v := range want {
		if moore.seen[0][i] != v {
			t.Fatalf("unexpected moore neighbors of (0,0): got=%v want=%v", moore.seen[0], want)
		}
	}

	vn := &recordingRule{nb: VonNeumann}
	if _, err := Step(g, vn); err != nil {
		t.Fatalf("step: %v", err)
	}
	wantVN := []float64{6, 2, 1, 3}
	for i, v := range wantVN {
		if vn.seen[0][i] != v {
			t.Fatalf("unexpected von neumann neighbors of (0,0): got=%v want=%v", vn.seen[0], wantVN)
		}
	}
}

func TestEvolveIsDeterministic(t *testing.T) {
	sig := ga.Euclidean3
	cells := make([][]float64, 16)
	for i := range cells {
		c := make([]float64, sig.BladeCount())
		for j := range c {
			c[j] = math.Sin(float64(i*8+j)) * 0.9
		}
		cells[i] = c
	}
	g, err := FromCoefficients(4, 4, sig, cells)
	if err != nil {
		t.Fatalf("from coefficients: %v", err)
	}
	for _, name := range ListRules() {
		rule, err := GetRule(name)
		if err != nil {
			t.Fatalf("get rule %s: %v", name, err)
		}
		a, err := Evolve(g, rule, 5, EvolveOptions{})
		if err != nil {
			t.Fatalf("evolve %s: %v", name, err)
		}
		b, err := Evolve(g, rule, 5, EvolveOptions{})
		if err != nil {
			t.Fatalf("evolve %s: %v", name, err)
		}
		if !a.Final.Equal(b.Final) {
			t.Fatalf("rule %s is not deterministic", name)
		}
	}
}

func TestGameOfLifeBlinker(t *testing.T) {
	vertical := []float64{
		0, 0, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 0, 0,
	}
	horizontal := []float64{
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 0,
		0, 1, 1, 1, 0,
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 0,
	}
	sig := ga.Euclidean3
	g := scalarGrid(t, 5, 5, sig, vertical)
	rule, err := GetRule("game_of_life")
	if err != nil {
		t.Fatalf("get rule: %v", err)
	}

	evo, err := Evolve(g, rule, 2, EvolveOptions{History: true})
	if err != nil {
		t.Fatalf("evolve: %v", err)
	}
	if len(evo.History) != 3 {
		t.Fatalf("unexpected history length: got=%d want=3", len(evo.History))
	}
	if !evo.History[1].Equal(scalarGrid(t, 5, 5, sig, horizontal)) {
		t.Fatalf("blinker did not flip horizontal after one step")
	}
	if !evo.Final.Equal(g) {
		t.Fatalf("blinker did not return to vertical after two steps")
	}
}

func TestConservativeRuleKeepsTotal(t *testing.T) {
	sig := ga.Euclidean3
	cells := make([][]float64, 6)
	for i := range cells {
		c := make([]float64, sig.BladeCount())
		c[0] = float64(i)
		c[1] = float64(i%2) - 0.25
		c[7] = 1.5 * float64(i)
		cells[i] = c
	}
	g, err := FromCoefficients(2, 3, sig, cells)
	if err != nil {
		t.Fatalf("from coefficients: %v", err)
	}
	rule, err := GetRule("conservative")
	if err != nil {
		t.Fatalf("get rule: %v", err)
	}
	evo, err := Evolve(g, rule, 7, EvolveOptions{})
	if err != nil {
		t.Fatalf("evolve: %v", err)
	}
	if !evo.Final.Total().ApproxEqual(g.Total(), 1e-9) {
		t.Fatalf("total not conserved: got=%v want=%v", evo.Final.Total().Coefficients(), g.Total().Coefficients())
	}
}

func TestGeometricRuleMultipliesAndClamps(t *testing.T) {
	sig := ga.Euclidean3
	g := scalarGrid(t, 3, 3, sig, []float64{2, 2, 2, 2, 2, 2, 2, 2, 2})
	rule, err := GetRule("geometric")
	if err != nil {
		t.Fatalf("get rule: %v", err)
	}
	next, err := Step(g, rule)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if got := next.At(1, 1).ScalarPart(); got != 4 {
		t.Fatalf("unexpected scalar after one step: got=%v want=4", got)
	}

	evo, err := Evolve(g, rule, 6, EvolveOptions{})
	if err != nil {
		t.Fatalf("evolve: %v", err)
	}
	if got := evo.Final.At(0, 0).ScalarPart(); got != ClampLimit {
		t.Fatalf("scalar not clamped: got=%v want=%v", got, ClampLimit)
	}
}

func TestRotorRule(t *testing.T) {
	sig := ga.Euclidean3
	e1, _ := ga.Basis(0, sig)
	g, err := NewGrid(2, 2, []ga.Multivector{e1, e1, e1, e1})
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	rule, err := GetRule("rotor")
	if err != nil {
		t.Fatalf("get rule: %v", err)
	}
	next, err := Step(g, rule)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if !next.Equal(g) {
		t.Fatalf("cells without bivector neighbors should not move")
	}

	e12 := ga.Zero(sig)
	coeffs := e12.Coefficients()
	coeffs[0b011] = math.Pi / 2
	plane, err := ga.New(coeffs, sig)
	if err != nil {
		t.Fatalf("new plane: %v", err)
	}
	mixed, err := NewGrid(2, 1, []ga.Multivector{e1, plane})
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	rotated, err := rule.Apply(mixed.At(0, 0), []ga.Multivector{plane, plane, plane, plane})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if v := rotated.Vector(); math.Abs(v[0]) > 1e-12 || math.Abs(math.Abs(v[1])-1) > 1e-12 {
		t.Fatalf("expected a quarter turn of e1 into ±e2, got %v", v)
	}

	st, _ := ga.NewSignature(2, 1, 0)
	cells := []ga.Multivector{ga.Scalar(1, st)}
	bad, err := NewGrid(1, 1, cells)
	if err != nil {
		t.Fatalf("new grid: %v", err)
	}
	if _, err := Step(bad, rule); !errors.Is(err, engineerr.ErrDomain) {
		t.Fatalf("expected domain error for non-Euclidean grid, got %v", err)
	}
}

func TestGridValidation(t *testing.T) {
	sig := ga.Euclidean3
	if _, err := NewGrid(2, 2, []ga.Multivector{ga.Scalar(1, sig)}); !errors.Is(err, engineerr.ErrShape) {
		t.Fatalf("expected shape error for short grid, got %v", err)
	}
	other, _ := ga.NewSignature(2, 0, 0)
	if _, err := NewGrid(2, 1, []ga.Multivector{ga.Scalar(1, sig), ga.Scalar(1, other)}); !errors.Is(err, engineerr.ErrShape) {
		t.Fatalf("expected shape error for mixed signatures, got %v", err)
	}
	if _, err := FromCoefficients(1, 1, sig, [][]float64{{1, 2}}); !errors.Is(err, engineerr.ErrShape) {
		t.Fatalf("expected shape error for wrong coefficient count, got %v", err)
	}
	g := scalarGrid(t, 1, 1, sig, []float64{1})
	rule, _ := GetRule("conservative")
	if _, err := Evolve(g, rule, -1, EvolveOptions{}); !errors.Is(err, engineerr.ErrShape) {
		t.Fatalf("expected shape error for negative steps, got %v", err)
	}
}

func TestRuleRegistry(t *testing.T) {
	resetRuleRegistryForTests()
	t.Cleanup(resetRuleRegistryForTests)

	if _, err := GetRule("missing"); !errors.Is(err, ErrRuleNotFound) || !errors.Is(err, engineerr.ErrShape) {
		t.Fatalf("expected rule not found shape error, got %v", err)
	}
	if err := RegisterRule(GeometricRule{}); !errors.Is(err, ErrRuleExists) {
		t.Fatalf("expected ErrRuleExists, got %v", err)
	}
	if err := RegisterRule(&recordingRule{nb: Moore}); err != nil {
		t.Fatalf("register rule: %v", err)
	}
	names := ListRules()
	want := []string{"conservative", "game_of_life", "geometric", "recording", "rotor"}
	if len(names) != len(want) {
		t.Fatalf("unexpected rule list: got=%v want=%v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("unexpected rule list: got=%v want=%v", names, want)
		}
	}
}
