package autodiff

import (
	"errors"
	"math"
	"strings"
	"testing"

	"amari/internal/engineerr"
)

const tol = 1e-12

func near(a, b float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Abs(b))
}

func TestComputeGradientPolynomialWithSine(t *testing.T) {
	res, err := ComputeGradient("x^2 * y + sin(x)", []string{"x", "y"}, []float64{1, 2})
	if err != nil {
		t.Fatalf("compute gradient: %v", err)
	}
	wantValue := 2 + math.Sin(1)
	if !near(res.Value, wantValue) {
		t.Fatalf("unexpected value: got=%v want=%v", res.Value, wantValue)
	}
	want := []float64{4 + math.Cos(1), 1}
	for i := range want {
		if !near(res.Gradient[i], want[i]) {
			t.Fatalf("unexpected gradient[%d]: got=%v want=%v", i, res.Gradient[i], want[i])
		}
	}
}

func TestPrecedenceAndAssociativity(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"2 ^ 3 ^ 2", 512},
		{"-2 ^ 2", -4},
		{"(-2) ^ 2", 4},
		{"8 / 4 / 2", 1},
		{"10 - 4 - 3", 3},
		{"2 * -3", -6},
		{"1.5e2 + .5", 150.5},
		{"pi", math.Pi},
		{"log(e)", 1},
		{"sqrt(16) + tan(0) + exp(0) + cos(0)", 6},
	}
	for _, tc := range cases {
		prog, err := Compile(tc.expr, nil)
		if err != nil {
			t.Fatalf("compile %q: %v", tc.expr, err)
		}
		got, grad, err := prog.Evaluate(nil)
		if err != nil {
			t.Fatalf("evaluate %q: %v", tc.expr, err)
		}
		if len(grad) != 0 {
			t.Fatalf("expected empty gradient for %q, got=%v", tc.expr, grad)
		}
		if !near(got, tc.want) {
			t.Fatalf("evaluate %q: got=%v want=%v", tc.expr, got, tc.want)
		}
	}
}

func TestGradientsMatchFiniteDifferences(t *testing.T) {
	exprs := []string{
		"x * y / (1 + x^2)",
		"exp(x * y) - log(x + y)",
		"sqrt(x^2 + y^2)",
		"x ^ y",
		"cos(x) * tan(y) - -x",
		"2 ^ x + y ^ 3",
	}
	point := []float64{0.7, 1.3}
	const h = 1e-6
	for _, expr := range exprs {
		prog, err := Compile(expr, []string{"x", "y"})
		if err != nil {
			t.Fatalf("compile %q: %v", expr, err)
		}
		_, grad, err := prog.Evaluate(point)
		if err != nil {
			t.Fatalf("evaluate %q: %v", expr, err)
		}
		for i := range point {
			plus := append([]float64(nil), point...)
			minus := append([]float64(nil), point...)
			plus[i] += h
			minus[i] -= h
			fp, _, err := prog.Evaluate(plus)
			if err != nil {
				t.Fatalf("evaluate %q: %v", expr, err)
			}
			fm, _, err := prog.Evaluate(minus)
			if err != nil {
				t.Fatalf("evaluate %q: %v", expr, err)
			}
			numeric := (fp - fm) / (2 * h)
			if math.Abs(numeric-grad[i]) > 1e-6 {
				t.Fatalf("%q d/d%d: got=%v numeric=%v", expr, i, grad[i], numeric)
			}
		}
	}
}

func TestSyntaxErrorsCarryPosition(t *testing.T) {
	cases := []struct {
		expr string
		pos  int
	}{
		{"", 0},
		{"x +", 3},
		{"(x + 1", 6},
		{"x + 1)", 5},
		{"x $ 1", 2},
		{"foo(x)", 0},
		{"sin x", 0},
		{"x y", 2},
		{"z + x", 0},
	}
	for _, tc := range cases {
		_, err := Compile(tc.expr, []string{"x", "y"})
		if !errors.Is(err, engineerr.ErrSyntax) {
			t.Fatalf("compile %q: expected syntax error, got %v", tc.expr, err)
		}
		var se *engineerr.SyntaxError
		if !errors.As(err, &se) {
			t.Fatalf("compile %q: expected *SyntaxError, got %T", tc.expr, err)
		}
		if se.Pos != tc.pos {
			t.Fatalf("compile %q: unexpected position: got=%d want=%d (%v)", tc.expr, se.Pos, tc.pos, err)
		}
	}
}

func TestNestingDepthIsBounded(t *testing.T) {
	deep := strings.Repeat("(", MaxDepth+1) + "x" + strings.Repeat(")", MaxDepth+1)
	if _, err := Compile(deep, []string{"x"}); !errors.Is(err, engineerr.ErrSyntax) {
		t.Fatalf("expected syntax error for deep nesting, got %v", err)
	}
	ok := strings.Repeat("(", 10) + "x" + strings.Repeat(")", 10)
	if _, err := Compile(ok, []string{"x"}); err != nil {
		t.Fatalf("compile moderate nesting: %v", err)
	}
}

func TestLongFlatExpressionEvaluates(t *testing.T) {
	expr := "x" + strings.Repeat(" + x", 20000)
	prog, err := Compile(expr, []string{"x"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	v, grad, err := prog.Evaluate([]float64{0.5})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if v != 10000.5 || grad[0] != 20001 {
		t.Fatalf("unexpected result: value=%v grad=%v", v, grad)
	}
}

func TestDomainErrors(t *testing.T) {
	cases := []struct {
		expr  string
		value float64
		op    string
	}{
		{"1 / x", 0, "div"},
		{"log(x)", 0, "log"},
		{"log(x)", -1, "log"},
		{"sqrt(x)", -4, "sqrt"},
		{"x ^ x", -1, "pow"},
		{"x ^ 0.5", -2, "pow"},
		{"exp(x)", 1000, "exp"},
	}
	for _, tc := range cases {
		prog, err := Compile(tc.expr, []string{"x"})
		if err != nil {
			t.Fatalf("compile %q: %v", tc.expr, err)
		}
		_, _, err = prog.Evaluate([]float64{tc.value})
		if !errors.Is(err, engineerr.ErrDomain) {
			t.Fatalf("evaluate %q at %v: expected domain error, got %v", tc.expr, tc.value, err)
		}
		var ee *EvalError
		if !errors.As(err, &ee) || ee.Op != tc.op {
			t.Fatalf("evaluate %q: unexpected error detail %v", tc.expr, err)
		}
	}
}

func TestCompileRejectsDuplicateVariables(t *testing.T) {
	_, err := Compile("x", []string{"x", "x"})
	if !errors.Is(err, engineerr.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
}

func TestArityMismatch(t *testing.T) {
	_, err := ComputeGradient("x + y", []string{"x", "y"}, []float64{1})
	if !errors.Is(err, engineerr.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
}

func TestDeclaredVariableShadowsConstant(t *testing.T) {
	res, err := ComputeGradient("e * 2", []string{"e"}, []float64{3})
	if err != nil {
		t.Fatalf("compute gradient: %v", err)
	}
	if res.Value != 6 || res.Gradient[0] != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestUnusedVariableHasZeroGradient(t *testing.T) {
	res, err := ComputeGradient("x * 3", []string{"x", "unused"}, []float64{2, 9})
	if err != nil {
		t.Fatalf("compute gradient: %v", err)
	}
	if res.Gradient[0] != 3 || res.Gradient[1] != 0 {
		t.Fatalf("unexpected gradient: %v", res.Gradient)
	}
}

func TestParseRendersCanonicalForm(t *testing.T) {
	node, err := Parse("-x^2 + sin(y)/2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got, want := node.String(), "((-(x ^ 2)) + (sin(y) / 2))"; got != want {
		t.Fatalf("unexpected rendering: got=%s want=%s", got, want)
	}
	vars := node.Variables()
	if len(vars) != 2 || vars[0] != "x" || vars[1] != "y" {
		t.Fatalf("unexpected variables: %v", vars)
	}
}

func TestNonFiniteInputsAreDomainErrors(t *testing.T) {
	for _, expr := range []string{"x", "x * 2", "sin(x)"} {
		prog, err := Compile(expr, []string{"x"})
		if err != nil {
			t.Fatalf("compile %q: %v", expr, err)
		}
		for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			if _, _, err := prog.Evaluate([]float64{v}); !errors.Is(err, engineerr.ErrDomain) {
				t.Fatalf("evaluate %q at %v: expected domain error, got %v", expr, v, err)
			}
		}
	}
	if _, err := ComputeGradient("x", []string{"x"}, []float64{math.NaN()}); !errors.Is(err, engineerr.ErrDomain) {
		t.Fatalf("bare variable at NaN: expected domain error, got %v", err)
	}
}
