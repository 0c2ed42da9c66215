package autodiff

import (
	"fmt"
	"math"

	"amari/internal/engineerr"
)

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// Program is a compiled expression bound to an ordered variable list.
type Program struct {
	root      *Node
	variables []string
}

// EvalError reports a domain violation at a specific node.
type EvalError struct {
	Pos int
	Op  string
	Msg string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("domain error at position %d (%s): %s", e.Pos, e.Op, e.Msg)
}

func (e *EvalError) Unwrap() error {
	return engineerr.ErrDomain
}

// Compile parses expr and binds every variable reference to its position in
// variables. Declared names shadow the constants pi and e.
func Compile(expr string, variables []string) (*Program, error) {
	index := make(map[string]int, len(variables))
	for i, name := range variables {
		if name == "" {
			return nil, engineerr.Shapef("variable %d has an empty name", i)
		}
		if _, dup := index[name]; dup {
			return nil, engineerr.Shapef("variable %q declared more than once", name)
		}
		index[name] = i
	}

	root, err := Parse(expr)
	if err != nil {
		return nil, err
	}

	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Kind == KindVar {
			if slot, ok := index[n.Name]; ok {
				n.slot = slot
			} else if value, ok := constants[n.Name]; ok {
				n.Kind = KindConst
				n.Value = value
			} else {
				return nil, &engineerr.SyntaxError{Pos: n.Pos, Msg: fmt.Sprintf("undeclared variable %q", n.Name)}
			}
		}
		stack = append(stack, n.Children...)
	}

	return &Program{root: root, variables: append([]string(nil), variables...)}, nil
}

func (p *Program) Variables() []string {
	return append([]string(nil), p.variables...)
}

func (p *Program) String() string {
	return p.root.String()
}

type dual struct {
	val  float64
	grad []float64
}

type frame struct {
	node     *Node
	expanded bool
}

// Evaluate returns the expression value and its gradient with respect to
// the program's variables at the given point.
func (p *Program) Evaluate(values []float64) (float64, []float64, error) {
	if len(values) != len(p.variables) {
		return 0, nil, engineerr.Shapef("got %d values for %d variables", len(values), len(p.variables))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, nil, engineerr.Domainf("value for %s is not finite: %g", p.variables[i], v)
		}
	}
	n := len(values)

	frames := []frame{{node: p.root}}
	var results []dual
	for len(frames) > 0 {
		f := frames[len(frames)-1]
		frames = frames[:len(frames)-1]
		node := f.node

		switch node.Kind {
		case KindConst:
			results = append(results, dual{val: node.Value, grad: make([]float64, n)})
			continue
		case KindVar:
			grad := make([]float64, n)
			grad[node.slot] = 1
			results = append(results, dual{val: values[node.slot], grad: grad})
			continue
		}

		if !f.expanded {
			frames = append(frames, frame{node: node, expanded: true})
			for i := len(node.Children) - 1; i >= 0; i-- {
				frames = append(frames, frame{node: node.Children[i]})
			}
			continue
		}

		arity := len(node.Children)
		args := results[len(results)-arity:]
		out, err := apply(node, args)
		if err != nil {
			return 0, nil, err
		}
		results = append(results[:len(results)-arity], out)
	}

	out := results[0]
	if !finite(out) {
		return 0, nil, domainAt(p.root, "non-finite result")
	}
	return out.val, out.grad, nil
}

func apply(node *Node, args []dual) (dual, error) {
	a := args[0]
	var out dual
	switch node.Kind {
	case KindNeg:
		out = dual{val: -a.val, grad: scaled(a.grad, -1)}
	case KindAdd:
		b := args[1]
		out = dual{val: a.val + b.val, grad: combine(a.grad, 1, b.grad, 1)}
	case KindSub:
		b := args[1]
		out = dual{val: a.val - b.val, grad: combine(a.grad, 1, b.grad, -1)}
	case KindMul:
		b := args[1]
		out = dual{val: a.val * b.val, grad: combine(a.grad, b.val, b.grad, a.val)}
	case KindDiv:
		b := args[1]
		if b.val == 0 {
			return dual{}, domainAt(node, "division by zero")
		}
		out = dual{val: a.val / b.val, grad: combine(a.grad, 1/b.val, b.grad, -a.val/(b.val*b.val))}
	case KindPow:
		var err error
		out, err = power(node, a, args[1])
		if err != nil {
			return dual{}, err
		}
	case KindSin:
		out = dual{val: math.Sin(a.val), grad: scaled(a.grad, math.Cos(a.val))}
	case KindCos:
		out = dual{val: math.Cos(a.val), grad: scaled(a.grad, -math.Sin(a.val))}
	case KindTan:
		c := math.Cos(a.val)
		if c == 0 {
			return dual{}, domainAt(node, "tangent undefined")
		}
		out = dual{val: math.Tan(a.val), grad: scaled(a.grad, 1/(c*c))}
	case KindExp:
		v := math.Exp(a.val)
		out = dual{val: v, grad: scaled(a.grad, v)}
	case KindLog:
		if a.val <= 0 {
			return dual{}, domainAt(node, fmt.Sprintf("log of non-positive value %g", a.val))
		}
		out = dual{val: math.Log(a.val), grad: scaled(a.grad, 1/a.val)}
	case KindSqrt:
		if a.val < 0 {
			return dual{}, domainAt(node, fmt.Sprintf("sqrt of negative value %g", a.val))
		}
		v := math.Sqrt(a.val)
		if v == 0 && !isZero(a.grad) {
			return dual{}, domainAt(node, "sqrt is not differentiable at zero")
		}
		out = dual{val: v, grad: scaled(a.grad, safeInv(2*v))}
	default:
		return dual{}, fmt.Errorf("autodiff: unsupported node kind %s", node.Kind)
	}

	if !finite(out) {
		return dual{}, domainAt(node, "non-finite result")
	}
	return out, nil
}

func power(node *Node, base, exponent dual) (dual, error) {
	if isZero(exponent.grad) {
		k := exponent.val
		v := math.Pow(base.val, k)
		if math.IsNaN(v) {
			return dual{}, domainAt(node, fmt.Sprintf("%g raised to non-integer power %g", base.val, k))
		}
		if base.val == 0 && k < 0 {
			return dual{}, domainAt(node, "zero raised to a negative power")
		}
		if isZero(base.grad) {
			return dual{val: v, grad: base.grad}, nil
		}
		coef := k * math.Pow(base.val, k-1)
		if k == 0 {
			coef = 0
		}
		if math.IsInf(coef, 0) || math.IsNaN(coef) {
			return dual{}, domainAt(node, "power is not differentiable here")
		}
		return dual{val: v, grad: scaled(base.grad, coef)}, nil
	}

	if base.val <= 0 {
		return dual{}, domainAt(node, fmt.Sprintf("non-positive base %g with variable exponent", base.val))
	}
	v := math.Pow(base.val, exponent.val)
	lnBase := math.Log(base.val)
	return dual{val: v, grad: combine(base.grad, v*exponent.val/base.val, exponent.grad, v*lnBase)}, nil
}

func domainAt(node *Node, msg string) error {
	return &EvalError{Pos: node.Pos, Op: node.Kind.String(), Msg: msg}
}

func scaled(g []float64, s float64) []float64 {
	out := make([]float64, len(g))
	for i, v := range g {
		if v != 0 {
			out[i] = v * s
		}
	}
	return out
}

func combine(a []float64, sa float64, b []float64, sb float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		if a[i] != 0 {
			out[i] += a[i] * sa
		}
		if b[i] != 0 {
			out[i] += b[i] * sb
		}
	}
	return out
}

func isZero(g []float64) bool {
	for _, v := range g {
		if v != 0 {
			return false
		}
	}
	return true
}

func safeInv(v float64) float64 {
	if v == 0 {
		return 0
	}
	return 1 / v
}

func finite(d dual) bool {
	if math.IsNaN(d.val) || math.IsInf(d.val, 0) {
		return false
	}
	for _, g := range d.grad {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return false
		}
	}
	return true
}
