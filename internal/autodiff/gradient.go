package autodiff

import "amari/internal/engineerr"

type GradientResult struct {
	Expression string    `json:"expression"`
	Variables  []string  `json:"variables"`
	Value      float64   `json:"value"`
	Gradient   []float64 `json:"gradient"`
}

// ComputeGradient compiles expression and evaluates it once at values.
func ComputeGradient(expression string, variables []string, values []float64) (GradientResult, error) {
	if len(variables) != len(values) {
		return GradientResult{}, engineerr.Shapef("got %d values for %d variables", len(values), len(variables))
	}
	prog, err := Compile(expression, variables)
	if err != nil {
		return GradientResult{}, err
	}
	value, grad, err := prog.Evaluate(values)
	if err != nil {
		return GradientResult{}, err
	}
	return GradientResult{
		Expression: prog.String(),
		Variables:  prog.Variables(),
		Value:      value,
		Gradient:   grad,
	}, nil
}
