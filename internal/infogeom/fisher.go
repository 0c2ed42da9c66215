package infogeom

import (
	"fmt"
	"math"

	"amari/internal/autodiff"
	"amari/internal/engineerr"
)

type Method string

const (
	MethodAuto      Method = "auto"
	MethodAnalytic  Method = "analytic"
	MethodEmpirical Method = "empirical"
)

func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "", MethodAuto:
		return MethodAuto, nil
	case MethodAnalytic, MethodEmpirical:
		return Method(s), nil
	default:
		return "", engineerr.Shapef("unknown Fisher method %q", s)
	}
}

// Request selects a family and the point at which to evaluate its Fisher
// information. A non-empty LogDensity defines a custom family named Family
// over ParamNames, which bypasses the registry.
type Request struct {
	Family     string
	Params     []float64
	Data       []float64
	Method     Method
	LogDensity string
	ParamNames []string
}

type Result struct {
	Family   string      `json:"distribution"`
	Method   Method      `json:"method"`
	Params   []string    `json:"parameter_names"`
	Values   []float64   `json:"parameters"`
	DataSize int         `json:"data_size"`
	Matrix   [][]float64 `json:"fisher_information_matrix"`
}

// FisherInformation returns the per-sample Fisher information matrix. The
// empirical estimator averages score outer products over req.Data.
func FisherInformation(req Request) (Result, error) {
	method, err := ParseMethod(string(req.Method))
	if err != nil {
		return Result{}, err
	}
	family, err := resolveFamily(req)
	if err != nil {
		return Result{}, err
	}
	names, err := paramNames(family, len(req.Params))
	if err != nil {
		return Result{}, err
	}
	if err := allFinite("parameter", req.Params); err != nil {
		return Result{}, err
	}
	if err := allFinite("sample", req.Data); err != nil {
		return Result{}, err
	}
	if family.Validate != nil {
		if err := family.Validate(req.Params); err != nil {
			return Result{}, err
		}
	}

	if method == MethodAuto {
		method = MethodEmpirical
		if family.Analytic != nil {
			method = MethodAnalytic
		}
	}

	var matrix [][]float64
	switch method {
	case MethodAnalytic:
		if family.Analytic == nil {
			return Result{}, engineerr.Shapef("family %s has no analytic Fisher information", family.Name)
		}
		matrix, err = family.Analytic(req.Params)
	case MethodEmpirical:
		matrix, err = empirical(family, names, req.Params, req.Data)
	}
	if err != nil {
		return Result{}, err
	}
	for i, row := range matrix {
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return Result{}, engineerr.Domainf("fisher information entry [%d][%d] is not finite at parameters %v", i, j, req.Params)
			}
		}
	}

	return Result{
		Family:   family.Name,
		Method:   method,
		Params:   names,
		Values:   append([]float64(nil), req.Params...),
		DataSize: len(req.Data),
		Matrix:   matrix,
	}, nil
}

func allFinite(what string, vs []float64) error {
	for i, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return engineerr.Domainf("%s %d is not finite: %g", what, i, v)
		}
	}
	return nil
}

func resolveFamily(req Request) (Family, error) {
	if req.LogDensity != "" {
		if len(req.ParamNames) == 0 {
			return Family{}, engineerr.Shapef("custom log-density needs parameter names")
		}
		name := req.Family
		if name == "" {
			name = "custom"
		}
		return Family{Name: name, Params: append([]string(nil), req.ParamNames...), LogDensity: req.LogDensity}, nil
	}
	return GetFamily(req.Family)
}

func paramNames(f Family, n int) ([]string, error) {
	if f.Variadic {
		if n == 0 {
			return nil, engineerr.Shapef("family %s needs at least one parameter", f.Name)
		}
		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("p%d", i+1)
		}
		return names, nil
	}
	if n != len(f.Params) {
		return nil, engineerr.Shapef("family %s takes %d parameters %v, got %d", f.Name, len(f.Params), f.Params, n)
	}
	return append([]string(nil), f.Params...), nil
}

func empirical(f Family, names []string, params, data []float64) ([][]float64, error) {
	if len(data) == 0 {
		return nil, engineerr.Shapef("empirical Fisher information needs at least one sample")
	}

	score := f.Score
	if score == nil {
		s, err := scoreFromDensity(f, names)
		if err != nil {
			return nil, err
		}
		score = s
	}

	k := len(params)
	sum := identityScaled(k, 0)
	for i, x := range data {
		s, err := score(x, params)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		for a := 0; a < k; a++ {
			for b := a; b < k; b++ {
				sum[a][b] += s[a] * s[b]
			}
		}
	}
	n := float64(len(data))
	for a := 0; a < k; a++ {
		for b := a; b < k; b++ {
			sum[a][b] /= n
			sum[b][a] = sum[a][b]
		}
	}
	return sum, nil
}

// scoreFromDensity compiles the log-density once over (x, params...) and
// returns the parameter part of its gradient.
func scoreFromDensity(f Family, names []string) (func(float64, []float64) ([]float64, error), error) {
	vars := append([]string{"x"}, names...)
	prog, err := autodiff.Compile(f.LogDensity, vars)
	if err != nil {
		return nil, fmt.Errorf("family %s log-density: %w", f.Name, err)
	}
	return func(x float64, params []float64) ([]float64, error) {
		point := make([]float64, 0, len(params)+1)
		point = append(point, x)
		point = append(point, params...)
		_, grad, err := prog.Evaluate(point)
		if err != nil {
			return nil, err
		}
		return grad[1:], nil
	}, nil
}
