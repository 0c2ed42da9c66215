// Package infogeom estimates Fisher information matrices for parametric
// distribution families.
package infogeom

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"amari/internal/engineerr"
)

// Family describes a parametric distribution. LogDensity is written in the
// autodiff expression syntax over the sample variable x and the parameter
// names; terms that depend only on x may be dropped since they have no
// parameter gradient.
type Family struct {
	Name       string
	Params     []string
	LogDensity string

	// Variadic families take any positive number of parameters; Params then
	// names the pattern rather than a fixed list.
	Variadic bool

	Validate func(params []float64) error
	Analytic func(params []float64) ([][]float64, error)
	Score    func(x float64, params []float64) ([]float64, error)
}

var ErrFamilyExists = errors.New("family already registered")

var familyRegistry = struct {
	mu sync.RWMutex
	m  map[string]Family
}{
	m: make(map[string]Family),
}

func init() {
	initializeBuiltInFamilies()
}

func initializeBuiltInFamilies() {
	MustRegisterFamily(Family{
		Name:       "gaussian",
		Params:     []string{"mean", "variance"},
		LogDensity: "-0.5 * log(2 * pi * variance) - (x - mean)^2 / (2 * variance)",
		Validate: func(p []float64) error {
			return positive("variance", p[1])
		},
		Analytic: func(p []float64) ([][]float64, error) {
			v := p[1]
			return [][]float64{{1 / v, 0}, {0, 1 / (2 * v * v)}}, nil
		},
	})
	MustRegisterFamily(Family{
		Name:       "exponential",
		Params:     []string{"rate"},
		LogDensity: "log(rate) - rate * x",
		Validate: func(p []float64) error {
			return positive("rate", p[0])
		},
		Analytic: func(p []float64) ([][]float64, error) {
			return [][]float64{{1 / (p[0] * p[0])}}, nil
		},
	})
	MustRegisterFamily(Family{
		Name:       "poisson",
		Params:     []string{"rate"},
		LogDensity: "x * log(rate) - rate",
		Validate: func(p []float64) error {
			return positive("rate", p[0])
		},
		Analytic: func(p []float64) ([][]float64, error) {
			return [][]float64{{1 / p[0]}}, nil
		},
	})
	MustRegisterFamily(Family{
		Name:       "bernoulli",
		Params:     []string{"p"},
		LogDensity: "x * log(p) + (1 - x) * log(1 - p)",
		Validate: func(p []float64) error {
			if !(p[0] > 0 && p[0] < 1) {
				return engineerr.Domainf("p must lie in (0, 1), got %g", p[0])
			}
			return nil
		},
		Analytic: func(p []float64) ([][]float64, error) {
			return [][]float64{{1 / (p[0] * (1 - p[0]))}}, nil
		},
	})
	MustRegisterFamily(Family{
		Name:     "categorical",
		Params:   []string{"p1", "...", "pk"},
		Variadic: true,
		Validate: validateProbabilities,
		Analytic: func(p []float64) ([][]float64, error) {
			out := identityScaled(len(p), 0)
			for i, v := range p {
				out[i][i] = 1 / v
			}
			return out, nil
		},
		Score: func(x float64, p []float64) ([]float64, error) {
			k := int(x)
			if float64(k) != x || k < 0 || k >= len(p) {
				return nil, engineerr.Domainf("categorical sample %g is not a category index in [0, %d)", x, len(p))
			}
			score := make([]float64, len(p))
			score[k] = 1 / p[k]
			return score, nil
		},
	})
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return engineerr.Domainf("%s must be positive and finite, got %g", name, v)
	}
	return nil
}

func validateProbabilities(p []float64) error {
	var sum float64
	for i, v := range p {
		if !(v > 0 && v <= 1) {
			return engineerr.Domainf("probability %d must lie in (0, 1], got %g", i, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-6 {
		return engineerr.Domainf("probabilities sum to %g, want 1", sum)
	}
	return nil
}

func identityScaled(n int, s float64) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		out[i][i] = s
	}
	return out
}

func RegisterFamily(f Family) error {
	if f.Name == "" {
		return errors.New("family name is required")
	}
	if f.LogDensity == "" && f.Score == nil {
		return fmt.Errorf("family %s needs a log-density or a score function", f.Name)
	}
	if !f.Variadic && len(f.Params) == 0 {
		return fmt.Errorf("family %s declares no parameters", f.Name)
	}
	familyRegistry.mu.Lock()
	defer familyRegistry.mu.Unlock()
	if _, exists := familyRegistry.m[f.Name]; exists {
		return fmt.Errorf("%w: %s", ErrFamilyExists, f.Name)
	}
	f.Params = append([]string(nil), f.Params...)
	familyRegistry.m[f.Name] = f
	return nil
}

func MustRegisterFamily(f Family) {
	if err := RegisterFamily(f); err != nil {
		panic(err)
	}
}

func GetFamily(name string) (Family, error) {
	familyRegistry.mu.RLock()
	f, ok := familyRegistry.m[name]
	familyRegistry.mu.RUnlock()
	if !ok {
		return Family{}, engineerr.UnknownFamilyf("%s", name)
	}
	return f, nil
}

func ListFamilies() []string {
	familyRegistry.mu.RLock()
	defer familyRegistry.mu.RUnlock()
	names := make([]string, 0, len(familyRegistry.m))
	for name := range familyRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetFamilyRegistryForTests() {
	familyRegistry.mu.Lock()
	familyRegistry.m = make(map[string]Family)
	familyRegistry.mu.Unlock()
	initializeBuiltInFamilies()
}
