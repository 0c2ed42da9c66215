package automata

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"amari/internal/engineerr"
	"amari/internal/ga"
)

// ClampLimit bounds the scalar part produced by the geometric rule.
const ClampLimit = 1e3

var (
	ErrRuleExists   = errors.New("rule already registered")
	ErrRuleNotFound = errors.New("rule not found")
)

// Rule computes a cell's next value from its current value and its
// neighbors in scan order.
type Rule interface {
	Name() string
	Neighborhood() Neighborhood
	Apply(cell ga.Multivector, neighbors []ga.Multivector) (ga.Multivector, error)
}

var ruleRegistry = struct {
	mu sync.RWMutex
	m  map[string]Rule
}{
	m: make(map[string]Rule),
}

func init() {
	initializeBuiltInRules()
}

func initializeBuiltInRules() {
	MustRegisterRule(GeometricRule{})
	MustRegisterRule(LifeRule{})
	MustRegisterRule(ConservativeRule{})
	MustRegisterRule(RotorRule{})
}

func RegisterRule(rule Rule) error {
	if rule == nil {
		return errors.New("rule is required")
	}
	if rule.Name() == "" {
		return errors.New("rule name is required")
	}
	ruleRegistry.mu.Lock()
	defer ruleRegistry.mu.Unlock()
	if _, exists := ruleRegistry.m[rule.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrRuleExists, rule.Name())
	}
	ruleRegistry.m[rule.Name()] = rule
	return nil
}

func MustRegisterRule(rule Rule) {
	if err := RegisterRule(rule); err != nil {
		panic(err)
	}
}

// GetRule resolves a registered rule; a miss is reported as a shape error
// because the rule name is part of the request schema.
func GetRule(name string) (Rule, error) {
	ruleRegistry.mu.RLock()
	rule, ok := ruleRegistry.m[name]
	ruleRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", engineerr.ErrShape, ErrRuleNotFound, name)
	}
	return rule, nil
}

func ListRules() []string {
	ruleRegistry.mu.RLock()
	defer ruleRegistry.mu.RUnlock()
	names := make([]string, 0, len(ruleRegistry.m))
	for name := range ruleRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetRuleRegistryForTests() {
	ruleRegistry.mu.Lock()
	ruleRegistry.m = make(map[string]Rule)
	ruleRegistry.mu.Unlock()
	initializeBuiltInRules()
}

func mean(cells []ga.Multivector, sig ga.Signature) ga.Multivector {
	sum := make([]float64, sig.BladeCount())
	for _, c := range cells {
		for i, v := range c.Coefficients() {
			sum[i] += v
		}
	}
	mv, _ := ga.New(sum, sig)
	if len(cells) == 0 {
		return mv
	}
	return mv.Scale(1 / float64(len(cells)))
}

// GeometricRule replaces a cell with cell ⊗ mean(neighbors), clamping the
// scalar part to ±ClampLimit.
type GeometricRule struct{}

func (GeometricRule) Name() string               { return "geometric" }
func (GeometricRule) Neighborhood() Neighborhood { return Moore }

func (GeometricRule) Apply(cell ga.Multivector, neighbors []ga.Multivector) (ga.Multivector, error) {
	next, err := ga.GeometricProduct(cell, mean(neighbors, cell.Signature()))
	if err != nil {
		return ga.Multivector{}, err
	}
	s := next.ScalarPart()
	switch {
	case s > ClampLimit:
		next = next.WithScalar(ClampLimit)
	case s < -ClampLimit:
		next = next.WithScalar(-ClampLimit)
	}
	return next, nil
}

// LifeRule is Conway's B3/S23 on the scalar part: a cell is alive when its
// scalar exceeds 0.5 and the result is the scalar 1 or 0.
type LifeRule struct{}

func (LifeRule) Name() string               { return "game_of_life" }
func (LifeRule) Neighborhood() Neighborhood { return Moore }

func (LifeRule) Apply(cell ga.Multivector, neighbors []ga.Multivector) (ga.Multivector, error) {
	live := 0
	for _, n := range neighbors {
		if alive(n) {
			live++
		}
	}
	state := 0.0
	if live == 3 || (live == 2 && alive(cell)) {
		state = 1
	}
	return ga.Scalar(state, cell.Signature()), nil
}

func alive(c ga.Multivector) bool {
	return c.ScalarPart() > 0.5
}

// ConservativeRule averages a cell with its von Neumann neighbors. On a
// torus every cell feeds each of five slots once, so the grid total is kept.
type ConservativeRule struct{}

func (ConservativeRule) Name() string               { return "conservative" }
func (ConservativeRule) Neighborhood() Neighborhood { return VonNeumann }

func (ConservativeRule) Apply(cell ga.Multivector, neighbors []ga.Multivector) (ga.Multivector, error) {
	all := make([]ga.Multivector, 0, len(neighbors)+1)
	all = append(all, cell)
	all = append(all, neighbors...)
	return mean(all, cell.Signature()), nil
}

// RotorRule rotates a cell inside the plane of its neighbors' mean bivector,
// by an angle equal to that bivector's magnitude. A flat neighborhood
// leaves the cell unchanged.
type RotorRule struct{}

func (RotorRule) Name() string               { return "rotor" }
func (RotorRule) Neighborhood() Neighborhood { return VonNeumann }

func (RotorRule) Apply(cell ga.Multivector, neighbors []ga.Multivector) (ga.Multivector, error) {
	sig := cell.Signature()
	if !sig.IsEuclidean() {
		return ga.Multivector{}, engineerr.Domainf("rotor rule needs a Euclidean signature, got %s", sig)
	}
	plane := mean(neighbors, sig).Grade(2)
	angle := plane.Magnitude()
	if angle < 1e-12 {
		return cell, nil
	}
	r, err := ga.Rotor(plane, angle)
	if err != nil {
		return ga.Multivector{}, err
	}
	return ga.Apply(r, cell)
}
