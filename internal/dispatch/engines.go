package dispatch

import (
	"context"
	"math"

	"amari/internal/autodiff"
	"amari/internal/automata"
	"amari/internal/engineerr"
	"amari/internal/ga"
	"amari/internal/infogeom"
	"amari/internal/tropical"
	"amari/internal/wire"
)

func multivector(coeffs []wire.Float, sp SignatureParam) (ga.Multivector, error) {
	sig, err := sp.resolve()
	if err != nil {
		return ga.Multivector{}, err
	}
	return ga.New(wire.Float64s(coeffs), sig)
}

func createMultivector(op *CreateMultivector) (MultivectorResult, error) {
	mv, err := multivector(op.Coefficients, op.Signature)
	if err != nil {
		return MultivectorResult{}, err
	}
	if op.Dimensions != nil && *op.Dimensions != mv.Signature().Dim() {
		return MultivectorResult{}, engineerr.Shapef("dimensions %d do not match signature %s", *op.Dimensions, mv.Signature())
	}
	return multivectorResult(mv), nil
}

func (d *Dispatcher) geometricProduct(ctx context.Context, op *GeometricProduct) (MultivectorResult, error) {
	a, err := multivector(op.A, op.Signature)
	if err != nil {
		return MultivectorResult{}, err
	}
	b, err := multivector(op.B, op.Signature)
	if err != nil {
		return MultivectorResult{}, err
	}
	var p ga.Multivector
	if op.UseCayley {
		table, terr := d.table(ctx, op.Signature)
		if terr != nil {
			return MultivectorResult{}, terr
		}
		p, err = table.Multiply(a, b)
	} else {
		p, err = ga.GeometricProduct(a, b)
	}
	if err != nil {
		return MultivectorResult{}, err
	}
	return multivectorResult(p), nil
}

func rotorRotation(op *RotorRotation) (RotationResult, error) {
	sig, err := op.Signature.resolve()
	if err != nil {
		return RotationResult{}, err
	}
	angle := float64(*op.Angle)
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return RotationResult{}, engineerr.Domainf("angle must be finite")
	}
	if (len(op.Axis) > 0) == (len(op.Plane) > 0) {
		return RotationResult{}, engineerr.Shapef("give exactly one of axis and plane")
	}
	var rotated []float64
	if len(op.Axis) > 0 {
		rotated, err = ga.Rotate(wire.Float64s(op.Vector), wire.Float64s(op.Axis), angle, sig)
	} else {
		plane, perr := ga.New(wire.Float64s(op.Plane), sig)
		if perr != nil {
			return RotationResult{}, perr
		}
		rotated, err = ga.RotateInPlane(wire.Float64s(op.Vector), plane, angle)
	}
	if err != nil {
		return RotationResult{}, err
	}
	return RotationResult{
		Vector: wire.Floats(rotated),
		Axis:   op.Axis,
		Plane:  op.Plane,
		Angle:  *op.Angle,
	}, nil
}

func gradeProjection(op *GradeProjection) (MultivectorResult, error) {
	mv, err := multivector(op.Coefficients, op.Signature)
	if err != nil {
		return MultivectorResult{}, err
	}
	if (op.Grade != nil) == (len(op.Grades) > 0) {
		return MultivectorResult{}, engineerr.Shapef("give exactly one of grade and grades")
	}
	grades := op.Grades
	if op.Grade != nil {
		grades = []int{*op.Grade}
	}
	dim := mv.Signature().Dim()
	for _, g := range grades {
		if g > dim {
			return MultivectorResult{}, engineerr.Shapef("grade %d exceeds dimension %d", g, dim)
		}
	}
	if op.Grade != nil {
		return multivectorResult(mv.Grade(*op.Grade)), nil
	}
	return multivectorResult(mv.SumOfGrades(grades...)), nil
}

// tropicalMatrices parses the semiring and builds each operand over it;
// missing entries become the semiring zero.
func tropicalMatrices(semiring string, operands ...[][]wire.Entry) ([]tropical.Matrix, error) {
	s, err := tropical.ParseSemiring(semiring)
	if err != nil {
		return nil, err
	}
	out := make([]tropical.Matrix, len(operands))
	for i, rows := range operands {
		if out[i], err = tropical.NewMatrix(wire.Entries(rows, s.Zero()), s); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func tropicalMultiply(op *TropicalMultiply) (TropicalResult, error) {
	m, err := tropicalMatrices(op.Semiring, op.MatrixA, op.MatrixB)
	if err != nil {
		return TropicalResult{}, err
	}
	product, err := tropical.Multiply(m[0], m[1])
	if err != nil {
		return TropicalResult{}, err
	}
	return tropicalResult(product), nil
}

func tropicalAdd(op *TropicalAdd) (TropicalResult, error) {
	m, err := tropicalMatrices(op.Semiring, op.MatrixA, op.MatrixB)
	if err != nil {
		return TropicalResult{}, err
	}
	sum, err := tropical.ElementwiseAdd(m[0], m[1])
	if err != nil {
		return TropicalResult{}, err
	}
	return tropicalResult(sum), nil
}

func tropicalPower(op *TropicalPower) (TropicalResult, error) {
	m, err := tropicalMatrices(op.Semiring, op.Matrix)
	if err != nil {
		return TropicalResult{}, err
	}
	power, err := tropical.Power(m[0], *op.Power)
	if err != nil {
		return TropicalResult{}, err
	}
	return tropicalResult(power), nil
}

// shortestPath answers a single pair when a target is given and the full
// distance row otherwise.
func shortestPath(op *ShortestPath) (any, error) {
	adj, err := tropical.NewMatrix(wire.Entries(op.Adjacency, math.Inf(1)), tropical.MinPlus)
	if err != nil {
		return nil, err
	}
	if op.Target == nil {
		res, err := tropical.Distances(adj, *op.Source)
		if err != nil {
			return nil, err
		}
		return distancesResult(res), nil
	}
	withPath := op.WithPath == nil || *op.WithPath
	res, err := tropical.ShortestPath(adj, *op.Source, *op.Target, withPath)
	if err != nil {
		return nil, err
	}
	return pathResult(res), nil
}

func computeGradient(op *ComputeGradient) (GradientResult, error) {
	res, err := autodiff.ComputeGradient(op.Expression, op.Variables, wire.Float64s(op.Values))
	if err != nil {
		return GradientResult{}, err
	}
	return gradientResult(res), nil
}

func evolveAutomaton(op *EvolveAutomaton) (EvolutionResult, error) {
	sig, err := op.Signature.resolve()
	if err != nil {
		return EvolutionResult{}, err
	}
	cells := make([][]float64, len(op.InitialState))
	for i, c := range op.InitialState {
		cells[i] = wire.Float64s(c)
	}
	grid, err := automata.FromCoefficients(op.GridWidth, op.GridHeight, sig, cells)
	if err != nil {
		return EvolutionResult{}, err
	}
	rule, err := automata.GetRule(op.Rule)
	if err != nil {
		return EvolutionResult{}, err
	}
	evo, err := automata.Evolve(grid, rule, *op.Steps, automata.EvolveOptions{History: op.History})
	if err != nil {
		return EvolutionResult{}, err
	}
	out := EvolutionResult{
		Rule:       rule.Name(),
		Steps:      evo.Steps,
		GridWidth:  grid.Width(),
		GridHeight: grid.Height(),
		Signature:  sig,
		FinalState: gridState(evo.Final),
	}
	for _, g := range evo.History {
		out.History = append(out.History, gridState(g))
	}
	return out, nil
}

func fisherInformation(op *FisherInformation) (FisherResult, error) {
	res, err := infogeom.FisherInformation(infogeom.Request{
		Family:     op.Distribution,
		Params:     wire.Float64s(op.Parameters),
		Data:       wire.Float64s(op.Data),
		Method:     infogeom.Method(op.Method),
		LogDensity: op.LogDensity,
		ParamNames: op.ParameterNames,
	})
	if err != nil {
		return FisherResult{}, err
	}
	return fisherResult(res), nil
}
