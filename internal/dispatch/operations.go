// Package dispatch turns named, untyped requests into typed engine
// operations and executes them.
package dispatch

import (
	"encoding/json"

	"amari/internal/engineerr"
	"amari/internal/ga"
	"amari/internal/wire"
)

const (
	NameCreateMultivector = "create_multivector"
	NameGeometricProduct  = "geometric_product"
	NameRotorRotation     = "rotor_rotation"
	NameGradeProjection   = "grade_projection"
	NameTropicalMultiply  = "tropical_matrix_multiply"
	NameTropicalAdd       = "tropical_matrix_add"
	NameTropicalPower     = "tropical_matrix_power"
	NameShortestPath      = "shortest_path"
	NameComputeGradient   = "compute_gradient"
	NameEvolveAutomaton   = "ca_evolution"
	NameFisherInformation = "fisher_information"
	NameCayleyTable       = "get_cayley_table"
	NameListCayleyTables  = "list_cayley_tables"
	NameClearCayleyCache  = "clear_cayley_cache"
	NameSaveComputation   = "save_computation"
	NameLoadComputation   = "load_computation"
	NameListComputations  = "list_computations"
	NameDeleteComputation = "delete_computation"
	NameBatchApply        = "batch_apply"
)

// Operation is the closed set of requests the dispatcher understands.
type Operation interface {
	OpName() string
	operation()
}

// SignatureParam is a [p, q, r] triple; empty means Euclidean 3-space.
type SignatureParam []int

func (s SignatureParam) resolve() (ga.Signature, error) {
	if len(s) == 0 {
		return ga.Euclidean3, nil
	}
	if len(s) != 3 {
		return ga.Signature{}, engineerr.Shapef("signature needs [p, q, r], got %d values", len(s))
	}
	return ga.NewSignature(s[0], s[1], s[2])
}

type CreateMultivector struct {
	Coefficients []wire.Float   `json:"coefficients" validate:"required,min=1"`
	Dimensions   *int           `json:"dimensions,omitempty" validate:"omitempty,min=0"`
	Signature    SignatureParam `json:"signature,omitempty" validate:"omitempty,len=3,dive,min=0"`
}

// GeometricProduct multiplies a by b. With UseCayley the product runs
// through the signature's Cayley table, fetched from or added to the cache.
type GeometricProduct struct {
	A         []wire.Float   `json:"a" validate:"required,min=1"`
	B         []wire.Float   `json:"b" validate:"required,min=1"`
	Signature SignatureParam `json:"signature,omitempty" validate:"omitempty,len=3,dive,min=0"`
	UseCayley bool           `json:"use_cayley,omitempty"`
}

// RotorRotation turns a vector about a 3-D axis or, for any Euclidean
// dimension, inside a bivector plane given as full coefficients. Exactly
// one of Axis and Plane is set.
type RotorRotation struct {
	Vector    []wire.Float   `json:"vector" validate:"required,min=1"`
	Axis      []wire.Float   `json:"axis,omitempty" validate:"omitempty,min=1"`
	Plane     []wire.Float   `json:"plane,omitempty" validate:"omitempty,min=1"`
	Angle     *wire.Float    `json:"angle" validate:"required"`
	Signature SignatureParam `json:"signature,omitempty" validate:"omitempty,len=3,dive,min=0"`
}

// GradeProjection keeps one grade, or with Grades the sum of several.
type GradeProjection struct {
	Coefficients []wire.Float   `json:"coefficients" validate:"required,min=1"`
	Grade        *int           `json:"grade,omitempty" validate:"omitempty,min=0"`
	Grades       []int          `json:"grades,omitempty" validate:"omitempty,min=1,dive,min=0"`
	Signature    SignatureParam `json:"signature,omitempty" validate:"omitempty,len=3,dive,min=0"`
}

type TropicalMultiply struct {
	MatrixA  [][]wire.Entry `json:"matrix_a" validate:"required,min=1"`
	MatrixB  [][]wire.Entry `json:"matrix_b" validate:"required,min=1"`
	Semiring string         `json:"semiring,omitempty" validate:"omitempty,oneof=min_plus max_plus"`
}

type TropicalAdd struct {
	MatrixA  [][]wire.Entry `json:"matrix_a" validate:"required,min=1"`
	MatrixB  [][]wire.Entry `json:"matrix_b" validate:"required,min=1"`
	Semiring string         `json:"semiring,omitempty" validate:"omitempty,oneof=min_plus max_plus"`
}

type TropicalPower struct {
	Matrix   [][]wire.Entry `json:"matrix" validate:"required,min=1"`
	Power    *int           `json:"power" validate:"required,min=0,max=1048576"`
	Semiring string         `json:"semiring,omitempty" validate:"omitempty,oneof=min_plus max_plus"`
}

type ShortestPath struct {
	Adjacency [][]wire.Entry `json:"adjacency_matrix" validate:"required,min=1"`
	Source    *int           `json:"source" validate:"required,min=0"`
	Target    *int           `json:"target,omitempty" validate:"omitempty,min=0"`
	WithPath  *bool          `json:"with_path,omitempty"`
}

type ComputeGradient struct {
	Expression string       `json:"expression" validate:"required,max=8192"`
	Variables  []string     `json:"variables" validate:"required,dive,required"`
	Values     []wire.Float `json:"values" validate:"required"`
}

type EvolveAutomaton struct {
	InitialState [][]wire.Float `json:"initial_state" validate:"required,min=1"`
	Rule         string         `json:"rule" validate:"required"`
	Steps        *int           `json:"steps" validate:"required,min=0,max=100000"`
	GridWidth    int            `json:"grid_width" validate:"required,min=1"`
	GridHeight   int            `json:"grid_height" validate:"required,min=1"`
	Signature    SignatureParam `json:"signature,omitempty" validate:"omitempty,len=3,dive,min=0"`
	History      bool           `json:"history,omitempty"`
}

type FisherInformation struct {
	Distribution   string       `json:"distribution" validate:"required"`
	Parameters     []wire.Float `json:"parameters" validate:"required,min=1"`
	Data           []wire.Float `json:"data,omitempty"`
	Method         string       `json:"method,omitempty" validate:"omitempty,oneof=auto analytic empirical"`
	LogDensity     string       `json:"log_density,omitempty" validate:"max=8192"`
	ParameterNames []string     `json:"parameter_names,omitempty" validate:"omitempty,dive,required"`
}

type CayleyTable struct {
	Signature      SignatureParam `json:"signature" validate:"required,len=3,dive,min=0"`
	ForceRecompute bool           `json:"force_recompute,omitempty"`
}

type ListCayleyTables struct{}

type ClearCayleyCache struct {
	Signature SignatureParam `json:"signature,omitempty" validate:"omitempty,len=3,dive,min=0"`
}

type SaveComputation struct {
	Name     string            `json:"name" validate:"required,max=256"`
	Type     string            `json:"type" validate:"required,max=128"`
	Result   json.RawMessage   `json:"result" validate:"required"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type LoadComputation struct {
	Name string `json:"name" validate:"required"`
}

type ListComputations struct{}

type DeleteComputation struct {
	Name string `json:"name" validate:"required"`
}

type BatchApply struct {
	Operation string            `json:"operation" validate:"required"`
	Items     []json.RawMessage `json:"items" validate:"required,min=1,max=10000"`
	Workers   int               `json:"workers,omitempty" validate:"min=0,max=256"`
}

func (*CreateMultivector) OpName() string { return NameCreateMultivector }
func (*GeometricProduct) OpName() string  { return NameGeometricProduct }
func (*RotorRotation) OpName() string     { return NameRotorRotation }
func (*GradeProjection) OpName() string   { return NameGradeProjection }
func (*TropicalMultiply) OpName() string  { return NameTropicalMultiply }
func (*TropicalAdd) OpName() string       { return NameTropicalAdd }
func (*TropicalPower) OpName() string     { return NameTropicalPower }
func (*ShortestPath) OpName() string      { return NameShortestPath }
func (*ComputeGradient) OpName() string   { return NameComputeGradient }
func (*EvolveAutomaton) OpName() string   { return NameEvolveAutomaton }
func (*FisherInformation) OpName() string { return NameFisherInformation }
func (*CayleyTable) OpName() string       { return NameCayleyTable }
func (*ListCayleyTables) OpName() string  { return NameListCayleyTables }
func (*ClearCayleyCache) OpName() string  { return NameClearCayleyCache }
func (*SaveComputation) OpName() string   { return NameSaveComputation }
func (*LoadComputation) OpName() string   { return NameLoadComputation }
func (*ListComputations) OpName() string  { return NameListComputations }
func (*DeleteComputation) OpName() string { return NameDeleteComputation }
func (*BatchApply) OpName() string        { return NameBatchApply }

func (*CreateMultivector) operation() {}
func (*GeometricProduct) operation()  {}
func (*RotorRotation) operation()     {}
func (*GradeProjection) operation()   {}
func (*TropicalMultiply) operation()  {}
func (*TropicalAdd) operation()       {}
func (*TropicalPower) operation()     {}
func (*ShortestPath) operation()      {}
func (*ComputeGradient) operation()   {}
func (*EvolveAutomaton) operation()   {}
func (*FisherInformation) operation() {}
func (*CayleyTable) operation()       {}
func (*ListCayleyTables) operation()  {}
func (*ClearCayleyCache) operation()  {}
func (*SaveComputation) operation()   {}
func (*LoadComputation) operation()   {}
func (*ListComputations) operation()  {}
func (*DeleteComputation) operation() {}
func (*BatchApply) operation()        {}
