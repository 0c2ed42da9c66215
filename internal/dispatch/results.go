package dispatch

import (
	"time"

	"amari/internal/autodiff"
	"amari/internal/automata"
	"amari/internal/engineerr"
	"amari/internal/ga"
	"amari/internal/infogeom"
	"amari/internal/model"
	"amari/internal/tropical"
	"amari/internal/wire"
)

type MultivectorResult struct {
	Coefficients []wire.Float   `json:"coefficients"`
	Signature    ga.Signature   `json:"signature"`
	Scalar       wire.Float     `json:"scalar"`
	Grades       [][]wire.Float `json:"grades"`
	Magnitude    wire.Float     `json:"magnitude"`
	Norm         wire.Float     `json:"norm"`
}

func multivectorResult(m ga.Multivector) MultivectorResult {
	s := m.Summary()
	grades := make([][]wire.Float, len(s.Grades))
	for i, g := range s.Grades {
		grades[i] = wire.Floats(g)
	}
	return MultivectorResult{
		Coefficients: wire.Floats(s.Coefficients),
		Signature:    s.Signature,
		Scalar:       wire.Float(s.Scalar),
		Grades:       grades,
		Magnitude:    wire.Float(s.Magnitude),
		Norm:         wire.Float(s.Norm),
	}
}

type RotationResult struct {
	Vector []wire.Float `json:"rotated_vector"`
	Axis   []wire.Float `json:"axis,omitempty"`
	Plane  []wire.Float `json:"plane,omitempty"`
	Angle  wire.Float   `json:"angle"`
}

type TropicalResult struct {
	Semiring string         `json:"semiring"`
	Rows     int            `json:"rows"`
	Cols     int            `json:"cols"`
	Result   [][]wire.Float `json:"result"`
}

func tropicalResult(m tropical.Matrix) TropicalResult {
	return TropicalResult{
		Semiring: m.Semiring().String(),
		Rows:     m.Rows(),
		Cols:     m.Cols(),
		Result:   wire.Matrix(m.Rows2D()),
	}
}

type PathResult struct {
	Source     int        `json:"source"`
	Target     int        `json:"target"`
	Distance   wire.Float `json:"distance"`
	Reachable  bool       `json:"reachable"`
	Path       []int      `json:"path,omitempty"`
	Iterations int        `json:"iterations"`
}

type DistancesResult struct {
	Source            int            `json:"source"`
	Distances         []wire.Float   `json:"distances"`
	ReachableVertices []int          `json:"reachable_vertices"`
	AllPairs          [][]wire.Float `json:"all_pairs_distances"`
	Iterations        int            `json:"iterations"`
}

func pathResult(r tropical.PathResult) PathResult {
	return PathResult{
		Source:     r.Source,
		Target:     r.Target,
		Distance:   wire.Float(r.Distance),
		Reachable:  r.Reachable,
		Path:       r.Path,
		Iterations: r.Iterations,
	}
}

func distancesResult(r tropical.DistancesResult) DistancesResult {
	return DistancesResult{
		Source:            r.Source,
		Distances:         wire.Floats(r.Distances),
		ReachableVertices: r.ReachableVertices,
		AllPairs:          wire.Matrix(r.AllPairs),
		Iterations:        r.Iterations,
	}
}

type GradientResult struct {
	Expression string       `json:"expression"`
	Variables  []string     `json:"variables"`
	Value      wire.Float   `json:"value"`
	Gradient   []wire.Float `json:"gradient"`
}

func gradientResult(r autodiff.GradientResult) GradientResult {
	return GradientResult{
		Expression: r.Expression,
		Variables:  r.Variables,
		Value:      wire.Float(r.Value),
		Gradient:   wire.Floats(r.Gradient),
	}
}

type FisherResult struct {
	Distribution   string         `json:"distribution"`
	Method         string         `json:"method"`
	ParameterNames []string       `json:"parameter_names"`
	Parameters     []wire.Float   `json:"parameters"`
	DataSize       int            `json:"data_size"`
	Matrix         [][]wire.Float `json:"fisher_information_matrix"`
}

func fisherResult(r infogeom.Result) FisherResult {
	return FisherResult{
		Distribution:   r.Family,
		Method:         string(r.Method),
		ParameterNames: r.Params,
		Parameters:     wire.Floats(r.Values),
		DataSize:       r.DataSize,
		Matrix:         wire.Matrix(r.Matrix),
	}
}

type EvolutionResult struct {
	Rule       string           `json:"rule"`
	Steps      int              `json:"steps"`
	GridWidth  int              `json:"grid_width"`
	GridHeight int              `json:"grid_height"`
	Signature  ga.Signature     `json:"signature"`
	FinalState [][]wire.Float   `json:"final_state"`
	History    [][][]wire.Float `json:"history,omitempty"`
}

func gridState(g automata.Grid) [][]wire.Float {
	return wire.Matrix(g.Coefficients())
}

type CayleyTableResult struct {
	ID            string              `json:"id"`
	Signature     ga.Signature        `json:"signature"`
	BasisCount    int                 `json:"basis_count"`
	Cached        bool                `json:"cached"`
	Checksum      string              `json:"checksum,omitempty"`
	ComputeMillis int64               `json:"compute_millis"`
	Table         [][]ga.BladeProduct `json:"table"`
}

type CayleyListResult struct {
	Tables []model.CayleySummary `json:"tables"`
}

type CayleyClearResult struct {
	Removed int `json:"removed"`
}

type SaveResult struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

type ComputationListResult struct {
	Computations []model.ComputationSummary `json:"computations"`
}

type DeleteResult struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

// ErrorBody is the wire form of a failed call.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func ErrorOf(err error) *ErrorBody {
	if err == nil {
		return nil
	}
	return &ErrorBody{Kind: engineerr.Kind(err), Message: err.Error()}
}

type BatchItemResult struct {
	Index  int        `json:"index"`
	Result any        `json:"result,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

type BatchResult struct {
	Operation string            `json:"operation"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []BatchItemResult `json:"results"`
}
