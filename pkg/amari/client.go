// Package amari is the embeddable client for the computation engines. It
// owns a store and a dispatcher and offers one typed method per operation
// next to the untyped Call and Batch entry points.
package amari

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"amari/internal/batch"
	"amari/internal/dispatch"
	"amari/internal/model"
	"amari/internal/storage"
	"amari/internal/wire"
)

type (
	MultivectorResult  = dispatch.MultivectorResult
	RotationResult     = dispatch.RotationResult
	TropicalResult     = dispatch.TropicalResult
	PathResult         = dispatch.PathResult
	DistancesResult    = dispatch.DistancesResult
	EvolutionResult    = dispatch.EvolutionResult
	CayleyTableResult  = dispatch.CayleyTableResult
	SaveResult         = dispatch.SaveResult
	BatchResult        = dispatch.BatchResult
	GradientResult     = dispatch.GradientResult
	FisherResult       = dispatch.FisherResult
	Computation        = model.Computation
	ComputationSummary = model.ComputationSummary
	CayleySummary      = model.CayleySummary
)

type Options struct {
	// StoreKind is memory, sqlite or badger; empty means memory.
	StoreKind string
	// StorePath is the sqlite file or badger directory.
	StorePath string
	// Workers bounds batch concurrency; 0 means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

type Client struct {
	store  storage.Store
	opts   Options
	mu     sync.Mutex
	engine *dispatch.Dispatcher
}

func New(opts Options) (*Client, error) {
	store, err := storage.NewStore(opts.StoreKind, opts.StorePath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, opts: opts}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init prepares the store. Every other method calls it on first use.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.dispatcher(ctx)
	return err
}

// Reset wipes saved computations and cached Cayley tables.
func (c *Client) Reset(ctx context.Context) error {
	if _, err := c.dispatcher(ctx); err != nil {
		return err
	}
	return storage.ResetIfSupported(ctx, c.store)
}

func (c *Client) dispatcher(ctx context.Context) (*dispatch.Dispatcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine != nil {
		return c.engine, nil
	}
	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}
	c.engine = dispatch.New(dispatch.Options{
		Store:    c.store,
		Executor: batch.Executor{Workers: c.opts.Workers},
		Logger:   c.opts.Logger,
	})
	return c.engine, nil
}

// Dispatcher exposes the underlying dispatcher, e.g. to mount the HTTP
// server on the same store.
func (c *Client) Dispatcher(ctx context.Context) (*dispatch.Dispatcher, error) {
	return c.dispatcher(ctx)
}

// Operations lists the names accepted by Call and Batch.
func (c *Client) Operations() []string {
	return dispatch.Operations()
}

// Call runs an operation from its JSON parameters.
func (c *Client) Call(ctx context.Context, name string, params json.RawMessage) (any, error) {
	d, err := c.dispatcher(ctx)
	if err != nil {
		return nil, err
	}
	return d.Call(ctx, name, params)
}

// Batch runs name once per parameter set. Item failures are reported in
// the result; the error is only set when the batch itself is invalid.
func (c *Client) Batch(ctx context.Context, name string, items []json.RawMessage, workers int) (BatchResult, error) {
	d, err := c.dispatcher(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	return d.Batch(ctx, name, items, workers)
}

func execute[T any](ctx context.Context, c *Client, op dispatch.Operation) (T, error) {
	var zero T
	d, err := c.dispatcher(ctx)
	if err != nil {
		return zero, err
	}
	res, err := d.Execute(ctx, op)
	if err != nil {
		return zero, err
	}
	out, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%s returned %T", op.OpName(), res)
	}
	return out, nil
}

func (c *Client) CreateMultivector(ctx context.Context, coefficients []float64, signature []int) (MultivectorResult, error) {
	return execute[MultivectorResult](ctx, c, &dispatch.CreateMultivector{
		Coefficients: wire.Floats(coefficients),
		Signature:    signature,
	})
}

func (c *Client) GeometricProduct(ctx context.Context, a, b []float64, signature []int) (MultivectorResult, error) {
	return execute[MultivectorResult](ctx, c, &dispatch.GeometricProduct{
		A:         wire.Floats(a),
		B:         wire.Floats(b),
		Signature: signature,
	})
}

// CayleyProduct is GeometricProduct evaluated through the signature's
// cached Cayley table.
func (c *Client) CayleyProduct(ctx context.Context, a, b []float64, signature []int) (MultivectorResult, error) {
	return execute[MultivectorResult](ctx, c, &dispatch.GeometricProduct{
		A:         wire.Floats(a),
		B:         wire.Floats(b),
		Signature: signature,
		UseCayley: true,
	})
}

func (c *Client) GradeProjection(ctx context.Context, coefficients []float64, grade int, signature []int) (MultivectorResult, error) {
	return execute[MultivectorResult](ctx, c, &dispatch.GradeProjection{
		Coefficients: wire.Floats(coefficients),
		Grade:        &grade,
		Signature:    signature,
	})
}

// SumOfGrades keeps the parts of the multivector whose grade is listed.
func (c *Client) SumOfGrades(ctx context.Context, coefficients []float64, grades []int, signature []int) (MultivectorResult, error) {
	return execute[MultivectorResult](ctx, c, &dispatch.GradeProjection{
		Coefficients: wire.Floats(coefficients),
		Grades:       grades,
		Signature:    signature,
	})
}

// Rotate turns a 3-D vector about axis by angle radians.
func (c *Client) Rotate(ctx context.Context, vector, axis []float64, angle float64) (RotationResult, error) {
	a := wire.Float(angle)
	return execute[RotationResult](ctx, c, &dispatch.RotorRotation{
		Vector: wire.Floats(vector),
		Axis:   wire.Floats(axis),
		Angle:  &a,
	})
}

// RotateInPlane turns vector by angle inside the bivector plane, given as
// full coefficients of a Euclidean signature.
func (c *Client) RotateInPlane(ctx context.Context, vector, plane []float64, angle float64, signature []int) (RotationResult, error) {
	a := wire.Float(angle)
	return execute[RotationResult](ctx, c, &dispatch.RotorRotation{
		Vector:    wire.Floats(vector),
		Plane:     wire.Floats(plane),
		Angle:     &a,
		Signature: signature,
	})
}

// TropicalMultiply multiplies over semiring (min_plus when empty). Absent
// entries are the semiring zero (+Inf for min_plus, -Inf for max_plus); NaN
// is rejected with a shape error.
func (c *Client) TropicalMultiply(ctx context.Context, a, b [][]float64, semiring string) (TropicalResult, error) {
	return execute[TropicalResult](ctx, c, &dispatch.TropicalMultiply{
		MatrixA:  entries(a),
		MatrixB:  entries(b),
		Semiring: semiring,
	})
}

func (c *Client) TropicalAdd(ctx context.Context, a, b [][]float64, semiring string) (TropicalResult, error) {
	return execute[TropicalResult](ctx, c, &dispatch.TropicalAdd{
		MatrixA:  entries(a),
		MatrixB:  entries(b),
		Semiring: semiring,
	})
}

// TropicalPower raises a square matrix to k; k = 0 gives the identity.
func (c *Client) TropicalPower(ctx context.Context, m [][]float64, k int, semiring string) (TropicalResult, error) {
	return execute[TropicalResult](ctx, c, &dispatch.TropicalPower{
		Matrix:   entries(m),
		Power:    &k,
		Semiring: semiring,
	})
}

// ShortestPath finds the cheapest source→target route; +Inf marks a missing
// edge.
func (c *Client) ShortestPath(ctx context.Context, adjacency [][]float64, source, target int) (PathResult, error) {
	return execute[PathResult](ctx, c, &dispatch.ShortestPath{
		Adjacency: entries(adjacency),
		Source:    &source,
		Target:    &target,
	})
}

func (c *Client) Distances(ctx context.Context, adjacency [][]float64, source int) (DistancesResult, error) {
	return execute[DistancesResult](ctx, c, &dispatch.ShortestPath{
		Adjacency: entries(adjacency),
		Source:    &source,
	})
}

func (c *Client) Gradient(ctx context.Context, expression string, variables []string, values []float64) (GradientResult, error) {
	return execute[GradientResult](ctx, c, &dispatch.ComputeGradient{
		Expression: expression,
		Variables:  variables,
		Values:     wire.Floats(values),
	})
}

type EvolveRequest struct {
	// State holds one coefficient slice per cell in row-major order.
	State     [][]float64
	Rule      string
	Steps     int
	Width     int
	Height    int
	Signature []int
	History   bool
}

func (c *Client) Evolve(ctx context.Context, req EvolveRequest) (EvolutionResult, error) {
	state := make([][]wire.Float, len(req.State))
	for i, cell := range req.State {
		state[i] = wire.Floats(cell)
	}
	steps := req.Steps
	return execute[EvolutionResult](ctx, c, &dispatch.EvolveAutomaton{
		InitialState: state,
		Rule:         req.Rule,
		Steps:        &steps,
		GridWidth:    req.Width,
		GridHeight:   req.Height,
		Signature:    req.Signature,
		History:      req.History,
	})
}

type FisherRequest struct {
	Distribution string
	Parameters   []float64
	Data         []float64
	// Method is auto, analytic or empirical.
	Method string
	// LogDensity and ParameterNames describe a family that is not
	// registered.
	LogDensity     string
	ParameterNames []string
}

func (c *Client) FisherInformation(ctx context.Context, req FisherRequest) (FisherResult, error) {
	return execute[FisherResult](ctx, c, &dispatch.FisherInformation{
		Distribution:   req.Distribution,
		Parameters:     wire.Floats(req.Parameters),
		Data:           wire.Floats(req.Data),
		Method:         req.Method,
		LogDensity:     req.LogDensity,
		ParameterNames: req.ParameterNames,
	})
}

// CayleyTable returns the blade multiplication table for [p, q, r], from
// the store when cached.
func (c *Client) CayleyTable(ctx context.Context, signature []int, forceRecompute bool) (CayleyTableResult, error) {
	return execute[CayleyTableResult](ctx, c, &dispatch.CayleyTable{
		Signature:      signature,
		ForceRecompute: forceRecompute,
	})
}

func (c *Client) ListCayleyTables(ctx context.Context) ([]CayleySummary, error) {
	res, err := execute[dispatch.CayleyListResult](ctx, c, &dispatch.ListCayleyTables{})
	return res.Tables, err
}

// ClearCayleyCache drops one cached table, or all of them when signature
// is empty, and reports how many were removed.
func (c *Client) ClearCayleyCache(ctx context.Context, signature []int) (int, error) {
	res, err := execute[dispatch.CayleyClearResult](ctx, c, &dispatch.ClearCayleyCache{Signature: signature})
	return res.Removed, err
}

// SaveComputation stores result (any JSON-encodable value) under name,
// replacing an earlier record with the same name.
func (c *Client) SaveComputation(ctx context.Context, name, typ string, result any, metadata map[string]string) (SaveResult, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return SaveResult{}, fmt.Errorf("encode result: %w", err)
	}
	return execute[SaveResult](ctx, c, &dispatch.SaveComputation{
		Name:     name,
		Type:     typ,
		Result:   payload,
		Metadata: metadata,
	})
}

func (c *Client) LoadComputation(ctx context.Context, name string) (Computation, error) {
	return execute[Computation](ctx, c, &dispatch.LoadComputation{Name: name})
}

func (c *Client) ListComputations(ctx context.Context) ([]ComputationSummary, error) {
	res, err := execute[dispatch.ComputationListResult](ctx, c, &dispatch.ListComputations{})
	return res.Computations, err
}

func (c *Client) DeleteComputation(ctx context.Context, name string) error {
	_, err := execute[dispatch.DeleteResult](ctx, c, &dispatch.DeleteComputation{Name: name})
	return err
}

func entries(m [][]float64) [][]wire.Entry {
	out := make([][]wire.Entry, len(m))
	for i, row := range m {
		out[i] = make([]wire.Entry, len(row))
		for j, v := range row {
			out[i][j] = wire.Entry{Value: v}
		}
	}
	return out
}
