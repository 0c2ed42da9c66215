package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"amari/internal/batch"
	"amari/internal/engineerr"
	"amari/internal/storage"
)

type Options struct {
	// Store backs persistence and the Cayley cache. Nil disables both.
	Store    storage.Store
	Executor batch.Executor
	Logger   *slog.Logger
	Now      func() time.Time
}

type Dispatcher struct {
	store    storage.Store
	executor batch.Executor
	logger   *slog.Logger
	now      func() time.Time
}

func New(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		store:    opts.Store,
		executor: opts.Executor,
		logger:   logger,
		now:      now,
	}
}

// Call decodes raw parameters for name and executes the operation.
func (d *Dispatcher) Call(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	op, err := Decode(name, raw)
	if err != nil {
		operationTotal.WithLabelValues(metricName(name), engineerr.Kind(err)).Inc()
		return nil, err
	}
	return d.Execute(ctx, op)
}

// Batch runs the named operation once per parameter set.
func (d *Dispatcher) Batch(ctx context.Context, name string, items []json.RawMessage, workers int) (BatchResult, error) {
	res, err := d.Execute(ctx, &BatchApply{Operation: name, Items: items, Workers: workers})
	if err != nil {
		return BatchResult{}, err
	}
	return res.(BatchResult), nil
}

// Execute runs one decoded operation. A failed call returns no result.
func (d *Dispatcher) Execute(ctx context.Context, op Operation) (any, error) {
	if op == nil {
		return nil, engineerr.Shapef("operation is required")
	}
	name := op.OpName()
	ctx, span := tracer.Start(ctx, "dispatch."+name,
		trace.WithAttributes(attribute.String("amari.operation", name)),
	)
	defer span.End()

	start := time.Now()
	result, err := d.execute(ctx, op)
	elapsed := time.Since(start)
	operationDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		kind := engineerr.Kind(err)
		operationTotal.WithLabelValues(name, kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		d.logger.Debug("operation failed",
			slog.String("operation", name),
			slog.String("kind", kind),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	operationTotal.WithLabelValues(name, "ok").Inc()
	d.logger.Debug("operation completed",
		slog.String("operation", name),
		slog.Duration("elapsed", elapsed),
	)
	return result, nil
}

func (d *Dispatcher) execute(ctx context.Context, op Operation) (any, error) {
	if err := validate.Struct(op); err != nil {
		return nil, validationError(op.OpName(), err)
	}
	switch op := op.(type) {
	case *CreateMultivector:
		return createMultivector(op)
	case *GeometricProduct:
		return d.geometricProduct(ctx, op)
	case *RotorRotation:
		return rotorRotation(op)
	case *GradeProjection:
		return gradeProjection(op)
	case *TropicalMultiply:
		return tropicalMultiply(op)
	case *TropicalAdd:
		return tropicalAdd(op)
	case *TropicalPower:
		return tropicalPower(op)
	case *ShortestPath:
		return shortestPath(op)
	case *ComputeGradient:
		return computeGradient(op)
	case *EvolveAutomaton:
		return evolveAutomaton(op)
	case *FisherInformation:
		return fisherInformation(op)
	case *CayleyTable:
		return d.cayleyTable(ctx, op)
	case *ListCayleyTables:
		return d.listCayleyTables(ctx)
	case *ClearCayleyCache:
		return d.clearCayleyCache(ctx, op)
	case *SaveComputation:
		return d.saveComputation(ctx, op)
	case *LoadComputation:
		return d.loadComputation(ctx, op)
	case *ListComputations:
		return d.listComputations(ctx)
	case *DeleteComputation:
		return d.deleteComputation(ctx, op)
	case *BatchApply:
		return d.batchApply(ctx, op)
	default:
		return nil, fmt.Errorf("%w: %T", engineerr.ErrUnknownOperation, op)
	}
}

func metricName(name string) string {
	if _, ok := factories[name]; ok {
		return name
	}
	return "unknown"
}
