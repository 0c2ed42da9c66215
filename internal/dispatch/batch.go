package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"amari/internal/batch"
	"amari/internal/engineerr"
)

// batchApply decodes each parameter set against the named operation and runs
// them on the executor. Decode failures are per-item; only an unknown or
// nested operation fails the whole batch.
func (d *Dispatcher) batchApply(ctx context.Context, op *BatchApply) (BatchResult, error) {
	if op.Operation == NameBatchApply {
		return BatchResult{}, engineerr.Shapef("batch_apply cannot be nested")
	}
	if _, ok := factories[op.Operation]; !ok {
		return BatchResult{}, unknownOperation(op.Operation)
	}

	ex := d.executor
	if op.Workers > 0 {
		ex.Workers = op.Workers
	}
	items := batch.Apply(ctx, ex, len(op.Items), func(ctx context.Context, i int) (any, error) {
		item, err := Decode(op.Operation, op.Items[i])
		if err != nil {
			return nil, err
		}
		return d.Execute(ctx, item)
	})

	out := BatchResult{Operation: op.Operation, Results: make([]BatchItemResult, len(items))}
	for i, item := range items {
		out.Results[i] = BatchItemResult{Index: item.Index}
		if item.Err != nil {
			out.Failed++
			out.Results[i].Error = ErrorOf(item.Err)
			continue
		}
		out.Succeeded++
		out.Results[i].Result = item.Value
	}
	d.logger.Debug("batch completed",
		slog.String("operation", op.Operation),
		slog.Int("items", len(items)),
		slog.Int("failed", out.Failed),
	)
	return out, nil
}

func unknownOperation(name string) error {
	return fmt.Errorf("%w: %s", engineerr.ErrUnknownOperation, name)
}
