package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"amari/internal/engineerr"
	"amari/internal/ga"
	"amari/internal/model"
	"amari/internal/storage"
)

// MaxCayleyGenerators bounds cached tables; 2^8 × 2^8 entries is the
// largest table worth serialising.
const MaxCayleyGenerators = 8

func (d *Dispatcher) requireStore() (storage.Store, error) {
	if d.store == nil {
		return nil, engineerr.Unavailablef("no store configured")
	}
	return d.store, nil
}

func (d *Dispatcher) cayleyTable(ctx context.Context, op *CayleyTable) (CayleyTableResult, error) {
	sig, err := op.Signature.resolve()
	if err != nil {
		return CayleyTableResult{}, err
	}
	if sig.Dim() > MaxCayleyGenerators {
		return CayleyTableResult{}, engineerr.Shapef("cayley tables are limited to %d generators, got %d", MaxCayleyGenerators, sig.Dim())
	}
	id := ga.TableID(sig)

	if d.store != nil && !op.ForceRecompute {
		rec, ok, err := d.store.GetCayleyTable(ctx, id)
		if err != nil {
			return CayleyTableResult{}, fmt.Errorf("load cayley table %s: %w", id, err)
		}
		if ok {
			var entries [][]ga.BladeProduct
			if err := json.Unmarshal(rec.Table, &entries); err != nil {
				return CayleyTableResult{}, fmt.Errorf("decode cayley table %s: %w", id, err)
			}
			cayleyCacheTotal.WithLabelValues("hit").Inc()
			return CayleyTableResult{
				ID:            id,
				Signature:     sig,
				BasisCount:    rec.BasisCount,
				Cached:        true,
				Checksum:      rec.Checksum,
				ComputeMillis: rec.ComputeMillis,
				Table:         entries,
			}, nil
		}
		cayleyCacheTotal.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	table, err := ga.ComputeCayleyTable(sig)
	if err != nil {
		return CayleyTableResult{}, err
	}
	took := time.Since(start)
	out := CayleyTableResult{
		ID:            id,
		Signature:     sig,
		BasisCount:    table.BasisCount,
		ComputeMillis: took.Milliseconds(),
		Table:         table.Entries,
	}
	if d.store == nil {
		return out, nil
	}

	payload, err := json.Marshal(table.Entries)
	if err != nil {
		return CayleyTableResult{}, err
	}
	rec, err := storage.NewCayleyRecord(id, [3]int{sig.P, sig.Q, sig.R}, table.BasisCount, payload, d.now(), took)
	if err != nil {
		return CayleyTableResult{}, err
	}
	if err := d.store.SaveCayleyTable(ctx, rec); err != nil {
		return CayleyTableResult{}, fmt.Errorf("cache cayley table %s: %w", id, err)
	}
	d.logger.Info("cayley table cached",
		slog.String("id", id),
		slog.Int("basis_count", table.BasisCount),
		slog.Duration("took", took),
	)
	out.Checksum = rec.Checksum
	return out, nil
}

// table returns the Cayley table for sp, going through the cache when a
// store is configured.
func (d *Dispatcher) table(ctx context.Context, sp SignatureParam) (ga.CayleyTable, error) {
	res, err := d.cayleyTable(ctx, &CayleyTable{Signature: sp})
	if err != nil {
		return ga.CayleyTable{}, err
	}
	return ga.CayleyTable{
		ID:         res.ID,
		Signature:  res.Signature,
		BasisCount: res.BasisCount,
		Entries:    res.Table,
	}, nil
}

func (d *Dispatcher) listCayleyTables(ctx context.Context) (CayleyListResult, error) {
	store, err := d.requireStore()
	if err != nil {
		return CayleyListResult{}, err
	}
	tables, err := store.ListCayleyTables(ctx)
	if err != nil {
		return CayleyListResult{}, err
	}
	return CayleyListResult{Tables: tables}, nil
}

func (d *Dispatcher) clearCayleyCache(ctx context.Context, op *ClearCayleyCache) (CayleyClearResult, error) {
	store, err := d.requireStore()
	if err != nil {
		return CayleyClearResult{}, err
	}
	id := ""
	if len(op.Signature) > 0 {
		sig, err := op.Signature.resolve()
		if err != nil {
			return CayleyClearResult{}, err
		}
		id = ga.TableID(sig)
	}
	n, err := store.DeleteCayleyTables(ctx, id)
	if err != nil {
		return CayleyClearResult{}, err
	}
	return CayleyClearResult{Removed: n}, nil
}

func (d *Dispatcher) saveComputation(ctx context.Context, op *SaveComputation) (SaveResult, error) {
	store, err := d.requireStore()
	if err != nil {
		return SaveResult{}, err
	}
	if bytes.Equal(bytes.TrimSpace(op.Result), []byte("null")) {
		return SaveResult{}, engineerr.Shapef("result must not be null")
	}
	c, err := storage.NewComputation(op.Name, op.Type, op.Result, op.Metadata, d.now())
	if err != nil {
		return SaveResult{}, engineerr.Shapef("%v", err)
	}
	if err := store.SaveComputation(ctx, c); err != nil {
		return SaveResult{}, fmt.Errorf("save computation %s: %w", op.Name, err)
	}
	d.logger.Info("computation saved",
		slog.String("name", c.Name),
		slog.String("id", c.ID),
		slog.String("type", c.Type),
		slog.Int("bytes", len(c.Payload)),
	)
	return SaveResult{ID: c.ID, Name: c.Name, Checksum: c.Checksum, CreatedAt: c.CreatedAt}, nil
}

func (d *Dispatcher) loadComputation(ctx context.Context, op *LoadComputation) (model.Computation, error) {
	store, err := d.requireStore()
	if err != nil {
		return model.Computation{}, err
	}
	c, ok, err := store.GetComputation(ctx, op.Name)
	if err != nil {
		return model.Computation{}, fmt.Errorf("load computation %s: %w", op.Name, err)
	}
	if !ok {
		return model.Computation{}, engineerr.NotFoundf("computation %q", op.Name)
	}
	return c, nil
}

func (d *Dispatcher) listComputations(ctx context.Context) (ComputationListResult, error) {
	store, err := d.requireStore()
	if err != nil {
		return ComputationListResult{}, err
	}
	list, err := store.ListComputations(ctx)
	if err != nil {
		return ComputationListResult{}, err
	}
	return ComputationListResult{Computations: list}, nil
}

func (d *Dispatcher) deleteComputation(ctx context.Context, op *DeleteComputation) (DeleteResult, error) {
	store, err := d.requireStore()
	if err != nil {
		return DeleteResult{}, err
	}
	deleted, err := store.DeleteComputation(ctx, op.Name)
	if err != nil {
		return DeleteResult{}, err
	}
	if !deleted {
		return DeleteResult{}, engineerr.NotFoundf("computation %q", op.Name)
	}
	return DeleteResult{Name: op.Name, Deleted: true}, nil
}
