package storage

import (
	"context"

	"amari/internal/model"
)

// Store persists saved computations and cached Cayley tables. Lookups
// report a miss with ok=false rather than an error.
type Store interface {
	Init(ctx context.Context) error
	SaveComputation(ctx context.Context, c model.Computation) error
	GetComputation(ctx context.Context, name string) (model.Computation, bool, error)
	ListComputations(ctx context.Context) ([]model.ComputationSummary, error)
	DeleteComputation(ctx context.Context, name string) (bool, error)
	SaveCayleyTable(ctx context.Context, r model.CayleyRecord) error
	GetCayleyTable(ctx context.Context, id string) (model.CayleyRecord, bool, error)
	ListCayleyTables(ctx context.Context) ([]model.CayleySummary, error)
	// DeleteCayleyTables removes one table, or every table when id is empty,
	// and returns how many were removed.
	DeleteCayleyTables(ctx context.Context, id string) (int, error)
}

// Resetter is implemented by stores that can drop all data in place.
type Resetter interface {
	Reset(ctx context.Context) error
}
