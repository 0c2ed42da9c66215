package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amari/internal/model"
)

var fixedTime = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func newComputation(t *testing.T, name, payload string) model.Computation {
	t.Helper()
	c, err := NewComputation(name, "geometric_product", json.RawMessage(payload), map[string]string{"owner": "tests"}, fixedTime)
	require.NoError(t, err)
	return c
}

func newCayley(t *testing.T, id string) model.CayleyRecord {
	t.Helper()
	r, err := NewCayleyRecord(id, [3]int{2, 0, 0}, 4, json.RawMessage(`[[{"blade":0,"sign":1}]]`), fixedTime, 3*time.Millisecond)
	require.NoError(t, err)
	return r
}

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))

	_, ok, err := store.GetComputation(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	first := newComputation(t, "beta", `{"result": [1, 2, 3]}`)
	require.NoError(t, store.SaveComputation(ctx, first))
	require.NoError(t, store.SaveComputation(ctx, newComputation(t, "alpha", `{"value":"Infinity"}`)))

	got, ok, err := store.GetComputation(ctx, "beta")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)
	assert.JSONEq(t, `{"result":[1,2,3]}`, string(got.Payload))
	assert.Equal(t, "tests", got.Metadata["owner"])
	assert.True(t, got.CreatedAt.Equal(fixedTime))

	got.Metadata["owner"] = "mutated"
	again, _, err := store.GetComputation(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, "tests", again.Metadata["owner"])

	replacement := newComputation(t, "beta", `{"result":[4]}`)
	require.NoError(t, store.SaveComputation(ctx, replacement))
	got, _, err = store.GetComputation(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, replacement.ID, got.ID)

	list, err := store.ListComputations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "beta", list[1].Name)
	assert.Equal(t, len(replacement.Payload), list[1].Size)

	deleted, err := store.DeleteComputation(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = store.DeleteComputation(ctx, "alpha")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, store.SaveCayleyTable(ctx, newCayley(t, "cayley_2_0_0")))
	require.NoError(t, store.SaveCayleyTable(ctx, newCayley(t, "cayley_3_0_0")))
	table, ok, err := store.GetCayleyTable(ctx, "cayley_2_0_0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, [3]int{2, 0, 0}, table.Signature)
	assert.EqualValues(t, 3, table.ComputeMillis)

	tables, err := store.ListCayleyTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "cayley_2_0_0", tables[0].ID)

	n, err := store.DeleteCayleyTables(ctx, "cayley_2_0_0")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = store.DeleteCayleyTables(ctx, "cayley_9_9_9")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	require.NoError(t, store.SaveCayleyTable(ctx, newCayley(t, "cayley_4_0_0")))
	n, err = store.DeleteCayleyTables(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	tables, err = store.ListCayleyTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)

	tampered := newComputation(t, "tampered", `{"a":1}`)
	tampered.Payload = json.RawMessage(`{"a":2}`)
	assert.ErrorIs(t, store.SaveComputation(ctx, tampered), ErrChecksumMismatch)

	require.NoError(t, ResetIfSupported(ctx, store))
	list, err = store.ListComputations(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	err := store.SaveComputation(context.Background(), newComputation(t, "x", `1`))
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestBadgerStoreInMemory(t *testing.T) {
	cfg := DefaultBadgerConfig()
	cfg.InMemory = true
	cfg.SyncWrites = false
	store := NewBadgerStore(cfg)
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultBadgerConfig()
	cfg.Path = t.TempDir()
	cfg.GCInterval = 0

	store := NewBadgerStore(cfg)
	require.NoError(t, store.Init(ctx))
	saved := newComputation(t, "kept", `{"distance":5}`)
	require.NoError(t, store.SaveComputation(ctx, saved))
	require.NoError(t, store.Close())

	reopened := NewBadgerStore(cfg)
	require.NoError(t, reopened.Init(ctx))
	t.Cleanup(func() { _ = reopened.Close() })
	got, ok, err := reopened.GetComputation(ctx, "kept")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saved.Checksum, got.Checksum)
}

func TestBadgerStoreRequiresPath(t *testing.T) {
	store := NewBadgerStore(BadgerConfig{})
	assert.Error(t, store.Init(context.Background()))
	_, _, err := store.GetComputation(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotInitialized)
}
