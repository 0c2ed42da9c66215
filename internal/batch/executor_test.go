package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPreservesOrderAndIsolatesErrors(t *testing.T) {
	boom := errors.New("boom")
	items := Apply(context.Background(), Executor{Workers: 3}, 10, func(_ context.Context, i int) (int, error) {
		// later items finish first
		time.Sleep(time.Duration(10-i) * time.Millisecond)
		if i == 4 {
			return 0, boom
		}
		return i * i, nil
	})

	require.Len(t, items, 10)
	for i, item := range items {
		assert.Equal(t, i, item.Index)
		if i == 4 {
			assert.ErrorIs(t, item.Err, boom)
			continue
		}
		require.NoError(t, item.Err)
		assert.Equal(t, i*i, item.Value)
	}
}

func TestApplyBoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	Apply(context.Background(), Executor{Workers: 2}, 12, func(_ context.Context, i int) (struct{}, error) {
		now := running.Add(1)
		for {
			old := peak.Load()
			if now <= old || peak.CompareAndSwap(old, now) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return struct{}{}, nil
	})
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestApplyReportsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	items := Apply(ctx, Executor{Workers: 1}, 3, func(context.Context, int) (int, error) {
		calls.Add(1)
		return 0, nil
	})
	assert.Zero(t, calls.Load())
	for _, item := range items {
		assert.ErrorIs(t, item.Err, context.Canceled)
	}
}

func TestApplyRecoversPanics(t *testing.T) {
	items := Apply(context.Background(), Executor{}, 2, func(_ context.Context, i int) (string, error) {
		if i == 1 {
			panic("bad item")
		}
		return "ok", nil
	})
	assert.Equal(t, "ok", items[0].Value)
	require.Error(t, items[1].Err)
	assert.Contains(t, items[1].Err.Error(), "panicked")
}

func TestApplyEmpty(t *testing.T) {
	items := Apply(context.Background(), Executor{}, 0, func(context.Context, int) (int, error) { return 1, nil })
	assert.Empty(t, items)
}
