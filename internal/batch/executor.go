// Package batch applies one operation across many inputs with bounded
// parallelism, keeping results in input order.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

var (
	batchItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amari_batch_items_total",
		Help: "Batch items processed by status",
	}, []string{"status"})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "amari_batch_duration_seconds",
		Help:    "Wall time of whole batches in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})
)

// Item is one batch result. Exactly one of Value and Err is meaningful.
type Item[T any] struct {
	Index int
	Value T
	Err   error
}

type Executor struct {
	// Workers bounds concurrent items; zero or less means GOMAXPROCS.
	Workers int
}

func (e Executor) workers(n int) int {
	w := e.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w > n {
		w = n
	}
	return w
}

// Apply runs fn for every index in [0, n). A failing item never stops the
// others; items not started before ctx is done carry ctx's error.
func Apply[T any](ctx context.Context, ex Executor, n int, fn func(ctx context.Context, i int) (T, error)) []Item[T] {
	items := make([]Item[T], n)
	if n == 0 {
		return items
	}
	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	var g errgroup.Group
	g.SetLimit(ex.workers(n))
	for i := 0; i < n; i++ {
		items[i].Index = i
		if err := ctx.Err(); err != nil {
			items[i].Err = err
			batchItemsTotal.WithLabelValues("cancelled").Inc()
			continue
		}
		g.Go(func() error {
			items[i] = runItem(ctx, i, fn)
			return nil
		})
	}
	_ = g.Wait()
	return items
}

func runItem[T any](ctx context.Context, i int, fn func(ctx context.Context, i int) (T, error)) (item Item[T]) {
	item.Index = i
	defer func() {
		if r := recover(); r != nil {
			item = Item[T]{Index: i, Err: fmt.Errorf("batch item %d panicked: %v", i, r)}
			batchItemsTotal.WithLabelValues("error").Inc()
		}
	}()
	if err := ctx.Err(); err != nil {
		item.Err = err
		batchItemsTotal.WithLabelValues("cancelled").Inc()
		return item
	}
	v, err := fn(ctx, i)
	if err != nil {
		item.Err = err
		batchItemsTotal.WithLabelValues("error").Inc()
		return item
	}
	item.Value = v
	batchItemsTotal.WithLabelValues("ok").Inc()
	return item
}
