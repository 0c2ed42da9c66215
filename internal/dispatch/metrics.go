package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("amari.dispatch")

var (
	operationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amari_operation_total",
		Help: "Operations executed by name and result kind",
	}, []string{"operation", "result"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "amari_operation_duration_seconds",
		Help:    "Operation latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 16),
	}, []string{"operation"})

	cayleyCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amari_cayley_cache_total",
		Help: "Cayley table lookups by outcome",
	}, []string{"outcome"})
)
