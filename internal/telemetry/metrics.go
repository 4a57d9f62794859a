package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shaiso/tensorgraph/internal/graph"
)

// Metrics — Prometheus метрики обхода графа и кэша автотюнинга.
//
// Реализует graph.Observer и tuning.CacheObserver.
type Metrics struct {
	dispatches *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	cache      *prometheus.CounterVec
}

// NewMetrics регистрирует метрики в reg.
// Если reg == nil — используется prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tensorgraph_exec_dispatch_total",
			Help: "Total exec nodes dispatched",
		}, []string{"phase", "command"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tensorgraph_exec_dispatch_failures_total",
			Help: "Total exec node dispatches that returned an error",
		}, []string{"phase", "command"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tensorgraph_exec_dispatch_seconds",
			Help:    "Exec node dispatch latency",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"phase"}),
		cache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tensorgraph_autotune_cache_total",
			Help: "Autotune cache lookups by result",
		}, []string{"result"}),
	}
}

// ObserveDispatch реализует graph.Observer.
func (m *Metrics) ObserveDispatch(_ context.Context, ev graph.DispatchEvent) {
	command := ev.Command.Name
	if ev.Subgraph {
		command = "subgraph"
	}
	phase := string(ev.Phase)

	m.dispatches.WithLabelValues(phase, command).Inc()
	m.duration.WithLabelValues(phase).Observe(ev.Duration.Seconds())
	if ev.Err != nil {
		m.failures.WithLabelValues(phase, command).Inc()
	}
}

// ObserveCache реализует tuning.CacheObserver.
func (m *Metrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}
