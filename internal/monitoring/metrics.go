package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name unless overridden.
const DefaultNamespace = "groundmotion"

// Metrics holds the Prometheus collectors for resource loading and model
// evaluation. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Surface table cache.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss}
	LoadDuration prometheus.Histogram
	LoadFailures prometheus.Counter
	CachedTables prometheus.Gauge

	// Evaluations by model name and outcome={ok,error}.
	Evaluations *prometheus.CounterVec
}

func newMetrics(namespace string) *Metrics {
	return &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surface_cache_lookups_total",
			Help:      "Surface table cache lookups by result.",
		}, []string{"result"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "surface_load_duration_seconds",
			Help:      "Time taken to load a surface table resource.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		LoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "surface_load_failures_total",
			Help:      "Surface table resource loads that returned an error.",
		}),
		CachedTables: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "surface_cached_tables",
			Help:      "Surface tables currently held by the cache.",
		}),
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Ground-motion model evaluations by model and outcome.",
		}, []string{"model", "outcome"}),
	}
}

// NewMetrics creates the collectors under DefaultNamespace and registers
// them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return NewMetricsWithNamespace(reg, DefaultNamespace)
}

// NewMetricsWithNamespace is NewMetrics with a caller-chosen namespace.
func NewMetricsWithNamespace(reg prometheus.Registerer, namespace string) *Metrics {
	m := newMetrics(namespace)
	reg.MustRegister(
		m.CacheLookups,
		m.LoadDuration,
		m.LoadFailures,
		m.CachedTables,
		m.Evaluations,
	)
	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// CacheHit records a cache lookup served from memory.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("hit").Inc()
}

// CacheMiss records a cache lookup that required a load.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// ObserveLoad records the duration and outcome of one resource load.
func (m *Metrics) ObserveLoad(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.LoadDuration.Observe(d.Seconds())
	if err != nil {
		m.LoadFailures.Inc()
	}
}

// SetCachedTables records the number of tables held by the cache.
func (m *Metrics) SetCachedTables(n int) {
	if m == nil {
		return
	}
	m.CachedTables.Set(float64(n))
}

// ObserveEvaluation records one model evaluation.
func (m *Metrics) ObserveEvaluation(model string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Evaluations.WithLabelValues(model, outcome).Inc()
}
