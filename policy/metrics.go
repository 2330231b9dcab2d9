//go:build !nometrics

package policy

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics wraps Prometheus collectors for guarded backends.
type Metrics struct {
	latency      *prometheus.HistogramVec
	errorRate    *prometheus.GaugeVec
	rejected     *prometheus.CounterVec
	circuitState *prometheus.GaugeVec

	mu    sync.Mutex
	calls map[string]*callStats
}

type callStats struct {
	success int
	fail    int
}

// MetricsOption customises metric registration.
type MetricsOption func(*metricsConfig)

type metricsConfig struct {
	registerer prometheus.Registerer
	buckets    []float64
}

// WithRegisterer overrides the default Prometheus registerer.
func WithRegisterer(r prometheus.Registerer) MetricsOption {
	return func(cfg *metricsConfig) {
		cfg.registerer = r
	}
}

// WithLatencyBuckets overrides the latency histogram buckets (ms).
func WithLatencyBuckets(buckets []float64) MetricsOption {
	return func(cfg *metricsConfig) {
		cfg.buckets = buckets
	}
}

// NewMetrics constructs and registers the collectors. Registering twice
// against the same registerer reuses the existing collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := metricsConfig{
		registerer: prometheus.DefaultRegisterer,
		buckets:    []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2000},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Metrics{calls: make(map[string]*callStats)}
	m.latency = register(cfg.registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recommender_backend_latency_ms",
		Help:    "Latency in milliseconds of guarded model backend calls.",
		Buckets: cfg.buckets,
	}, []string{"backend"}))
	m.errorRate = register(cfg.registerer, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "recommender_backend_error_rate",
		Help: "Cumulative error rate of guarded model backend calls.",
	}, []string{"backend"}))
	m.rejected = register(cfg.registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recommender_backend_rejected_total",
		Help: "Calls rejected before reaching the backend, by reason.",
	}, []string{"backend", "reason"}))
	m.circuitState = register(cfg.registerer, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "recommender_circuit_state",
		Help: "Circuit breaker state. 0=closed, 1=half-open, 2=open.",
	}, []string{"breaker"}))
	return m
}

// ObserveCall records latency and outcome of a call that reached the backend.
func (m *Metrics) ObserveCall(backend string, latency time.Duration, err error) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(backend).Observe(float64(max(latency.Milliseconds(), 0)))

	m.mu.Lock()
	stats, ok := m.calls[backend]
	if !ok {
		stats = &callStats{}
		m.calls[backend] = stats
	}
	if err != nil {
		stats.fail++
	} else {
		stats.success++
	}
	rate := float64(stats.fail) / float64(stats.fail+stats.success)
	m.mu.Unlock()

	m.errorRate.WithLabelValues(backend).Set(rate)
}

// ObserveRejected counts a call refused by the breaker or the limiter.
func (m *Metrics) ObserveRejected(backend string, err error) {
	if m == nil {
		return
	}
	reason := "other"
	switch {
	case errors.Is(err, ErrCircuitOpen):
		reason = "circuit_open"
	case errors.Is(err, ErrRateLimited):
		reason = "rate_limited"
	}
	m.rejected.WithLabelValues(backend, reason).Inc()
}

// SetCircuitState records a breaker state.
func (m *Metrics) SetCircuitState(breaker string, state CircuitState) {
	if m == nil {
		return
	}
	m.circuitState.WithLabelValues(breaker).Set(float64(state))
}

func register[C prometheus.Collector](r prometheus.Registerer, c C) C {
	if r == nil {
		return c
	}
	if err := r.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
			return c
		}
		panic(err)
	}
	return c
}
