//go:build !nometrics

// Package obs owns the process-wide Prometheus collectors and the
// OpenTelemetry tracer provider.
package obs

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

var (
	setupOnce sync.Once
	shutdown  = func(context.Context) error { return nil }
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommender_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recommender_http_request_duration_ms",
		Help:    "HTTP request latency in ms.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"route"})
	inferences = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommender_inference_total",
		Help: "Predictive backend invocations by backend and outcome.",
	}, []string{"backend", "outcome"})
	inferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recommender_inference_duration_ms",
		Help:    "Predictive backend latency in ms.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
	}, []string{"backend"})
	recommendations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommender_recommendations_total",
		Help: "Recommendation entries returned, by origin.",
	}, []string{"source"})
	rankings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommender_rankings_total",
		Help: "Ranking runs by whether the model contributed.",
	}, []string{"model_used"})
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommender_cache_lookups_total",
		Help: "Result cache lookups by outcome.",
	}, []string{"result"})
	storeWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommender_store_writes_total",
		Help: "Survey persistence attempts by outcome.",
	}, []string{"outcome"})
	modelLoaded = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "recommender_model_loaded",
		Help: "1 when the named predictive backend is loaded.",
	}, []string{"backend"})
)

// ObserveRequest records an HTTP request. The trace id, when present, is
// attached as an exemplar.
func ObserveRequest(route string, code int, duration time.Duration, traceID string) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	ms := float64(duration.Microseconds()) / 1000
	h := httpDuration.WithLabelValues(route)
	if eo, ok := h.(prometheus.ExemplarObserver); ok && traceID != "" {
		eo.ObserveWithExemplar(ms, prometheus.Labels{"trace_id": traceID})
		return
	}
	h.Observe(ms)
}

// ObserveInference records one predictive backend call.
func ObserveInference(backend, outcome string, duration time.Duration) {
	inferences.WithLabelValues(backend, outcome).Inc()
	inferenceDuration.WithLabelValues(backend).Observe(float64(duration.Microseconds()) / 1000)
}

// ObserveRanking records the composition of one ranked list.
func ObserveRanking(modelUsed bool, modelCount, ruleCount int) {
	rankings.WithLabelValues(strconv.FormatBool(modelUsed)).Inc()
	recommendations.WithLabelValues("ml_model").Add(float64(modelCount))
	recommendations.WithLabelValues("survey_rules").Add(float64(ruleCount))
}

// RecordCache counts a cache lookup.
func RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}

// RecordStoreWrite counts a persistence attempt (ok, error, dropped).
func RecordStoreWrite(outcome string) {
	storeWrites.WithLabelValues(outcome).Inc()
}

// SetModelLoaded flags whether backend is serving predictions.
func SetModelLoaded(backend string, loaded bool) {
	v := 0.0
	if loaded {
		v = 1
	}
	modelLoaded.WithLabelValues(backend).Set(v)
}

// InitTracer installs a sampling tracer provider. Later calls return the
// first provider's shutdown func.
func InitTracer(serviceName string, sampleRatio float64) (func(context.Context) error, error) {
	var initErr error
	setupOnce.Do(func() {
		res, err := resource.New(context.Background(),
			resource.WithAttributes(
				semconv.ServiceName(serviceName),
			),
		)
		if err != nil {
			initErr = err
			return
		}

		provider := sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(provider)
		shutdown = provider.Shutdown
	})
	return shutdown, initErr
}
