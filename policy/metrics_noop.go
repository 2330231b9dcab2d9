//go:build nometrics

package policy

import "time"

type Metrics struct{}

type MetricsOption func(*metricsConfig)

type metricsConfig struct{}

func NewMetrics(...MetricsOption) *Metrics {
	return nil
}

func WithRegisterer(_ any) MetricsOption {
	return func(*metricsConfig) {}
}

func WithLatencyBuckets(_ []float64) MetricsOption {
	return func(*metricsConfig) {}
}

func (m *Metrics) ObserveCall(string, time.Duration, error) {}

func (m *Metrics) ObserveRejected(string, error) {}

func (m *Metrics) SetCircuitState(string, CircuitState) {}
