// Package health serves the readiness check.
package health

import (
	"context"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// slowPing marks a model ping as degraded.
const slowPing = 200 * time.Millisecond

// Checker reports predictive-scorer availability.
type Checker interface {
	Ping(ctx context.Context) error
	ModelReady() bool
	ModelBackend() string
}

// Status is the readiness payload.
type Status struct {
	Ready        bool   `json:"ready"`
	ModelLoaded  bool   `json:"model_loaded"`
	ModelBackend string `json:"model_backend,omitempty"`
	ModelOK      bool   `json:"model_ok"`
	ModelError   string `json:"model_error,omitempty"`
	LastPingMS   int64  `json:"last_ping_ms"`
	Degraded     bool   `json:"degraded"`
}

// Check pings the model. Rule-based ranking needs no external dependency,
// so the service is ready without a model unless requireModel is set.
func Check(ctx context.Context, c Checker, requireModel bool) Status {
	start := time.Now()
	err := c.Ping(ctx)
	latency := time.Since(start)

	st := Status{
		ModelLoaded:  c.ModelReady(),
		ModelBackend: c.ModelBackend(),
		ModelOK:      err == nil,
		LastPingMS:   latency.Milliseconds(),
	}
	if err != nil {
		st.ModelError = err.Error()
	}
	st.Degraded = !st.ModelOK || latency > slowPing
	st.Ready = st.ModelOK || !requireModel
	return st
}

// Readyz returns a handler answering 200 when ready and 503 otherwise.
func Readyz(c Checker, requireModel bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := Check(r.Context(), c, requireModel)
		status := http.StatusOK
		if !st.Ready {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(st)
	}
}
