// Package predict produces per-package confidences from an encoded survey.
//
// A Predictor wraps one Backend and turns every failure mode (missing model,
// backend error, panic, wrong shape, non-finite output) into an Unavailable
// Result so callers never see an error.
package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sphinxnet/recommender/encode"
	"github.com/sphinxnet/recommender/internal/logging"
	"github.com/sphinxnet/recommender/obs"
)

var (
	// ErrShapeMismatch indicates a confidence vector of the wrong length.
	ErrShapeMismatch = errors.New("confidence vector length does not match catalog")
	// ErrNonFinite indicates a NaN or infinite confidence.
	ErrNonFinite = errors.New("non-finite confidence")
	// ErrNoBackend indicates that no backend could be resolved.
	ErrNoBackend = errors.New("no predictive backend available")
)

// Backend is anything that can score an encoded survey against every
// catalog package, in catalog order.
type Backend interface {
	PredictConfidences(ctx context.Context, features encode.Vector) ([]float64, error)
	Name() string
}

// Result is either a confidence vector aligned with the catalog or an
// unavailability marker with a reason.
type Result struct {
	Confidences []float64
	Backend     string
	Reason      string
	available   bool
}

// Available wraps a confidence vector.
func Available(confidences []float64, backend string) Result {
	return Result{Confidences: confidences, Backend: backend, available: true}
}

// Unavailable marks a failed or skipped prediction.
func Unavailable(reason string) Result {
	return Result{Reason: reason}
}

// OK reports whether confidences are present.
func (r Result) OK() bool {
	return r.available
}

// Predictor validates backend output against the catalog size.
type Predictor struct {
	backend Backend
	size    int
}

// NewPredictor returns a predictor over backend. A nil backend yields a
// predictor that is always unavailable.
func NewPredictor(backend Backend, catalogSize int) *Predictor {
	return &Predictor{backend: backend, size: catalogSize}
}

// Ready reports whether a backend is attached.
func (p *Predictor) Ready() bool {
	return p != nil && p.backend != nil
}

// BackendName returns the attached backend's name, or "".
func (p *Predictor) BackendName() string {
	if !p.Ready() {
		return ""
	}
	return p.backend.Name()
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks a backend that has an external dependency. Local backends
// are always reachable.
func (p *Predictor) Ping(ctx context.Context) error {
	if !p.Ready() {
		return ErrNoBackend
	}
	if pg, ok := p.backend.(pinger); ok {
		return pg.Ping(ctx)
	}
	return nil
}

// Predict never returns an error.
func (p *Predictor) Predict(ctx context.Context, features encode.Vector) (res Result) {
	if !p.Ready() {
		return Unavailable(ErrNoBackend.Error())
	}
	name := p.backend.Name()
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			logging.Ctx(ctx).Error().Str("backend", name).Interface("panic", rec).Msg("model backend panicked")
			res = Unavailable(fmt.Sprintf("backend panic: %v", rec))
		}
		outcome := "ok"
		if !res.OK() {
			outcome = "unavailable"
		}
		obs.ObserveInference(name, outcome, time.Since(start))
	}()

	raw, err := p.backend.PredictConfidences(ctx, features)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("backend", name).Msg("model prediction failed")
		return Unavailable(err.Error())
	}
	conf, err := sanitize(raw, p.size)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("backend", name).Int("got", len(raw)).Int("want", p.size).Msg("model output rejected")
		return Unavailable(err.Error())
	}
	return Available(conf, name)
}

func sanitize(raw []float64, size int) ([]float64, error) {
	if len(raw) != size {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrShapeMismatch, len(raw), size)
	}
	out := make([]float64, size)
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}
		out[i] = math.Min(1, math.Max(0, v))
	}
	return out, nil
}
