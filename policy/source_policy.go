package policy

import (
	"context"
	"fmt"
	"time"
)

// RateLimitConfig configures the token bucket. A zero value disables it.
type RateLimitConfig struct {
	Capacity     int           `koanf:"capacity" validate:"gte=0"`
	RefillTokens int           `koanf:"refill_tokens" validate:"gte=0"`
	RefillEvery  time.Duration `koanf:"refill_every"`
}

// SourceConfig configures the controls around one backend.
type SourceConfig struct {
	Name    string               `koanf:"name"`
	Timeout time.Duration        `koanf:"timeout"`
	Rate    RateLimitConfig      `koanf:"rate"`
	Circuit CircuitBreakerConfig `koanf:"circuit"`
}

// SourcePolicy applies timeout, rate limiting and circuit breaking to calls
// against one backend.
type SourcePolicy struct {
	name    string
	timeout time.Duration
	rate    *TokenBucket
	circuit *CircuitBreaker
	metrics *Metrics
}

// NewSourcePolicy validates cfg and builds the policy.
func NewSourcePolicy(cfg SourceConfig, metrics *Metrics) (*SourcePolicy, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: source name required", ErrInvalidPolicy)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive", ErrInvalidPolicy)
	}
	return &SourcePolicy{
		name:    cfg.Name,
		timeout: cfg.Timeout,
		rate:    NewTokenBucket(cfg.Rate.Capacity, cfg.Rate.RefillTokens, cfg.Rate.RefillEvery),
		circuit: NewCircuitBreaker(cfg.Name, cfg.Circuit, metrics),
		metrics: metrics,
	}, nil
}

// Execute runs fn with a deadline once the breaker and the limiter admit it.
func (s *SourcePolicy) Execute(parent context.Context, fn func(context.Context) error) error {
	if parent == nil {
		parent = context.Background()
	}

	if !s.rate.Allow(time.Now()) {
		s.metrics.ObserveRejected(s.name, ErrRateLimited)
		return ErrRateLimited
	}

	done, err := s.circuit.Allow()
	if err != nil {
		s.metrics.ObserveRejected(s.name, err)
		return err
	}

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	err = fn(ctx)
	s.metrics.ObserveCall(s.name, time.Since(start), err)

	// A caller that gave up says nothing about backend health.
	if parent.Err() != nil {
		done(context.Canceled)
	} else {
		done(err)
	}
	return err
}

// Circuit exposes the breaker for readiness reporting.
func (s *SourcePolicy) Circuit() *CircuitBreaker {
	return s.circuit
}

// Name returns the guarded backend name.
func (s *SourcePolicy) Name() string {
	return s.name
}
