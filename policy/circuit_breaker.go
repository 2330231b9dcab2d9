package policy

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sphinxnet/recommender/internal/logging"
)

// CircuitState represents the state of the circuit breaker.
type CircuitState int

const (
	// CircuitClosed allows all traffic.
	CircuitClosed CircuitState = iota
	// CircuitHalfOpen admits a limited number of trial calls.
	CircuitHalfOpen
	// CircuitOpen blocks all traffic.
	CircuitOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitHalfOpen:
		return "half-open"
	case CircuitOpen:
		return "open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker behaviour.
type CircuitBreakerConfig struct {
	// Window is how long closed-state counts accumulate before resetting.
	Window               time.Duration `koanf:"window"`
	FailureRateThreshold float64       `koanf:"failure_rate" validate:"gte=0,lte=1"`
	MinSamples           int           `koanf:"min_samples" validate:"gte=0"`
	// Cooldown is the time spent open before probing.
	Cooldown         time.Duration `koanf:"cooldown"`
	HalfOpenMaxCalls int           `koanf:"half_open_max_calls" validate:"gte=0"`
}

func (cfg CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Second
	}
	if cfg.FailureRateThreshold <= 0 {
		cfg.FailureRateThreshold = 0.5
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}
	return cfg
}

// CircuitBreaker trips on a failure rate over a counting window. It wraps a
// two-step gobreaker so the caller decides when a call has finished.
type CircuitBreaker struct {
	name    string
	cb      *gobreaker.TwoStepCircuitBreaker[struct{}]
	metrics *Metrics
}

// NewCircuitBreaker constructs a breaker; zero config fields take defaults.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, metrics *Metrics) *CircuitBreaker {
	cfg = cfg.withDefaults()
	c := &CircuitBreaker{name: name, metrics: metrics}
	c.cb = gobreaker.NewTwoStepCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(cfg.HalfOpenMaxCalls),
		Interval:    cfg.Window,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			counted := counts.Requests - min(counts.TotalExclusions, counts.Requests)
			if counted == 0 || counted < uint32(cfg.MinSamples) {
				return false
			}
			return float64(counts.TotalFailures)/float64(counted) >= cfg.FailureRateThreshold
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", fromGobreaker(from).String()).
				Str("to", fromGobreaker(to).String()).
				Msg("circuit breaker state change")
			c.metrics.SetCircuitState(name, fromGobreaker(to))
		},
	})
	metrics.SetCircuitState(name, CircuitClosed)
	return c
}

// Allow reserves a call slot. The returned done func must be called exactly
// once with the call error; nil counts as success and a cancelled context
// is not counted at all.
func (c *CircuitBreaker) Allow() (done func(err error), err error) {
	done, err = c.cb.Allow()
	if err != nil {
		return nil, ErrCircuitOpen
	}
	return done, nil
}

// Do runs fn under the breaker.
func (c *CircuitBreaker) Do(fn func() error) error {
	done, err := c.Allow()
	if err != nil {
		return err
	}
	err = fn()
	done(err)
	return err
}

// State returns the current state of the circuit breaker.
func (c *CircuitBreaker) State() CircuitState {
	return fromGobreaker(c.cb.State())
}

// Name returns the breaker name.
func (c *CircuitBreaker) Name() string {
	return c.name
}

func fromGobreaker(s gobreaker.State) CircuitState {
	switch s {
	case gobreaker.StateHalfOpen:
		return CircuitHalfOpen
	case gobreaker.StateOpen:
		return CircuitOpen
	default:
		return CircuitClosed
	}
}
