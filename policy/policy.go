// Package policy guards calls to an external model backend with a timeout,
// a token bucket and a circuit breaker.
package policy

import "errors"

var (
	// ErrCircuitOpen indicates the circuit breaker rejected the call.
	ErrCircuitOpen = errors.New("circuit breaker open")
	// ErrRateLimited indicates the backend's token bucket is empty.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidPolicy indicates an unusable policy configuration.
	ErrInvalidPolicy = errors.New("invalid policy config")
)
