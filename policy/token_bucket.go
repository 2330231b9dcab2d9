package policy

import (
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket limits calls to a backend. A nil bucket allows everything.
type TokenBucket struct {
	limiter *rate.Limiter
}

// NewTokenBucket returns a full bucket holding capacity tokens that regains
// refill tokens every interval. Non-positive arguments yield nil.
func NewTokenBucket(capacity, refill int, every time.Duration) *TokenBucket {
	if capacity <= 0 || refill <= 0 || every <= 0 {
		return nil
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Every(every/time.Duration(refill)), capacity),
	}
}

// Allow takes one token if available at now.
func (b *TokenBucket) Allow(now time.Time) bool {
	if b == nil {
		return true
	}
	return b.limiter.AllowN(now, 1)
}
