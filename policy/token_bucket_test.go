package policy

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTokenBucketRefills(t *testing.T) {
	b := NewTokenBucket(2, 1, 100*time.Millisecond)
	now := time.Now()

	if !b.Allow(now) || !b.Allow(now) {
		t.Fatal("expected full bucket to allow two calls")
	}
	if b.Allow(now) {
		t.Fatal("expected empty bucket to deny")
	}
	if !b.Allow(now.Add(110 * time.Millisecond)) {
		t.Fatal("expected refill after one interval")
	}
}

func TestNilTokenBucketAllows(t *testing.T) {
	var b *TokenBucket
	if b = NewTokenBucket(0, 1, time.Second); b != nil {
		t.Fatal("expected nil bucket for zero capacity")
	}
	if !b.Allow(time.Now()) {
		t.Fatal("nil bucket must allow")
	}
}

func TestTokenBucketRefillCapsAtCapacity(t *testing.T) {
	b := NewTokenBucket(2, 1, 100*time.Millisecond)
	now := time.Now()

	later := now.Add(10 * time.Second)
	allowed := 0
	for i := 0; i < 5; i++ {
		if b.Allow(later) {
			allowed++
		}
	}
	if allowed != 2 {
		t.Fatalf("expected refill capped at 2 tokens, got %d", allowed)
	}
}

func TestTokenBucketConcurrentCallersShareTokens(t *testing.T) {
	b := NewTokenBucket(5, 1, time.Hour)
	now := time.Now()

	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Allow(now) {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 5 {
		t.Fatalf("expected exactly 5 admitted calls, got %d", got)
	}
}
