package policy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sphinxnet/recommender/testutil"
)

func predictCall(url string) func(context.Context) error {
	return func(ctx context.Context) error {
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url+"/predict", strings.NewReader(`{"features":[]}`))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	}
}

func TestSourcePolicyTimeoutTriggersError(t *testing.T) {
	fake := testutil.NewFakeModel(testutil.FakeResponse{
		Delay:  150 * time.Millisecond,
		Status: http.StatusOK,
	})
	defer fake.Close()

	policy, err := NewSourcePolicy(SourceConfig{
		Name:    "fake",
		Timeout: 50 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	callErr := policy.Execute(context.Background(), predictCall(fake.URL()))
	if !errors.Is(callErr, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", callErr)
	}
}

func TestSourcePolicyCircuitOpensAfterFailures(t *testing.T) {
	fake := testutil.NewFakeModel(testutil.FakeResponse{Status: http.StatusInternalServerError})
	defer fake.Close()

	cfg := SourceConfig{
		Name:    "fake",
		Timeout: 200 * time.Millisecond,
		Circuit: CircuitBreakerConfig{
			Window:               time.Second,
			FailureRateThreshold: 0.5,
			MinSamples:           2,
			Cooldown:             100 * time.Millisecond,
			HalfOpenMaxCalls:     1,
		},
	}

	policy, err := NewSourcePolicy(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	call := predictCall(fake.URL())
	for i := 0; i < 2; i++ {
		_ = policy.Execute(ctx, call)
	}

	if err := policy.Execute(ctx, call); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}
	if fake.Calls() != 2 {
		t.Fatalf("open circuit should not reach the server, got %d calls", fake.Calls())
	}

	time.Sleep(cfg.Circuit.Cooldown + 20*time.Millisecond)
	fake.SetResponses(testutil.FakeResponse{Status: http.StatusOK})

	if err := policy.Execute(ctx, call); err != nil {
		t.Fatalf("expected circuit half-open success, got %v", err)
	}
	if policy.Circuit().State() != CircuitClosed {
		t.Fatalf("expected closed, got %v", policy.Circuit().State())
	}
}

func TestSourcePolicyCallerCancellationKeepsCircuitClosed(t *testing.T) {
	policy, err := NewSourcePolicy(SourceConfig{
		Name:    "cancelled",
		Timeout: time.Second,
		Circuit: CircuitBreakerConfig{MinSamples: 1},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	failing := func(ctx context.Context) error { return fmt.Errorf("gave up: %w", ctx.Err()) }
	for i := 0; i < 3; i++ {
		_ = policy.Execute(ctx, failing)
	}
	if policy.Circuit().State() != CircuitClosed {
		t.Fatalf("expected closed after caller cancellations, got %v", policy.Circuit().State())
	}

	if err := policy.Execute(context.Background(), func(context.Context) error { return errors.New("down") }); err == nil {
		t.Fatal("expected backend error")
	}
	if policy.Circuit().State() != CircuitOpen {
		t.Fatalf("expected open after a real failure, got %v", policy.Circuit().State())
	}
}

func TestSourcePolicyRateLimit(t *testing.T) {
	policy, err := NewSourcePolicy(SourceConfig{
		Name:    "limited",
		Timeout: time.Second,
		Rate:    RateLimitConfig{Capacity: 1, RefillTokens: 1, RefillEvery: time.Hour},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ok := func(context.Context) error { return nil }
	if err := policy.Execute(context.Background(), ok); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := policy.Execute(context.Background(), ok); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestNewSourcePolicyValidates(t *testing.T) {
	if _, err := NewSourcePolicy(SourceConfig{Timeout: time.Second}, nil); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy for missing name, got %v", err)
	}
	if _, err := NewSourcePolicy(SourceConfig{Name: "x"}, nil); !errors.Is(err, ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy for missing timeout, got %v", err)
	}
}
