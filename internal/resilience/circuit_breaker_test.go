package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func failN(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		cb.RecordResult(false)
	}
}

func TestCircuitBreaker_StateClosed(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 1*time.Second)

	if cb.GetState() != StateClosed {
		t.Errorf("Expected initial state to be Closed, got %s", cb.GetState())
	}

	if !cb.admit() {
		t.Error("Expected to allow request in Closed state")
	}
}

func TestCircuitBreaker_OpenAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 1*time.Second)

	failN(cb, 2)
	if cb.GetState() != StateClosed {
		t.Error("Expected state to still be Closed after 2 failures")
	}

	cb.RecordResult(false)
	if cb.GetState() != StateOpen {
		t.Error("Expected state to be Open after 3 failures")
	}

	if cb.admit() {
		t.Error("Expected to not allow request in Open state")
	}
}

func TestCircuitBreaker_HalfOpenThenClosed(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 50*time.Millisecond)
	failN(cb, 3)

	time.Sleep(80 * time.Millisecond)

	ok := func(ctx context.Context) (bool, error) { return true, nil }
	if _, err := Guard(context.Background(), cb, ok); err != nil {
		t.Fatalf("Expected probe call to be allowed, got %v", err)
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("Expected HalfOpen after first probe, got %s", cb.GetState())
	}

	for i := 0; i < 2; i++ {
		if _, err := Guard(context.Background(), cb, ok); err != nil {
			t.Fatalf("Expected half-open call %d to succeed, got %v", i, err)
		}
	}

	if cb.GetState() != StateClosed {
		t.Errorf("Expected state to be Closed after successes in HalfOpen, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_OpenAfterFailureInHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 50*time.Millisecond)
	failN(cb, 3)

	time.Sleep(80 * time.Millisecond)

	_, err := Guard(context.Background(), cb, func(ctx context.Context) (string, error) { return "", errors.New("still down") })
	if err == nil {
		t.Fatal("Expected error from failing probe")
	}

	if cb.GetState() != StateOpen {
		t.Error("Expected state to be Open after failure in HalfOpen")
	}
}

func TestCircuitBreaker_CallOpen(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 1*time.Second)
	cb.RecordResult(false)

	called := false
	_, err := Guard(context.Background(), cb, func(ctx context.Context) (string, error) {
		called = true
		return "ok", nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("Expected protected function not to run while open")
	}

	healthy, err := cb.HealthCheck(context.Background())
	if healthy || !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected unhealthy with ErrCircuitOpen, got %v, %v", healthy, err)
	}
}

func TestCircuitBreaker_CancelledCallNotCounted(t *testing.T) {
	cb := NewCircuitBreaker("test", 1, 1*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Guard(ctx, cb, func(ctx context.Context) (string, error) { return "", ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("Expected cancelled call to leave circuit Closed, got %s", cb.GetState())
	}
}

func TestCircuitBreaker_GetStats(t *testing.T) {
	cb := NewCircuitBreaker("test", 3, 1*time.Second)

	cb.RecordResult(true)
	cb.RecordResult(true)
	cb.RecordResult(false)

	stats := cb.GetStats()

	if stats.State != StateClosed {
		t.Errorf("Expected state Closed, got %s", stats.State)
	}
	if stats.Requests != 3 {
		t.Errorf("Expected 3 requests, got %d", stats.Requests)
	}
	if stats.Failures != 1 {
		t.Errorf("Expected 1 failure, got %d", stats.Failures)
	}
	if stats.FailureRate < 33.0 || stats.FailureRate > 34.0 {
		t.Errorf("Expected failure rate around 33.33%%, got %.2f%%", stats.FailureRate)
	}
}

func TestGuard_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker("deepgram", 2, time.Second)

	text, err := Guard(context.Background(), cb, func(ctx context.Context) (string, error) {
		return "hola", nil
	})
	if err != nil || text != "hola" {
		t.Errorf("Expected hola, got %q (%v)", text, err)
	}

	text, err = Guard(context.Background(), cb, func(ctx context.Context) (string, error) {
		return "partial", errors.New("stream closed")
	})
	if err == nil || text != "" {
		t.Errorf("Expected zero value with error, got %q (%v)", text, err)
	}
	if cb.GetStats().Failures != 1 {
		t.Errorf("Expected 1 failure recorded, got %d", cb.GetStats().Failures)
	}
}

func TestGuard_CancelledProbeFreesSlot(t *testing.T) {
	cb := NewCircuitBreaker("openai", 1, 10*time.Millisecond)
	cb.RecordResult(false)
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < probeLimit+1; i++ {
		_, err := Guard(ctx, cb, func(ctx context.Context) (int, error) { return 0, ctx.Err() })
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Probe %d: expected context.Canceled, got %v", i, err)
		}
	}

	if cb.GetState() != StateHalfOpen {
		t.Errorf("Expected HalfOpen, got %s", cb.GetState())
	}
	if !cb.admit() {
		t.Error("Expected cancelled probes to give back their slots")
	}
}
