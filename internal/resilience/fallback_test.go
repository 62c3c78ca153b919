package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newGroup(maxFailures int) *FallbackGroup[string] {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: maxFailures, ResetTimeout: time.Hour},
	})
	fg.AddFallback("secondary", "secondary")
	return fg
}

func TestFallbackGroup_PrimarySuccess(t *testing.T) {
	fg := newGroup(3)

	var called string
	err := fg.Execute(context.Background(), func(_ string, v string) error {
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "primary" {
		t.Fatalf("called = %q, want primary", called)
	}
}

func TestFallbackGroup_PrimaryFailFallbackSuccess(t *testing.T) {
	fg := newGroup(3)

	var names []string
	err := fg.Execute(context.Background(), func(name string, v string) error {
		names = append(names, name)
		if v == "primary" {
			return errTest
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 || names[1] != "secondary" {
		t.Fatalf("names = %v, want [primary secondary]", names)
	}
}

func TestFallbackGroup_AllFailWrapsLastError(t *testing.T) {
	fg := newGroup(3)
	errLast := errors.New("secondary down")

	err := fg.Execute(context.Background(), func(_ string, v string) error {
		if v == "secondary" {
			return errLast
		}
		return errTest
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, errLast) {
		t.Fatalf("err = %v, want last error wrapped", err)
	}
}

func TestFallbackGroup_CircuitBreakerSkipsOpenProvider(t *testing.T) {
	fg := newGroup(2)

	for range 2 {
		_ = fg.Execute(context.Background(), func(_ string, v string) error {
			if v == "primary" {
				return errTest
			}
			return nil
		})
	}

	var called []string
	err := fg.Execute(context.Background(), func(_ string, v string) error {
		called = append(called, v)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(called) != 1 || called[0] != "secondary" {
		t.Fatalf("called = %v, want [secondary] (primary circuit should be open)", called)
	}

	status := fg.Status()
	if status[0].State != "open" || status[1].State != "closed" {
		t.Errorf("Status() = %+v", status)
	}
	if !fg.Available() {
		t.Error("Available() = false with a closed fallback")
	}
}

func TestFallbackGroup_Unavailable(t *testing.T) {
	fg := newGroup(1)
	_ = fg.Execute(context.Background(), func(string, string) error { return errTest })
	if fg.Available() {
		t.Error("Available() = true with every breaker open")
	}
	err := fg.Execute(context.Background(), func(string, string) error { return nil })
	if !errors.Is(err, ErrAllFailed) || !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrAllFailed wrapping ErrCircuitOpen", err)
	}
}

func TestFallbackGroup_StopsWhenContextDone(t *testing.T) {
	fg := newGroup(3)
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	err := fg.Execute(ctx, func(string, string) error {
		calls++
		cancel()
		return context.Canceled
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if got := fg.Status()[0].State; got != "closed" {
		t.Errorf("cancellation opened the breaker: %s", got)
	}
}

func TestExecuteWithResult_Failover(t *testing.T) {
	fg := NewFallbackGroup(10, "ten", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("twenty", 20)

	result, err := ExecuteWithResult(context.Background(), fg, func(_ string, v int) (string, error) {
		if v == 10 {
			return "", errTest
		}
		return "from-twenty", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-twenty" {
		t.Fatalf("result = %q, want from-twenty", result)
	}
	if fg.Len() != 2 || fg.Primary() != 10 {
		t.Errorf("Len/Primary = %d/%d", fg.Len(), fg.Primary())
	}
}
