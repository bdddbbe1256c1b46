package ocr

import (
	"context"
	"errors"
	"testing"
	"time"
)

// statusSeq fails with the given upstream statuses, then succeeds.
func statusSeq(statuses ...int) (func(context.Context, int) error, *int) {
	calls := 0
	return func(ctx context.Context, attempt int) error {
		calls++
		if calls != attempt {
			panic("attempt number out of sync")
		}
		if calls <= len(statuses) {
			return Upstream(statuses[calls-1], "fake")
		}
		return nil
	}, &calls
}

func TestRetryPolicy_SucceedsAfterRetryable(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5}
	for n := 0; n <= 4; n++ {
		seq := make([]int, n)
		for i := range seq {
			seq[i] = 503
		}
		call, calls := statusSeq(seq...)
		attempts, err := p.Do(context.Background(), call)
		if err != nil {
			t.Fatalf("%d failures: unexpected error %v", n, err)
		}
		if attempts != n+1 || *calls != n+1 {
			t.Errorf("%d failures: expected %d attempts, got %d (calls %d)", n, n+1, attempts, *calls)
		}
	}
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5}
	call, calls := statusSeq(429, 500, 502, 503, 504, 429, 429)

	attempts, err := p.Do(context.Background(), call)
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindRetryBudgetExhausted {
		t.Fatalf("expected retry budget exhausted, got %v", err)
	}
	if attempts != 5 || *calls != 5 {
		t.Errorf("expected 5 calls, got %d", *calls)
	}
	if e.Status != 504 {
		t.Errorf("expected last status 504, got %d", e.Status)
	}
	var inner *Error
	if !errors.As(e.Unwrap(), &inner) || inner.Kind != KindUpstreamRetryable {
		t.Errorf("last upstream error should be wrapped, got %v", e.Unwrap())
	}
}

func TestRetryPolicy_NonRetryableStopsAtOnce(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404} {
		call, calls := statusSeq(status, 503)
		_, err := RetryPolicy{MaxAttempts: 5}.Do(context.Background(), call)
		if KindOf(err) != KindUpstreamNonRetryable {
			t.Fatalf("status %d: expected non-retryable, got %v", status, err)
		}
		if *calls != 1 {
			t.Errorf("status %d: expected 1 call, got %d", status, *calls)
		}
	}
}

func TestRetryPolicy_UntypedErrorIsTerminal(t *testing.T) {
	calls := 0
	_, err := RetryPolicy{MaxAttempts: 5}.Do(context.Background(), func(context.Context, int) error {
		calls++
		return errors.New("boom")
	})
	if KindOf(err) != KindInternal || calls != 1 {
		t.Fatalf("expected one internal failure, got %v after %d calls", err, calls)
	}
}

func TestRetryPolicy_WaitsDouble(t *testing.T) {
	var waits []time.Duration
	p := RetryPolicy{
		MaxAttempts: 5,
		Unit:        time.Millisecond,
		OnRetry: func(attempt int, wait time.Duration, err *Error) {
			waits = append(waits, wait)
		},
	}
	call, _ := statusSeq(503, 503, 503, 503, 503)
	_, _ = p.Do(context.Background(), call)

	want := []time.Duration{1 * time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond, 8 * time.Millisecond}
	if len(waits) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), waits)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait %d: expected %v, got %v", i, want[i], waits[i])
		}
	}
}

func TestRetryPolicy_ContextCancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	call, calls := statusSeq(503, 503, 503)

	start := time.Now()
	_, err := RetryPolicy{MaxAttempts: 5, Unit: time.Minute}.Do(ctx, call)
	if KindOf(err) != KindTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if *calls != 1 {
		t.Errorf("expected 1 call, got %d", *calls)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("backoff wait ignored context cancellation")
	}
}

func TestRetryPolicy_SingleAttempt(t *testing.T) {
	call, calls := statusSeq(503)
	_, err := RetryPolicy{MaxAttempts: 1}.Do(context.Background(), call)
	if KindOf(err) != KindRetryBudgetExhausted || *calls != 1 {
		t.Fatalf("expected exhaustion after one call, got %v (%d calls)", err, *calls)
	}
}
