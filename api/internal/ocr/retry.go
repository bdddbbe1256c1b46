package ocr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxAttempts = 5
	DefaultRetryUnit   = time.Second
)

// RetryPolicy bounds the number of upstream calls for one detection.
// The wait before retry k (0-indexed) is Unit·2^k, without jitter or cap.
type RetryPolicy struct {
	MaxAttempts int
	Unit        time.Duration

	// OnRetry is called before each wait; nil means log only.
	OnRetry func(attempt int, wait time.Duration, err *Error)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Unit: DefaultRetryUnit}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Unit
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0
	b.Reset()

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do runs call until it succeeds, returns a non-retryable error, or the attempt
// budget is spent. call receives the 1-based attempt number. Errors returned by
// call that are not *Error are treated as terminal.
// The returned int is the number of calls made.
func (p RetryPolicy) Do(ctx context.Context, call func(ctx context.Context, attempt int) error) (int, error) {
	var (
		attempt int
		last    *Error
	)
	op := func() error {
		attempt++
		err := call(ctx, attempt)
		if err == nil {
			return nil
		}
		e := AsError(err)
		if e.Kind != KindUpstreamRetryable {
			return backoff.Permanent(e)
		}
		last = e
		return e
	}
	notify := func(err error, wait time.Duration) {
		var e *Error
		errors.As(err, &e)
		log.Printf("ocr: attempt %d failed (%v); retrying in %v", attempt, err, wait)
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, e)
		}
	}

	err := backoff.RetryNotify(op, p.backOff(ctx), notify)
	if err == nil {
		return attempt, nil
	}
	if te := FromContext(ctx); te != nil {
		te.Attempts = attempt
		return attempt, te
	}

	e := AsError(err)
	if e.Kind == KindUpstreamRetryable && last != nil {
		return attempt, &Error{
			Kind:     KindRetryBudgetExhausted,
			Status:   last.Status,
			Attempts: attempt,
			Message:  fmt.Sprintf("max retries exceeded after %d attempts", attempt),
			Err:      last,
		}
	}
	if e.Attempts == 0 {
		e.Attempts = attempt
	}
	return attempt, e
}
