package subgraph

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// withRetry runs fn until it succeeds, returns a permanent error or maxRetries is spent.
// The delay doubles after every failed attempt.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || !retryable(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

// retryable reports whether another attempt could succeed. GraphQL errors,
// client errors and cancellation are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *TransportError
	if !errors.As(err, &te) {
		return false
	}
	if te.GraphQL {
		return false
	}
	if te.Status == 0 || te.Status == http.StatusTooManyRequests {
		return true
	}
	return te.Status >= 500
}
