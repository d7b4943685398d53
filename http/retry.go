package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fwojciec/docxjson"
)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// statusError reports an unexpected HTTP status.
type statusError struct {
	code int
	uri  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.code, e.uri)
}

// fetchFunc is the signature of a single fetch attempt.
type fetchFunc func(ctx context.Context) ([]byte, error)

// withRetry calls fetch until it succeeds, fails permanently, or the delays
// are used up. One attempt is made per delay plus the initial one.
func withRetry(ctx context.Context, fetch fetchFunc, delays []time.Duration, onRetry func(attempt int, err error)) ([]byte, error) {
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		data, err := fetch(ctx)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if attempt >= maxAttempts-1 || !retryable(ctx, err) {
			break
		}

		if onRetry != nil {
			onRetry(attempt+2, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	return nil, lastErr
}

// retryable reports whether err may succeed on another attempt.
// Application errors are permanent, as are client errors other than 429.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var appErr *docxjson.Error
	if errors.As(err, &appErr) {
		return false
	}
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return statusErr.code >= 500 || statusErr.code == http.StatusTooManyRequests
	}
	return true
}
