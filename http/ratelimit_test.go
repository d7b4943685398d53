package http

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostLimiter(t *testing.T) {
	t.Parallel()

	t.Run("allows immediate request when under limit", func(t *testing.T) {
		t.Parallel()

		limiter := newHostLimiter(10)

		start := time.Now()
		err := limiter.Wait(context.Background(), "example.com")
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Less(t, elapsed, 50*time.Millisecond, "first request should be immediate")
	})

	t.Run("does not limit when rate is zero or negative", func(t *testing.T) {
		t.Parallel()

		for _, rps := range []float64{0, -1} {
			limiter := newHostLimiter(rps)

			start := time.Now()
			for range 5 {
				require.NoError(t, limiter.Wait(context.Background(), "example.com"))
			}
			assert.Less(t, time.Since(start), 50*time.Millisecond, "rps %v", rps)
		}
	})

	t.Run("rate limits requests to same host", func(t *testing.T) {
		t.Parallel()

		limiter := newHostLimiter(10) // 100ms between requests

		require.NoError(t, limiter.Wait(context.Background(), "example.com"))

		start := time.Now()
		err := limiter.Wait(context.Background(), "example.com")
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.GreaterOrEqual(t, elapsed, 80*time.Millisecond, "should wait for rate limit")
	})

	t.Run("different hosts have independent limits", func(t *testing.T) {
		t.Parallel()

		limiter := newHostLimiter(10)

		require.NoError(t, limiter.Wait(context.Background(), "example.com"))

		start := time.Now()
		err := limiter.Wait(context.Background(), "other.com")
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Less(t, elapsed, 50*time.Millisecond, "different host should not wait")
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		limiter := newHostLimiter(1)

		require.NoError(t, limiter.Wait(context.Background(), "example.com"))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := limiter.Wait(ctx, "example.com")
		assert.Error(t, err, "should fail when context times out")
	})

	t.Run("non-positive rate disables limiting", func(t *testing.T) {
		t.Parallel()

		limiter := newHostLimiter(0)

		start := time.Now()
		for range 10 {
			require.NoError(t, limiter.Wait(context.Background(), "example.com"))
		}
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("concurrent requests are serialized per host", func(t *testing.T) {
		t.Parallel()

		limiter := newHostLimiter(100)

		var wg sync.WaitGroup
		var completed atomic.Int32

		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := limiter.Wait(context.Background(), "example.com"); err == nil {
					completed.Add(1)
				}
			}()
		}

		wg.Wait()
		assert.Equal(t, int32(5), completed.Load(), "all requests should complete")
	})
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("returns first success", func(t *testing.T) {
		t.Parallel()

		calls := 0
		data, err := withRetry(context.Background(), func(context.Context) ([]byte, error) {
			calls++
			return []byte("ok"), nil
		}, []time.Duration{time.Millisecond}, nil)

		require.NoError(t, err)
		assert.Equal(t, []byte("ok"), data)
		assert.Equal(t, 1, calls)
	})

	t.Run("reports each retry attempt", func(t *testing.T) {
		t.Parallel()

		var attempts []int
		_, err := withRetry(context.Background(), func(context.Context) ([]byte, error) {
			return nil, &statusError{code: 503, uri: "https://h/a"}
		}, []time.Duration{time.Millisecond, time.Millisecond}, func(attempt int, _ error) {
			attempts = append(attempts, attempt)
		})

		require.Error(t, err)
		assert.Equal(t, []int{2, 3}, attempts)
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		t.Parallel()

		calls := 0
		_, err := withRetry(context.Background(), func(context.Context) ([]byte, error) {
			calls++
			return nil, &statusError{code: 403, uri: "https://h/a"}
		}, []time.Duration{time.Millisecond}, nil)

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops retrying once context is cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := withRetry(ctx, func(context.Context) ([]byte, error) {
			calls++
			cancel()
			return nil, &statusError{code: 500, uri: "https://h/a"}
		}, []time.Duration{time.Hour}, nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 500")
		assert.Equal(t, 1, calls)
	})

	t.Run("returns context error when cancelled during backoff", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := withRetry(ctx, func(context.Context) ([]byte, error) {
			return nil, &statusError{code: 500, uri: "https://h/a"}
		}, []time.Duration{time.Hour}, nil)

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
