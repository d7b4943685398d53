package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/docxjson"
	docxhttp "github.com/fwojciec/docxjson/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobFetcher_FetchBlob(t *testing.T) {
	t.Parallel()

	t.Run("returns body from server", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/container/a.docx", r.URL.Path)
			_, _ = w.Write([]byte("PK\x03\x04docx"))
		}))
		defer server.Close()

		fetcher := docxhttp.NewBlobFetcher()

		data, err := fetcher.FetchBlob(context.Background(), server.URL+"/container/a.docx")
		require.NoError(t, err)
		assert.Equal(t, []byte("PK\x03\x04docx"), data)
	})

	t.Run("returns ENOTFOUND for 404", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		fetcher := docxhttp.NewBlobFetcher()

		_, err := fetcher.FetchBlob(context.Background(), server.URL+"/missing.docx")
		require.Error(t, err)
		assert.Equal(t, docxjson.ENOTFOUND, docxjson.ErrorCode(err))
	})

	t.Run("returns error for other status codes", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		fetcher := docxhttp.NewBlobFetcher()

		_, err := fetcher.FetchBlob(context.Background(), server.URL+"/a.docx")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 403")
		assert.Equal(t, docxjson.EINTERNAL, docxjson.ErrorCode(err))
	})

	t.Run("rejects invalid URIs", func(t *testing.T) {
		t.Parallel()

		fetcher := docxhttp.NewBlobFetcher()

		for _, uri := range []string{"", "a.docx", "/container/a.docx", "ftp://host/a.docx", "http://"} {
			_, err := fetcher.FetchBlob(context.Background(), uri)
			assert.Equal(t, docxjson.EINVALID, docxjson.ErrorCode(err), uri)
		}
	})

	t.Run("rejects blob larger than max bytes", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 11)))
		}))
		defer server.Close()

		fetcher := docxhttp.NewBlobFetcher(docxhttp.WithMaxBytes(10))

		_, err := fetcher.FetchBlob(context.Background(), server.URL+"/big.docx")
		require.Error(t, err)
		assert.Equal(t, docxjson.EINVALID, docxjson.ErrorCode(err))
	})

	t.Run("accepts blob of exactly max bytes", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 10)))
		}))
		defer server.Close()

		fetcher := docxhttp.NewBlobFetcher(docxhttp.WithMaxBytes(10))

		data, err := fetcher.FetchBlob(context.Background(), server.URL+"/a.docx")
		require.NoError(t, err)
		assert.Len(t, data, 10)
	})

	t.Run("respects custom timeout option", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
			_, _ = w.Write([]byte("response"))
		}))
		defer server.Close()

		fetcher := docxhttp.NewBlobFetcher(
			docxhttp.WithTimeout(10*time.Millisecond),
			docxhttp.WithRetryDelays(),
		)

		_, err := fetcher.FetchBlob(context.Background(), server.URL+"/a.docx")
		require.Error(t, err)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("response"))
		}))
		defer server.Close()

		fetcher := docxhttp.NewBlobFetcher()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := fetcher.FetchBlob(ctx, server.URL+"/a.docx")
		require.Error(t, err)
	})

	t.Run("rate limits requests to the same host", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte("x"))
		}))
		defer server.Close()

		// One request per second with burst 1: the second request must wait.
		fetcher := docxhttp.NewBlobFetcher(docxhttp.WithRateLimit(1))

		_, err := fetcher.FetchBlob(context.Background(), server.URL+"/a.docx")
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = fetcher.FetchBlob(ctx, server.URL+"/b.docx")

		require.Error(t, err)
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("retries server errors", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("docx"))
		}))
		defer server.Close()

		fetcher := docxhttp.NewBlobFetcher(
			docxhttp.WithRateLimit(0),
			docxhttp.WithRetryDelays(time.Millisecond),
		)

		data, err := fetcher.FetchBlob(context.Background(), server.URL+"/a.docx")
		require.NoError(t, err)
		assert.Equal(t, []byte("docx"), data)
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("gives up after last retry", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		fetcher := docxhttp.NewBlobFetcher(
			docxhttp.WithRateLimit(0),
			docxhttp.WithRetryDelays(time.Millisecond, time.Millisecond),
		)

		_, err := fetcher.FetchBlob(context.Background(), server.URL+"/a.docx")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 502")
		assert.Equal(t, int32(3), hits.Load())
	})

	t.Run("does not retry not found", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.NotFound(w, r)
		}))
		defer server.Close()

		fetcher := docxhttp.NewBlobFetcher(docxhttp.WithRetryDelays(time.Millisecond))

		_, err := fetcher.FetchBlob(context.Background(), server.URL+"/a.docx")
		assert.Equal(t, docxjson.ENOTFOUND, docxjson.ErrorCode(err))
		assert.Equal(t, int32(1), hits.Load())
	})

	t.Run("zero rate disables limiting", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("x"))
		}))
		defer server.Close()

		fetcher := docxhttp.NewBlobFetcher(docxhttp.WithRateLimit(0))

		for range 5 {
			_, err := fetcher.FetchBlob(context.Background(), server.URL+"/a.docx")
			require.NoError(t, err)
		}
	})

	t.Run("rejects hosts outside the allow list", func(t *testing.T) {
		t.Parallel()

		fetcher := docxhttp.NewBlobFetcher(docxhttp.WithAllowedHosts("store.example.com"))

		_, err := fetcher.FetchBlob(context.Background(), "http://169.254.169.254/latest/meta-data")
		require.Error(t, err)
		assert.Equal(t, docxjson.EINVALID, docxjson.ErrorCode(err))
		assert.Contains(t, docxjson.ErrorMessage(err), "not allowed")
	})

	t.Run("fetches from allowed hosts", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("x"))
		}))
		defer server.Close()

		fetcher := docxhttp.NewBlobFetcher(docxhttp.WithAllowedHosts("127.0.0.1"))

		data, err := fetcher.FetchBlob(context.Background(), server.URL+"/a.docx")
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), data)
	})

	t.Run("refuses private addresses when denied", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte("x"))
		}))
		defer server.Close()

		fetcher := docxhttp.NewBlobFetcher(docxhttp.WithPrivateAddressesDenied())

		_, err := fetcher.FetchBlob(context.Background(), server.URL+"/a.docx")
		require.Error(t, err)
		assert.Equal(t, docxjson.EINVALID, docxjson.ErrorCode(err))
		assert.Equal(t, int32(0), hits.Load())
	})
}
