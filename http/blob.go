// Package http provides the HTTP transport for docxjson: a fetcher for
// documents addressed by URI and the server exposing the conversion triggers.
package http

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/docxjson"
)

// Defaults for BlobFetcher.
const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultRateLimit    = 2.0
	DefaultMaxBlobBytes = 50 << 20
)

// Ensure BlobFetcher implements docxjson.BlobFetcher at compile time.
var _ docxjson.BlobFetcher = (*BlobFetcher)(nil)

// BlobFetcher retrieves documents from absolute http(s) URIs.
// Requests are rate-limited per host. Network errors, 5xx and 429 responses
// are retried with backoff.
type BlobFetcher struct {
	client   *http.Client
	limiter  *hostLimiter
	timeout  time.Duration
	rps      float64
	maxBytes int64
	delays   []time.Duration
	logger   *slog.Logger

	allowedHosts map[string]struct{}
	denyPrivate  bool
}

// Option configures a BlobFetcher.
type Option func(*BlobFetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout (30s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *BlobFetcher) {
		f.timeout = d
	}
}

// WithRateLimit sets the requests per second allowed per host.
// Zero disables rate limiting.
func WithRateLimit(rps float64) Option {
	return func(f *BlobFetcher) {
		f.rps = rps
	}
}

// WithMaxBytes sets the largest blob accepted.
func WithMaxBytes(n int64) Option {
	return func(f *BlobFetcher) {
		f.maxBytes = n
	}
}

// WithRetryDelays sets the backoff delays between attempts.
// Defaults to DefaultRetryDelays. No delays disables retries.
func WithRetryDelays(delays ...time.Duration) Option {
	return func(f *BlobFetcher) {
		f.delays = delays
	}
}

// WithLogger sets the logger used to report retries.
func WithLogger(logger *slog.Logger) Option {
	return func(f *BlobFetcher) {
		f.logger = logger
	}
}

// WithAllowedHosts restricts fetches to the named hosts. Hosts are matched
// case-insensitively and without the port.
func WithAllowedHosts(hosts ...string) Option {
	return func(f *BlobFetcher) {
		if len(hosts) == 0 {
			return
		}
		f.allowedHosts = make(map[string]struct{}, len(hosts))
		for _, h := range hosts {
			f.allowedHosts[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
		}
	}
}

// WithPrivateAddressesDenied refuses connections to loopback, private and
// link-local addresses.
func WithPrivateAddressesDenied() Option {
	return func(f *BlobFetcher) {
		f.denyPrivate = true
	}
}

// NewBlobFetcher creates a new BlobFetcher.
func NewBlobFetcher(opts ...Option) *BlobFetcher {
	f := &BlobFetcher{
		timeout:  DefaultFetchTimeout,
		rps:      DefaultRateLimit,
		maxBytes: DefaultMaxBlobBytes,
		delays:   DefaultRetryDelays(),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Timeout: f.timeout,
	}
	if f.denyPrivate {
		dialer := &net.Dialer{
			Timeout: 30 * time.Second,
			Control: denyPrivateControl,
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = dialer.DialContext
		transport.Proxy = nil
		f.client.Transport = transport
	}
	f.limiter = newHostLimiter(f.rps)

	return f
}

// FetchBlob downloads the document at uri.
func (f *BlobFetcher) FetchBlob(ctx context.Context, uri string) ([]byte, error) {
	u, err := ParseBlobURI(uri)
	if err != nil {
		return nil, err
	}
	if err := f.checkHost(u.Hostname()); err != nil {
		return nil, err
	}

	return withRetry(ctx, func(ctx context.Context) ([]byte, error) {
		return f.fetch(ctx, u)
	}, f.delays, func(attempt int, err error) {
		if f.logger != nil {
			f.logger.Warn("retrying blob fetch", "uri", uri, "attempt", attempt, "err", err)
		}
	})
}

func (f *BlobFetcher) fetch(ctx context.Context, u *url.URL) ([]byte, error) {
	if err := f.limiter.Wait(ctx, u.Host); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, docxjson.Errorf(docxjson.ENOTFOUND, "blob not found: %s", u)
	case resp.StatusCode != http.StatusOK:
		return nil, &statusError{code: resp.StatusCode, uri: u.String()}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > f.maxBytes {
		return nil, docxjson.Errorf(docxjson.EINVALID, "blob exceeds %d bytes", f.maxBytes)
	}

	return body, nil
}

// ParseBlobURI parses uri and requires it to be an absolute http or https URL.
func ParseBlobURI(uri string) (*url.URL, error) {
	u, err := url.Parse(uri)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, docxjson.Errorf(docxjson.EINVALID, "invalid blob URI %q", uri)
	}
	return u, nil
}
