package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docxjson"
)

// Ensure LoggingBlobFetcher implements docxjson.BlobFetcher.
var _ docxjson.BlobFetcher = (*LoggingBlobFetcher)(nil)

// LoggingBlobFetcher wraps a BlobFetcher with logging.
type LoggingBlobFetcher struct {
	next   docxjson.BlobFetcher
	logger *slog.Logger
}

// NewLoggingBlobFetcher creates a new LoggingBlobFetcher.
func NewLoggingBlobFetcher(next docxjson.BlobFetcher, logger *slog.Logger) *LoggingBlobFetcher {
	return &LoggingBlobFetcher{next: next, logger: logger}
}

// FetchBlob delegates to the wrapped fetcher and logs the operation.
func (f *LoggingBlobFetcher) FetchBlob(ctx context.Context, uri string) (data []byte, err error) {
	defer func(begin time.Time) {
		f.logger.Info("fetch blob",
			"trace_id", docxjson.TraceIDFromContext(ctx),
			"uri", uri,
			"bytes", len(data),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.FetchBlob(ctx, uri)
}

// Ensure LoggingBlobStore implements docxjson.BlobStore.
var _ docxjson.BlobStore = (*LoggingBlobStore)(nil)

// LoggingBlobStore wraps a BlobStore with debug logging.
type LoggingBlobStore struct {
	next   docxjson.BlobStore
	logger *slog.Logger
}

// NewLoggingBlobStore creates a new LoggingBlobStore.
func NewLoggingBlobStore(next docxjson.BlobStore, logger *slog.Logger) *LoggingBlobStore {
	return &LoggingBlobStore{next: next, logger: logger}
}

// List delegates to the wrapped store and logs the operation.
func (s *LoggingBlobStore) List(ctx context.Context, container string) (blobs []docxjson.BlobInfo, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("list blobs",
			"container", container,
			"count", len(blobs),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.List(ctx, container)
}

// Read delegates to the wrapped store and logs the operation.
func (s *LoggingBlobStore) Read(ctx context.Context, container, name string) (data []byte, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("read blob",
			"container", container,
			"name", name,
			"bytes", len(data),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Read(ctx, container, name)
}

// Write delegates to the wrapped store and logs the operation.
func (s *LoggingBlobStore) Write(ctx context.Context, container, name string, data []byte) (err error) {
	defer func(begin time.Time) {
		s.logger.Debug("write blob",
			"container", container,
			"name", name,
			"bytes", len(data),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Write(ctx, container, name, data)
}
