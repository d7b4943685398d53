package docxjson

import (
	"context"
	"time"
)

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// BlobStore reads and writes named blobs grouped in containers.
type BlobStore interface {
	// List returns the blobs in a container, sorted by name.
	// A missing container yields an empty list.
	List(ctx context.Context, container string) ([]BlobInfo, error)

	// Read returns the blob contents.
	// Returns ENOTFOUND if the blob does not exist.
	Read(ctx context.Context, container, name string) ([]byte, error)

	// Write stores data under name, replacing any existing blob atomically.
	Write(ctx context.Context, container, name string, data []byte) error
}

// BlobFetcher retrieves a blob from an absolute URI.
type BlobFetcher interface {
	// FetchBlob downloads the blob at uri.
	// Returns EINVALID for malformed URIs and ENOTFOUND for missing blobs.
	FetchBlob(ctx context.Context, uri string) ([]byte, error)
}
