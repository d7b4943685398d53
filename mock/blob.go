package mock

import (
	"context"

	"github.com/fwojciec/docxjson"
)

var _ docxjson.BlobStore = (*BlobStore)(nil)

// BlobStore is a mock implementation of docxjson.BlobStore.
type BlobStore struct {
	ListFn  func(ctx context.Context, container string) ([]docxjson.BlobInfo, error)
	ReadFn  func(ctx context.Context, container, name string) ([]byte, error)
	WriteFn func(ctx context.Context, container, name string, data []byte) error
}

func (s *BlobStore) List(ctx context.Context, container string) ([]docxjson.BlobInfo, error) {
	return s.ListFn(ctx, container)
}

func (s *BlobStore) Read(ctx context.Context, container, name string) ([]byte, error) {
	return s.ReadFn(ctx, container, name)
}

func (s *BlobStore) Write(ctx context.Context, container, name string, data []byte) error {
	return s.WriteFn(ctx, container, name, data)
}

var _ docxjson.BlobFetcher = (*BlobFetcher)(nil)

// BlobFetcher is a mock implementation of docxjson.BlobFetcher.
type BlobFetcher struct {
	FetchBlobFn func(ctx context.Context, uri string) ([]byte, error)
}

func (f *BlobFetcher) FetchBlob(ctx context.Context, uri string) ([]byte, error) {
	return f.FetchBlobFn(ctx, uri)
}
