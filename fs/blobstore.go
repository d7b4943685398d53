// Package fs provides file-based blob storage.
package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fwojciec/docxjson"
)

// Ensure BlobStore implements docxjson.BlobStore at compile time.
var _ docxjson.BlobStore = (*BlobStore)(nil)

// tempSuffix marks files that are still being written.
const tempSuffix = ".tmp"

// BlobStore implements docxjson.BlobStore on a local directory.
// Each container is a subdirectory of root and each blob a regular file in it.
// Writes go to a temporary file that is renamed into place, so readers never
// see a partial blob.
type BlobStore struct {
	root string
}

// NewBlobStore creates a new BlobStore rooted at root.
func NewBlobStore(root string) *BlobStore {
	return &BlobStore{root: root}
}

// List returns the blobs in container sorted by name.
// A missing container holds no blobs.
func (s *BlobStore) List(ctx context.Context, container string) ([]docxjson.BlobInfo, error) {
	dir, err := s.containerPath(container)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []docxjson.BlobInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	blobs := make([]docxjson.BlobInfo, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() || strings.HasSuffix(entry.Name(), tempSuffix) {
			continue
		}
		info, err := entry.Info()
		if errors.Is(err, os.ErrNotExist) {
			continue // removed since ReadDir
		}
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, docxjson.BlobInfo{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(blobs, func(i, j int) bool { return blobs[i].Name < blobs[j].Name })
	return blobs, nil
}

// Read returns the content of a blob. Returns ENOTFOUND if it does not exist.
func (s *BlobStore) Read(ctx context.Context, container, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.blobPath(container, name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, docxjson.Errorf(docxjson.ENOTFOUND, "blob %s/%s not found", container, name)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Write stores data as a blob, creating the container if needed and
// replacing any existing blob with the same name.
func (s *BlobStore) Write(ctx context.Context, container, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.blobPath(container, name)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+name+"-*"+tempSuffix)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *BlobStore) containerPath(container string) (string, error) {
	if err := validateName(container, "container"); err != nil {
		return "", err
	}
	return filepath.Join(s.root, container), nil
}

func (s *BlobStore) blobPath(container, name string) (string, error) {
	dir, err := s.containerPath(container)
	if err != nil {
		return "", err
	}
	if err := validateName(name, "blob"); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// validateName rejects names that would escape their parent directory.
func validateName(name, kind string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return docxjson.Errorf(docxjson.EINVALID, "invalid %s name %q", kind, name)
	}
	return nil
}
