package attachment

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"project-management-api/internal/apperr"

	"github.com/google/uuid"
)

const locatorPrefix = "blob:"

var ErrBlobNotFound = apperr.New(apperr.ErrNotFound, "stored file not found")

// BlobStore keeps file contents. The attachment records only hold the
// locator returned by Store.
type BlobStore interface {
	Store(ctx context.Context, r io.Reader, suggestedName string) (string, error)
	Resolve(ctx context.Context, locator string) (io.ReadCloser, error)
	Delete(ctx context.Context, locator string) error
}

// IsLocator reports whether url points into a BlobStore rather than at an
// external location.
func IsLocator(url string) bool {
	return strings.HasPrefix(url, locatorPrefix)
}

// FileStore is a BlobStore on the local disk. Files are named
// <uuid>_<original name> inside one directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func cleanName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return '_'
		}
		return r
	}, name)
	if name == "." || name == ".." || name == "" {
		return "file"
	}
	return name
}

func (s *FileStore) path(locator string) (string, error) {
	if !IsLocator(locator) {
		return "", ErrBlobNotFound
	}
	name := strings.TrimPrefix(locator, locatorPrefix)
	if name == "" || name != filepath.Base(name) || name == ".." {
		return "", ErrBlobNotFound
	}
	return filepath.Join(s.dir, name), nil
}

func (s *FileStore) Store(ctx context.Context, r io.Reader, suggestedName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := uuid.NewString() + "_" + cleanName(suggestedName)
	full := filepath.Join(s.dir, name)

	dst, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(full)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("close blob: %w", err)
	}
	return locatorPrefix + name, nil
}

func (s *FileStore) Resolve(ctx context.Context, locator string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.path(locator)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FileStore) Delete(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.path(locator)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if os.IsNotExist(err) {
		return ErrBlobNotFound
	}
	return err
}
