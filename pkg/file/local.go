package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStorage implements Storage on a local directory, for development and
// tests. Object keys map directly to file paths under the root.
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage creates a local storage rooted at dir. Files are served
// from baseURL, typically a static file handler mounted by the dev server.
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if dir == "" {
		return nil, ErrInvalidConfig
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalStorage{root: abs, baseURL: baseURL}, nil
}

func (l *LocalStorage) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(strings.TrimPrefix(key, "/"))), nil
}

func (l *LocalStorage) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(p)
		return "", fmt.Errorf("write file: %w", err)
	}
	return l.URL(key), nil
}

func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (l *LocalStorage) PurgeTenant(ctx context.Context, tenantID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(l.root, strings.TrimSuffix(TenantPrefix(tenantID), "/"))
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("purge tenant directory: %w", err)
	}
	return nil
}

func (l *LocalStorage) URL(key string) string {
	return l.baseURL + strings.TrimPrefix(key, "/")
}
