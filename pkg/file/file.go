package file

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Storage abstracts the object store holding tenant media. Keys are flat
// strings; the tenant prefix produced by ObjectKey is the only namespace
// structure the rest of the system relies on.
type Storage interface {
	// Put stores the object under key and returns its public URL.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)

	// Delete removes a single object. Deleting a missing key returns
	// ErrObjectNotFound.
	Delete(ctx context.Context, key string) error

	// PurgeTenant removes every object under the tenant's prefix. A tenant
	// with no objects is not an error.
	PurgeTenant(ctx context.Context, tenantID uuid.UUID) error

	// URL returns the public URL for a key without touching the store.
	URL(key string) string
}

// TenantPrefix returns the key prefix all of a tenant's objects live under.
// Purge-by-prefix during tenant deletion depends on every key being built
// through ObjectKey.
func TenantPrefix(tenantID uuid.UUID) string {
	return fmt.Sprintf("tenant-%s/", tenantID)
}

// ObjectKey builds the canonical object key for a tenant-owned file:
// tenant-{id}/{category}/{name}. The name is sanitized so user-supplied
// filenames cannot escape the prefix.
func ObjectKey(tenantID uuid.UUID, category, name string) string {
	return TenantPrefix(tenantID) + path.Join(sanitizeSegment(category), SanitizeFilename(name))
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFilename strips path separators and characters that are unsafe in
// object keys, keeping the extension intact.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

func sanitizeSegment(s string) string {
	s = unsafeFilenameChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "misc"
	}
	return s
}

// ValidateKey rejects keys that could traverse outside their prefix.
func ValidateKey(key string) error {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
