package backup

import (
	"context"
	"io"
	"path"
	"strings"
)

// StorageAdapter persists finished backup artifacts and exposes the
// minimal surface retention needs: flat listing and deletion by
// filename. Writing the same filename twice is last-write-wins on
// every backend.
type StorageAdapter interface {
	// Name identifies the backend for logging, e.g. "s3".
	Name() string
	// Root describes where artifacts land, e.g. a directory or bucket URL.
	Root() string
	// Write stores the artifact under filename. The reader is
	// positioned at the start; backends that need to retry may seek.
	Write(ctx context.Context, r io.ReadSeeker, filename string) error
	// List returns the filenames currently stored, without prefixes.
	List(ctx context.Context) ([]string, error)
	// Delete removes one stored artifact.
	Delete(ctx context.Context, filename string) error
}

// objectKey joins a backend prefix and filename into an object key.
func objectKey(prefix, filename string) string {
	if prefix == "" {
		return filename
	}
	return path.Join(prefix, filename)
}

// trimKeyPrefix recovers the bare filename from an object key, dropping
// entries that sit in nested pseudo-directories under the prefix.
func trimKeyPrefix(prefix, key string) (string, bool) {
	name := key
	if prefix != "" {
		name = strings.TrimPrefix(key, strings.TrimSuffix(prefix, "/")+"/")
	}
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
