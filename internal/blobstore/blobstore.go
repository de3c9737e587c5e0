// Package blobstore provides durable storage for parsed text, keyed by
// storage path.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no content exists at the path.
var ErrNotFound = errors.New("blob not found")

// Store persists text content by path. Implementations own their
// underlying resources exclusively; no locking is required by callers.
type Store interface {
	// Save writes content at path, replacing any previous content.
	// Metadata, when non-nil, is stored alongside the content.
	Save(ctx context.Context, path, content string, metadata map[string]string) error
	// Load returns the content at path, or ErrNotFound.
	Load(ctx context.Context, path string) (string, error)
	// Exists reports whether content exists at path.
	Exists(ctx context.Context, path string) (bool, error)
	// Delete removes the content at path. It reports false when nothing
	// existed to delete.
	Delete(ctx context.Context, path string) (bool, error)
}
