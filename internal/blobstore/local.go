package blobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local stores blobs under a filesystem root. Metadata goes to a JSON
// sidecar under metadata/, keyed by the blob's base name without its
// extension.
type Local struct {
	root string
}

// NewLocal creates the storage root and its standard subdirectories.
func NewLocal(root string) (*Local, error) {
	for _, dir := range []string{root, filepath.Join(root, "parsed"), filepath.Join(root, "metadata")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}
	return &Local{root: root}, nil
}

func (s *Local) fullPath(path string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage path %q escapes root", path)
	}
	return full, nil
}

func (s *Local) metadataPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return filepath.Join(s.root, "metadata", stem+".json")
}

func (s *Local) Save(ctx context.Context, path, content string, metadata map[string]string) error {
	full, err := s.fullPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if metadata != nil {
		data, err := json.MarshalIndent(metadata, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", path, err)
		}
		if err := os.WriteFile(s.metadataPath(path), data, 0o644); err != nil {
			return fmt.Errorf("write metadata for %s: %w", path, err)
		}
	}
	return nil
}

func (s *Local) Load(ctx context.Context, path string) (string, error) {
	full, err := s.fullPath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func (s *Local) Exists(ctx context.Context, path string) (bool, error) {
	full, err := s.fullPath(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

func (s *Local) Delete(ctx context.Context, path string) (bool, error) {
	full, err := s.fullPath(path)
	if err != nil {
		return false, err
	}
	if err := os.Remove(full); os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("delete %s: %w", path, err)
	}
	// Best effort: the sidecar may not exist.
	os.Remove(s.metadataPath(path))
	return true, nil
}
