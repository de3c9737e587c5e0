package dedup

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// File is an Index persisted as a msgpack snapshot, so dedup state
// survives restarts. Every Mark rewrites the snapshot through a temp
// file and rename.
type File struct {
	mu   sync.Mutex
	path string
	seen map[string]string
}

// NewFile loads the snapshot at path if one exists.
func NewFile(path string) (*File, error) {
	f := &File{path: path, seen: make(map[string]string)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dedup index %s: %w", path, err)
	}
	if err := msgpack.Unmarshal(data, &f.seen); err != nil {
		return nil, fmt.Errorf("decode dedup index %s: %w", path, err)
	}
	return f, nil
}

func (f *File) LastModified(fileID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.seen[fileID]
	return t, ok
}

func (f *File) Mark(fileID, modifiedTime string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen[fileID] = modifiedTime
	return f.persist()
}

func (f *File) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func (f *File) persist() error {
	data, err := msgpack.Marshal(f.seen)
	if err != nil {
		return fmt.Errorf("encode dedup index: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create dedup index dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write dedup index: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace dedup index: %w", err)
	}
	return nil
}
