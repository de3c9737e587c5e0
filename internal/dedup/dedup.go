// Package dedup tracks the last processed modification time per file id,
// so re-listed and stale records can be skipped.
package dedup

import "sync"

// Index is a per-file-id "last seen version" store. A file is skipped when
// its incoming modifiedTime is not strictly newer than the recorded one;
// timestamps are ISO-8601 strings, so string comparison orders them.
type Index interface {
	// LastModified returns the recorded modifiedTime for a file id.
	LastModified(fileID string) (string, bool)
	// Mark records fileID as processed at modifiedTime.
	Mark(fileID, modifiedTime string) error
	// Len reports the number of tracked files.
	Len() int
}

// Memory is a map-backed Index for tests and single-run pipelines. State
// is discarded at shutdown.
type Memory struct {
	mu   sync.RWMutex
	seen map[string]string
}

func NewMemory() *Memory {
	return &Memory{seen: make(map[string]string)}
}

func (m *Memory) LastModified(fileID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.seen[fileID]
	return t, ok
}

func (m *Memory) Mark(fileID, modifiedTime string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[fileID] = modifiedTime
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seen)
}
