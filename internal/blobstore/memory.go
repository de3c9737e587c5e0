package blobstore

import (
	"context"
	"sync"
)

// Memory is an in-memory Store for tests and single-process runs.
type Memory struct {
	mu       sync.RWMutex
	blobs    map[string]string
	metadata map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		blobs:    make(map[string]string),
		metadata: make(map[string]map[string]string),
	}
}

func (s *Memory) Save(ctx context.Context, path, content string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = content
	if metadata != nil {
		copied := make(map[string]string, len(metadata))
		for k, v := range metadata {
			copied[k] = v
		}
		s.metadata[path] = copied
	}
	return nil
}

func (s *Memory) Load(ctx context.Context, path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.blobs[path]
	if !ok {
		return "", ErrNotFound
	}
	return content, nil
}

func (s *Memory) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[path]
	return ok, nil
}

func (s *Memory) Delete(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[path]; !ok {
		return false, nil
	}
	delete(s.blobs, path)
	delete(s.metadata, path)
	return true, nil
}

// Metadata returns the metadata stored with a blob, or nil.
func (s *Memory) Metadata(path string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata[path]
}
