// Package storage provides persistence for rendered announcement audio.
// Every store is content-addressed: keys are cache keys, values are WAV
// bytes, and a missing key is domain.ErrCacheMiss.
package storage

import (
	"context"
	"sync"

	"github.com/hammamikhairi/gridvoice/internal/domain"
	"github.com/hammamikhairi/gridvoice/internal/logger"
)

// Compile-time interface check.
var _ domain.ArtifactStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory artifact store. Safe for concurrent access.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
	log   *logger.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		items: make(map[string][]byte),
		log:   log,
	}
}

// Put stores data under key. Overwrites if it already exists.
func (s *MemoryStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("memory store: put %s (%d bytes)", key, len(data))
	s.items[key] = data
	return nil
}

// Get retrieves data by key.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.items[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return data, nil
}

// Delete removes a key. Deleting a missing key is ErrCacheMiss.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		return domain.ErrCacheMiss
	}
	delete(s.items, key)
	s.log.Debug("memory store: deleted %s", key)
	return nil
}

// Len returns the number of stored items.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
