package thread

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store implementation. Safe for concurrent
// use; best suited for tests and ephemeral demo servers. Blobs are copied
// on the way in and out so callers can never alias stored data.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Save stores a copy of blob under key, replacing any prior value.
func (s *MemoryStore) Save(ctx context.Context, key Key, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)

	s.mu.Lock()
	s.blobs[key.String()] = cp
	s.mu.Unlock()
	return nil
}

// Load returns a copy of the blob stored under key, or ErrNotFound.
func (s *MemoryStore) Load(ctx context.Context, key Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	blob, ok := s.blobs[key.String()]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close releases the map.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.blobs = make(map[string][]byte)
	s.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
