package snapshot

import (
	"context"
	"sync"

	"credchain/pkg/platform/sentinel"
)

// MemoryStore keeps the snapshot in process memory. It is the default
// for tests and for sessions that accept losing the chain on exit.
type MemoryStore struct {
	mu   sync.RWMutex
	blob []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = make([]byte, len(blob))
	copy(s.blob, blob)
	return nil
}

func (s *MemoryStore) Load(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.blob == nil {
		return nil, sentinel.ErrNotFound
	}
	out := make([]byte, len(s.blob))
	copy(out, s.blob)
	return out, nil
}
