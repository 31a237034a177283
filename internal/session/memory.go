package session

import (
	"context"
	"sync"
)

// MemoryStore keeps the credential in process memory only.
type MemoryStore struct {
	mu   sync.RWMutex
	cred string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, storageErr("get", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred, present(s.cred), nil
}

func (s *MemoryStore) Set(ctx context.Context, cred string) error {
	if err := ctx.Err(); err != nil {
		return storageErr("set", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	return s.Set(ctx, "")
}
