package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps collections in process memory. Used for dry runs and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]json.RawMessage
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]json.RawMessage)}
}

func (s *MemoryStore) Append(_ context.Context, name string, items []json.RawMessage) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[name] = append(s.collections[name], cloneItems(items)...)
	return nil
}

func (s *MemoryStore) Read(_ context.Context, name string) ([]json.RawMessage, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.collections[name]), nil
}

func (s *MemoryStore) Stat(_ context.Context, name string) (CollectionInfo, error) {
	if err := ValidateName(name); err != nil {
		return CollectionInfo{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CollectionInfo{Name: name, Items: len(s.collections[name])}, nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
