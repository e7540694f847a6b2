package settings

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu    sync.RWMutex
	store map[string]Settings
}

// NewMemoryRepository returns an in-memory repository intended for local development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{store: make(map[string]Settings)}
}

func (r *memoryRepository) Get(_ context.Context, ownerID string) (Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.store[ownerID]
	if !ok {
		return Settings{}, ErrNotFound
	}
	return s, nil
}

func (r *memoryRepository) Save(_ context.Context, s Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store[s.OwnerID] = s
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[ownerID]; !ok {
		return ErrNotFound
	}
	delete(r.store, ownerID)
	return nil
}
