package history

import (
	"context"
	"strings"
	"sync"
)

// retained caps how many entries the memory repository keeps per key.
const retained = 500

type memoryRepository struct {
	mu    sync.RWMutex
	store map[string][]Entry // owner/username -> entries, oldest first
}

// NewMemoryRepository returns an in-memory repository intended for local development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{store: make(map[string][]Entry)}
}

func memoryKey(ownerID, username string) string {
	return ownerID + "/" + strings.ToLower(username)
}

func (r *memoryRepository) Append(_ context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := memoryKey(e.OwnerID, e.Username)
	entries := append(r.store[key], e)
	if len(entries) > retained {
		entries = entries[len(entries)-retained:]
	}
	r.store[key] = entries
	return nil
}

func (r *memoryRepository) ListRecent(_ context.Context, ownerID, username string, limit int) ([]Entry, error) {
	limit = ClampLimit(limit)

	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.store[memoryKey(ownerID, username)]
	out := make([]Entry, 0, min(limit, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}
