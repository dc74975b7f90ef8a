package cart

import (
	"context"
	"sync"

	"tanglewood-gallery/internal/cartstore"
)

type memoryRepo struct {
	mu       sync.Mutex
	sessions map[string]*cartstore.MemoryStorage
}

// NewMemory keeps session records in process memory. Used for local runs and tests.
func NewMemory() Repository {
	return &memoryRepo{sessions: make(map[string]*cartstore.MemoryStorage)}
}

func (r *memoryRepo) For(sessionID string) cartstore.Storage {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		s = cartstore.NewMemoryStorage(nil)
		r.sessions[sessionID] = s
	}
	return s
}

func (r *memoryRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}
