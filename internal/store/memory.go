package store

import (
	"context"
	"sync"

	"github.com/minileague/league-engine/internal/model"
)

// MemoryStore implements Store with an in-memory slice. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu   sync.RWMutex
	rows []model.Row
}

// NewMemoryStore creates a new in-memory store holding a copy of seed.
func NewMemoryStore(seed ...model.Row) *MemoryStore {
	return &MemoryStore{rows: cloneRows(seed)}
}

func (s *MemoryStore) LoadRows(_ context.Context) ([]model.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy to avoid external mutation.
	return cloneRows(s.rows), nil
}

func (s *MemoryStore) SaveRows(_ context.Context, rows []model.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows = cloneRows(rows)
	return nil
}
