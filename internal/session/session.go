package session

import (
	"context"
	"sync"

	"hr-rag/internal/models"
)

// DefaultID is used when a chat request carries no session id
const DefaultID = "default"

// Store keeps the per-session conversation history. Turns are only ever appended.
type Store interface {
	Get(ctx context.Context, id string) ([]models.Turn, error)
	Append(ctx context.Context, id string, turns ...models.Turn) error
}

// MemoryStore keeps history for the process lifetime.
type MemoryStore struct {
	mu      sync.RWMutex
	history map[string][]models.Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{history: make(map[string][]models.Turn)}
}

func (s *MemoryStore) Get(_ context.Context, id string) ([]models.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.history[id]
	out := make([]models.Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, id string, turns ...models.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[id] = append(s.history[id], turns...)
	return nil
}
