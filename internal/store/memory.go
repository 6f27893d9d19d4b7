package store

import (
	"context"
	"sync"

	"flowmap/internal/types"
)

// MemoryStore is an in-memory GraphStore for tests and dry runs.
type MemoryStore struct {
	mu    sync.RWMutex
	graph *types.Graph
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (*types.Graph, error) {
	if s == nil {
		return types.NewGraph(), nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.graph == nil {
		return types.NewGraph(), nil
	}
	return s.graph.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, g *types.Graph) error {
	if s == nil || g == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = g.Clone()
	return nil
}

// CursorMemoryStore is an in-memory CursorStore for tests.
type CursorMemoryStore struct {
	mu       sync.RWMutex
	revision string
}

func NewCursorMemoryStore() *CursorMemoryStore {
	return &CursorMemoryStore{}
}

func (s *CursorMemoryStore) Load(_ context.Context) (string, error) {
	if s == nil {
		return "", nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision, nil
}

func (s *CursorMemoryStore) Save(_ context.Context, revision string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision = revision
	return nil
}
