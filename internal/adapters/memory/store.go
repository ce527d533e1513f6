package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/logicbridge/pkg/domain"
	"github.com/aretw0/logicbridge/pkg/ports"
)

var _ ports.ProgramStore = (*Store)(nil)

// Store implements ports.ProgramStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]string
	mu   sync.RWMutex
}

// New creates a new in-memory program store.
func New() *Store {
	return &Store{
		data: make(map[string][]string),
	}
}

// Save stores a copy of the clauses so later edits by the caller don't leak in.
func (s *Store) Save(ctx context.Context, name string, clauses []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = slices.Clone(clauses)
	return nil
}

// Load returns a copy of the stored clauses.
func (s *Store) Load(ctx context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clauses, ok := s.data[name]
	if !ok {
		return nil, domain.ErrProgramNotFound
	}
	return slices.Clone(clauses), nil
}

// Delete removes a program.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

// List returns the stored program names, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
