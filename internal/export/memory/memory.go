// Package memory is the in-process audit-trail adapter used in development
// and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"paycal/internal/storage"
)

type Store struct {
	mu    sync.Mutex
	items []storage.Modification
}

func New() *Store {
	return &Store{}
}

// Append stores the modification and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, m storage.Modification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, m)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Items returns a copy of everything appended so far.
func (s *Store) Items() []storage.Modification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.Modification(nil), s.items...)
}
