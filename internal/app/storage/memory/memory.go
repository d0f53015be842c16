// Package memory provides an in-memory SnapshotStore. It is safe for
// concurrent use and is primarily intended for tests and local development.
package memory

import (
	"context"
	"sync"

	"github.com/memetip/tipboard/internal/app/domain/ledger"
	"github.com/memetip/tipboard/internal/app/storage"
)

// Store keeps the latest saved document in memory.
type Store struct {
	mu    sync.RWMutex
	state ledger.State
	saved bool
}

var _ storage.SnapshotStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{}
}

func (s *Store) Load(_ context.Context) (ledger.State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.saved {
		return ledger.State{}, false, nil
	}
	return s.state.Clone(), true, nil
}

func (s *Store) Save(_ context.Context, state ledger.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	s.saved = true
	return nil
}

// Saved reports whether Save has been called at least once.
func (s *Store) Saved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saved
}
