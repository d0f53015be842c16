// Package ledger owns the application's mutable state and its persistence.
//
// One process-wide mutex guards every read-modify-write sequence, including
// wallet RPC calls made while deriving new aggregates. This is the deliberate
// coarse-lock design: request handlers block for the duration of an in-flight
// reconciliation pass and vice versa, in exchange for strictly sequential,
// never-interleaved windows over the document.
package ledger

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/memetip/tipboard/internal/app/domain/ledger"
	"github.com/memetip/tipboard/internal/app/storage"
	"github.com/memetip/tipboard/pkg/logger"
)

// Ledger is the aggregate root: in-memory document plus its durable copy.
type Ledger struct {
	mu    sync.Mutex
	store storage.SnapshotStore
	state domain.State
	log   *logger.Logger
}

// New creates a ledger over the given snapshot store. Call Load before use.
func New(store storage.SnapshotStore, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	return &Ledger{store: store, log: log}
}

// Load restores the document from durable storage, initializing and
// persisting an empty one on first run.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, found, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger document: %w", err)
	}
	if !found {
		state = domain.NewState()
		if err := l.store.Save(ctx, state); err != nil {
			return fmt.Errorf("initialize ledger document: %w", err)
		}
		l.log.Info("initialized empty ledger document")
	} else {
		l.log.WithField("users", len(state.Users)).
			WithField("memes", len(state.Memes)).
			Info("ledger document loaded")
	}
	l.state = state
	return nil
}

// Update runs fn against a working copy of the document under the exclusive
// lock, persists the copy, and only then commits it in memory. If fn or the
// save fails, the in-memory and durable documents are left exactly as they
// were, so a failed operation is all-or-nothing. fn may call the wallet
// gateway; those RPCs run inside the exclusive window.
func (l *Ledger) Update(ctx context.Context, fn func(state *domain.State) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	working := l.state.Clone()
	if err := fn(&working); err != nil {
		return err
	}
	if err := l.store.Save(ctx, working); err != nil {
		return fmt.Errorf("persist ledger document: %w", err)
	}
	l.state = working
	return nil
}

// View runs fn against a copy of the document under the same exclusive lock,
// without persisting. Used by operations that must not race an Update (such
// as a withdrawal reading live balances) but do not change the document.
func (l *Ledger) View(_ context.Context, fn func(state domain.State) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.state.Clone())
}
