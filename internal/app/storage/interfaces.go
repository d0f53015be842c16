package storage

import (
	"context"

	"github.com/memetip/tipboard/internal/app/domain/ledger"
)

// SnapshotStore persists the ledger document as a whole. Load reports
// found=false on first run so the caller can initialize an empty document.
// Save must replace the previous document atomically: a failed or interrupted
// write never leaves a previously valid document partially overwritten.
type SnapshotStore interface {
	Load(ctx context.Context) (state ledger.State, found bool, err error)
	Save(ctx context.Context, state ledger.State) error
}
