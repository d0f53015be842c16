// Package postgres persists the ledger document as a single jsonb row.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/memetip/tipboard/internal/app/domain/ledger"
	"github.com/memetip/tipboard/internal/app/storage"
)

// Store implements the snapshot store backed by PostgreSQL. The document
// lives in one row; the upsert replaces it atomically within a single
// statement.
type Store struct {
	db *sql.DB
}

var _ storage.SnapshotStore = (*Store)(nil)

// New creates a Store and ensures the schema exists.
func New(db *sql.DB) (*Store, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ledger_document (
			id         smallint PRIMARY KEY DEFAULT 1 CHECK (id = 1),
			doc        jsonb NOT NULL,
			updated_at timestamptz NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("ensure ledger_document table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Load(ctx context.Context) (ledger.State, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM ledger_document WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return ledger.State{}, false, nil
	}
	if err != nil {
		return ledger.State{}, false, fmt.Errorf("read document: %w", err)
	}

	var state ledger.State
	if err := json.Unmarshal(data, &state); err != nil {
		return ledger.State{}, false, fmt.Errorf("decode document: %w", err)
	}
	state.Normalize()
	return state, true, nil
}

func (s *Store) Save(ctx context.Context, state ledger.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ledger_document (id, doc, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at
	`, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
