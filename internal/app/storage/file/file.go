// Package file persists the ledger document as a single JSON file, replaced
// atomically on every save.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/memetip/tipboard/internal/app/domain/ledger"
	"github.com/memetip/tipboard/internal/app/storage"
)

// Store writes the document to a fixed path via write-temp-then-rename, so a
// torn write can never clobber the previous document.
type Store struct {
	path string
}

var _ storage.SnapshotStore = (*Store)(nil)

// New creates a store backed by the given file path.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("document path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create document directory: %w", err)
		}
	}
	return &Store{path: path}, nil
}

func (s *Store) Load(_ context.Context) (ledger.State, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
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

func (s *Store) Save(_ context.Context, state ledger.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp document: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}
