// Package redis persists the ledger document under a single Redis key.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/memetip/tipboard/internal/app/domain/ledger"
	"github.com/memetip/tipboard/internal/app/storage"
)

// DefaultKey is used when no key is configured.
const DefaultKey = "tipboard:ledger"

// Store keeps the whole document in one key; Redis SET replaces the value
// atomically, which satisfies the snapshot contract.
type Store struct {
	client *redis.Client
	key    string
}

var _ storage.SnapshotStore = (*Store)(nil)

// New creates a store using the provided client. An empty key falls back to
// DefaultKey.
func New(client *redis.Client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

func (s *Store) Load(ctx context.Context) (ledger.State, bool, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
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
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
