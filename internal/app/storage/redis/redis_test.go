package redis

import (
	"context"
	"os"
	"testing"

	goredis "github.com/go-redis/redis/v8"

	"github.com/memetip/tipboard/internal/app/domain/ledger"
	"github.com/memetip/tipboard/internal/app/domain/user"
)

// Integration test; enable with TEST_REDIS_ADDR=localhost:6379.
func newStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}

	key := "tipboard:test:" + t.Name()
	t.Cleanup(func() { client.Del(context.Background(), key) })
	return New(client, key)
}

func TestLoad_MissingKey(t *testing.T) {
	store := newStore(t)

	_, found, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatalf("expected missing document")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	state := ledger.NewState()
	state.Users["alice"] = user.User{DisplayName: "alice", TotalTips: 1.5, Seq: 1}
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, found, err := store.Load(ctx)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if loaded.Users["alice"].TotalTips != 1.5 {
		t.Fatalf("unexpected total tips: %v", loaded.Users["alice"].TotalTips)
	}
}
