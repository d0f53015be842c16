package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/memetip/tipboard/internal/app/domain/ledger"
	"github.com/memetip/tipboard/internal/app/domain/meme"
	"github.com/memetip/tipboard/internal/app/domain/user"
)

func TestLoad_MissingFile(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "ledger.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	_, found, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatalf("expected missing document")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	state := ledger.NewState()
	state.Users["alice"] = user.User{
		DisplayName:      "alice",
		OwnedSubaccounts: []uint64{7},
		TotalTips:        1.5,
		Seq:              1,
	}
	state.Memes = append(state.Memes, meme.Meme{ID: "m1", Author: "alice", SubaccountIndex: 7, Tips: 1.5})
	state.LeaderboardOrder = []string{"alice"}
	state.LeaderboardView = map[string]string{"alice": "1.50000000"}

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
	if len(loaded.Memes) != 1 || loaded.Memes[0].ID != "m1" {
		t.Fatalf("unexpected memes: %+v", loaded.Memes)
	}
	if loaded.LeaderboardView["alice"] != "1.50000000" {
		t.Fatalf("unexpected leaderboard view: %v", loaded.LeaderboardView)
	}
}

func TestSave_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.json")
	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, ledger.NewState()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	next := ledger.NewState()
	next.Users["alice"] = user.User{DisplayName: "alice", Seq: 1}
	if err := store.Save(ctx, next); err != nil {
		t.Fatalf("second save: %v", err)
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "ledger.json" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}

	loaded, _, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := loaded.Users["alice"]; !ok {
		t.Fatalf("second save not visible")
	}
}

func TestNew_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "ledger.json")
	store, err := New(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Save(context.Background(), ledger.NewState()); err != nil {
		t.Fatalf("save into created directory: %v", err)
	}
}
