package memes

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	ledgerdom "github.com/memetip/tipboard/internal/app/domain/ledger"
	"github.com/memetip/tipboard/internal/app/domain/user"
	"github.com/memetip/tipboard/internal/app/ledger"
	"github.com/memetip/tipboard/internal/app/storage/memory"
	"github.com/memetip/tipboard/pkg/testutil"
)

func newService(t *testing.T, fw *testutil.FakeWallet) (*Service, *ledger.Ledger) {
	t.Helper()
	led := ledger.New(memory.New(), nil)
	if err := led.Load(context.Background()); err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if err := led.Update(context.Background(), func(state *ledgerdom.State) error {
		state.Users["alice"] = user.User{
			DisplayName:      "alice",
			PayoutAddress:    "4A" + strings.Repeat("1", 93),
			OwnedSubaccounts: []uint64{},
			Seq:              1,
			CreatedAt:        time.Now().UTC(),
		}
		return nil
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return New(led, fw, nil), led
}

func snapshot(t *testing.T, led *ledger.Ledger) ledgerdom.State {
	t.Helper()
	var state ledgerdom.State
	if err := led.View(context.Background(), func(s ledgerdom.State) error {
		state = s
		return nil
	}); err != nil {
		t.Fatalf("view ledger: %v", err)
	}
	return state
}

func TestSubmit_AllocatesSubaccount(t *testing.T) {
	fw := testutil.NewFakeWallet(7)
	svc, led := newService(t, fw)

	m, err := svc.Submit(context.Background(), "alice", "dancing ferret", "ipfs://abc")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if m.ID == "" {
		t.Fatalf("meme has no id")
	}
	if m.SubaccountIndex != 7 {
		t.Fatalf("unexpected subaccount index: %d", m.SubaccountIndex)
	}
	if m.ReceivingAddress != "8subaccount7" {
		t.Fatalf("unexpected receiving address: %s", m.ReceivingAddress)
	}
	if m.TipsFormatted != "0.00000000" {
		t.Fatalf("unexpected formatted tips: %s", m.TipsFormatted)
	}

	state := snapshot(t, led)
	if len(state.Memes) != 1 {
		t.Fatalf("expected 1 meme, got %d", len(state.Memes))
	}
	if !reflect.DeepEqual(state.Users["alice"].OwnedSubaccounts, []uint64{7}) {
		t.Fatalf("subaccount not recorded on owner: %v", state.Users["alice"].OwnedSubaccounts)
	}
}

func TestSubmit_SequentialIndices(t *testing.T) {
	fw := testutil.NewFakeWallet(3)
	svc, led := newService(t, fw)
	ctx := context.Background()

	first, err := svc.Submit(ctx, "alice", "one", "")
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second, err := svc.Submit(ctx, "alice", "two", "")
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if first.SubaccountIndex != 3 || second.SubaccountIndex != 4 {
		t.Fatalf("unexpected indices: %d, %d", first.SubaccountIndex, second.SubaccountIndex)
	}
	got := snapshot(t, led).Users["alice"].OwnedSubaccounts
	if !reflect.DeepEqual(got, []uint64{3, 4}) {
		t.Fatalf("unexpected owned subaccounts: %v", got)
	}
}

func TestSubmit_UnknownAuthor(t *testing.T) {
	svc, _ := newService(t, testutil.NewFakeWallet(1))
	if _, err := svc.Submit(context.Background(), "nobody", "title", ""); !errors.Is(err, ErrUnknownAuthor) {
		t.Fatalf("expected ErrUnknownAuthor, got %v", err)
	}
}

// A failed allocation must reject the whole submission: no meme, no index on
// the author.
func TestSubmit_GatewayFailureLeavesNoPartialState(t *testing.T) {
	fw := testutil.NewFakeWallet(1)
	svc, led := newService(t, fw)
	before := snapshot(t, led)

	fw.FailNewSubaccount()
	if _, err := svc.Submit(context.Background(), "alice", "title", ""); err == nil {
		t.Fatalf("expected submit to fail")
	}

	after := snapshot(t, led)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("failed submission mutated state")
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newService(t, testutil.NewFakeWallet(1))
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMostTipped(t *testing.T) {
	fw := testutil.NewFakeWallet(1)
	svc, led := newService(t, fw)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		if _, err := svc.Submit(ctx, "alice", title, ""); err != nil {
			t.Fatalf("submit %s: %v", title, err)
		}
	}
	if err := led.Update(ctx, func(state *ledgerdom.State) error {
		state.Memes[0].Tips = 1
		state.Memes[1].Tips = 5
		state.Memes[2].Tips = 5
		return nil
	}); err != nil {
		t.Fatalf("seed tips: %v", err)
	}

	list, err := svc.MostTipped(ctx)
	if err != nil {
		t.Fatalf("most tipped: %v", err)
	}
	titles := []string{list[0].Title, list[1].Title, list[2].Title}
	// Ties keep submission order.
	if !reflect.DeepEqual(titles, []string{"b", "c", "a"}) {
		t.Fatalf("unexpected order: %v", titles)
	}
}
