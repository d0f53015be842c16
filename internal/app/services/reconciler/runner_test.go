package reconciler

import (
	"context"
	"testing"
	"time"

	ledgerdom "github.com/memetip/tipboard/internal/app/domain/ledger"
	"github.com/memetip/tipboard/pkg/testutil"
)

func TestRunner_RunsPassesOnSchedule(t *testing.T) {
	led := newLedger(t)
	fw := testutil.NewFakeWallet(1)
	seed(t, led, func(state *ledgerdom.State) {
		seedUser(state, "alice", 1)
		seedMeme(state, "m1", "alice", 1)
	})
	fw.Tip(1, 1.5)

	runner := NewRunner(New(led, fw, nil), time.Second, nil)
	ctx := context.Background()
	if err := runner.Start(ctx); err != nil {
		t.Fatalf("start runner: %v", err)
	}
	defer runner.Stop(ctx)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("runner never reconciled the tip")
		case <-time.After(50 * time.Millisecond):
		}
		m, ok := snapshot(t, led).MemeByID("m1")
		if ok && m.Tips == 1.5 {
			return
		}
	}
}

func TestRunner_StopIsIdempotent(t *testing.T) {
	led := newLedger(t)
	runner := NewRunner(New(led, testutil.NewFakeWallet(1), nil), time.Second, nil)
	ctx := context.Background()

	if err := runner.Start(ctx); err != nil {
		t.Fatalf("start runner: %v", err)
	}
	if err := runner.Start(ctx); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if err := runner.Stop(ctx); err != nil {
		t.Fatalf("stop runner: %v", err)
	}
	if err := runner.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
