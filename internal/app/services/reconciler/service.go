// Package reconciler re-derives tip totals and the leaderboard from the
// wallet's transaction history.
package reconciler

import (
	"context"
	"fmt"
	"sort"
	"time"

	ledgerdom "github.com/memetip/tipboard/internal/app/domain/ledger"
	"github.com/memetip/tipboard/internal/app/ledger"
	"github.com/memetip/tipboard/internal/app/metrics"
	"github.com/memetip/tipboard/internal/wallet"
	"github.com/memetip/tipboard/pkg/logger"
)

// Service recomputes the derived aggregates. A pass is all-or-nothing: a
// gateway failure partway through leaves both the in-memory and durable
// documents exactly as the previous successful pass left them.
type Service struct {
	ledger  *ledger.Ledger
	gateway wallet.Gateway
	log     *logger.Logger
}

// New constructs a reconciler.
func New(l *ledger.Ledger, gateway wallet.Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("reconciler")
	}
	return &Service{ledger: l, gateway: gateway, log: log}
}

// RunPass executes one full reconciliation pass under the ledger's exclusive
// lock: per-meme tips from all-time incoming transfers, per-user totals
// recomputed from meme tips, then the leaderboard order and view replaced as
// a pair.
func (s *Service) RunPass(ctx context.Context) error {
	start := time.Now()
	err := s.ledger.Update(ctx, func(state *ledgerdom.State) error {
		tipsBySubaccount := make(map[uint64]float64, len(state.Memes))
		for i := range state.Memes {
			m := &state.Memes[i]
			transfers, err := s.gateway.IncomingTransfers(ctx, m.SubaccountIndex)
			if err != nil {
				return fmt.Errorf("incoming transfers for subaccount %d: %w", m.SubaccountIndex, err)
			}
			var sum float64
			for _, t := range transfers {
				sum += t.Amount
			}
			m.Tips = sum
			m.TipsFormatted = ledgerdom.FormatAmount(sum)
			tipsBySubaccount[m.SubaccountIndex] = sum
		}

		for name, u := range state.Users {
			var total float64
			for _, index := range u.OwnedSubaccounts {
				total += tipsBySubaccount[index]
			}
			u.TotalTips = total
			u.TotalTipsFormatted = ledgerdom.FormatAmount(total)
			state.Users[name] = u
		}

		order := make([]string, 0, len(state.Users))
		for name := range state.Users {
			order = append(order, name)
		}
		// Numeric ordering on totals; ties resolve to registration order so
		// the result is deterministic.
		sort.Slice(order, func(i, j int) bool {
			a, b := state.Users[order[i]], state.Users[order[j]]
			if a.TotalTips != b.TotalTips {
				return a.TotalTips > b.TotalTips
			}
			return a.Seq < b.Seq
		})

		view := make(map[string]string, len(order))
		for _, name := range order {
			view[name] = state.Users[name].TotalTipsFormatted
		}
		state.LeaderboardOrder = order
		state.LeaderboardView = view
		return nil
	})

	metrics.RecordReconcilePass(time.Since(start), err)
	if err != nil {
		return err
	}
	s.log.WithField("duration", time.Since(start).Round(time.Millisecond)).
		Debugf("reconciliation pass complete")
	return nil
}
