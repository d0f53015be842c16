// Package withdrawals sweeps a user's unlocked funds to their payout address.
package withdrawals

import (
	"context"
	"errors"
	"fmt"

	ledgerdom "github.com/memetip/tipboard/internal/app/domain/ledger"
	"github.com/memetip/tipboard/internal/app/ledger"
	"github.com/memetip/tipboard/internal/app/metrics"
	"github.com/memetip/tipboard/internal/wallet"
	"github.com/memetip/tipboard/pkg/logger"
)

// ErrUnknownUser reports a withdrawal for a display name that was never
// registered.
var ErrUnknownUser = errors.New("unknown user")

// SweepError records one failed per-subaccount sweep. Sweeps are independent
// operations; one failure does not roll back sweeps already issued.
type SweepError struct {
	SubaccountIndex uint64
	Err             error
}

func (e SweepError) Error() string {
	return fmt.Sprintf("sweep subaccount %d: %v", e.SubaccountIndex, e.Err)
}

// Result describes one withdrawal attempt. NoFunds is a normal outcome, not
// a failure: every owned subaccount had zero unlocked balance and no sweep
// was issued.
type Result struct {
	NoFunds         bool
	UnlockedBalance float64
	Swept           []uint64
	SweepErrors     []SweepError
}

// Service coordinates withdrawals. It acquires the same exclusive ledger
// lock as the reconciliation scheduler, so a sweep can never race a pass's
// read of the same balances.
type Service struct {
	ledger  *ledger.Ledger
	gateway wallet.Gateway
	log     *logger.Logger
}

// New constructs a withdrawals service.
func New(l *ledger.Ledger, gateway wallet.Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("withdrawals")
	}
	return &Service{ledger: l, gateway: gateway, log: log}
}

// Withdraw sums the live unlocked balances of the user's subaccounts — never
// the cached lifetime tips — and sweeps every non-empty one to the payout
// address. Per-sweep failures are collected in the result rather than
// aborting the remaining sweeps.
func (s *Service) Withdraw(ctx context.Context, displayName string) (Result, error) {
	var result Result
	err := s.ledger.View(ctx, func(state ledgerdom.State) error {
		u, ok := state.Users[displayName]
		if !ok {
			return ErrUnknownUser
		}

		balances := make(map[uint64]float64, len(u.OwnedSubaccounts))
		var total float64
		for _, index := range u.OwnedSubaccounts {
			balance, err := s.gateway.UnlockedBalance(ctx, index)
			if err != nil {
				return fmt.Errorf("unlocked balance for subaccount %d: %w", index, err)
			}
			balances[index] = balance
			total += balance
		}
		result.UnlockedBalance = total

		if total == 0 {
			result.NoFunds = true
			return nil
		}

		for _, index := range u.OwnedSubaccounts {
			if balances[index] == 0 {
				continue
			}
			err := s.gateway.SweepAll(ctx, index, u.PayoutAddress)
			metrics.RecordSweep(err)
			if err != nil {
				result.SweepErrors = append(result.SweepErrors, SweepError{SubaccountIndex: index, Err: err})
				s.log.WithError(err).
					WithField("display_name", displayName).
					WithField("subaccount", index).
					Warn("sweep failed")
				continue
			}
			result.Swept = append(result.Swept, index)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if !result.NoFunds {
		s.log.WithField("display_name", displayName).
			WithField("swept", len(result.Swept)).
			WithField("failed", len(result.SweepErrors)).
			Info("withdrawal processed")
	}
	return result, nil
}
