// Package wallet is the boundary to the external Monero wallet-rpc daemon.
// The rest of the application treats the wallet as an opaque ledger exposing
// the Gateway contract.
package wallet

import (
	"context"
	"errors"
)

// ErrGatewayUnavailable wraps every transport or RPC-level failure from the
// wallet daemon. Callers never retry within a single operation; the next
// scheduler tick or user request is the retry.
var ErrGatewayUnavailable = errors.New("wallet gateway unavailable")

// Subaccount is a freshly minted receiving account on the wallet.
type Subaccount struct {
	Index   uint64
	Address string
}

// Transfer is one incoming transaction observed on a subaccount. Amounts are
// in XMR.
type Transfer struct {
	Amount float64
}

// Gateway is the wallet contract consumed by the core.
//
// IncomingTransfers is all-time and append-only from the wallet's point of
// view: a sweep empties the spendable balance but never retracts history.
// SweepAll on an already-empty subaccount is a no-op success.
type Gateway interface {
	NewSubaccount(ctx context.Context) (Subaccount, error)
	IncomingTransfers(ctx context.Context, index uint64) ([]Transfer, error)
	UnlockedBalance(ctx context.Context, index uint64) (float64, error)
	SweepAll(ctx context.Context, index uint64, address string) error
}
