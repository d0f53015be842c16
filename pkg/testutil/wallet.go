// Package testutil provides common testing utilities and mock implementations.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/memetip/tipboard/internal/wallet"
)

// SweepCall records one SweepAll invocation against the fake wallet.
type SweepCall struct {
	Index   uint64
	Address string
}

// FakeWallet is an in-memory Gateway implementation. Subaccounts are minted
// with sequential indices; tips and unlocked balances are set explicitly by
// the test. Errors injected per method wrap wallet.ErrGatewayUnavailable.
type FakeWallet struct {
	mu        sync.Mutex
	nextIndex uint64
	addresses map[uint64]string
	transfers map[uint64][]wallet.Transfer
	unlocked  map[uint64]float64

	sweeps []SweepCall

	newSubaccountErr error
	transfersErr     map[uint64]error
	balanceErr       map[uint64]error
	sweepErr         map[uint64]error
}

var _ wallet.Gateway = (*FakeWallet)(nil)

// NewFakeWallet creates an empty fake wallet whose first minted subaccount
// gets the given index.
func NewFakeWallet(firstIndex uint64) *FakeWallet {
	return &FakeWallet{
		nextIndex:    firstIndex,
		addresses:    make(map[uint64]string),
		transfers:    make(map[uint64][]wallet.Transfer),
		unlocked:     make(map[uint64]float64),
		transfersErr: make(map[uint64]error),
		balanceErr:   make(map[uint64]error),
		sweepErr:     make(map[uint64]error),
	}
}

func (f *FakeWallet) NewSubaccount(context.Context) (wallet.Subaccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.newSubaccountErr != nil {
		return wallet.Subaccount{}, f.newSubaccountErr
	}
	index := f.nextIndex
	f.nextIndex++
	address := fmt.Sprintf("8subaccount%d", index)
	f.addresses[index] = address
	return wallet.Subaccount{Index: index, Address: address}, nil
}

func (f *FakeWallet) IncomingTransfers(_ context.Context, index uint64) ([]wallet.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transfersErr[index]; err != nil {
		return nil, err
	}
	return append([]wallet.Transfer(nil), f.transfers[index]...), nil
}

func (f *FakeWallet) UnlockedBalance(_ context.Context, index uint64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.balanceErr[index]; err != nil {
		return 0, err
	}
	return f.unlocked[index], nil
}

func (f *FakeWallet) SweepAll(_ context.Context, index uint64, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sweepErr[index]; err != nil {
		return err
	}
	f.sweeps = append(f.sweeps, SweepCall{Index: index, Address: address})
	f.unlocked[index] = 0
	return nil
}

// Tip records an incoming transfer on a subaccount and makes the amount
// immediately spendable.
func (f *FakeWallet) Tip(index uint64, amount float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers[index] = append(f.transfers[index], wallet.Transfer{Amount: amount})
	f.unlocked[index] += amount
}

// SetUnlocked overrides a subaccount's unlocked balance without touching its
// transfer history (e.g. to model still-locked funds).
func (f *FakeWallet) SetUnlocked(index uint64, amount float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlocked[index] = amount
}

// Sweeps returns the recorded sweep calls.
func (f *FakeWallet) Sweeps() []SweepCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SweepCall(nil), f.sweeps...)
}

// FailNewSubaccount makes subsequent NewSubaccount calls fail.
func (f *FakeWallet) FailNewSubaccount() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newSubaccountErr = fmt.Errorf("%w: injected create failure", wallet.ErrGatewayUnavailable)
}

// FailTransfers makes IncomingTransfers fail for one subaccount.
func (f *FakeWallet) FailTransfers(index uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfersErr[index] = fmt.Errorf("%w: injected transfer failure", wallet.ErrGatewayUnavailable)
}

// FailBalance makes UnlockedBalance fail for one subaccount.
func (f *FakeWallet) FailBalance(index uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceErr[index] = fmt.Errorf("%w: injected balance failure", wallet.ErrGatewayUnavailable)
}

// FailSweep makes SweepAll fail for one subaccount.
func (f *FakeWallet) FailSweep(index uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweepErr[index] = fmt.Errorf("%w: injected sweep failure", wallet.ErrGatewayUnavailable)
}
