// Package app wires the ledger, wallet gateway and domain services together
// and manages their lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/memetip/tipboard/internal/app/ledger"
	"github.com/memetip/tipboard/internal/app/services/accounts"
	"github.com/memetip/tipboard/internal/app/services/memes"
	"github.com/memetip/tipboard/internal/app/services/reconciler"
	"github.com/memetip/tipboard/internal/app/services/withdrawals"
	"github.com/memetip/tipboard/internal/app/storage"
	"github.com/memetip/tipboard/internal/app/storage/memory"
	"github.com/memetip/tipboard/internal/app/system"
	"github.com/memetip/tipboard/internal/wallet"
	"github.com/memetip/tipboard/pkg/logger"
)

// Options configures an Application. A nil Store defaults to the in-memory
// implementation; the Gateway is required.
type Options struct {
	Store             storage.SnapshotStore
	Gateway           wallet.Gateway
	ReconcileInterval time.Duration
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	ledger  *ledger.Ledger
	log     *logger.Logger

	Accounts    *accounts.Service
	Memes       *memes.Service
	Reconciler  *reconciler.Service
	Withdrawals *withdrawals.Service
}

// New builds a fully initialised application.
func New(opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if opts.Gateway == nil {
		return nil, fmt.Errorf("wallet gateway is required")
	}
	if opts.Store == nil {
		opts.Store = memory.New()
	}

	led := ledger.New(opts.Store, log.WithField("component", "ledger"))

	acctService := accounts.New(led, opts.Gateway, log.WithField("component", "accounts"))
	memeService := memes.New(led, opts.Gateway, log.WithField("component", "memes"))
	reconService := reconciler.New(led, opts.Gateway, log.WithField("component", "reconciler"))
	withdrawService := withdrawals.New(led, opts.Gateway, log.WithField("component", "withdrawals"))

	manager := system.NewManager()
	runner := reconciler.NewRunner(reconService, opts.ReconcileInterval, log.WithField("component", "reconciler-runner"))
	if err := manager.Register(runner); err != nil {
		return nil, fmt.Errorf("register reconciler: %w", err)
	}

	return &Application{
		manager:     manager,
		ledger:      led,
		log:         log,
		Accounts:    acctService,
		Memes:       memeService,
		Reconciler:  reconService,
		Withdrawals: withdrawService,
	}, nil
}

// Start loads the ledger document and starts background services.
func (a *Application) Start(ctx context.Context) error {
	if err := a.ledger.Load(ctx); err != nil {
		return err
	}
	if err := a.manager.StartAll(ctx); err != nil {
		return err
	}
	a.log.Info("application started")
	return nil
}

// Stop shuts background services down in reverse order.
func (a *Application) Stop(ctx context.Context) error {
	err := a.manager.StopAll(ctx)
	if err == nil {
		a.log.Info("application stopped")
	}
	return err
}
