// Package memes manages meme submission and lookup. Submission is where
// subaccount allocation happens: every meme gets a dedicated wallet
// subaccount, and the index is appended to the author's owned set.
package memes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	ledgerdom "github.com/memetip/tipboard/internal/app/domain/ledger"
	"github.com/memetip/tipboard/internal/app/domain/meme"
	"github.com/memetip/tipboard/internal/app/ledger"
	"github.com/memetip/tipboard/internal/wallet"
	"github.com/memetip/tipboard/pkg/logger"
)

var (
	// ErrNotFound reports a lookup for a meme that does not exist.
	ErrNotFound = errors.New("meme not found")
	// ErrUnknownAuthor rejects a submission from an unregistered display name.
	ErrUnknownAuthor = errors.New("unknown author")
)

// Service manages memes.
type Service struct {
	ledger  *ledger.Ledger
	gateway wallet.Gateway
	log     *logger.Logger
}

// New constructs a memes service.
func New(l *ledger.Ledger, gateway wallet.Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("memes")
	}
	return &Service{ledger: l, gateway: gateway, log: log}
}

// Submit creates a meme bound to a freshly allocated wallet subaccount. If
// the gateway cannot mint an account, or the document cannot be persisted,
// the submission is rejected wholesale and no partial state survives.
func (s *Service) Submit(ctx context.Context, author, title, mediaRef string) (meme.Meme, error) {
	if title == "" {
		return meme.Meme{}, fmt.Errorf("title is required")
	}

	var created meme.Meme
	err := s.ledger.Update(ctx, func(state *ledgerdom.State) error {
		u, ok := state.Users[author]
		if !ok {
			return ErrUnknownAuthor
		}

		sub, err := s.gateway.NewSubaccount(ctx)
		if err != nil {
			return fmt.Errorf("allocate subaccount: %w", err)
		}

		created = meme.Meme{
			ID:               uuid.NewString(),
			Title:            title,
			Author:           author,
			MediaRef:         mediaRef,
			SubaccountIndex:  sub.Index,
			ReceivingAddress: sub.Address,
			TipsFormatted:    ledgerdom.FormatAmount(0),
			CreatedAt:        time.Now().UTC(),
		}
		state.Memes = append(state.Memes, created)

		u.OwnedSubaccounts = append(u.OwnedSubaccounts, sub.Index)
		state.Users[author] = u
		return nil
	})
	if err != nil {
		return meme.Meme{}, err
	}

	s.log.WithField("meme_id", created.ID).
		WithField("author", author).
		WithField("subaccount", created.SubaccountIndex).
		Info("meme submitted")
	return created, nil
}

// Get returns a meme by identifier.
func (s *Service) Get(ctx context.Context, id string) (meme.Meme, error) {
	var found meme.Meme
	err := s.ledger.View(ctx, func(state ledgerdom.State) error {
		m, ok := state.MemeByID(id)
		if !ok {
			return ErrNotFound
		}
		found = m
		return nil
	})
	if err != nil {
		return meme.Meme{}, err
	}
	return found, nil
}

// List returns all memes in submission order.
func (s *Service) List(ctx context.Context) ([]meme.Meme, error) {
	var memes []meme.Meme
	err := s.ledger.View(ctx, func(state ledgerdom.State) error {
		memes = state.Memes
		return nil
	})
	return memes, err
}

// MostTipped returns all memes ordered by descending tips, ties keeping
// submission order.
func (s *Service) MostTipped(ctx context.Context) ([]meme.Meme, error) {
	memes, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(memes, func(i, j int) bool {
		return memes[i].Tips > memes[j].Tips
	})
	return memes, nil
}
