// Package accounts manages user registration and account views.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	ledgerdom "github.com/memetip/tipboard/internal/app/domain/ledger"
	"github.com/memetip/tipboard/internal/app/domain/meme"
	"github.com/memetip/tipboard/internal/app/domain/user"
	"github.com/memetip/tipboard/internal/app/ledger"
	"github.com/memetip/tipboard/internal/wallet"
	"github.com/memetip/tipboard/pkg/logger"
)

var (
	// ErrDuplicateName rejects a registration reusing an existing display name.
	ErrDuplicateName = errors.New("display name already in use")
	// ErrInvalidAddress rejects a payout address that is not a valid XMR address.
	ErrInvalidAddress = errors.New("invalid payout address")
	// ErrUnknownUser reports a lookup for a display name that was never registered.
	ErrUnknownUser = errors.New("unknown user")
	// ErrBadCredentials reports a failed authentication attempt.
	ErrBadCredentials = errors.New("incorrect display name or password")
)

// Standard or integrated mainnet/subaddress forms.
var xmrAddressPattern = regexp.MustCompile(`^(?:[48][0-9AB]|4[1-9A-HJ-NP-Za-km-z]{12}(?:[1-9A-HJ-NP-Za-km-z]{30})?)[1-9A-HJ-NP-Za-km-z]{93}$`)

const minPasswordLen = 8

// AccountView is the owner-facing view of an account: live spendable balance
// across all owned subaccounts plus the user's memes.
type AccountView struct {
	User                     user.User
	UnlockedBalance          float64
	UnlockedBalanceFormatted string
	Memes                    []meme.Meme
}

// Service manages users.
type Service struct {
	ledger  *ledger.Ledger
	gateway wallet.Gateway
	log     *logger.Logger
}

// New constructs an accounts service.
func New(l *ledger.Ledger, gateway wallet.Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{ledger: l, gateway: gateway, log: log}
}

// Register creates a user. Validation failures are rejected before any
// mutation; a duplicate display name leaves the store unchanged.
func (s *Service) Register(ctx context.Context, displayName, email, payoutAddress, password string) (user.User, error) {
	displayName = strings.TrimSpace(displayName)
	email = strings.TrimSpace(email)
	payoutAddress = strings.TrimSpace(payoutAddress)

	if displayName == "" {
		return user.User{}, fmt.Errorf("display name is required")
	}
	if len(password) < minPasswordLen {
		return user.User{}, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	if !xmrAddressPattern.MatchString(payoutAddress) {
		return user.User{}, ErrInvalidAddress
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, fmt.Errorf("hash credential: %w", err)
	}

	var created user.User
	err = s.ledger.Update(ctx, func(state *ledgerdom.State) error {
		if _, exists := state.Users[displayName]; exists {
			return ErrDuplicateName
		}
		created = user.User{
			DisplayName:        displayName,
			Email:              email,
			CredentialHash:     string(hash),
			PayoutAddress:      payoutAddress,
			OwnedSubaccounts:   make([]uint64, 0),
			TotalTipsFormatted: ledgerdom.FormatAmount(0),
			Seq:                state.NextSeq(),
			CreatedAt:          time.Now().UTC(),
		}
		state.Users[displayName] = created
		return nil
	})
	if err != nil {
		return user.User{}, err
	}

	s.log.WithField("display_name", displayName).Info("user registered")
	return created, nil
}

// Authenticate verifies a display name and password pair.
func (s *Service) Authenticate(ctx context.Context, displayName, password string) (user.User, error) {
	var u user.User
	err := s.ledger.View(ctx, func(state ledgerdom.State) error {
		existing, ok := state.Users[displayName]
		if !ok {
			return ErrBadCredentials
		}
		u = existing
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.CredentialHash), []byte(password)) != nil {
		return user.User{}, ErrBadCredentials
	}
	return u, nil
}

// View returns the owner's account view. The unlocked balance is summed from
// live wallet queries under the ledger's exclusive lock, never from cached
// tip totals.
func (s *Service) View(ctx context.Context, displayName string) (AccountView, error) {
	var view AccountView
	err := s.ledger.View(ctx, func(state ledgerdom.State) error {
		u, ok := state.Users[displayName]
		if !ok {
			return ErrUnknownUser
		}

		var total float64
		for _, index := range u.OwnedSubaccounts {
			balance, err := s.gateway.UnlockedBalance(ctx, index)
			if err != nil {
				return fmt.Errorf("unlocked balance for subaccount %d: %w", index, err)
			}
			total += balance
		}

		view = AccountView{
			User:                     u,
			UnlockedBalance:          total,
			UnlockedBalanceFormatted: ledgerdom.FormatAmount(total),
			Memes:                    state.MemesByAuthor(displayName),
		}
		return nil
	})
	if err != nil {
		return AccountView{}, err
	}
	return view, nil
}

// Profile returns the public view of a user: last reconciled totals and memes.
func (s *Service) Profile(ctx context.Context, displayName string) (user.User, []meme.Meme, error) {
	var (
		u     user.User
		memes []meme.Meme
	)
	err := s.ledger.View(ctx, func(state ledgerdom.State) error {
		existing, ok := state.Users[displayName]
		if !ok {
			return ErrUnknownUser
		}
		u = existing
		memes = state.MemesByAuthor(displayName)
		return nil
	})
	if err != nil {
		return user.User{}, nil, err
	}
	return u, memes, nil
}

// Leaderboard returns the last reconciled ordering and its matching formatted
// view. Both come from the same pass, so they are always mutually consistent.
func (s *Service) Leaderboard(ctx context.Context) (order []string, view map[string]string, err error) {
	err = s.ledger.View(ctx, func(state ledgerdom.State) error {
		order = state.LeaderboardOrder
		view = state.LeaderboardView
		return nil
	})
	return order, view, err
}
