// Package ledger defines the persisted document that is the application's
// single source of mutable state: users, memes and the derived leaderboard
// projections. The document is loaded and saved as a whole.
package ledger

import (
	"strconv"

	"github.com/memetip/tipboard/internal/app/domain/meme"
	"github.com/memetip/tipboard/internal/app/domain/user"
)

// State is the aggregate root. LeaderboardOrder and LeaderboardView are only
// ever replaced together at the end of a successful reconciliation pass.
type State struct {
	Users            map[string]user.User `json:"users"`
	Memes            []meme.Meme          `json:"memes"`
	LeaderboardOrder []string             `json:"leaderboard_order"`
	LeaderboardView  map[string]string    `json:"leaderboard_view"`
}

// NewState returns an empty, ready-to-use document.
func NewState() State {
	return State{
		Users:           make(map[string]user.User),
		Memes:           make([]meme.Meme, 0),
		LeaderboardView: make(map[string]string),
	}
}

// Normalize replaces nil containers after decoding an older or empty document.
func (s *State) Normalize() {
	if s.Users == nil {
		s.Users = make(map[string]user.User)
	}
	if s.Memes == nil {
		s.Memes = make([]meme.Meme, 0)
	}
	if s.LeaderboardView == nil {
		s.LeaderboardView = make(map[string]string)
	}
}

// Clone returns a deep copy of the document.
func (s State) Clone() State {
	out := State{
		Users:            make(map[string]user.User, len(s.Users)),
		Memes:            make([]meme.Meme, len(s.Memes)),
		LeaderboardOrder: append([]string(nil), s.LeaderboardOrder...),
		LeaderboardView:  make(map[string]string, len(s.LeaderboardView)),
	}
	for name, u := range s.Users {
		u.OwnedSubaccounts = append([]uint64(nil), u.OwnedSubaccounts...)
		out.Users[name] = u
	}
	copy(out.Memes, s.Memes)
	for name, v := range s.LeaderboardView {
		out.LeaderboardView[name] = v
	}
	return out
}

// MemeByID finds a meme by identifier.
func (s State) MemeByID(id string) (meme.Meme, bool) {
	for _, m := range s.Memes {
		if m.ID == id {
			return m, true
		}
	}
	return meme.Meme{}, false
}

// MemesByAuthor returns the author's memes in submission order.
func (s State) MemesByAuthor(displayName string) []meme.Meme {
	out := make([]meme.Meme, 0)
	for _, m := range s.Memes {
		if m.Author == displayName {
			out = append(out, m)
		}
	}
	return out
}

// NextSeq returns the registration sequence number for a new user. Users are
// never deleted, so the map size is monotonic.
func (s State) NextSeq() uint64 {
	return uint64(len(s.Users)) + 1
}

// FormatAmount renders an XMR amount with the fixed 8 fractional digits used
// for every user-facing total.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 8, 64)
}
