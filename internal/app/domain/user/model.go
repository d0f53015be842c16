package user

import "time"

// User is a registered poster. Display names are unique and immutable; the
// owned subaccount list only ever grows, one entry per meme the user submits.
type User struct {
	DisplayName        string    `json:"display_name"`
	Email              string    `json:"email"`
	CredentialHash     string    `json:"credential_hash"`
	PayoutAddress      string    `json:"payout_address"`
	OwnedSubaccounts   []uint64  `json:"owned_subaccounts"`
	TotalTips          float64   `json:"total_tips"`
	TotalTipsFormatted string    `json:"total_tips_formatted"`
	Seq                uint64    `json:"seq"`
	CreatedAt          time.Time `json:"created_at"`
}
