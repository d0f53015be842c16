package meme

import "time"

// Meme is a posted content item bound 1:1 to a wallet subaccount. Only the
// derived tip fields change after creation; everything else is immutable.
type Meme struct {
	ID               string    `json:"meme_id"`
	Title            string    `json:"title"`
	Author           string    `json:"author"`
	MediaRef         string    `json:"media_ref"`
	SubaccountIndex  uint64    `json:"subaccount_index"`
	ReceivingAddress string    `json:"receiving_address"`
	Tips             float64   `json:"tips"`
	TipsFormatted    string    `json:"tips_formatted"`
	CreatedAt        time.Time `json:"created_at"`
}
