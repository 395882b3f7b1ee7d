package domain

import "time"

// Wallet is a registered user wallet. Each wallet carries a unique invite
// code and optionally references the wallet that invited it.
type Wallet struct {
	Wallet     string
	InviteCode string
	Referrer   string
	IsAdmin    bool
	CreatedAt  time.Time
}
