package domain

import "time"

// Referral is a ledger row: referrer invited referred into a specific bot.
// Each referred user is counted at most once per bot; later claims by other
// referrers are ignored.
type Referral struct {
	ID         int64
	BotID      int64
	ReferrerID int64
	ReferredID int64
	CreatedAt  time.Time
}

// ReferralCount pairs a referrer with their total inside one bot, used for
// leaderboards and the owner's stats view.
type ReferralCount struct {
	ReferrerID int64
	FirstName  string
	Username   string
	Count      int64
}
