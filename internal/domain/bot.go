package domain

import (
	"strconv"
	"time"
)

// Bot is a registered child bot run by the platform on behalf of its owner.
type Bot struct {
	ID            int64
	OwnerID       int64
	Token         string
	Name          string
	Username      string
	Description   string
	TelegramBotID int64
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReferralLink builds the deep link that attributes new starts to userID.
func (b *Bot) ReferralLink(userID int64) string {
	return "https://t.me/" + b.Username + "?start=ref_" + strconv.FormatInt(userID, 10)
}
