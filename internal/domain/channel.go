package domain

import "time"

// Channel is a telegram channel a child bot's users must join before the
// onboarding gate lets them through. The identifier is either a @username or
// a numeric chat id stored as text.
type Channel struct {
	ID        int64
	BotID     int64
	ChannelID string
	Title     string
	InviteURL string
	CreatedAt time.Time
}

// Link returns the URL shown on the join button. An explicit invite link wins;
// otherwise a t.me link is derived from a @username identifier.
func (c *Channel) Link() string {
	if c.InviteURL != "" {
		return c.InviteURL
	}
	if len(c.ChannelID) > 0 && c.ChannelID[0] == '@' {
		return "https://t.me/" + c.ChannelID[1:]
	}
	return ""
}

// DisplayName returns a human readable name for subscription prompts.
func (c *Channel) DisplayName() string {
	if c.Title != "" {
		return c.Title
	}
	return c.ChannelID
}
