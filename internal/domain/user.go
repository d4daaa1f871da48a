package domain

import "time"

// User represents a Telegram user known to the platform. A single row is
// shared across every child bot; per-bot interaction data lives in BotUser.
type User struct {
	ID          int64
	TelegramID  int64
	FirstName   string
	LastName    string
	Username    string
	PhoneNumber string
	CreatedAt   time.Time
	LastActive  time.Time
}

// FullName joins first and last name the way exports and admin views show it.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// BotUser tracks when a user interacted with a specific child bot. Broadcast
// targeting is driven by these rows.
type BotUser struct {
	BotID            int64
	UserID           int64
	FirstInteraction time.Time
	LastInteraction  time.Time
}
