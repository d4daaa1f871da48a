// Package validate holds input checks for owner-supplied values: bot tokens,
// channel identifiers and display names.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// Telegram bot tokens look like "1234567890:AAEhBOweik6ad9r_QXMENQjcjGcqk9S1K_w".
	tokenRe = regexp.MustCompile(`^\d{8,10}:[A-Za-z0-9_-]{35}$`)

	channelRe = regexp.MustCompile(`^@[A-Za-z0-9_]{5,}$`)

	phoneRe = regexp.MustCompile(`^\+?\d{10,15}$`)

	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// BotToken reports whether s is a well-formed telegram bot token. This is a
// shape check only; the token is proven live by calling getMe.
func BotToken(s string) bool {
	return tokenRe.MatchString(strings.TrimSpace(s))
}

// ChannelID reports whether s is a usable channel identifier: either a
// @username or a numeric chat id (possibly starting with -100).
func ChannelID(s string) bool {
	s = strings.TrimSpace(s)
	if channelRe.MatchString(s) {
		return true
	}
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// BotName reports whether s is acceptable as a bot display name:
// 3 to 100 runes after trimming.
func BotName(s string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n >= 3 && n <= 100
}

// Title reports whether s works as a contest title.
func Title(s string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n >= 3 && n <= 100
}

// Phone reports whether s is a plausible phone number once common
// separators are stripped.
func Phone(s string) bool {
	return phoneRe.MatchString(phoneSeparators.Replace(strings.TrimSpace(s)))
}
