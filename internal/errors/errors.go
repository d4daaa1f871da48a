// Package errors defines the error type the whole builder speaks.
// Every failure a handler returns is an AppError: the Message goes to
// logs and Sentry, the UserMessage goes to the chat in Uzbek.
package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func (e *AppError) Cause() error { return e.Unwrap() }

// NewValidationError covers bad user input: malformed tokens, channel
// handles, contest lines. Never retried, always the user's turn.
func NewValidationError(msg, userMsg string) *AppError {
	if userMsg == "" {
		userMsg = "❌ Noto'g'ri format. Qaytadan urinib ko'ring."
	}
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: userMsg,
		Severity:    SeverityLow,
	}
}

// NewDatabaseError wraps a Postgres failure. Retryable: most are
// transient connection drops.
func NewDatabaseError(cause error) *AppError {
	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("database: %v", cause),
		UserMessage: "❌ Xatolik yuz berdi. Keyinroq urinib ko'ring.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewTelegramError wraps a Bot API failure for the named operation.
func NewTelegramError(operation string, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     "telegram api: " + operation,
		UserMessage: "❌ Telegram bilan bog'lanishda xatolik. Keyinroq urinib ko'ring.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewStateError means the update does not fit the user's current
// conversation state.
func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: "❌ Bu amalni hozir bajarib bo'lmaydi. /cancel bilan boshqatdan boshlang.",
		Severity:    SeverityMedium,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     fmt.Sprintf("rate limited, retry in %ds", retryAfter),
		UserMessage: fmt.Sprintf("⏳ Juda ko'p so'rov. %d soniyadan keyin urinib ko'ring.", retryAfter),
		Severity:    SeverityLow,
	}
}

func NewBotLimitError(max int) *AppError {
	return &AppError{
		Code:        "E600",
		Message:     fmt.Sprintf("owner already has %d bots", max),
		UserMessage: fmt.Sprintf("❌ Siz maksimal %d ta bot yaratgansiz.", max),
		Severity:    SeverityLow,
	}
}
