package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// InlineButton is one button: visible text plus the callback data the
// router matches by prefix.
type InlineButton struct {
	Text string
	Data string
}

// InlineKeyboardBuilder collects rows and renders telebot markup.
type InlineKeyboardBuilder struct {
	rows [][]telebot.InlineButton
}

func NewInlineKeyboard() *InlineKeyboardBuilder {
	return &InlineKeyboardBuilder{}
}

// AddRow appends one row. An empty call is a no-op so callers can
// build rows conditionally without tracking emptiness themselves.
func (b *InlineKeyboardBuilder) AddRow(buttons ...InlineButton) *InlineKeyboardBuilder {
	if len(buttons) == 0 {
		return b
	}

	row := make([]telebot.InlineButton, len(buttons))
	for i, btn := range buttons {
		row[i] = telebot.InlineButton{Text: btn.Text, Data: btn.Data}
	}
	b.rows = append(b.rows, row)
	return b
}

func (b *InlineKeyboardBuilder) Build() *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{InlineKeyboard: b.rows}
}
