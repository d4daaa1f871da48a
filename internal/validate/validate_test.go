package validate

import "testing"

func TestBotToken(t *testing.T) {
	testCases := []struct {
		name     string
		token    string
		expected bool
	}{
		{name: "valid 10-digit id", token: "1234567890:AAEhBOweik6ad9r_QXMENQjcjGcqk9S1Kw_", expected: true},
		{name: "valid 8-digit id", token: "12345678:AAEhBOweik6ad9r_QXMENQjcjGcqk9S1Kw_", expected: true},
		{name: "surrounding whitespace trimmed", token: "  1234567890:AAEhBOweik6ad9r_QXMENQjcjGcqk9S1Kw_ ", expected: true},
		{name: "hash too short", token: "1234567890:AAEhBOweik6ad9r_QXMENQjcjGcqk9S1Kw", expected: false},
		{name: "hash too long", token: "1234567890:AAEhBOweik6ad9r_QXMENQjcjGcqk9S1Kw_x", expected: false},
		{name: "id too short", token: "1234567:AAEhBOweik6ad9r_QXMENQjcjGcqk9S1Kw_", expected: false},
		{name: "missing colon", token: "1234567890AAEhBOweik6ad9r_QXMENQjcjGcqk9S1Kw_", expected: false},
		{name: "illegal character in hash", token: "1234567890:AAEhBOweik6ad9r QXMENQjcjGcqk9S1Kw_", expected: false},
		{name: "empty", token: "", expected: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := BotToken(tc.token); actual != tc.expected {
				t.Errorf("BotToken(%q) = %t, expected %t", tc.token, actual, tc.expected)
			}
		})
	}
}

func TestChannelID(t *testing.T) {
	testCases := []struct {
		name     string
		id       string
		expected bool
	}{
		{name: "username", id: "@mychannel", expected: true},
		{name: "username with digits", id: "@news_24_uz", expected: true},
		{name: "numeric chat id", id: "-1001234567890", expected: true},
		{name: "positive numeric id", id: "1234567890", expected: true},
		{name: "username too short", id: "@abcd", expected: false},
		{name: "missing at sign", id: "mychannel", expected: false},
		{name: "bare dash", id: "-", expected: false},
		{name: "empty", id: "", expected: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := ChannelID(tc.id); actual != tc.expected {
				t.Errorf("ChannelID(%q) = %t, expected %t", tc.id, actual, tc.expected)
			}
		})
	}
}

func TestBotName(t *testing.T) {
	long := make([]byte, 0, 101)
	for i := 0; i < 101; i++ {
		long = append(long, 'a')
	}

	testCases := []struct {
		name     string
		value    string
		expected bool
	}{
		{name: "simple", value: "Konkurs bot", expected: true},
		{name: "three runes", value: "Bot", expected: true},
		{name: "cyrillic", value: "Конкурс бот", expected: true},
		{name: "hundred runes", value: string(long[:100]), expected: true},
		{name: "too short", value: "Ab", expected: false},
		{name: "only spaces", value: "   ", expected: false},
		{name: "too long", value: string(long), expected: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := BotName(tc.value); actual != tc.expected {
				t.Errorf("BotName(%q) = %t, expected %t", tc.value, actual, tc.expected)
			}
		})
	}
}

func TestTitle(t *testing.T) {
	long := make([]byte, 0, 101)
	for i := 0; i < 101; i++ {
		long = append(long, 'a')
	}

	testCases := []struct {
		name     string
		value    string
		expected bool
	}{
		{name: "simple", value: "Yozgi konkurs", expected: true},
		{name: "minimum length", value: "abc", expected: true},
		{name: "too short", value: "ab", expected: false},
		{name: "only spaces", value: "    ", expected: false},
		{name: "too long", value: string(long), expected: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := Title(tc.value); actual != tc.expected {
				t.Errorf("Title(%q) = %t, expected %t", tc.value, actual, tc.expected)
			}
		})
	}
}

func TestPhone(t *testing.T) {
	testCases := []struct {
		name     string
		value    string
		expected bool
	}{
		{name: "international", value: "+998901234567", expected: true},
		{name: "without plus", value: "998901234567", expected: true},
		{name: "with separators", value: "+998 (90) 123-45-67", expected: true},
		{name: "too short", value: "+99890123", expected: false},
		{name: "too long", value: "+9989012345678901", expected: false},
		{name: "letters", value: "+99890abc4567", expected: false},
		{name: "empty", value: "", expected: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := Phone(tc.value); actual != tc.expected {
				t.Errorf("Phone(%q) = %t, expected %t", tc.value, actual, tc.expected)
			}
		})
	}
}
