package domain

// Default texts used when the owner has not customized a message. The
// platform's audience is Uzbek-speaking, matching the stock bot templates.
const (
	DefaultReferralMessage    = "Do'stlaringizni taklif qiling!"
	DefaultReferralButtonText = "Qo'shilish"

	DefaultPhoneRequestMessage = "🎉 Juda yaxshi!\n\n" +
		"Sizga bog'lana olishimiz uchun pastdagi \"📲 Raqamni ulashish\" tugmasini bosib " +
		"telefon raqamingizni yuboring."

	DefaultPhonePostMessage = "🎉 Xush kelibsiz!\n\n" +
		"✅ Barcha tekshiruvlar muvaffaqiyatli o'tdi!\n\n" +
		"🏆 Endi konkursda ishtirok eta olasiz!\n" +
		"👇 Quyidagi tugmalardan birini tanlang:"

	DefaultSubscriptionMessage = "📺 Botdan foydalanish uchun quyidagi kanallarga obuna bo'ling:\n\n" +
		"{channels}\n\n" +
		"1️⃣ Avvalo kanallarga qo'shiling.\n" +
		"2️⃣ So'ng \"✅ Bajarildi\" tugmasini bosing."

	DefaultReferralShareText = "🎁 Do'stlaringizni taklif qiling va bonus ballar oling!\n\n" +
		"👥 Har bir do'stingiz uchun +1 ball\n" +
		"🔗 Sizning referral havolangiz:\n{link}\n\n" +
		"📊 Hozircha {count} ta do'stingiz ro'yxatdan o'tdi"

	DefaultReferralFollowupText = "☝️ Yuqoridagi havolani do'stlaringizga yuboring\n" +
		"✅ Har kim sizning havolangiz orqali botga kirsa, siz +1 ball olasiz!"
)

// BotSettings is the typed view of a child bot's configuration row. Optional
// text fields stay empty in storage; ResolveDefaults fills them once at load
// so handlers never consult fallbacks themselves.
type BotSettings struct {
	BotID                  int64
	WelcomeMessage         string
	WelcomeMedia           string
	WelcomeMediaType       string
	PhoneRequired          bool
	PhoneRequestMessage    string
	PhonePostMessage       string
	SubscriptionEnabled    bool
	SubscriptionMessage    string
	ReferralEnabled        bool
	ReferralMessage        string
	ReferralShareText      string
	ReferralShareMedia     string
	ReferralShareMediaType string
	ReferralButtonText     string
	ReferralFollowupText   string
	GuideText              string
	GuideMedia             string
	GuideMediaType         string
	BroadcastEnabled       bool
	AutoApprove            bool
	MaxSubmissionsPerUser  int
	AdminIDs               []int64
}

// ResolveDefaults fills empty optional fields with the stock templates.
// Repositories call it right after scanning so the rest of the code sees a
// fully populated struct.
func (s *BotSettings) ResolveDefaults() {
	if s.PhoneRequestMessage == "" {
		s.PhoneRequestMessage = DefaultPhoneRequestMessage
	}
	if s.PhonePostMessage == "" {
		s.PhonePostMessage = DefaultPhonePostMessage
	}
	if s.SubscriptionMessage == "" {
		s.SubscriptionMessage = DefaultSubscriptionMessage
	}
	if s.ReferralMessage == "" {
		s.ReferralMessage = DefaultReferralMessage
	}
	if s.ReferralShareText == "" {
		s.ReferralShareText = DefaultReferralShareText
	}
	if s.ReferralButtonText == "" {
		s.ReferralButtonText = DefaultReferralButtonText
	}
	if s.ReferralFollowupText == "" {
		s.ReferralFollowupText = DefaultReferralFollowupText
	}
	if s.MaxSubmissionsPerUser <= 0 {
		s.MaxSubmissionsPerUser = 1
	}
}

// IsAdmin reports whether userID is a delegated admin of this bot.
// The bot owner is checked separately against Bot.OwnerID.
func (s *BotSettings) IsAdmin(userID int64) bool {
	for _, id := range s.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// SettingsUpdate carries a partial settings change; nil fields are left
// untouched by Update.
type SettingsUpdate struct {
	WelcomeMessage       *string
	WelcomeMedia         *string
	WelcomeMediaType     *string
	PhoneRequired        *bool
	PhoneRequestMessage  *string
	PhonePostMessage     *string
	SubscriptionEnabled  *bool
	SubscriptionMessage  *string
	ReferralEnabled      *bool
	ReferralMessage      *string
	ReferralShareText    *string
	ReferralButtonText   *string
	ReferralFollowupText *string
	GuideText            *string
	GuideMedia           *string
	GuideMediaType       *string
	BroadcastEnabled     *bool
}
