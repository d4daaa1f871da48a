package childbot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/domain"
	"github.com/bekzod-dev/botforge/internal/session"
)

const (
	gateBotID   = int64(5)
	gateOwnerID = int64(100)
	gateUserID  = int64(200)
)

func TestAdvance_SubscribedUserFallsThroughToPhone(t *testing.T) {
	settings := gateSettings()
	b, _ := newGateBot(t, settings, []domain.Channel{{BotID: gateBotID, ChannelID: "@kanal"}})
	b.memberOf = memberWithRole(telebot.Member)

	c := startContext(gateUserID, "")
	sess := resetSession(t, b)

	require.NoError(t, b.advance(c, sess, settings))

	assert.Equal(t, []interface{}{"share your phone"}, sentTexts(c))
	assert.Equal(t, session.StepPhone, storedSession(t, b).Step)
}

func TestAdvance_UnjoinedUserGetsSubscriptionPrompt(t *testing.T) {
	settings := gateSettings()
	b, _ := newGateBot(t, settings, []domain.Channel{{BotID: gateBotID, ChannelID: "@kanal"}})
	b.memberOf = memberWithRole(telebot.Left)

	c := startContext(gateUserID, "")
	sess := resetSession(t, b)

	require.NoError(t, b.advance(c, sess, settings))

	texts := sentTexts(c)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "1. @kanal")
	assert.Equal(t, session.StepSubscription, storedSession(t, b).Step)
}

func TestAdvance_UnreachableChannelCountsAsUnjoined(t *testing.T) {
	settings := gateSettings()
	b, _ := newGateBot(t, settings, []domain.Channel{{BotID: gateBotID, ChannelID: "@kanal"}})
	b.memberOf = func(chat, user telebot.Recipient) (*telebot.ChatMember, error) {
		return nil, errors.New("chat not found")
	}

	c := startContext(gateUserID, "")
	sess := resetSession(t, b)

	require.NoError(t, b.advance(c, sess, settings))

	texts := sentTexts(c)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "1. @kanal")
	assert.Equal(t, session.StepSubscription, storedSession(t, b).Step)
}

func TestAdvance_VerifiedPhoneOpensMainMenu(t *testing.T) {
	settings := gateSettings()
	b, _ := newGateBot(t, settings, []domain.Channel{{BotID: gateBotID, ChannelID: "@kanal"}})
	b.memberOf = memberWithRole(telebot.Member)

	c := startContext(gateUserID, "")
	sess := resetSession(t, b)
	sess.PhoneVerified = true

	require.NoError(t, b.advance(c, sess, settings))

	assert.Equal(t, []interface{}{"welcome aboard"}, sentTexts(c))
	assert.Equal(t, session.StepDone, storedSession(t, b).Step)
}

func TestAdvance_DelegatedAdminSkipsGate(t *testing.T) {
	settings := gateSettings()
	settings.AdminIDs = []int64{gateUserID}
	b, _ := newGateBot(t, settings, []domain.Channel{{BotID: gateBotID, ChannelID: "@kanal"}})
	b.memberOf = func(chat, user telebot.Recipient) (*telebot.ChatMember, error) {
		t.Error("membership lookup should be skipped for admins")
		return nil, errors.New("unexpected lookup")
	}

	c := startContext(gateUserID, "")
	sess := resetSession(t, b)

	require.NoError(t, b.advance(c, sess, settings))

	texts := sentTexts(c)
	require.Len(t, texts, 2)
	assert.Equal(t, "gate.admin_shortcut", texts[0])
	assert.Equal(t, "welcome aboard", texts[1])
	assert.Equal(t, session.StepDone, storedSession(t, b).Step)
}

func TestHandleStart_PhoneReverifiedEveryEntry(t *testing.T) {
	settings := gateSettings()
	settings.SubscriptionEnabled = false
	b, _ := newGateBot(t, settings, nil)

	done := &session.Session{BotID: gateBotID, UserID: gateUserID, Step: session.StepDone, PhoneVerified: true}
	require.NoError(t, b.deps.Sessions.Save(context.Background(), done))

	c := startContext(gateUserID, "/start")
	require.NoError(t, b.handleStart(c))

	assert.Equal(t, []interface{}{"share your phone"}, sentTexts(c))
	stored := storedSession(t, b)
	assert.Equal(t, session.StepPhone, stored.Step)
	assert.False(t, stored.PhoneVerified)
}

func TestHandleContact_RejectsForeignContact(t *testing.T) {
	settings := gateSettings()
	b, users := newGateBot(t, settings, nil)

	c := startContext(gateUserID, "")
	c.message.Contact = &telebot.Contact{UserID: gateUserID + 1, PhoneNumber: "+998901234567"}

	require.NoError(t, b.handleContact(c))

	assert.Equal(t, []interface{}{"gate.phone_foreign"}, sentTexts(c))
	assert.Empty(t, users.updatedPhone)
}

func TestHandleContact_StoresOwnPhoneAndFinishesGate(t *testing.T) {
	settings := gateSettings()
	settings.SubscriptionEnabled = false
	b, users := newGateBot(t, settings, nil)

	resetSession(t, b)

	c := startContext(gateUserID, "")
	c.message.Contact = &telebot.Contact{UserID: gateUserID, PhoneNumber: "+998901234567"}

	require.NoError(t, b.handleContact(c))

	assert.Equal(t, "+998901234567", users.updatedPhone)
	assert.Equal(t, []interface{}{"welcome aboard"}, sentTexts(c))
	assert.Equal(t, session.StepDone, storedSession(t, b).Step)
}

func TestGuard_RecoversHandlerPanic(t *testing.T) {
	b, _ := newGateBot(t, gateSettings(), nil)

	h := b.guard(func(c telebot.Context) error {
		panic("boom")
	})

	c := startContext(gateUserID, "")
	require.NoError(t, h(c))

	assert.Equal(t, []interface{}{"common.error"}, sentTexts(c))
}

func TestGuard_TurnsHandlerErrorIntoReply(t *testing.T) {
	b, _ := newGateBot(t, gateSettings(), nil)

	h := b.guard(func(c telebot.Context) error {
		return errors.New("db down")
	})

	c := startContext(gateUserID, "")
	require.NoError(t, h(c))

	assert.Equal(t, []interface{}{"common.error"}, sentTexts(c))
}

// newGateBot builds a Bot around stub repositories and a miniredis-backed
// session store, without dialing the Telegram API.
func newGateBot(t *testing.T, settings *domain.BotSettings, channels []domain.Channel) (*Bot, *stubUserRepo) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := &stubUserRepo{}

	b := &Bot{
		meta: &domain.Bot{ID: gateBotID, OwnerID: gateOwnerID, Username: "contest_bot"},
		deps: Deps{
			Users:      users,
			BotUsers:   stubBotUserRepo{},
			Settings:   stubSettingsRepo{settings: settings},
			Channels:   stubChannelRepo{list: channels},
			Sessions:   session.NewStore(client, log),
			Translator: keyTranslator{},
			Log:        log,
		},
		log: log,
		memberOf: func(chat, user telebot.Recipient) (*telebot.ChatMember, error) {
			return &telebot.ChatMember{Role: telebot.Member}, nil
		},
	}
	return b, users
}

func gateSettings() *domain.BotSettings {
	return &domain.BotSettings{
		BotID:               gateBotID,
		WelcomeMessage:      "welcome aboard",
		PhoneRequired:       true,
		PhoneRequestMessage: "share your phone",
		SubscriptionEnabled: true,
		SubscriptionMessage: "{channels}",
	}
}

func memberWithRole(role telebot.MemberStatus) func(chat, user telebot.Recipient) (*telebot.ChatMember, error) {
	return func(chat, user telebot.Recipient) (*telebot.ChatMember, error) {
		return &telebot.ChatMember{Role: role}, nil
	}
}

func resetSession(t *testing.T, b *Bot) *session.Session {
	t.Helper()
	sess, err := b.deps.Sessions.Reset(context.Background(), gateBotID, gateUserID)
	require.NoError(t, err)
	return sess
}

func storedSession(t *testing.T, b *Bot) *session.Session {
	t.Helper()
	sess, err := b.deps.Sessions.Get(context.Background(), gateBotID, gateUserID)
	require.NoError(t, err)
	return sess
}

func startContext(userID int64, text string) *fakeContext {
	return &fakeContext{
		sender:  &telebot.User{ID: userID, FirstName: "Ali"},
		message: &telebot.Message{Text: text},
	}
}

func sentTexts(c *fakeContext) []interface{} {
	return c.sent
}

// fakeContext implements the handful of telebot.Context methods the gate
// touches; everything else panics through the embedded nil interface.
type fakeContext struct {
	telebot.Context

	sender   *telebot.User
	message  *telebot.Message
	callback *telebot.Callback
	sent     []interface{}
	alerts   []*telebot.CallbackResponse
}

func (f *fakeContext) Sender() *telebot.User       { return f.sender }
func (f *fakeContext) Message() *telebot.Message   { return f.message }
func (f *fakeContext) Callback() *telebot.Callback { return f.callback }

func (f *fakeContext) Text() string {
	if f.message == nil {
		return ""
	}
	return f.message.Text
}

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func (f *fakeContext) Respond(resp ...*telebot.CallbackResponse) error {
	f.alerts = append(f.alerts, resp...)
	return nil
}

type stubUserRepo struct {
	updatedPhone string
}

func (s *stubUserRepo) FindByTelegramID(ctx context.Context, id int64) (*domain.User, error) {
	return &domain.User{ID: 1, TelegramID: id}, nil
}

func (s *stubUserRepo) Upsert(ctx context.Context, u *domain.User) (*domain.User, error) {
	u.ID = 1
	return u, nil
}

func (s *stubUserRepo) UpdatePhone(ctx context.Context, id int64, phone string) error {
	s.updatedPhone = phone
	return nil
}

func (s *stubUserRepo) TouchLastActive(ctx context.Context, id int64) error { return nil }

func (s *stubUserRepo) CountAll(ctx context.Context) (int64, error) { return 0, nil }
func (s *stubUserRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return 0, nil
}

type stubBotUserRepo struct{}

func (stubBotUserRepo) Upsert(ctx context.Context, botID, userID int64) error { return nil }
func (stubBotUserRepo) ListTelegramIDs(ctx context.Context, botID int64) ([]int64, error) {
	return nil, nil
}
func (stubBotUserRepo) Count(ctx context.Context, botID int64) (int64, error) { return 0, nil }
func (stubBotUserRepo) CountSince(ctx context.Context, botID int64, interval string) (int64, error) {
	return 0, nil
}
func (stubBotUserRepo) ListUsers(ctx context.Context, botID int64) ([]domain.User, error) {
	return nil, nil
}

type stubSettingsRepo struct {
	settings *domain.BotSettings
}

func (s stubSettingsRepo) Get(ctx context.Context, botID int64) (*domain.BotSettings, error) {
	return s.settings, nil
}

func (s stubSettingsRepo) Update(ctx context.Context, botID int64, upd domain.SettingsUpdate) error {
	return nil
}

func (s stubSettingsRepo) AddAdmin(ctx context.Context, botID, userID int64) error    { return nil }
func (s stubSettingsRepo) RemoveAdmin(ctx context.Context, botID, userID int64) error { return nil }

type stubChannelRepo struct {
	list []domain.Channel
}

func (s stubChannelRepo) Add(ctx context.Context, ch *domain.Channel) (*domain.Channel, error) {
	return ch, nil
}

func (s stubChannelRepo) ListByBot(ctx context.Context, botID int64) ([]domain.Channel, error) {
	return s.list, nil
}

func (s stubChannelRepo) Remove(ctx context.Context, botID int64, channelID string) error {
	return nil
}

type keyTranslator struct{}

func (keyTranslator) T(key string) string { return key }
func (keyTranslator) Lang() string        { return "uz" }
