package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/bekzod-dev/botforge/internal/domain"
)

type mockBots struct{ mock.Mock }

func (m *mockBots) Create(ctx context.Context, bot *domain.Bot) (*domain.Bot, error) {
	args := m.Called(ctx, bot)
	return args.Get(0).(*domain.Bot), args.Error(1)
}

func (m *mockBots) FindByID(ctx context.Context, id int64) (*domain.Bot, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.Bot), args.Error(1)
}

func (m *mockBots) FindByToken(ctx context.Context, token string) (*domain.Bot, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(*domain.Bot), args.Error(1)
}

func (m *mockBots) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Bot, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]domain.Bot), args.Error(1)
}

func (m *mockBots) ListActive(ctx context.Context) ([]domain.Bot, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Bot), args.Error(1)
}

func (m *mockBots) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBots) CountAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBots) SetActive(ctx context.Context, id int64, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

func (m *mockBots) UpdateName(ctx context.Context, id int64, name string) error {
	return m.Called(ctx, id, name).Error(0)
}

func (m *mockBots) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockBotUsers struct{ mock.Mock }

func (m *mockBotUsers) Upsert(ctx context.Context, botID, userID int64) error {
	return m.Called(ctx, botID, userID).Error(0)
}

func (m *mockBotUsers) ListTelegramIDs(ctx context.Context, botID int64) ([]int64, error) {
	args := m.Called(ctx, botID)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *mockBotUsers) Count(ctx context.Context, botID int64) (int64, error) {
	args := m.Called(ctx, botID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBotUsers) CountSince(ctx context.Context, botID int64, interval string) (int64, error) {
	args := m.Called(ctx, botID, interval)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBotUsers) ListUsers(ctx context.Context, botID int64) ([]domain.User, error) {
	args := m.Called(ctx, botID)
	return args.Get(0).([]domain.User), args.Error(1)
}

type mockBroadcasts struct{ mock.Mock }

func (m *mockBroadcasts) Create(ctx context.Context, b *domain.Broadcast) (*domain.Broadcast, error) {
	args := m.Called(ctx, b)
	return args.Get(0).(*domain.Broadcast), args.Error(1)
}

func (m *mockBroadcasts) FindByID(ctx context.Context, id int64) (*domain.Broadcast, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.Broadcast), args.Error(1)
}

func (m *mockBroadcasts) MarkRunning(ctx context.Context, id int64, total int64) error {
	return m.Called(ctx, id, total).Error(0)
}

func (m *mockBroadcasts) Finish(ctx context.Context, id int64, status domain.BroadcastStatus, sent, failed int64) error {
	return m.Called(ctx, id, status, sent, failed).Error(0)
}

func (m *mockBroadcasts) CountByBot(ctx context.Context, botID int64) (int64, error) {
	args := m.Called(ctx, botID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBroadcasts) ListByBot(ctx context.Context, botID int64, limit int) ([]domain.Broadcast, error) {
	args := m.Called(ctx, botID, limit)
	return args.Get(0).([]domain.Broadcast), args.Error(1)
}

type fakeDeliverer struct {
	sent    []int64
	failFor map[int64]bool
}

func (f *fakeDeliverer) Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	id := to.(*telebot.User).ID
	if f.failFor[id] {
		return nil, errors.New("blocked by user")
	}
	f.sent = append(f.sent, id)
	return &telebot.Message{}, nil
}

type fakeProvider struct {
	deliverer Deliverer
	err       error
}

func (f *fakeProvider) Deliverer(ctx context.Context, bot *domain.Bot) (Deliverer, error) {
	return f.deliverer, f.err
}

type staticTranslator struct{}

func (staticTranslator) T(key string) string { return "sent %d failed %d" }
func (staticTranslator) Lang() string        { return "uz" }

func TestSender_Run_TalliesAndNotifies(t *testing.T) {
	ctx := context.Background()

	bots := new(mockBots)
	botUsers := new(mockBotUsers)
	broadcasts := new(mockBroadcasts)
	deliverer := &fakeDeliverer{failFor: map[int64]bool{20: true}}

	draft := &domain.Broadcast{ID: 1, BotID: 5, SenderID: 99, Text: "salom", Status: domain.BroadcastPending}
	broadcasts.On("FindByID", ctx, int64(1)).Return(draft, nil)
	bots.On("FindByID", ctx, int64(5)).Return(&domain.Bot{ID: 5, Token: "t"}, nil)
	botUsers.On("ListTelegramIDs", ctx, int64(5)).Return([]int64{10, 20, 30}, nil)
	broadcasts.On("MarkRunning", ctx, int64(1), int64(3)).Return(nil)
	broadcasts.On("Finish", ctx, int64(1), domain.BroadcastFinished, int64(2), int64(1)).Return(nil)

	var notified int64
	notify := func(chatID int64, text string) error {
		notified = chatID
		return nil
	}

	s := NewSender(bots, botUsers, broadcasts, &fakeProvider{deliverer: deliverer}, notify, staticTranslator{}, 2, time.Millisecond, nil)

	require.NoError(t, s.Run(ctx, 1))

	assert.Equal(t, []int64{10, 30}, deliverer.sent)
	assert.Equal(t, int64(99), notified)
	broadcasts.AssertExpectations(t)
}

func TestSender_Run_SkipsAlreadyProcessed(t *testing.T) {
	ctx := context.Background()

	bots := new(mockBots)
	botUsers := new(mockBotUsers)
	broadcasts := new(mockBroadcasts)

	done := &domain.Broadcast{ID: 2, BotID: 5, Status: domain.BroadcastFinished}
	broadcasts.On("FindByID", ctx, int64(2)).Return(done, nil)

	s := NewSender(bots, botUsers, broadcasts, &fakeProvider{}, nil, staticTranslator{}, 30, time.Second, nil)

	require.NoError(t, s.Run(ctx, 2))

	broadcasts.AssertNotCalled(t, "MarkRunning", mock.Anything, mock.Anything, mock.Anything)
	bots.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestSender_Run_ProviderFailureMarksFailed(t *testing.T) {
	ctx := context.Background()

	bots := new(mockBots)
	botUsers := new(mockBotUsers)
	broadcasts := new(mockBroadcasts)

	draft := &domain.Broadcast{ID: 3, BotID: 5, Status: domain.BroadcastPending}
	broadcasts.On("FindByID", ctx, int64(3)).Return(draft, nil)
	bots.On("FindByID", ctx, int64(5)).Return(&domain.Bot{ID: 5}, nil)
	botUsers.On("ListTelegramIDs", ctx, int64(5)).Return([]int64{1}, nil)
	broadcasts.On("MarkRunning", ctx, int64(3), int64(1)).Return(nil)
	broadcasts.On("Finish", ctx, int64(3), domain.BroadcastFailed, int64(0), int64(0)).Return(nil)

	s := NewSender(bots, botUsers, broadcasts, &fakeProvider{err: errors.New("token revoked")}, nil, staticTranslator{}, 30, time.Second, nil)

	require.Error(t, s.Run(ctx, 3))
	broadcasts.AssertExpectations(t)
}

func TestBuildContent(t *testing.T) {
	photo := buildContent(&domain.Broadcast{Text: "caption", MediaID: "f1", MediaType: "photo"})
	p, ok := photo.(*telebot.Photo)
	require.True(t, ok)
	assert.Equal(t, "caption", p.Caption)
	assert.Equal(t, "f1", p.FileID)

	text := buildContent(&domain.Broadcast{Text: "plain"})
	assert.Equal(t, "plain", text)
}
