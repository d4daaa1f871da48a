package export

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bekzod-dev/botforge/internal/domain"
)

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

type mockReferrals struct{ mock.Mock }

func (m *mockReferrals) Record(ctx context.Context, botID, referrerID, referredID int64) (bool, error) {
	args := m.Called(ctx, botID, referrerID, referredID)
	return args.Bool(0), args.Error(1)
}

func (m *mockReferrals) CountByReferrer(ctx context.Context, botID, referrerID int64) (int64, error) {
	args := m.Called(ctx, botID, referrerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReferrals) CountByBot(ctx context.Context, botID int64) (int64, error) {
	args := m.Called(ctx, botID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReferrals) Top(ctx context.Context, botID int64, limit int) ([]domain.ReferralCount, error) {
	args := m.Called(ctx, botID, limit)
	return args.Get(0).([]domain.ReferralCount), args.Error(1)
}

type mockContests struct{ mock.Mock }

func (m *mockContests) Create(ctx context.Context, c *domain.Contest) (*domain.Contest, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(*domain.Contest), args.Error(1)
}

func (m *mockContests) FindByID(ctx context.Context, id int64) (*domain.Contest, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*domain.Contest), args.Error(1)
}

func (m *mockContests) ListByBot(ctx context.Context, botID int64) ([]domain.Contest, error) {
	args := m.Called(ctx, botID)
	return args.Get(0).([]domain.Contest), args.Error(1)
}

func (m *mockContests) ListActive(ctx context.Context, botID int64) ([]domain.Contest, error) {
	args := m.Called(ctx, botID)
	return args.Get(0).([]domain.Contest), args.Error(1)
}

func (m *mockContests) CountActive(ctx context.Context, botID int64) (int64, error) {
	args := m.Called(ctx, botID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockContests) CountAllActive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockContests) CountAllSubmissions(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockContests) SetStatus(ctx context.Context, id int64, status domain.ContestStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockContests) Join(ctx context.Context, contestID, userID int64) (bool, error) {
	args := m.Called(ctx, contestID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockContests) CountParticipants(ctx context.Context, contestID int64) (int64, error) {
	args := m.Called(ctx, contestID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockContests) IsParticipant(ctx context.Context, contestID, userID int64) (bool, error) {
	args := m.Called(ctx, contestID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockContests) Participants(ctx context.Context, contestID int64) ([]domain.Entrant, error) {
	args := m.Called(ctx, contestID)
	return args.Get(0).([]domain.Entrant), args.Error(1)
}

func (m *mockContests) RandomParticipants(ctx context.Context, contestID int64, limit int) ([]int64, error) {
	args := m.Called(ctx, contestID, limit)
	return args.Get(0).([]int64), args.Error(1)
}

func (m *mockContests) AddSubmission(ctx context.Context, s *domain.Submission) (*domain.Submission, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(*domain.Submission), args.Error(1)
}

func (m *mockContests) CountSubmissions(ctx context.Context, contestID, userID int64) (int64, error) {
	args := m.Called(ctx, contestID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockContests) AddWinner(ctx context.Context, w *domain.Winner) error {
	return m.Called(ctx, w).Error(0)
}

func (m *mockContests) ListWinners(ctx context.Context, contestID int64) ([]domain.Winner, error) {
	args := m.Called(ctx, contestID)
	return args.Get(0).([]domain.Winner), args.Error(1)
}

func TestService_Audience(t *testing.T) {
	ctx := context.Background()

	botUsers := new(mockBotUsers)
	referrals := new(mockReferrals)

	joined := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	botUsers.On("ListUsers", ctx, int64(7)).Return([]domain.User{
		{TelegramID: 111, FirstName: "Ali", LastName: "Valiyev", Username: "alivaliyev", PhoneNumber: "+998901234567", CreatedAt: joined},
		{TelegramID: 222, FirstName: "Gulnora", CreatedAt: joined},
	}, nil)
	referrals.On("Top", ctx, int64(7), topReferrersLimit).Return([]domain.ReferralCount{
		{ReferrerID: 111, FirstName: "Ali", Username: "alivaliyev", Count: 4},
	}, nil)
	contests := new(mockContests)
	contests.On("ListByBot", ctx, int64(7)).Return([]domain.Contest{
		{ID: 3, BotID: 7, Title: "Yozgi konkurs", Status: domain.ContestActive},
	}, nil)
	contests.On("Participants", ctx, int64(3)).Return([]domain.Entrant{
		{TelegramID: 111, FirstName: "Ali", Username: "alivaliyev", PhoneNumber: "+998901234567", JoinedAt: joined, Submissions: 2},
	}, nil)

	svc := NewService(botUsers, referrals, contests, nil)

	buf, name, err := svc.Audience(ctx, &domain.Bot{ID: 7, Username: "konkursbot"})
	require.NoError(t, err)
	assert.Contains(t, name, "konkursbot")
	assert.Contains(t, name, ".xlsx")

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetCellValue(audienceSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "111", got)

	phone, err := f.GetCellValue(audienceSheet, "E2")
	require.NoError(t, err)
	assert.Equal(t, "+998901234567", phone)

	count, err := f.GetCellValue(referralsSheet, "E2")
	require.NoError(t, err)
	assert.Equal(t, "4", count)

	rows, err := f.GetRows(audienceSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	entrant, err := f.GetCellValue("Yozgi konkurs #3", "A2")
	require.NoError(t, err)
	assert.Equal(t, "111", entrant)

	subs, err := f.GetCellValue("Yozgi konkurs #3", "F2")
	require.NoError(t, err)
	assert.Equal(t, "2", subs)
}

func TestContestSheetName(t *testing.T) {
	long := domain.Contest{ID: 42, Title: "Juda ham uzun nomli katta yozgi tanlov 2026"}
	name := contestSheetName(long)
	assert.LessOrEqual(t, len([]rune(name)), sheetNameLimit)
	assert.Contains(t, name, "#42")

	dirty := domain.Contest{ID: 1, Title: `A/B [test]: nima?`}
	assert.Equal(t, "AB test nima #1", contestSheetName(dirty))
}

func TestService_Audience_EmptyBot(t *testing.T) {
	ctx := context.Background()

	botUsers := new(mockBotUsers)
	referrals := new(mockReferrals)

	botUsers.On("ListUsers", ctx, int64(1)).Return([]domain.User{}, nil)
	referrals.On("Top", ctx, int64(1), topReferrersLimit).Return([]domain.ReferralCount{}, nil)
	contests := new(mockContests)
	contests.On("ListByBot", ctx, int64(1)).Return([]domain.Contest{}, nil)

	svc := NewService(botUsers, referrals, contests, nil)

	buf, _, err := svc.Audience(ctx, &domain.Bot{ID: 1, Username: "empty"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue(audienceSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Telegram ID", header)
}
