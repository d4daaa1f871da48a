package referral

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bekzod-dev/botforge/internal/domain"
	"github.com/bekzod-dev/botforge/internal/repository"
)

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Record(ctx context.Context, botID, referrerID, referredID int64) (bool, error) {
	args := m.Called(ctx, botID, referrerID, referredID)
	return args.Bool(0), args.Error(1)
}

func (m *mockLedger) CountByReferrer(ctx context.Context, botID, referrerID int64) (int64, error) {
	args := m.Called(ctx, botID, referrerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLedger) CountByBot(ctx context.Context, botID int64) (int64, error) {
	args := m.Called(ctx, botID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLedger) Top(ctx context.Context, botID int64, limit int) ([]domain.ReferralCount, error) {
	args := m.Called(ctx, botID, limit)
	top, _ := args.Get(0).([]domain.ReferralCount)
	return top, args.Error(1)
}

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	args := m.Called(ctx, telegramID)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockUsers) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockUsers) UpdatePhone(ctx context.Context, telegramID int64, phone string) error {
	return m.Called(ctx, telegramID, phone).Error(0)
}

func (m *mockUsers) TouchLastActive(ctx context.Context, telegramID int64) error {
	return m.Called(ctx, telegramID).Error(0)
}

func (m *mockUsers) CountAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsers) CountSince(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_Attribute(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name       string
		referrerID int64
		referredID int64
		setupMocks func(ml *mockLedger, mu *mockUsers)
		expected   bool
	}{
		{
			name:       "first claim wins",
			referrerID: 10,
			referredID: 20,
			setupMocks: func(ml *mockLedger, mu *mockUsers) {
				mu.On("FindByTelegramID", mock.Anything, int64(10)).
					Return(&domain.User{ID: 1, TelegramID: 10}, nil).Once()
				ml.On("Record", mock.Anything, int64(1), int64(10), int64(20)).
					Return(true, nil).Once()
			},
			expected: true,
		},
		{
			name:       "already attributed",
			referrerID: 11,
			referredID: 20,
			setupMocks: func(ml *mockLedger, mu *mockUsers) {
				mu.On("FindByTelegramID", mock.Anything, int64(11)).
					Return(&domain.User{ID: 2, TelegramID: 11}, nil).Once()
				ml.On("Record", mock.Anything, int64(1), int64(11), int64(20)).
					Return(false, nil).Once()
			},
			expected: false,
		},
		{
			name:       "self referral rejected without touching storage",
			referrerID: 20,
			referredID: 20,
			setupMocks: func(ml *mockLedger, mu *mockUsers) {},
			expected:   false,
		},
		{
			name:       "unknown referrer ignored",
			referrerID: 404,
			referredID: 20,
			setupMocks: func(ml *mockLedger, mu *mockUsers) {
				mu.On("FindByTelegramID", mock.Anything, int64(404)).
					Return(nil, repository.ErrNotFound).Once()
			},
			expected: false,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ml := &mockLedger{}
			mu := &mockUsers{}
			tc.setupMocks(ml, mu)

			svc := NewService(ml, mu, testLogger())
			got, err := svc.Attribute(ctx, 1, tc.referrerID, tc.referredID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Fatalf("Attribute = %t, expected %t", got, tc.expected)
			}

			ml.AssertExpectations(t)
			mu.AssertExpectations(t)
		})
	}
}

func TestService_Leaderboard_DefaultLimit(t *testing.T) {
	ml := &mockLedger{}
	ml.On("Top", mock.Anything, int64(5), 10).
		Return([]domain.ReferralCount{{ReferrerID: 1, Count: 3}}, nil).Once()

	svc := NewService(ml, nil, testLogger())
	top, err := svc.Leaderboard(context.Background(), 5, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 1 || top[0].Count != 3 {
		t.Fatalf("unexpected leaderboard: %+v", top)
	}

	ml.AssertExpectations(t)
}
