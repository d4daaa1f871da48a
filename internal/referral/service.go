// Package referral implements referral attribution for child bots.
package referral

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bekzod-dev/botforge/internal/domain"
	"github.com/bekzod-dev/botforge/internal/repository"
)

// Service attributes new users to referrers and answers count queries.
type Service struct {
	referrals repository.ReferralRepository
	users     repository.UserRepository
	log       *slog.Logger
}

// NewService builds a referral service on top of the ledger repository.
func NewService(referrals repository.ReferralRepository, users repository.UserRepository, log *slog.Logger) *Service {
	return &Service{
		referrals: referrals,
		users:     users,
		log:       log,
	}
}

// Attribute records that referred joined botID through referrer's link.
// Self-referrals are rejected, and a user already attributed in this bot
// keeps their original referrer. Returns true only when a new credit was
// written.
func (s *Service) Attribute(ctx context.Context, botID, referrerID, referredID int64) (bool, error) {
	if referrerID == referredID {
		return false, nil
	}

	// Links pointing at users the platform has never seen are ignored.
	if _, err := s.users.FindByTelegramID(ctx, referrerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	recorded, err := s.referrals.Record(ctx, botID, referrerID, referredID)
	if err != nil {
		return false, err
	}

	if recorded && s.log != nil {
		s.log.Info("referral recorded",
			slog.Int64("bot_id", botID),
			slog.Int64("referrer_id", referrerID),
			slog.Int64("referred_id", referredID))
	}

	return recorded, nil
}

// Count returns how many users the referrer brought into the bot.
func (s *Service) Count(ctx context.Context, botID, referrerID int64) (int64, error) {
	return s.referrals.CountByReferrer(ctx, botID, referrerID)
}

// Leaderboard returns the bot's top referrers.
func (s *Service) Leaderboard(ctx context.Context, botID int64, limit int) ([]domain.ReferralCount, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.referrals.Top(ctx, botID, limit)
}
