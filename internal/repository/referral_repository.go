package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/bekzod-dev/botforge/internal/domain"
)

// ReferralRepository is the append-once referral ledger. A referred user is
// attributed to at most one referrer per bot; the first claim wins.
type ReferralRepository interface {
	Record(ctx context.Context, botID, referrerID, referredID int64) (bool, error)
	CountByReferrer(ctx context.Context, botID, referrerID int64) (int64, error)
	CountByBot(ctx context.Context, botID int64) (int64, error)
	Top(ctx context.Context, botID int64, limit int) ([]domain.ReferralCount, error)
}

type referralRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewReferralRepository creates a new SQL-backed referral ledger.
func NewReferralRepository(db *sql.DB, log *slog.Logger) ReferralRepository {
	return &referralRepository{
		db:  db,
		log: log,
	}
}

// Record inserts the referral if the referred user has not been claimed in
// this bot yet. Returns true when a new row was written.
func (r *referralRepository) Record(ctx context.Context, botID, referrerID, referredID int64) (bool, error) {
	const query = `
		INSERT INTO referrals (bot_id, referrer_id, referred_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (bot_id, referred_id) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query, botID, referrerID, referredID)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to record referral",
				slog.Int64("bot_id", botID),
				slog.Int64("referrer_id", referrerID),
				slog.Any("error", err))
		}
		return false, fmt.Errorf("insert referral: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("referral rows affected: %w", err)
	}
	return n > 0, nil
}

// CountByReferrer returns how many users one referrer brought into the bot.
func (r *referralRepository) CountByReferrer(ctx context.Context, botID, referrerID int64) (int64, error) {
	const query = `SELECT count(*) FROM referrals WHERE bot_id = $1 AND referrer_id = $2`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, botID, referrerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count referrals by referrer: %w", err)
	}
	return n, nil
}

// CountByBot returns the bot's total referral count.
func (r *referralRepository) CountByBot(ctx context.Context, botID int64) (int64, error) {
	const query = `SELECT count(*) FROM referrals WHERE bot_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, botID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count referrals by bot: %w", err)
	}
	return n, nil
}

// Top returns the bot's referral leaderboard.
func (r *referralRepository) Top(ctx context.Context, botID int64, limit int) ([]domain.ReferralCount, error) {
	const query = `
		SELECT r.referrer_id, u.first_name, u.username, count(*) AS total
		FROM referrals r
		JOIN users u ON u.telegram_id = r.referrer_id
		WHERE r.bot_id = $1
		GROUP BY r.referrer_id, u.first_name, u.username
		ORDER BY total DESC, r.referrer_id
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, botID, limit)
	if err != nil {
		return nil, fmt.Errorf("select referral leaderboard: %w", err)
	}
	defer rows.Close()

	var top []domain.ReferralCount
	for rows.Next() {
		var rc domain.ReferralCount
		if err := rows.Scan(&rc.ReferrerID, &rc.FirstName, &rc.Username, &rc.Count); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		top = append(top, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return top, nil
}
