package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/bekzod-dev/botforge/internal/domain"
)

// BotUserRepository tracks which users interact with which child bot. This is
// the audience table broadcasts and stats are computed from.
type BotUserRepository interface {
	Upsert(ctx context.Context, botID, userID int64) error
	ListTelegramIDs(ctx context.Context, botID int64) ([]int64, error)
	Count(ctx context.Context, botID int64) (int64, error)
	CountSince(ctx context.Context, botID int64, interval string) (int64, error)
	ListUsers(ctx context.Context, botID int64) ([]domain.User, error)
}

type botUserRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewBotUserRepository creates a new SQL-backed bot audience repository.
func NewBotUserRepository(db *sql.DB, log *slog.Logger) BotUserRepository {
	return &botUserRepository{
		db:  db,
		log: log,
	}
}

// Upsert records an interaction, preserving the first_interaction timestamp
// on conflict.
func (r *botUserRepository) Upsert(ctx context.Context, botID, userID int64) error {
	const query = `
		INSERT INTO bot_users (bot_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (bot_id, user_id) DO UPDATE SET last_interaction = now()
	`

	if _, err := r.db.ExecContext(ctx, query, botID, userID); err != nil {
		if r.log != nil {
			r.log.Error("failed to upsert bot user", slog.Int64("bot_id", botID), slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return fmt.Errorf("upsert bot user: %w", err)
	}
	return nil
}

// ListTelegramIDs returns the telegram ids of the bot's whole audience,
// oldest first, the order broadcasts are delivered in.
func (r *botUserRepository) ListTelegramIDs(ctx context.Context, botID int64) ([]int64, error) {
	const query = `
		SELECT u.telegram_id
		FROM bot_users bu
		JOIN users u ON u.id = bu.user_id
		WHERE bu.bot_id = $1
		ORDER BY bu.first_interaction
	`

	rows, err := r.db.QueryContext(ctx, query, botID)
	if err != nil {
		return nil, fmt.Errorf("select bot audience: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan audience id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audience: %w", err)
	}
	return ids, nil
}

// Count returns the audience size.
func (r *botUserRepository) Count(ctx context.Context, botID int64) (int64, error) {
	const query = `SELECT count(*) FROM bot_users WHERE bot_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, botID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bot users: %w", err)
	}
	return n, nil
}

// CountSince returns how many users first interacted within the given
// postgres interval, e.g. "1 day" or "7 days".
func (r *botUserRepository) CountSince(ctx context.Context, botID int64, interval string) (int64, error) {
	const query = `
		SELECT count(*) FROM bot_users
		WHERE bot_id = $1 AND first_interaction > now() - $2::interval
	`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, botID, interval).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bot users since: %w", err)
	}
	return n, nil
}

// ListUsers returns full user rows for the bot's audience, used by exports.
func (r *botUserRepository) ListUsers(ctx context.Context, botID int64) ([]domain.User, error) {
	const query = `
		SELECT u.id, u.telegram_id, u.first_name, u.last_name, u.username, u.phone_number, bu.first_interaction, u.last_active
		FROM bot_users bu
		JOIN users u ON u.id = bu.user_id
		WHERE bu.bot_id = $1
		ORDER BY bu.first_interaction
	`

	rows, err := r.db.QueryContext(ctx, query, botID)
	if err != nil {
		return nil, fmt.Errorf("select bot users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID,
			&u.TelegramID,
			&u.FirstName,
			&u.LastName,
			&u.Username,
			&u.PhoneNumber,
			&u.CreatedAt,
			&u.LastActive,
		); err != nil {
			return nil, fmt.Errorf("scan bot user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bot users: %w", err)
	}
	return users, nil
}
