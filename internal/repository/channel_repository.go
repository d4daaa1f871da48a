package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/bekzod-dev/botforge/internal/domain"
)

// ChannelRepository defines persistence for mandatory-subscription channels.
type ChannelRepository interface {
	Add(ctx context.Context, ch *domain.Channel) (*domain.Channel, error)
	ListByBot(ctx context.Context, botID int64) ([]domain.Channel, error)
	Remove(ctx context.Context, botID int64, channelID string) error
}

type channelRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewChannelRepository creates a new SQL-backed channel repository.
func NewChannelRepository(db *sql.DB, log *slog.Logger) ChannelRepository {
	return &channelRepository{
		db:  db,
		log: log,
	}
}

// Add registers a channel for the bot; adding the same channel twice is a
// no-op that returns the stored row.
func (r *channelRepository) Add(ctx context.Context, ch *domain.Channel) (*domain.Channel, error) {
	const query = `
		INSERT INTO channels (bot_id, channel_id, title, invite_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (bot_id, channel_id) DO UPDATE SET
			title = EXCLUDED.title,
			invite_url = EXCLUDED.invite_url
		RETURNING id, bot_id, channel_id, title, invite_url, created_at
	`

	var stored domain.Channel
	err := r.db.QueryRowContext(ctx, query, ch.BotID, ch.ChannelID, ch.Title, ch.InviteURL).Scan(
		&stored.ID,
		&stored.BotID,
		&stored.ChannelID,
		&stored.Title,
		&stored.InviteURL,
		&stored.CreatedAt,
	)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to add channel", slog.Int64("bot_id", ch.BotID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("insert channel: %w", err)
	}
	return &stored, nil
}

// ListByBot returns the bot's required channels in registration order.
func (r *channelRepository) ListByBot(ctx context.Context, botID int64) ([]domain.Channel, error) {
	const query = `
		SELECT id, bot_id, channel_id, title, invite_url, created_at
		FROM channels
		WHERE bot_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, botID)
	if err != nil {
		return nil, fmt.Errorf("select channels: %w", err)
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.BotID, &ch.ChannelID, &ch.Title, &ch.InviteURL, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	return channels, nil
}

// Remove unregisters a channel from the bot.
func (r *channelRepository) Remove(ctx context.Context, botID int64, channelID string) error {
	const query = `DELETE FROM channels WHERE bot_id = $1 AND channel_id = $2`

	res, err := r.db.ExecContext(ctx, query, botID, channelID)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
