package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bekzod-dev/botforge/internal/domain"
)

// BroadcastRepository persists broadcast runs and their delivery tallies.
type BroadcastRepository interface {
	Create(ctx context.Context, b *domain.Broadcast) (*domain.Broadcast, error)
	FindByID(ctx context.Context, id int64) (*domain.Broadcast, error)
	MarkRunning(ctx context.Context, id int64, total int64) error
	Finish(ctx context.Context, id int64, status domain.BroadcastStatus, sent, failed int64) error
	CountByBot(ctx context.Context, botID int64) (int64, error)
	ListByBot(ctx context.Context, botID int64, limit int) ([]domain.Broadcast, error)
}

type broadcastRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewBroadcastRepository creates a new SQL-backed broadcast log repository.
func NewBroadcastRepository(db *sql.DB, log *slog.Logger) BroadcastRepository {
	return &broadcastRepository{
		db:  db,
		log: log,
	}
}

const broadcastColumns = `id, bot_id, sender_id, text, media_id, media_type, status, total, sent, failed, created_at, finished_at`

func scanBroadcast(row interface{ Scan(...any) error }) (*domain.Broadcast, error) {
	var b domain.Broadcast
	var finished sql.NullTime
	err := row.Scan(
		&b.ID,
		&b.BotID,
		&b.SenderID,
		&b.Text,
		&b.MediaID,
		&b.MediaType,
		&b.Status,
		&b.Total,
		&b.Sent,
		&b.Failed,
		&b.CreatedAt,
		&finished,
	)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		b.FinishedAt = finished.Time
	}
	return &b, nil
}

// Create inserts a pending broadcast row.
func (r *broadcastRepository) Create(ctx context.Context, b *domain.Broadcast) (*domain.Broadcast, error) {
	const query = `
		INSERT INTO broadcast_logs (bot_id, sender_id, text, media_id, media_type, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING ` + broadcastColumns

	created, err := scanBroadcast(r.db.QueryRowContext(ctx, query,
		b.BotID, b.SenderID, b.Text, b.MediaID, b.MediaType))
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to create broadcast", slog.Int64("bot_id", b.BotID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("insert broadcast: %w", err)
	}
	return created, nil
}

// FindByID retrieves a broadcast run.
func (r *broadcastRepository) FindByID(ctx context.Context, id int64) (*domain.Broadcast, error) {
	const query = `SELECT ` + broadcastColumns + ` FROM broadcast_logs WHERE id = $1`

	b, err := scanBroadcast(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select broadcast: %w", err)
	}
	return b, nil
}

// MarkRunning moves the run to running status and records the audience size.
func (r *broadcastRepository) MarkRunning(ctx context.Context, id int64, total int64) error {
	const query = `UPDATE broadcast_logs SET status = 'running', total = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, total); err != nil {
		return fmt.Errorf("mark broadcast running: %w", err)
	}
	return nil
}

// Finish records the final tallies.
func (r *broadcastRepository) Finish(ctx context.Context, id int64, status domain.BroadcastStatus, sent, failed int64) error {
	const query = `
		UPDATE broadcast_logs
		SET status = $2, sent = $3, failed = $4, finished_at = now()
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id, status, sent, failed); err != nil {
		return fmt.Errorf("finish broadcast: %w", err)
	}
	return nil
}

// CountByBot returns how many broadcasts the bot has run.
func (r *broadcastRepository) CountByBot(ctx context.Context, botID int64) (int64, error) {
	const query = `SELECT count(*) FROM broadcast_logs WHERE bot_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, botID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count broadcasts: %w", err)
	}
	return n, nil
}

// ListByBot returns the bot's most recent broadcasts.
func (r *broadcastRepository) ListByBot(ctx context.Context, botID int64, limit int) ([]domain.Broadcast, error) {
	const query = `SELECT ` + broadcastColumns + ` FROM broadcast_logs WHERE bot_id = $1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, botID, limit)
	if err != nil {
		return nil, fmt.Errorf("select broadcasts: %w", err)
	}
	defer rows.Close()

	var items []domain.Broadcast
	for rows.Next() {
		b, err := scanBroadcast(rows)
		if err != nil {
			return nil, fmt.Errorf("scan broadcast: %w", err)
		}
		items = append(items, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate broadcasts: %w", err)
	}
	return items, nil
}
