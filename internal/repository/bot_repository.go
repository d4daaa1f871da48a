package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bekzod-dev/botforge/internal/domain"
)

// BotRepository defines persistence operations for registered child bots.
type BotRepository interface {
	Create(ctx context.Context, bot *domain.Bot) (*domain.Bot, error)
	FindByID(ctx context.Context, id int64) (*domain.Bot, error)
	FindByToken(ctx context.Context, token string) (*domain.Bot, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Bot, error)
	ListActive(ctx context.Context) ([]domain.Bot, error)
	CountByOwner(ctx context.Context, ownerID int64) (int64, error)
	CountAll(ctx context.Context) (int64, error)
	SetActive(ctx context.Context, id int64, active bool) error
	UpdateName(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
}

type botRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewBotRepository creates a new SQL-backed bot repository.
func NewBotRepository(db *sql.DB, log *slog.Logger) BotRepository {
	return &botRepository{
		db:  db,
		log: log,
	}
}

const botColumns = `id, owner_id, token, name, username, description, telegram_bot_id, active, created_at, updated_at`

func scanBot(row interface{ Scan(...any) error }) (*domain.Bot, error) {
	var b domain.Bot
	err := row.Scan(
		&b.ID,
		&b.OwnerID,
		&b.Token,
		&b.Name,
		&b.Username,
		&b.Description,
		&b.TelegramBotID,
		&b.Active,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts the bot together with an empty settings row in one
// transaction, so a bot always has settings to resolve.
func (r *botRepository) Create(ctx context.Context, bot *domain.Bot) (*domain.Bot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bot create: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertBot = `
		INSERT INTO bots (owner_id, token, name, username, description, telegram_bot_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + botColumns

	row := tx.QueryRowContext(ctx, insertBot,
		bot.OwnerID, bot.Token, bot.Name, bot.Username, bot.Description, bot.TelegramBotID)

	created, err := scanBot(row)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to insert bot", slog.Int64("owner_id", bot.OwnerID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("insert bot: %w", err)
	}

	const insertSettings = `INSERT INTO bot_settings (bot_id) VALUES ($1)`
	if _, err := tx.ExecContext(ctx, insertSettings, created.ID); err != nil {
		return nil, fmt.Errorf("insert bot settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bot create: %w", err)
	}

	return created, nil
}

// FindByID retrieves a bot by its internal id.
func (r *botRepository) FindByID(ctx context.Context, id int64) (*domain.Bot, error) {
	const query = `SELECT ` + botColumns + ` FROM bots WHERE id = $1`

	bot, err := scanBot(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select bot by id: %w", err)
	}

	return bot, nil
}

// FindByToken retrieves a bot by its telegram token.
func (r *botRepository) FindByToken(ctx context.Context, token string) (*domain.Bot, error) {
	const query = `SELECT ` + botColumns + ` FROM bots WHERE token = $1`

	bot, err := scanBot(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select bot by token: %w", err)
	}

	return bot, nil
}

// ListByOwner returns all bots registered by one owner, newest first.
func (r *botRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Bot, error) {
	const query = `SELECT ` + botColumns + ` FROM bots WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("select bots by owner: %w", err)
	}
	defer rows.Close()

	return collectBots(rows)
}

// ListActive returns every bot that should be running.
func (r *botRepository) ListActive(ctx context.Context) ([]domain.Bot, error) {
	const query = `SELECT ` + botColumns + ` FROM bots WHERE active ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select active bots: %w", err)
	}
	defer rows.Close()

	return collectBots(rows)
}

func collectBots(rows *sql.Rows) ([]domain.Bot, error) {
	var bots []domain.Bot
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bot: %w", err)
		}
		bots = append(bots, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bots: %w", err)
	}
	return bots, nil
}

// CountByOwner returns the number of bots the owner has registered.
func (r *botRepository) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	const query = `SELECT count(*) FROM bots WHERE owner_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bots by owner: %w", err)
	}
	return n, nil
}

// CountAll returns the total number of registered bots.
func (r *botRepository) CountAll(ctx context.Context) (int64, error) {
	const query = `SELECT count(*) FROM bots`

	var n int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bots: %w", err)
	}
	return n, nil
}

// SetActive flips the running flag.
func (r *botRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE bots SET active = $2, updated_at = now() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, active); err != nil {
		return fmt.Errorf("set bot active: %w", err)
	}
	return nil
}

// UpdateName renames the bot.
func (r *botRepository) UpdateName(ctx context.Context, id int64, name string) error {
	const query = `UPDATE bots SET name = $2, updated_at = now() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, name); err != nil {
		return fmt.Errorf("update bot name: %w", err)
	}
	return nil
}

// Delete removes the bot. Settings, channels, contests, referrals and
// broadcast logs follow via ON DELETE CASCADE.
func (r *botRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM bots WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete bot: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
