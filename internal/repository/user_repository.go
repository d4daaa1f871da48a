// Package repository contains the SQL persistence layer. Each entity gets a
// narrow interface backed by plain database/sql against postgres.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bekzod-dev/botforge/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("repository: not found")

// UserRepository defines persistence operations for platform-wide users.
type UserRepository interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	Upsert(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdatePhone(ctx context.Context, telegramID int64, phone string) error
	TouchLastActive(ctx context.Context, telegramID int64) error
	CountAll(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type userRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *sql.DB, log *slog.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log,
	}
}

// FindByTelegramID retrieves a user by their telegram identifier.
func (r *userRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	const query = `
		SELECT id, telegram_id, first_name, last_name, username, phone_number, created_at, last_active
		FROM users
		WHERE telegram_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, telegramID)

	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.FirstName,
		&user.LastName,
		&user.Username,
		&user.PhoneNumber,
		&user.CreatedAt,
		&user.LastActive,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch user by telegram id", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select user by telegram id: %w", err)
	}

	return &user, nil
}

// Upsert inserts the user or refreshes their profile fields, returning the
// stored row. The phone number is never overwritten here.
func (r *userRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	const query = `
		INSERT INTO users (telegram_id, first_name, last_name, username)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			username = EXCLUDED.username,
			last_active = now()
		RETURNING id, telegram_id, first_name, last_name, username, phone_number, created_at, last_active
	`

	row := r.db.QueryRowContext(ctx, query, user.TelegramID, user.FirstName, user.LastName, user.Username)

	var stored domain.User
	if err := row.Scan(
		&stored.ID,
		&stored.TelegramID,
		&stored.FirstName,
		&stored.LastName,
		&stored.Username,
		&stored.PhoneNumber,
		&stored.CreatedAt,
		&stored.LastActive,
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to upsert user", slog.Int64("telegram_id", user.TelegramID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	return &stored, nil
}

// UpdatePhone stores the verified phone number.
func (r *userRepository) UpdatePhone(ctx context.Context, telegramID int64, phone string) error {
	const query = `UPDATE users SET phone_number = $2 WHERE telegram_id = $1`

	if _, err := r.db.ExecContext(ctx, query, telegramID, phone); err != nil {
		return fmt.Errorf("update user phone: %w", err)
	}

	return nil
}

// TouchLastActive bumps the activity timestamp.
func (r *userRepository) TouchLastActive(ctx context.Context, telegramID int64) error {
	const query = `UPDATE users SET last_active = now() WHERE telegram_id = $1`

	if _, err := r.db.ExecContext(ctx, query, telegramID); err != nil {
		return fmt.Errorf("touch user last active: %w", err)
	}

	return nil
}

// CountAll returns the number of users seen anywhere on the platform.
func (r *userRepository) CountAll(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM users`

	var count int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

// CountSince returns how many users first appeared after the given moment.
func (r *userRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM users WHERE created_at >= $1`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users since: %w", err)
	}

	return count, nil
}
