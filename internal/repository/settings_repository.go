package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/bekzod-dev/botforge/internal/domain"
)

// SettingsRepository defines persistence operations for per-bot settings.
type SettingsRepository interface {
	Get(ctx context.Context, botID int64) (*domain.BotSettings, error)
	Update(ctx context.Context, botID int64, upd domain.SettingsUpdate) error
	AddAdmin(ctx context.Context, botID, userID int64) error
	RemoveAdmin(ctx context.Context, botID, userID int64) error
}

type settingsRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSettingsRepository creates a new SQL-backed settings repository.
func NewSettingsRepository(db *sql.DB, log *slog.Logger) SettingsRepository {
	return &settingsRepository{
		db:  db,
		log: log,
	}
}

// Get loads the settings row and resolves defaults for empty optional texts.
func (r *settingsRepository) Get(ctx context.Context, botID int64) (*domain.BotSettings, error) {
	const query = `
		SELECT bot_id, welcome_message, welcome_media, welcome_media_type,
			phone_required, phone_request_message, phone_post_message,
			subscription_enabled, subscription_message,
			referral_enabled, referral_message, referral_share_text,
			referral_share_media, referral_share_media_type,
			referral_button_text, referral_followup_text,
			guide_text, guide_media, guide_media_type,
			broadcast_enabled, auto_approve, max_submissions_per_user, admin_ids
		FROM bot_settings
		WHERE bot_id = $1
	`

	var s domain.BotSettings
	err := r.db.QueryRowContext(ctx, query, botID).Scan(
		&s.BotID,
		&s.WelcomeMessage,
		&s.WelcomeMedia,
		&s.WelcomeMediaType,
		&s.PhoneRequired,
		&s.PhoneRequestMessage,
		&s.PhonePostMessage,
		&s.SubscriptionEnabled,
		&s.SubscriptionMessage,
		&s.ReferralEnabled,
		&s.ReferralMessage,
		&s.ReferralShareText,
		&s.ReferralShareMedia,
		&s.ReferralShareMediaType,
		&s.ReferralButtonText,
		&s.ReferralFollowupText,
		&s.GuideText,
		&s.GuideMedia,
		&s.GuideMediaType,
		&s.BroadcastEnabled,
		&s.AutoApprove,
		&s.MaxSubmissionsPerUser,
		pq.Array(&s.AdminIDs),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if r.log != nil {
			r.log.Error("failed to fetch bot settings", slog.Int64("bot_id", botID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select bot settings: %w", err)
	}

	s.ResolveDefaults()
	return &s, nil
}

// Update applies the non-nil fields of upd.
func (r *settingsRepository) Update(ctx context.Context, botID int64, upd domain.SettingsUpdate) error {
	set := make([]string, 0, 8)
	args := []any{botID}

	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.WelcomeMessage != nil {
		add("welcome_message", *upd.WelcomeMessage)
	}
	if upd.WelcomeMedia != nil {
		add("welcome_media", *upd.WelcomeMedia)
	}
	if upd.WelcomeMediaType != nil {
		add("welcome_media_type", *upd.WelcomeMediaType)
	}
	if upd.PhoneRequired != nil {
		add("phone_required", *upd.PhoneRequired)
	}
	if upd.PhoneRequestMessage != nil {
		add("phone_request_message", *upd.PhoneRequestMessage)
	}
	if upd.PhonePostMessage != nil {
		add("phone_post_message", *upd.PhonePostMessage)
	}
	if upd.SubscriptionEnabled != nil {
		add("subscription_enabled", *upd.SubscriptionEnabled)
	}
	if upd.SubscriptionMessage != nil {
		add("subscription_message", *upd.SubscriptionMessage)
	}
	if upd.ReferralEnabled != nil {
		add("referral_enabled", *upd.ReferralEnabled)
	}
	if upd.ReferralMessage != nil {
		add("referral_message", *upd.ReferralMessage)
	}
	if upd.ReferralShareText != nil {
		add("referral_share_text", *upd.ReferralShareText)
	}
	if upd.ReferralButtonText != nil {
		add("referral_button_text", *upd.ReferralButtonText)
	}
	if upd.ReferralFollowupText != nil {
		add("referral_followup_text", *upd.ReferralFollowupText)
	}
	if upd.GuideText != nil {
		add("guide_text", *upd.GuideText)
	}
	if upd.GuideMedia != nil {
		add("guide_media", *upd.GuideMedia)
	}
	if upd.GuideMediaType != nil {
		add("guide_media_type", *upd.GuideMediaType)
	}
	if upd.BroadcastEnabled != nil {
		add("broadcast_enabled", *upd.BroadcastEnabled)
	}

	if len(set) == 0 {
		return nil
	}

	query := "UPDATE bot_settings SET "
	for i, clause := range set {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " WHERE bot_id = $1"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update bot settings: %w", err)
	}
	return nil
}

// AddAdmin appends userID to the bot's delegated admin list if absent.
func (r *settingsRepository) AddAdmin(ctx context.Context, botID, userID int64) error {
	const query = `
		UPDATE bot_settings
		SET admin_ids = array_append(admin_ids, $2)
		WHERE bot_id = $1 AND NOT ($2 = ANY(admin_ids))
	`

	if _, err := r.db.ExecContext(ctx, query, botID, userID); err != nil {
		return fmt.Errorf("add bot admin: %w", err)
	}
	return nil
}

// RemoveAdmin drops userID from the bot's delegated admin list.
func (r *settingsRepository) RemoveAdmin(ctx context.Context, botID, userID int64) error {
	const query = `
		UPDATE bot_settings
		SET admin_ids = array_remove(admin_ids, $2)
		WHERE bot_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, botID, userID); err != nil {
		return fmt.Errorf("remove bot admin: %w", err)
	}
	return nil
}
