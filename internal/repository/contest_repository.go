package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bekzod-dev/botforge/internal/domain"
)

// ContestRepository defines persistence for contests and their participants,
// submissions and winners.
type ContestRepository interface {
	Create(ctx context.Context, c *domain.Contest) (*domain.Contest, error)
	FindByID(ctx context.Context, id int64) (*domain.Contest, error)
	ListByBot(ctx context.Context, botID int64) ([]domain.Contest, error)
	ListActive(ctx context.Context, botID int64) ([]domain.Contest, error)
	CountActive(ctx context.Context, botID int64) (int64, error)
	CountAllActive(ctx context.Context) (int64, error)
	CountAllSubmissions(ctx context.Context) (int64, error)
	SetStatus(ctx context.Context, id int64, status domain.ContestStatus) error

	Join(ctx context.Context, contestID, userID int64) (bool, error)
	CountParticipants(ctx context.Context, contestID int64) (int64, error)
	IsParticipant(ctx context.Context, contestID, userID int64) (bool, error)
	Participants(ctx context.Context, contestID int64) ([]domain.Entrant, error)
	RandomParticipants(ctx context.Context, contestID int64, limit int) ([]int64, error)

	AddSubmission(ctx context.Context, s *domain.Submission) (*domain.Submission, error)
	CountSubmissions(ctx context.Context, contestID, userID int64) (int64, error)

	AddWinner(ctx context.Context, w *domain.Winner) error
	ListWinners(ctx context.Context, contestID int64) ([]domain.Winner, error)
}

type contestRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewContestRepository creates a new SQL-backed contest repository.
func NewContestRepository(db *sql.DB, log *slog.Logger) ContestRepository {
	return &contestRepository{
		db:  db,
		log: log,
	}
}

const contestColumns = `id, bot_id, title, description, prize, status, starts_at, ends_at, created_at`

func scanContest(row interface{ Scan(...any) error }) (*domain.Contest, error) {
	var c domain.Contest
	var endsAt sql.NullTime
	err := row.Scan(
		&c.ID,
		&c.BotID,
		&c.Title,
		&c.Description,
		&c.Prize,
		&c.Status,
		&c.StartsAt,
		&endsAt,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if endsAt.Valid {
		c.EndsAt = endsAt.Time
	}
	return &c, nil
}

// Create inserts a contest in active status.
func (r *contestRepository) Create(ctx context.Context, c *domain.Contest) (*domain.Contest, error) {
	const query = `
		INSERT INTO contests (bot_id, title, description, prize, status, ends_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '0001-01-01T00:00:00Z'::timestamptz))
		RETURNING ` + contestColumns

	status := c.Status
	if status == "" {
		status = domain.ContestActive
	}

	created, err := scanContest(r.db.QueryRowContext(ctx, query,
		c.BotID, c.Title, c.Description, c.Prize, status, c.EndsAt))
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to create contest", slog.Int64("bot_id", c.BotID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("insert contest: %w", err)
	}
	return created, nil
}

// FindByID retrieves a contest.
func (r *contestRepository) FindByID(ctx context.Context, id int64) (*domain.Contest, error) {
	const query = `SELECT ` + contestColumns + ` FROM contests WHERE id = $1`

	c, err := scanContest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select contest: %w", err)
	}
	return c, nil
}

// ListByBot returns all of the bot's contests, newest first.
func (r *contestRepository) ListByBot(ctx context.Context, botID int64) ([]domain.Contest, error) {
	const query = `SELECT ` + contestColumns + ` FROM contests WHERE bot_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, botID)
}

// ListActive returns the bot's currently running contests.
func (r *contestRepository) ListActive(ctx context.Context, botID int64) ([]domain.Contest, error) {
	const query = `SELECT ` + contestColumns + ` FROM contests WHERE bot_id = $1 AND status = 'active' ORDER BY created_at DESC`
	return r.list(ctx, query, botID)
}

func (r *contestRepository) list(ctx context.Context, query string, botID int64) ([]domain.Contest, error) {
	rows, err := r.db.QueryContext(ctx, query, botID)
	if err != nil {
		return nil, fmt.Errorf("select contests: %w", err)
	}
	defer rows.Close()

	var contests []domain.Contest
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contest: %w", err)
		}
		contests = append(contests, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contests: %w", err)
	}
	return contests, nil
}

// CountActive returns how many contests are currently running in the bot.
func (r *contestRepository) CountActive(ctx context.Context, botID int64) (int64, error) {
	const query = `SELECT count(*) FROM contests WHERE bot_id = $1 AND status = 'active'`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, botID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active contests: %w", err)
	}
	return n, nil
}

// CountAllActive returns the number of running contests across all bots.
func (r *contestRepository) CountAllActive(ctx context.Context) (int64, error) {
	const query = `SELECT count(*) FROM contests WHERE status = 'active'`

	var n int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count all active contests: %w", err)
	}
	return n, nil
}

// CountAllSubmissions returns the number of contest entries across all bots.
func (r *contestRepository) CountAllSubmissions(ctx context.Context) (int64, error) {
	const query = `SELECT count(*) FROM submissions`

	var n int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count all submissions: %w", err)
	}
	return n, nil
}

// SetStatus moves the contest to a new lifecycle state.
func (r *contestRepository) SetStatus(ctx context.Context, id int64, status domain.ContestStatus) error {
	const query = `UPDATE contests SET status = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("set contest status: %w", err)
	}
	return nil
}

// Join adds the user as a participant; returns false if already joined.
func (r *contestRepository) Join(ctx context.Context, contestID, userID int64) (bool, error) {
	const query = `
		INSERT INTO contest_participants (contest_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (contest_id, user_id) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query, contestID, userID)
	if err != nil {
		return false, fmt.Errorf("insert participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("participant rows affected: %w", err)
	}
	return n > 0, nil
}

// CountParticipants returns the contest's participant count.
func (r *contestRepository) CountParticipants(ctx context.Context, contestID int64) (int64, error) {
	const query = `SELECT count(*) FROM contest_participants WHERE contest_id = $1`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, contestID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return n, nil
}

// IsParticipant reports whether the user joined the contest.
func (r *contestRepository) IsParticipant(ctx context.Context, contestID, userID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM contest_participants WHERE contest_id = $1 AND user_id = $2)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, contestID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return ok, nil
}

// AddSubmission stores a contest entry.
func (r *contestRepository) AddSubmission(ctx context.Context, s *domain.Submission) (*domain.Submission, error) {
	const query = `
		INSERT INTO submissions (contest_id, user_id, content, media_id, media_type, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, contest_id, user_id, content, media_id, media_type, status, created_at
	`

	status := s.Status
	if status == "" {
		status = domain.SubmissionPending
	}

	var stored domain.Submission
	err := r.db.QueryRowContext(ctx, query, s.ContestID, s.UserID, s.Content, s.MediaID, s.MediaType, status).Scan(
		&stored.ID,
		&stored.ContestID,
		&stored.UserID,
		&stored.Content,
		&stored.MediaID,
		&stored.MediaType,
		&stored.Status,
		&stored.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	return &stored, nil
}

// CountSubmissions returns how many entries the user made in the contest.
func (r *contestRepository) CountSubmissions(ctx context.Context, contestID, userID int64) (int64, error) {
	const query = `SELECT count(*) FROM submissions WHERE contest_id = $1 AND user_id = $2`

	var n int64
	if err := r.db.QueryRowContext(ctx, query, contestID, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return n, nil
}

// Participants returns the contest's entrants with profile data and their
// submission counts, in join order.
func (r *contestRepository) Participants(ctx context.Context, contestID int64) ([]domain.Entrant, error) {
	const query = `
		SELECT u.telegram_id, u.first_name, u.username, u.phone_number, cp.joined_at,
		       (SELECT count(*) FROM submissions s WHERE s.contest_id = cp.contest_id AND s.user_id = cp.user_id)
		FROM contest_participants cp
		JOIN users u ON u.id = cp.user_id
		WHERE cp.contest_id = $1
		ORDER BY cp.joined_at
	`

	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}
	defer rows.Close()

	var entrants []domain.Entrant
	for rows.Next() {
		var e domain.Entrant
		if err := rows.Scan(&e.TelegramID, &e.FirstName, &e.Username, &e.PhoneNumber, &e.JoinedAt, &e.Submissions); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		entrants = append(entrants, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return entrants, nil
}

// RandomParticipants picks up to limit distinct participants for a prize draw.
func (r *contestRepository) RandomParticipants(ctx context.Context, contestID int64, limit int) ([]int64, error) {
	const query = `
		SELECT user_id FROM contest_participants
		WHERE contest_id = $1
		ORDER BY random()
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, contestID, limit)
	if err != nil {
		return nil, fmt.Errorf("draw participants: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan drawn participant: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drawn participants: %w", err)
	}
	return ids, nil
}

// AddWinner records a contest winner.
func (r *contestRepository) AddWinner(ctx context.Context, w *domain.Winner) error {
	const query = `
		INSERT INTO contest_winners (contest_id, user_id, place, prize)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.ExecContext(ctx, query, w.ContestID, w.UserID, w.Place, w.Prize); err != nil {
		return fmt.Errorf("insert winner: %w", err)
	}
	return nil
}

// ListWinners returns winners ordered by place.
func (r *contestRepository) ListWinners(ctx context.Context, contestID int64) ([]domain.Winner, error) {
	const query = `
		SELECT w.id, w.contest_id, w.user_id, w.place, w.prize, u.first_name, u.username, w.created_at
		FROM contest_winners w
		JOIN users u ON u.id = w.user_id
		WHERE w.contest_id = $1
		ORDER BY w.place
	`

	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("select winners: %w", err)
	}
	defer rows.Close()

	var winners []domain.Winner
	for rows.Next() {
		var w domain.Winner
		if err := rows.Scan(&w.ID, &w.ContestID, &w.UserID, &w.Place, &w.Prize, &w.FirstName, &w.Username, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan winner: %w", err)
		}
		winners = append(winners, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate winners: %w", err)
	}
	return winners, nil
}
