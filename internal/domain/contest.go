package domain

import "time"

// ContestStatus marks the lifecycle stage of a contest.
type ContestStatus string

const (
	ContestActive   ContestStatus = "active"
	ContestFinished ContestStatus = "finished"
	ContestCanceled ContestStatus = "canceled"
)

// Contest is a competition run inside a single child bot.
type Contest struct {
	ID          int64
	BotID       int64
	Title       string
	Description string
	Prize       string
	Status      ContestStatus
	StartsAt    time.Time
	EndsAt      time.Time
	CreatedAt   time.Time
}

// Open reports whether the contest accepts participants at the given time.
func (c *Contest) Open(now time.Time) bool {
	if c.Status != ContestActive {
		return false
	}
	if !c.EndsAt.IsZero() && now.After(c.EndsAt) {
		return false
	}
	return true
}

// Participant links a user to a contest within a bot.
type Participant struct {
	ID        int64
	ContestID int64
	UserID    int64
	JoinedAt  time.Time
}

// SubmissionStatus marks moderation state of a submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is a contest entry: a media file or text submitted by a
// participant and reviewed by the bot owner.
type Submission struct {
	ID        int64
	ContestID int64
	UserID    int64
	Content   string
	MediaID   string
	MediaType string
	Status    SubmissionStatus
	Votes     int
	CreatedAt time.Time
}

// Winner records a finished contest's winner and their placement.
// FirstName and Username are denormalized from users for display.
type Winner struct {
	ID        int64
	ContestID int64
	UserID    int64
	Place     int
	Prize     string
	FirstName string
	Username  string
	CreatedAt time.Time
}

// Entrant is a participant row joined with profile data, used for
// owner-facing listings and exports.
type Entrant struct {
	TelegramID  int64
	FirstName   string
	Username    string
	PhoneNumber string
	JoinedAt    time.Time
	Submissions int64
}
