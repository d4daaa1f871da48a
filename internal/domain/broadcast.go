package domain

import "time"

// BroadcastStatus marks the lifecycle of a broadcast run.
type BroadcastStatus string

const (
	BroadcastPending  BroadcastStatus = "pending"
	BroadcastRunning  BroadcastStatus = "running"
	BroadcastFinished BroadcastStatus = "finished"
	BroadcastFailed   BroadcastStatus = "failed"
)

// Broadcast is one mass-send run over a bot's audience. Text is always set;
// MediaID/MediaType describe an optional attached photo or video.
type Broadcast struct {
	ID         int64
	BotID      int64
	SenderID   int64
	Text       string
	MediaID    string
	MediaType  string
	Status     BroadcastStatus
	Total      int64
	Sent       int64
	Failed     int64
	CreatedAt  time.Time
	FinishedAt time.Time
}

// BotStats is the aggregate view shown to a bot owner.
type BotStats struct {
	TotalUsers      int64
	UsersToday      int64
	UsersWeek       int64
	TotalReferrals  int64
	ActiveContests  int64
	TotalBroadcasts int64
}
