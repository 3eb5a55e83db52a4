package models

import "time"

// Report status values.
const (
	ReportPending   = "pending"
	ReportBanned    = "banned"
	ReportDismissed = "dismissed"
)

// Report is a complaint filed by one participant against their partner.
type Report struct {
	ID         uint  `gorm:"primaryKey"`
	ReporterID int64 `gorm:"index"`
	ReportedID int64 `gorm:"index"`
	SessionID  uint
	Reason     string
	Status     string `gorm:"index;default:pending"`
	CreatedAt  time.Time
	ReviewedAt *time.Time
}

// Rating is a thumbs up/down left after a session. One per rater per session.
type Rating struct {
	ID        uint  `gorm:"primaryKey"`
	RaterID   int64 `gorm:"uniqueIndex:idx_rater_session"`
	RatedID   int64 `gorm:"index"`
	SessionID uint  `gorm:"uniqueIndex:idx_rater_session"`
	Value     int   // 1 or -1
	CreatedAt time.Time
}

// Broadcast status values.
const (
	BroadcastPending = "pending"
	BroadcastRunning = "running"
	BroadcastDone    = "done"
	BroadcastFailed  = "failed"
)

// Broadcast is an admin message fanned out to an audience in the background.
type Broadcast struct {
	ID         uint   `gorm:"primaryKey"`
	Text       string `gorm:"type:text"`
	Audience   string `gorm:"default:all"` // "all", "premium", "free"
	SentTo     int
	TotalUsers int
	Status     string `gorm:"default:pending"`
	CreatedAt  time.Time
	FinishedAt *time.Time
}
