package models

import "time"

// Session status values.
const (
	SessionActive = "active"
	SessionEnded  = "ended"
)

// ChatSession represents a 1-on-1 anonymous conversation between two users.
// IDs are monotonic (bigserial), which the admin panel relies on for ordering.
type ChatSession struct {
	ID     uint  `gorm:"primaryKey"`
	UserA  int64 `gorm:"index:idx_session_users"`
	UserB  int64 `gorm:"index:idx_session_users"`
	Topic  string
	Status string `gorm:"index;default:active"`

	StartedAt     time.Time
	EndedAt       *time.Time
	EndedBy       *int64
	MessagesCount int
}

// PartnerOf returns the other participant of the session, or 0 if the given
// user is not a member.
func (s *ChatSession) PartnerOf(userID int64) int64 {
	switch userID {
	case s.UserA:
		return s.UserB
	case s.UserB:
		return s.UserA
	default:
		return 0
	}
}

// Involves reports whether the user is one of the session's two participants.
func (s *ChatSession) Involves(userID int64) bool {
	return s.UserA == userID || s.UserB == userID
}
