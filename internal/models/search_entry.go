package models

import (
	"time"

	"github.com/lib/pq"
)

// SearchEntry is one user waiting in the matchmaking queue.
// The primary key on UserID guarantees at most one entry per user; re-adding
// an already queued user updates the filter columns without touching
// EnqueuedAt, so the user keeps their place in line.
type SearchEntry struct {
	UserID       int64   `gorm:"primaryKey"`
	GenderFilter *string // nil: any partner gender is fine
	Interests    pq.StringArray `gorm:"type:text[]"`
	Topic        string  // non-empty for a topic-scoped search
	PriorityTier int       `gorm:"index:idx_queue_order"`
	EnqueuedAt   time.Time `gorm:"index:idx_queue_order"`
}

// WaitingEntry is the queue row joined with the attributes the matcher needs
// from the user profile. Snapshots are ordered by (PriorityTier descending,
// EnqueuedAt ascending); banned users are filtered out at query time.
type WaitingEntry struct {
	UserID       int64
	Gender       string
	GenderFilter *string
	Interests    []string
	Topic        string
	PriorityTier int
	EnqueuedAt   time.Time
}

// Accepts reports whether this entry's partner filter is satisfied by the
// candidate's gender. An unset filter accepts anyone.
func (e WaitingEntry) Accepts(candidateGender string) bool {
	if e.GenderFilter == nil || *e.GenderFilter == "" {
		return true
	}
	return *e.GenderFilter == candidateGender
}

// MutualMatch reports whether both entries' filters accept each other.
// A one-directional check is never enough: it would pair a user with someone
// who explicitly filtered them out.
func MutualMatch(a, b WaitingEntry) bool {
	return a.Accepts(b.Gender) && b.Accepts(a.Gender)
}

