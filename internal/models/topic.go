package models

import "time"

// HotTopic is an admin-curated conversation prompt. A daily rotation of the
// active topics is offered to pro/vip users, who can search for a partner on
// a specific topic instead of a blind match.
type HotTopic struct {
	ID        uint `gorm:"primaryKey"`
	Text      string
	IsActive  bool `gorm:"default:true"`
	CreatedAt time.Time
}
