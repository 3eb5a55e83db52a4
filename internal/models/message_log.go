package models

import "time"

// MessageLog is one relayed message, kept for moderation and the admin panel.
type MessageLog struct {
	ID        uint  `gorm:"primaryKey"`
	SessionID uint  `gorm:"index:idx_log_session"`
	SenderID  int64 `gorm:"index"`
	// Type is the Telegram content kind: "text", "photo", "video", "voice",
	// "video_note", "sticker", "document", "audio", "animation", "gift".
	Type         string `gorm:"type:text;not null"`
	Text         string `gorm:"type:text"`
	FileID       string
	FileUniqueID string
	Caption      string
	SentAt       time.Time `gorm:"index:idx_log_session"`
}
