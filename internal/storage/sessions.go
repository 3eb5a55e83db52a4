package storage

import (
	"errors"
	"time"

	"anonpair/backend/internal/models"

	"gorm.io/gorm"
)

// OpenSession creates an active session for the pair inside one transaction:
// the duplicate-session check, the insert, the removal of both waiting
// entries and the chat counters all commit or roll back together. A user must
// never be simultaneously queued and in an active session.
func (s *Service) OpenSession(userA, userB int64, topic string) (*models.ChatSession, error) {
	session := models.ChatSession{
		UserA:     userA,
		UserB:     userB,
		Topic:     topic,
		Status:    models.SessionActive,
		StartedAt: time.Now(),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ChatSession{}).
			Where("status = ? AND (user_a IN (?, ?) OR user_b IN (?, ?))",
				models.SessionActive, userA, userB, userA, userB).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateActiveSession
		}

		if err := tx.Create(&session).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.SearchEntry{}, "user_id IN (?, ?)", userA, userB).Error; err != nil {
			return err
		}
		return tx.Exec(
			`UPDATE users SET total_chats = total_chats + 1, daily_chats = daily_chats + 1,
			 last_active = NOW() WHERE id IN (?, ?)`,
			userA, userB,
		).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CloseSession marks the session ended. Closing an already ended session is
// a no-op, which makes every termination path safe to retry.
func (s *Service) CloseSession(sessionID uint, endedBy *int64) error {
	return s.DB.Model(&models.ChatSession{}).
		Where("id = ? AND status = ?", sessionID, models.SessionActive).
		Updates(map[string]interface{}{
			"status":   models.SessionEnded,
			"ended_at": time.Now(),
			"ended_by": endedBy,
		}).Error
}

// ActiveSessionFor returns the user's active session, or nil.
func (s *Service) ActiveSessionFor(userID int64) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.DB.
		Where("status = ? AND (user_a = ? OR user_b = ?)", models.SessionActive, userID, userID).
		Order("started_at DESC").
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Service) GetSession(sessionID uint) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.DB.First(&session, sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ReconcileActiveSessions force-ends every session still marked active and
// returns them. Only the startup recovery procedure calls this: in-memory
// pairing state does not survive a crash, so any remaining "active" row is a
// leftover that would otherwise block its participants forever.
func (s *Service) ReconcileActiveSessions() ([]models.ChatSession, error) {
	var stale []models.ChatSession
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ?", models.SessionActive).Find(&stale).Error; err != nil {
			return err
		}
		return tx.Model(&models.ChatSession{}).
			Where("status = ?", models.SessionActive).
			Updates(map[string]interface{}{
				"status":   models.SessionEnded,
				"ended_at": time.Now(),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return stale, nil
}

// LogMessage stores a relayed message and bumps the session and sender
// counters.
func (s *Service) LogMessage(entry *models.MessageLog) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ChatSession{}).
			Where("id = ?", entry.SessionID).
			UpdateColumn("messages_count", gorm.Expr("messages_count + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", entry.SenderID).
			UpdateColumn("total_messages", gorm.Expr("total_messages + 1")).Error
	})
}
