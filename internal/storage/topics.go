package storage

import (
	"time"

	"anonpair/backend/internal/models"
)

// ListTopics returns topics in creation order, optionally only active ones.
func (s *Service) ListTopics(activeOnly bool) ([]models.HotTopic, error) {
	q := s.DB.Order("created_at ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var topics []models.HotTopic
	err := q.Find(&topics).Error
	return topics, err
}

func (s *Service) CreateTopic(text string) error {
	return s.DB.Create(&models.HotTopic{Text: text, IsActive: true, CreatedAt: time.Now()}).Error
}

func (s *Service) DeleteTopic(id uint) error {
	return s.DB.Delete(&models.HotTopic{}, id).Error
}

func (s *Service) ToggleTopic(id uint, active bool) error {
	return s.DB.Model(&models.HotTopic{}).Where("id = ?", id).
		Update("is_active", active).Error
}
