package storage

import (
	"time"

	"anonpair/backend/internal/models"

	"github.com/samber/lo"
	"gorm.io/gorm/clause"
)

// EnqueueSearcher upserts the user's waiting entry. On conflict only the
// filter columns are updated; enqueued_at is left alone so the user does not
// lose their place in the queue when they adjust the filter.
func (s *Service) EnqueueSearcher(entry *models.SearchEntry) error {
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = time.Now()
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"gender_filter", "interests", "topic", "priority_tier",
		}),
	}).Create(entry).Error
}

// DequeueSearcher removes the entry if present; removing an absent entry is
// not an error.
func (s *Service) DequeueSearcher(userID int64) error {
	return s.DB.Delete(&models.SearchEntry{}, "user_id = ?", userID).Error
}

func (s *Service) InSearchQueue(userID int64) (bool, error) {
	var count int64
	err := s.DB.Model(&models.SearchEntry{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}

// OrderedQueueSnapshot returns the current queue joined with user attributes,
// ordered by priority tier (descending) then arrival time. This ordering is
// the scheduling contract: paid tiers first, earliest arrival wins inside a
// tier. Banned users are excluded here so they are never offered as
// candidates.
func (s *Service) OrderedQueueSnapshot() ([]models.WaitingEntry, error) {
	var rows []struct {
		models.SearchEntry
		Gender string
	}
	err := s.DB.Model(&models.SearchEntry{}).
		Select("search_entries.*, users.gender").
		Joins("JOIN users ON users.id = search_entries.user_id").
		Where("users.is_banned = ?", false).
		Order("search_entries.priority_tier DESC, search_entries.enqueued_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return lo.Map(rows, func(r struct {
		models.SearchEntry
		Gender string
	}, _ int) models.WaitingEntry {
		return models.WaitingEntry{
			UserID:       r.UserID,
			Gender:       r.Gender,
			GenderFilter: r.GenderFilter,
			Interests:    r.Interests,
			Topic:        r.Topic,
			PriorityTier: r.PriorityTier,
			EnqueuedAt:   r.EnqueuedAt,
		}
	}), nil
}

// ClearSearchQueue wipes the queue and returns the user IDs that were
// waiting, so the recovery procedure can tell them to restart their search.
func (s *Service) ClearSearchQueue() ([]int64, error) {
	var ids []int64
	if err := s.DB.Model(&models.SearchEntry{}).Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Exec("DELETE FROM search_entries").Error; err != nil {
		return nil, err
	}
	return ids, nil
}
