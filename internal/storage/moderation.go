package storage

import (
	"errors"
	"time"

	"anonpair/backend/internal/models"

	"gorm.io/gorm"
)

func (s *Service) AddReport(report *models.Report) error {
	if report.Status == "" {
		report.Status = models.ReportPending
	}
	return s.DB.Create(report).Error
}

// ReviewReport closes a pending report. When ban is true the reported user
// is banned as part of the review.
func (s *Service) ReviewReport(reportID uint, ban bool) error {
	var report models.Report
	if err := s.DB.First(&report, reportID).Error; err != nil {
		return err
	}

	status := models.ReportDismissed
	if ban {
		status = models.ReportBanned
	}
	now := time.Now()
	if err := s.DB.Model(&report).Updates(map[string]interface{}{
		"status":      status,
		"reviewed_at": now,
	}).Error; err != nil {
		return err
	}
	if ban {
		return s.BanUser(report.ReportedID, "banned after report review")
	}
	return nil
}

// RateUser records a thumbs up/down and folds it into the rated user's
// running average. A second rating for the same session is silently ignored.
func (s *Service) RateUser(raterID, ratedID int64, sessionID uint, value int) error {
	rating := models.Rating{
		RaterID:   raterID,
		RatedID:   ratedID,
		SessionID: sessionID,
		Value:     value,
		CreatedAt: time.Now(),
	}
	err := s.DB.Create(&rating).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}

	score := 1.0
	if value == 1 {
		score = 10.0
	}
	return s.DB.Exec(
		`UPDATE users SET
		 rating = ROUND(((rating * rating_count + ?) / (rating_count + 1))::numeric, 2),
		 rating_count = rating_count + 1
		 WHERE id = ?`,
		score, ratedID,
	).Error
}

// ListReports returns reports filtered by status, newest first. An empty
// status returns everything.
func (s *Service) ListReports(status string, limit, offset int) ([]models.Report, error) {
	q := s.DB.Model(&models.Report{}).Order("created_at DESC").Limit(limit).Offset(offset)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var reports []models.Report
	err := q.Find(&reports).Error
	return reports, err
}
