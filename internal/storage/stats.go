package storage

import (
	"time"

	"anonpair/backend/internal/models"
)

func (s *Service) CreateBroadcast(b *models.Broadcast) error {
	b.CreatedAt = time.Now()
	return s.DB.Create(b).Error
}

func (s *Service) FinishBroadcast(id uint, sent int, status string) error {
	now := time.Now()
	return s.DB.Model(&models.Broadcast{}).Where("id = ?", id).Updates(map[string]interface{}{
		"sent_to":     sent,
		"status":      status,
		"finished_at": now,
	}).Error
}

// AudienceIDs returns the IDs of non-banned users in the broadcast audience.
func (s *Service) AudienceIDs(audience string) ([]int64, error) {
	q := s.DB.Model(&models.User{}).Where("is_banned = ?", false)
	switch audience {
	case "premium":
		q = q.Where("is_premium = ?", true)
	case "free":
		q = q.Where("is_premium = ?", false)
	}
	var ids []int64
	err := q.Pluck("id", &ids).Error
	return ids, err
}

// Stats aggregates the counters shown on the admin dashboard.
func (s *Service) Stats() (*Stats, error) {
	var st Stats
	type counter struct {
		dst   *int64
		model interface{}
		where string
		args  []interface{}
	}
	counters := []counter{
		{&st.TotalUsers, &models.User{}, "", nil},
		{&st.OnlineNow, &models.User{}, "last_active > NOW() - INTERVAL '5 minutes'", nil},
		{&st.ActiveToday, &models.User{}, "last_active > NOW() - INTERVAL '24 hours'", nil},
		{&st.PremiumUsers, &models.User{}, "is_premium = TRUE", nil},
		{&st.TotalChats, &models.ChatSession{}, "", nil},
		{&st.ChatsToday, &models.ChatSession{}, "started_at > NOW() - INTERVAL '24 hours'", nil},
		{&st.ActiveChats, &models.ChatSession{}, "status = ?", []interface{}{models.SessionActive}},
		{&st.QueueSize, &models.SearchEntry{}, "", nil},
		{&st.TotalMessages, &models.MessageLog{}, "", nil},
		{&st.PendingReports, &models.Report{}, "status = ?", []interface{}{models.ReportPending}},
		{&st.PaymentsStars, &models.Payment{}, "provider = ? AND status = ?", []interface{}{"stars", models.PaymentConfirmed}},
	}
	for _, c := range counters {
		q := s.DB.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.args...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	return &st, nil
}

// ListUsers pages through users for the admin panel, optionally filtering by
// a name/ID substring.
func (s *Service) ListUsers(limit, offset int, search string) ([]models.User, int64, error) {
	q := s.DB.Model(&models.User{})
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("username ILIKE ? OR first_name ILIKE ? OR id::text ILIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error
	return users, total, err
}

// RealtimeSnapshot is the lightweight feed pushed over the admin websocket.
func (s *Service) RealtimeSnapshot() (*Realtime, error) {
	var rt Realtime
	if err := s.DB.Model(&models.SearchEntry{}).Count(&rt.QueueSize).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.ChatSession{}).
		Where("status = ?", models.SessionActive).Count(&rt.ActiveChats).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.User{}).
		Where("last_active > NOW() - INTERVAL '5 minutes'").Count(&rt.OnlineNow).Error; err != nil {
		return nil, err
	}
	if err := s.DB.
		Where("status = ?", models.SessionActive).
		Order("started_at DESC").Limit(20).
		Find(&rt.Live).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}
