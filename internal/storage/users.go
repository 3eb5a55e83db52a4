package storage

import (
	"errors"
	"fmt"
	"time"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// GetOrCreateUser returns the user row, creating it on first contact.
// Existing users get their name fields and LastActive refreshed. A non-empty
// refCode credits the referrer with bonus premium time, self-referrals
// excluded.
func (s *Service) GetOrCreateUser(id int64, username, firstName, refCode string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, id).Error
	if err == nil {
		updates := map[string]interface{}{
			"username":    username,
			"first_name":  firstName,
			"last_active": time.Now(),
		}
		if err := s.DB.Model(&user).Updates(updates).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		ID:         id,
		Username:   username,
		FirstName:  firstName,
		LastActive: time.Now(),
		DailyReset: time.Now(),
	}
	if refCode != "" {
		var referrer models.User
		if err := s.DB.Where("referral_code = ?", refCode).First(&referrer).Error; err == nil && referrer.ID != id {
			user.ReferredBy = &referrer.ID
		}
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return nil, err
	}

	if user.ReferredBy != nil {
		if err := s.creditReferrer(*user.ReferredBy); err != nil {
			s.log.WithError(err).WithField("referrer", *user.ReferredBy).Warn("failed to credit referrer")
		}
	}
	return &user, nil
}

// creditReferrer bumps the referral counter and extends the referrer's
// basic premium by the referral bonus.
func (s *Service) creditReferrer(referrerID int64) error {
	bonusDays := int(config.ReferralBonus / (24 * time.Hour))
	return s.DB.Exec(
		`UPDATE users SET referral_count = referral_count + 1, is_premium = TRUE,
		 premium_plan = COALESCE(NULLIF(premium_plan, ''), 'basic'),
		 premium_until = GREATEST(COALESCE(premium_until, NOW()), NOW()) + (? * INTERVAL '1 day')
		 WHERE id = ?`,
		bonusDays, referrerID,
	).Error
}

func (s *Service) GetUser(id int64) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) SaveUser(user *models.User) error {
	return s.DB.Save(user).Error
}

// UpdateProfile stores gender and interests and marks the profile complete.
func (s *Service) UpdateProfile(id int64, gender string, interests []string) error {
	return s.DB.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"gender":     gender,
		"interests":  pq.StringArray(interests),
		"registered": true,
	}).Error
}

func banKey(id int64) string {
	return fmt.Sprintf("ban:%d", id)
}

// BanUser sets the ban flag in PostgreSQL and mirrors it into Redis so the
// matcher and relay can check it cheaply. Redis is optional, the ops CLI
// runs without it.
func (s *Service) BanUser(id int64, reason string) error {
	if err := s.DB.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_banned":  true,
		"ban_reason": reason,
	}).Error; err != nil {
		return err
	}
	if s.Redis != nil {
		if err := s.Redis.Set(s.Ctx, banKey(id), reason, 0).Err(); err != nil {
			s.log.WithError(err).WithField("user", id).Warn("failed to cache ban flag")
		}
	}
	return nil
}

func (s *Service) UnbanUser(id int64) error {
	if err := s.DB.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_banned":  false,
		"ban_reason": "",
	}).Error; err != nil {
		return err
	}
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Del(s.Ctx, banKey(id)).Err()
}

// IsUserBanned checks the Redis mirror first and falls back to PostgreSQL,
// backfilling the cache on a hit.
func (s *Service) IsUserBanned(id int64) (bool, error) {
	if s.Redis != nil {
		_, err := s.Redis.Get(s.Ctx, banKey(id)).Result()
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, redis.Nil) {
			return false, err
		}
	}

	var user models.User
	if err := s.DB.Select("is_banned", "ban_reason").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if user.IsBanned && s.Redis != nil {
		if err := s.Redis.Set(s.Ctx, banKey(id), user.BanReason, 0).Err(); err != nil {
			s.log.WithError(err).Warn("failed to backfill ban cache")
		}
	}
	return user.IsBanned, nil
}

// ActivatePlan grants or extends a premium plan. Extension stacks on top of
// the current expiry when it is still in the future.
func (s *Service) ActivatePlan(id int64, plan string, days int) error {
	return s.DB.Exec(
		`UPDATE users SET is_premium = TRUE, premium_plan = ?,
		 premium_until = GREATEST(COALESCE(premium_until, NOW()), NOW()) + (? * INTERVAL '1 day')
		 WHERE id = ?`,
		plan, days, id,
	).Error
}

// ExpirePlans downgrades users whose premium has lapsed. Returns the number
// of rows affected.
func (s *Service) ExpirePlans() (int64, error) {
	res := s.DB.Exec(
		`UPDATE users SET is_premium = FALSE, premium_plan = '', premium_until = NULL
		 WHERE is_premium = TRUE AND premium_until IS NOT NULL AND premium_until < NOW()`,
	)
	return res.RowsAffected, res.Error
}

// ResetDailyCounters zeroes the per-day chat counters once the stored reset
// date falls behind the current date.
func (s *Service) ResetDailyCounters() (int64, error) {
	res := s.DB.Exec(
		`UPDATE users SET daily_chats = 0, daily_reset = CURRENT_DATE
		 WHERE daily_reset < CURRENT_DATE`,
	)
	return res.RowsAffected, res.Error
}
