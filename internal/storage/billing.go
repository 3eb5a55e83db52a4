package storage

import (
	"errors"
	"strings"
	"time"

	"anonpair/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Service) CreatePayment(p *models.Payment) error {
	if p.Status == "" {
		p.Status = models.PaymentPending
	}
	p.CreatedAt = time.Now()
	return s.DB.Create(p).Error
}

// ConfirmPayment marks the payment confirmed and activates the purchased
// plan. Returns the confirmed payment.
func (s *Service) ConfirmPayment(paymentID uint, ref string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.DB.First(&payment, paymentID).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.DB.Model(&payment).Updates(map[string]interface{}{
		"status":       models.PaymentConfirmed,
		"payment_ref":  ref,
		"confirmed_at": now,
	}).Error; err != nil {
		return nil, err
	}

	days := 30
	if plan := planDays(payment.Plan); plan > 0 {
		days = plan
	}
	if err := s.ActivatePlan(payment.UserID, payment.Plan, days); err != nil {
		return nil, err
	}
	return &payment, nil
}

// planDays is kept local to avoid a storage→config dependency for one number.
func planDays(plan string) int {
	switch plan {
	case models.PlanBasic, models.PlanPro, models.PlanVIP:
		return 30
	default:
		return 0
	}
}

// PendingPayment returns the user's most recent pending payment for the
// provider, or nil.
func (s *Service) PendingPayment(userID int64, provider string) (*models.Payment, error) {
	var payment models.Payment
	err := s.DB.
		Where("user_id = ? AND provider = ? AND status = ?", userID, provider, models.PaymentPending).
		Order("created_at DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *Service) CreatePromo(code, plan string, days, maxUses int, expiresIn time.Duration) error {
	promo := models.PromoCode{
		Code:      strings.ToUpper(code),
		Plan:      plan,
		Days:      days,
		MaxUses:   maxUses,
		CreatedAt: time.Now(),
	}
	if expiresIn > 0 {
		expires := time.Now().Add(expiresIn)
		promo.ExpiresAt = &expires
	}
	return s.DB.Create(&promo).Error
}

// RedeemPromo atomically consumes one use of the code for the user and
// activates the granted plan. The row lock on the promo row serializes
// concurrent redemptions of the same code.
func (s *Service) RedeemPromo(code string, userID int64) (*models.PromoCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var promo models.PromoCode

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ? AND (expires_at IS NULL OR expires_at > NOW()) AND uses < max_uses", code).
			First(&promo).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPromoInvalid
		}
		if err != nil {
			return err
		}

		var used int64
		if err := tx.Model(&models.PromoUse{}).
			Where("code = ? AND user_id = ?", code, userID).
			Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return ErrPromoAlreadyUsed
		}

		if err := tx.Model(&promo).UpdateColumn("uses", gorm.Expr("uses + 1")).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.PromoUse{Code: code, UserID: userID, UsedAt: time.Now()}).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.ActivatePlan(userID, promo.Plan, promo.Days); err != nil {
		return nil, err
	}
	return &promo, nil
}
