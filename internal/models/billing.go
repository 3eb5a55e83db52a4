package models

import "time"

// Payment status values.
const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentFailed    = "failed"
)

// Payment is one premium purchase attempt.
type Payment struct {
	ID         uint  `gorm:"primaryKey"`
	UserID     int64 `gorm:"index"`
	Provider   string `gorm:"not null"` // "stars"
	Plan       string `gorm:"not null"`
	PaymentRef string
	Amount     string
	Status     string `gorm:"default:pending"`

	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

// PromoCode grants a premium plan to whoever redeems it, up to MaxUses times.
type PromoCode struct {
	ID        uint   `gorm:"primaryKey"`
	Code      string `gorm:"uniqueIndex;not null"`
	Plan      string `gorm:"not null"`
	Days      int    `gorm:"default:30"`
	MaxUses   int    `gorm:"default:1"`
	Uses      int
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// PromoUse records a single redemption; the composite unique index keeps a
// user from redeeming the same code twice.
type PromoUse struct {
	ID     uint   `gorm:"primaryKey"`
	Code   string `gorm:"uniqueIndex:idx_promo_user;not null"`
	UserID int64  `gorm:"uniqueIndex:idx_promo_user"`
	UsedAt time.Time
}
