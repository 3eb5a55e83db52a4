package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Premium plan identifiers. An empty plan means the free tier.
const (
	PlanBasic = "basic"
	PlanPro   = "pro"
	PlanVIP   = "vip"
)

// Priority tiers used by the search queue ordering. Higher is served first.
const (
	TierFree    = 0
	TierPremium = 1
	TierVIP     = 2
)

// User represents one Telegram user of the service.
// The primary key is the Telegram chat ID, so the bot can always address
// the user directly without an extra lookup.
type User struct {
	ID         int64  `gorm:"primaryKey"`
	Username   string `gorm:"type:text"`
	FirstName  string `gorm:"type:text"`
	Gender     string `gorm:"type:text"` // "male", "female" or "" (not specified)
	Interests  pq.StringArray `gorm:"type:text[]"`
	Registered bool   // profile setup completed

	IsBanned  bool `gorm:"index"`
	BanReason string
	WarnCount int

	IsPremium    bool `gorm:"index"`
	PremiumPlan  string
	PremiumUntil *time.Time

	Rating      float64 `gorm:"default:5"`
	RatingCount int

	TotalChats    int
	TotalMessages int
	DailyChats    int
	DailyReset    time.Time `gorm:"type:date"`

	ReferralCode  string `gorm:"uniqueIndex"`
	ReferredBy    *int64
	ReferralCount int

	LastActive time.Time
	CreatedAt  time.Time
}

// BeforeCreate is a GORM hook that assigns a referral code before the row
// is inserted, if one has not been set yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ReferralCode == "" {
		u.ReferralCode = NewReferralCode()
	}
	return
}

// NewReferralCode returns a short shareable code for referral links.
func NewReferralCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// PremiumActive reports whether the user's premium plan is valid at the
// given instant. A nil PremiumUntil means the plan does not expire.
func (u *User) PremiumActive(now time.Time) bool {
	if !u.IsPremium {
		return false
	}
	if u.PremiumUntil == nil {
		return true
	}
	return u.PremiumUntil.After(now)
}

// PriorityTier maps the user's plan to a queue priority tier.
// VIP advertises a stronger search priority than the other paid plans.
func (u *User) PriorityTier(now time.Time) int {
	if !u.PremiumActive(now) {
		return TierFree
	}
	if u.PremiumPlan == PlanVIP {
		return TierVIP
	}
	return TierPremium
}
