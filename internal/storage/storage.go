// Package storage provides durable state (PostgreSQL via GORM) and fast
// volatile state (Redis) behind one Storage interface.
package storage

import (
	"context"
	"errors"
	"time"

	"anonpair/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateActiveSession is returned by OpenSession when either
	// participant already has an active session.
	ErrDuplicateActiveSession = errors.New("participant already has an active session")
	// ErrPromoInvalid is returned when a promo code is unknown, expired or
	// exhausted.
	ErrPromoInvalid = errors.New("promo code not found or expired")
	// ErrPromoAlreadyUsed is returned when a user redeems a code twice.
	ErrPromoAlreadyUsed = errors.New("promo code already used by this user")
)

// Stats is the aggregate snapshot served to administrators.
type Stats struct {
	TotalUsers     int64 `json:"total_users"`
	OnlineNow      int64 `json:"online_now"`
	ActiveToday    int64 `json:"active_today"`
	PremiumUsers   int64 `json:"premium_users"`
	TotalChats     int64 `json:"total_chats"`
	ChatsToday     int64 `json:"chats_today"`
	ActiveChats    int64 `json:"active_chats"`
	QueueSize      int64 `json:"queue_size"`
	TotalMessages  int64 `json:"total_messages"`
	PendingReports int64 `json:"pending_reports"`
	PaymentsStars  int64 `json:"payments_stars"`
}

// Realtime is the small snapshot pushed over the admin websocket feed.
type Realtime struct {
	QueueSize   int64                `json:"queue"`
	ActiveChats int64                `json:"active_chats"`
	OnlineNow   int64                `json:"online"`
	Live        []models.ChatSession `json:"live"`
}

type Storage interface {
	// Users
	GetOrCreateUser(id int64, username, firstName, refCode string) (*models.User, error)
	GetUser(id int64) (*models.User, error)
	SaveUser(user *models.User) error
	UpdateProfile(id int64, gender string, interests []string) error
	BanUser(id int64, reason string) error
	UnbanUser(id int64) error
	IsUserBanned(id int64) (bool, error)
	ActivatePlan(id int64, plan string, days int) error
	ExpirePlans() (int64, error)
	ResetDailyCounters() (int64, error)

	// Search queue
	EnqueueSearcher(entry *models.SearchEntry) error
	DequeueSearcher(userID int64) error
	InSearchQueue(userID int64) (bool, error)
	OrderedQueueSnapshot() ([]models.WaitingEntry, error)
	ClearSearchQueue() ([]int64, error)

	// Sessions
	OpenSession(userA, userB int64, topic string) (*models.ChatSession, error)
	CloseSession(sessionID uint, endedBy *int64) error
	ActiveSessionFor(userID int64) (*models.ChatSession, error)
	GetSession(sessionID uint) (*models.ChatSession, error)
	ReconcileActiveSessions() ([]models.ChatSession, error)

	// Message log
	LogMessage(entry *models.MessageLog) error

	// Moderation
	AddReport(report *models.Report) error
	ReviewReport(reportID uint, ban bool) error
	ListReports(status string, limit, offset int) ([]models.Report, error)
	RateUser(raterID, ratedID int64, sessionID uint, value int) error

	// Billing
	CreatePayment(p *models.Payment) error
	ConfirmPayment(paymentID uint, ref string) (*models.Payment, error)
	PendingPayment(userID int64, provider string) (*models.Payment, error)
	CreatePromo(code, plan string, days, maxUses int, expiresIn time.Duration) error
	RedeemPromo(code string, userID int64) (*models.PromoCode, error)

	// Hot topics
	ListTopics(activeOnly bool) ([]models.HotTopic, error)
	CreateTopic(text string) error
	DeleteTopic(id uint) error
	ToggleTopic(id uint, active bool) error

	// Broadcasts and stats
	CreateBroadcast(b *models.Broadcast) error
	FinishBroadcast(id uint, sent int, status string) error
	AudienceIDs(audience string) ([]int64, error)
	Stats() (*Stats, error)
	ListUsers(limit, offset int, search string) ([]models.User, int64, error)
	RealtimeSnapshot() (*Realtime, error)
}

// Service implements Storage on top of GORM and Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context

	log *logrus.Entry
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
		log:   logrus.WithField("component", "storage"),
	}
}

// AutoMigrate creates/updates all tables the service owns.
func (s *Service) AutoMigrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.ChatSession{},
		&models.SearchEntry{},
		&models.MessageLog{},
		&models.Payment{},
		&models.PromoCode{},
		&models.PromoUse{},
		&models.Report{},
		&models.Rating{},
		&models.Broadcast{},
		&models.HotTopic{},
	)
}
