// Package config holds the service configuration: environment-driven
// settings and the fixed product constants (plans, limits).
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is populated from the environment. A .env file is honored when
// present so local runs match docker-compose.
type Config struct {
	BotToken    string `envconfig:"BOT_TOKEN" required:"true"`
	BotUsername string `envconfig:"BOT_USERNAME" default:"anonpair_bot"`
	AdminIDs    []int64 `envconfig:"ADMIN_IDS"`

	DatabaseDSN string `envconfig:"DATABASE_DSN" required:"true"`
	RedisAddr   string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB     int    `envconfig:"REDIS_DB" default:"0"`

	HTTPAddr      string `envconfig:"HTTP_ADDR" default:":8080"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" required:"true"`
	JWTSecret     string `envconfig:"JWT_SECRET" required:"true"`

	// AMQPURL enables the lifecycle event publisher when set.
	AMQPURL string `envconfig:"AMQP_URL"`

	MatchInterval time.Duration `envconfig:"MATCH_INTERVAL" default:"3s"`
}

// Load reads .env (if any) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsAdmin reports whether the Telegram user is a configured administrator.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Product limits.
const (
	FreeDailyChats  = 20
	UpsellEveryN    = 4 // premium upsell shown to free users every N finished chats
	ReferralBonus   = 3 * 24 * time.Hour
	BroadcastWindow = 30 // messages sent between 1s pauses during fan-out
)

// Plan describes one purchasable premium tier.
type Plan struct {
	ID       string
	Name     string
	Emoji    string
	Stars    int // price in Telegram Stars
	Days     int
	Features []string
}

// Plans in display order.
var Plans = []Plan{
	{
		ID: "basic", Name: "Basic", Emoji: "⚡", Stars: 50, Days: 30,
		Features: []string{"No upsells", "Unlimited chats", "Gender filter", "⚡ badge in chat"},
	},
	{
		ID: "pro", Name: "Pro", Emoji: "🔥", Stars: 125, Days: 30,
		Features: []string{"Everything in Basic", "Queue priority", "Anonymous gifts", "🔥 badge in chat"},
	},
	{
		ID: "vip", Name: "VIP", Emoji: "👑", Stars: 300, Days: 30,
		Features: []string{"Everything in Pro", "Top search priority", "👑 badge in chat", "Early access to features"},
	},
}

// PlanByID returns the plan with the given ID, or nil.
func PlanByID(id string) *Plan {
	for i := range Plans {
		if Plans[i].ID == id {
			return &Plans[i]
		}
	}
	return nil
}
