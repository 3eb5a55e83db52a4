// Ops CLI for moderation and billing actions against a running deployment.
// It talks straight to the database, no bot token required.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/storage"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func usage() {
	fmt.Println(`Usage: admin <command> [args]

Commands:
  ban <user_id> [reason]
  unban <user_id>
  grant <user_id> <plan> [days]
  addpromo <code> <plan> <days> <max_uses> [expires_days]
  stats`)
	os.Exit(1)
}

func main() {
	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		log.Fatal("DATABASE_DSN is not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	s := storage.NewStorageService(db, nil) // no redis needed for the CLI

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "ban":
		if len(os.Args) < 3 {
			usage()
		}
		userID := parseUserID(os.Args[2])
		reason := "rules violation"
		if len(os.Args) > 3 {
			reason = os.Args[3]
		}
		if err := s.BanUser(userID, reason); err != nil {
			log.Fatalf("ban failed: %v", err)
		}
		fmt.Printf("User %d banned (%s).\n", userID, reason)

	case "unban":
		if len(os.Args) != 3 {
			usage()
		}
		userID := parseUserID(os.Args[2])
		if err := s.UnbanUser(userID); err != nil {
			log.Fatalf("unban failed: %v", err)
		}
		fmt.Printf("User %d unbanned.\n", userID)

	case "grant":
		if len(os.Args) < 4 {
			usage()
		}
		userID := parseUserID(os.Args[2])
		plan := config.PlanByID(os.Args[3])
		if plan == nil {
			log.Fatalf("unknown plan %q", os.Args[3])
		}
		days := plan.Days
		if len(os.Args) > 4 {
			if d, err := strconv.Atoi(os.Args[4]); err == nil && d > 0 {
				days = d
			}
		}
		if err := s.ActivatePlan(userID, plan.ID, days); err != nil {
			log.Fatalf("grant failed: %v", err)
		}
		fmt.Printf("Granted %s to %d for %d days.\n", plan.ID, userID, days)

	case "addpromo":
		if len(os.Args) < 6 {
			usage()
		}
		code, planID := os.Args[2], os.Args[3]
		if config.PlanByID(planID) == nil {
			log.Fatalf("unknown plan %q", planID)
		}
		days, err1 := strconv.Atoi(os.Args[4])
		maxUses, err2 := strconv.Atoi(os.Args[5])
		if err1 != nil || err2 != nil || days <= 0 || maxUses <= 0 {
			log.Fatal("days and max_uses must be positive integers")
		}
		var expiresIn time.Duration
		if len(os.Args) > 6 {
			if d, err := strconv.Atoi(os.Args[6]); err == nil && d > 0 {
				expiresIn = time.Duration(d) * 24 * time.Hour
			}
		}
		if err := s.CreatePromo(code, planID, days, maxUses, expiresIn); err != nil {
			log.Fatalf("promo creation failed: %v", err)
		}
		fmt.Printf("Promo %s created.\n", code)

	case "stats":
		stats, err := s.Stats()
		if err != nil {
			log.Fatalf("stats failed: %v", err)
		}
		fmt.Printf("Users: %d (premium %d)\n", stats.TotalUsers, stats.PremiumUsers)
		fmt.Printf("Chats: %d total, %d today, %d live\n", stats.TotalChats, stats.ChatsToday, stats.ActiveChats)
		fmt.Printf("Queue: %d, messages: %d\n", stats.QueueSize, stats.TotalMessages)
		fmt.Printf("Pending reports: %d\n", stats.PendingReports)
		fmt.Printf("Stars revenue: %d\n", stats.PaymentsStars)

	default:
		usage()
	}
}

func parseUserID(raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Fatalf("invalid user id %q", raw)
	}
	return id
}
