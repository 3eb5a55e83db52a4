package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/models"
	"anonpair/backend/internal/tasks"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
)

// handleAdminCommand serves the in-chat moderation commands. The HTTP admin
// panel covers the same ground; these exist so moderators can act without
// leaving Telegram.
func (s *BotService) handleAdminCommand(msg *tgbotapi.Message) {
	if msg.From == nil || !s.Cfg.IsAdmin(msg.From.ID) {
		s.reply(msg.Chat.ID, "Unknown command. Try /help.")
		return
	}
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "ban":
		s.adminBan(chatID, args)
	case "unban":
		s.adminUnban(chatID, args)
	case "grant":
		s.adminGrant(chatID, args)
	case "addpromo":
		s.adminAddPromo(chatID, args)
	case "stats":
		s.adminStats(chatID)
	case "broadcast":
		s.adminBroadcast(chatID, msg.CommandArguments())
	}
}

func (s *BotService) adminBan(chatID int64, args []string) {
	if len(args) < 1 {
		s.reply(chatID, "Usage: /ban <user_id> [reason]")
		return
	}
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		s.reply(chatID, "Bad user id.")
		return
	}
	reason := strings.Join(args[1:], " ")
	if reason == "" {
		reason = "rules violation"
	}

	// kick the target out of any ongoing activity first
	if pr, ok := s.Engine.CurrentPairing(target); ok {
		if err := s.Engine.EndSession(pr.SessionID, 0); err != nil {
			s.log.WithError(err).WithField("session_id", pr.SessionID).Error("end session failed")
		}
	}
	if err := s.Engine.LeaveQueue(target); err != nil {
		s.log.WithError(err).WithField("user_id", target).Warn("dequeue failed")
	}
	if err := s.Storage.BanUser(target, reason); err != nil {
		s.reply(chatID, "Ban failed: "+err.Error())
		return
	}
	s.reply(chatID, fmt.Sprintf("User %d banned (%s).", target, reason))
}

func (s *BotService) adminUnban(chatID int64, args []string) {
	if len(args) != 1 {
		s.reply(chatID, "Usage: /unban <user_id>")
		return
	}
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		s.reply(chatID, "Bad user id.")
		return
	}
	if err := s.Storage.UnbanUser(target); err != nil {
		s.reply(chatID, "Unban failed: "+err.Error())
		return
	}
	s.reply(chatID, fmt.Sprintf("User %d unbanned.", target))
}

func (s *BotService) adminGrant(chatID int64, args []string) {
	if len(args) < 2 {
		s.reply(chatID, "Usage: /grant <user_id> <plan> [days]")
		return
	}
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		s.reply(chatID, "Bad user id.")
		return
	}
	plan := config.PlanByID(args[1])
	if plan == nil {
		ids := lo.Map(config.Plans, func(p config.Plan, _ int) string { return p.ID })
		s.reply(chatID, "Unknown plan. One of: "+strings.Join(ids, ", "))
		return
	}
	days := plan.Days
	if len(args) >= 3 {
		if d, err := strconv.Atoi(args[2]); err == nil && d > 0 {
			days = d
		}
	}
	if err := s.Storage.ActivatePlan(target, plan.ID, days); err != nil {
		s.reply(chatID, "Grant failed: "+err.Error())
		return
	}
	s.reply(chatID, fmt.Sprintf("Granted %s to %d for %d days.", plan.ID, target, days))
}

func (s *BotService) adminAddPromo(chatID int64, args []string) {
	if len(args) < 4 {
		s.reply(chatID, "Usage: /addpromo <code> <plan> <days> <max_uses> [expires_days]")
		return
	}
	code := strings.ToUpper(args[0])
	if config.PlanByID(args[1]) == nil {
		s.reply(chatID, "Unknown plan.")
		return
	}
	days, err1 := strconv.Atoi(args[2])
	maxUses, err2 := strconv.Atoi(args[3])
	if err1 != nil || err2 != nil || days <= 0 || maxUses <= 0 {
		s.reply(chatID, "Days and max uses must be positive numbers.")
		return
	}
	var expiresIn time.Duration
	if len(args) >= 5 {
		if d, err := strconv.Atoi(args[4]); err == nil && d > 0 {
			expiresIn = time.Duration(d) * 24 * time.Hour
		}
	}
	if err := s.Storage.CreatePromo(code, args[1], days, maxUses, expiresIn); err != nil {
		s.reply(chatID, "Promo creation failed: "+err.Error())
		return
	}
	s.reply(chatID, fmt.Sprintf("Promo %s created: %s, %d days, %d uses.", code, args[1], days, maxUses))
}

func (s *BotService) adminStats(chatID int64) {
	stats, err := s.Storage.Stats()
	if err != nil {
		s.reply(chatID, "Stats failed: "+err.Error())
		return
	}
	s.reply(chatID, fmt.Sprintf(
		"📊 Stats\n\nUsers: %d (premium %d)\nOnline: %d, active today: %d\nChats: %d total, %d today, %d live\nQueue: %d\nMessages: %d\nPending reports: %d\nStars revenue: %d",
		stats.TotalUsers, stats.PremiumUsers,
		stats.OnlineNow, stats.ActiveToday,
		stats.TotalChats, stats.ChatsToday, stats.ActiveChats,
		stats.QueueSize,
		stats.TotalMessages,
		stats.PendingReports,
		stats.PaymentsStars,
	))
}

func (s *BotService) adminBroadcast(chatID int64, raw string) {
	if s.Jobs == nil {
		s.reply(chatID, "Broadcasting is not configured.")
		return
	}
	parts := strings.SplitN(strings.TrimSpace(raw), " ", 2)
	if len(parts) != 2 {
		s.reply(chatID, "Usage: /broadcast <all|premium|free> <text>")
		return
	}
	audience, text := parts[0], parts[1]
	if audience != "all" && audience != "premium" && audience != "free" {
		s.reply(chatID, "Audience must be all, premium or free.")
		return
	}

	b := &models.Broadcast{Text: text, Audience: audience, Status: models.BroadcastRunning}
	if err := s.Storage.CreateBroadcast(b); err != nil {
		s.reply(chatID, "Broadcast failed: "+err.Error())
		return
	}
	task, err := tasks.NewBroadcastTask(b.ID, audience, text)
	if err != nil {
		s.reply(chatID, "Broadcast failed: "+err.Error())
		return
	}
	if _, err := s.Jobs.Enqueue(task); err != nil {
		s.reply(chatID, "Broadcast failed: "+err.Error())
		return
	}
	s.reply(chatID, fmt.Sprintf("Broadcast #%d queued for %q.", b.ID, audience))
}
