package telegram

import (
	"errors"
	"fmt"
	"strings"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/matchmaker"
	"anonpair/backend/internal/state"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (s *BotService) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		s.handleStart(msg)
	case "search":
		s.handleSearch(chatID)
	case "cancel":
		s.handleCancel(chatID)
	case "stop":
		s.handleStop(chatID)
	case "next":
		s.handleNext(chatID)
	case "profile":
		s.handleProfile(chatID)
	case "premium":
		s.handlePremium(chatID)
	case "topics":
		s.handleTopics(chatID)
	case "promo":
		s.handlePromoEntry(chatID)
	case "invite":
		s.handleInvite(chatID)
	case "help":
		s.handleHelp(chatID)
	case "ban", "unban", "grant", "addpromo", "stats", "broadcast":
		s.handleAdminCommand(msg)
	default:
		s.reply(chatID, "Unknown command. Try /help.")
	}
}

func (s *BotService) handleStart(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	refCode := strings.TrimSpace(msg.CommandArguments())

	username := ""
	firstName := ""
	if msg.From != nil {
		username = msg.From.UserName
		firstName = msg.From.FirstName
	}
	user, err := s.Storage.GetOrCreateUser(chatID, username, firstName, refCode)
	if err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("get or create user failed")
		return
	}
	if !user.Registered {
		s.startRegistration(chatID)
		return
	}
	s.reply(chatID, "👋 Welcome back! /search to find someone to talk to.")
}

func (s *BotService) startRegistration(chatID int64) {
	if err := s.States.Set(chatID, state.ChoosingGender); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("state set failed")
		return
	}
	s.replyMarkup(chatID, "🕶 This is an anonymous chat. Let's set you up.\n\nWho are you?", genderKeyboard())
}

func (s *BotService) handleSearch(chatID int64) {
	user, err := s.Storage.GetUser(chatID)
	if err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("get user failed")
		return
	}
	if user == nil || !user.Registered {
		s.startRegistration(chatID)
		return
	}
	if user.PremiumActive(timeNow()) {
		if err := s.States.Set(chatID, state.ChoosingFilter); err == nil {
			s.replyMarkup(chatID, "Who would you like to talk to?", filterKeyboard())
			return
		}
	}
	s.enterQueue(chatID, nil)
}

// enterQueue puts the user into the waiting pool and translates engine
// errors into user-facing messages.
func (s *BotService) enterQueue(chatID int64, filter *string) {
	err := s.Engine.EnterQueue(chatID, filter)
	switch {
	case err == nil:
		s.replyMarkup(chatID, "🔎 Looking for a partner...", searchingKeyboard())
	case errors.Is(err, matchmaker.ErrDailyLimit):
		text := fmt.Sprintf("You've used all %d free chats for today. 😔\n\nPremium removes the limit:", config.FreeDailyChats)
		s.replyMarkup(chatID, text, plansKeyboard())
	case errors.Is(err, matchmaker.ErrAlreadyInChat):
		s.reply(chatID, "You're already in a chat. /stop to end it first.")
	case errors.Is(err, matchmaker.ErrBanned):
		s.reply(chatID, "🚫 You are banned from the service.")
	case errors.Is(err, matchmaker.ErrNotRegistered):
		s.startRegistration(chatID)
	default:
		s.log.WithError(err).WithField("chat_id", chatID).Error("enter queue failed")
		s.reply(chatID, "Something went wrong, please try again.")
	}
}

func (s *BotService) handleCancel(chatID int64) {
	if err := s.Engine.LeaveQueue(chatID); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("leave queue failed")
		return
	}
	s.reply(chatID, "Search cancelled. /search whenever you're ready.")
}

func (s *BotService) handleStop(chatID int64) {
	_, err := s.Engine.EndSessionFor(chatID)
	if errors.Is(err, matchmaker.ErrSessionNotFound) {
		s.reply(chatID, "You're not in a chat right now.")
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("end session failed")
	}
}

func (s *BotService) handleNext(chatID int64) {
	if _, err := s.Engine.EndSessionFor(chatID); err != nil && !errors.Is(err, matchmaker.ErrSessionNotFound) {
		s.log.WithError(err).WithField("chat_id", chatID).Error("end session failed")
		return
	}
	s.handleSearch(chatID)
}

func (s *BotService) handleProfile(chatID int64) {
	user, err := s.Storage.GetUser(chatID)
	if err != nil || user == nil {
		s.reply(chatID, "Send /start first.")
		return
	}

	gender := "not set"
	switch user.Gender {
	case "male":
		gender = "👨 Male"
	case "female":
		gender = "👩 Female"
	}
	interests := "none"
	if len(user.Interests) > 0 {
		interests = strings.Join(user.Interests, ", ")
	}
	plan := "Free"
	if user.PremiumActive(timeNow()) {
		if p := config.PlanByID(user.PremiumPlan); p != nil {
			plan = p.Emoji + " " + p.Name
			if user.PremiumUntil != nil {
				plan += " until " + user.PremiumUntil.Format("02 Jan 2006")
			}
		}
	}

	text := fmt.Sprintf(
		"👤 Your profile\n\nGender: %s\nInterests: %s\nPlan: %s\nRating: %.1f ⭐ (%d votes)\nChats: %d\nFriends invited: %d",
		gender, interests, plan, user.Rating, user.RatingCount, user.TotalChats, user.ReferralCount,
	)
	s.replyMarkup(chatID, text, profileKeyboard())
}

func (s *BotService) handlePremium(chatID int64) {
	var b strings.Builder
	b.WriteString("💎 Premium plans\n\n")
	for _, p := range config.Plans {
		b.WriteString(fmt.Sprintf("%s %s — %d ⭐ for %d days\n", p.Emoji, p.Name, p.Stars, p.Days))
		for _, f := range p.Features {
			b.WriteString("  • " + f + "\n")
		}
		b.WriteString("\n")
	}
	s.replyMarkup(chatID, b.String(), plansKeyboard())
}

func (s *BotService) handlePromoEntry(chatID int64) {
	if err := s.States.Set(chatID, state.EnteringPromo); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("state set failed")
		return
	}
	s.reply(chatID, "🎟 Send your promo code.")
}

func (s *BotService) handleInvite(chatID int64) {
	user, err := s.Storage.GetUser(chatID)
	if err != nil || user == nil {
		s.reply(chatID, "Send /start first.")
		return
	}
	days := int(config.ReferralBonus.Hours() / 24)
	text := fmt.Sprintf(
		"🎁 Invite friends and get %d days of Basic for each one who joins.\n\nYour link:\nhttps://t.me/%s?start=%s\n\nInvited so far: %d",
		days, s.Cfg.BotUsername, user.ReferralCode, user.ReferralCount,
	)
	s.reply(chatID, text)
}

func (s *BotService) handleHelp(chatID int64) {
	s.reply(chatID, strings.Join([]string{
		"/search — find a partner",
		"/cancel — stop searching",
		"/stop — end the current chat",
		"/next — end and search again",
		"/profile — your profile",
		"/premium — premium plans",
		"/topics — hot topics of the day",
		"/promo — redeem a promo code",
		"/invite — invite friends",
	}, "\n"))
}
