package telegram

import (
	"fmt"
	"strings"

	"anonpair/backend/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// The bot is the engine's MatchNotifier and the broadcast Sender.

// MatchFound tells a participant their chat has started. The error matters:
// the engine rolls the pairing back when the notice cannot be delivered.
func (s *BotService) MatchFound(userID int64, sessionID uint, partnerID int64) error {
	var lines []string
	lines = append(lines, "🎭 Partner found! Say hi.")

	if partner, err := s.Storage.GetUser(partnerID); err == nil && partner != nil {
		if partner.PremiumActive(timeNow()) {
			if p := config.PlanByID(partner.PremiumPlan); p != nil {
				lines = append(lines, fmt.Sprintf("Your partner has a %s badge.", p.Emoji))
			}
		}
	}
	if sess, err := s.Storage.GetSession(sessionID); err == nil && sess != nil && sess.Topic != "" {
		lines = append(lines, fmt.Sprintf("🎯 Topic: %s", sess.Topic))
	}
	lines = append(lines, "", "/stop to end, /next to skip.")

	msg := tgbotapi.NewMessage(userID, strings.Join(lines, "\n"))
	_, err := s.BotAPI.Send(msg)
	return err
}

// MatchAborted tells the reachable participant the match fell through.
func (s *BotService) MatchAborted(userID int64) {
	s.reply(userID, "😕 Your partner dropped before the chat started. /search to try again.")
}

// SessionEnded delivers the close notice with the rating prompt.
func (s *BotService) SessionEnded(userID int64, sessionID uint, partnerID int64, endedByPartner bool) {
	text := "✅ Chat ended."
	if endedByPartner {
		text = "👋 Your partner ended the chat."
	}
	text += "\n\nHow was it?"
	s.replyMarkup(userID, text, rateKeyboard(sessionID))

	if user, err := s.Storage.GetUser(userID); err == nil && user != nil &&
		!user.PremiumActive(timeNow()) &&
		user.TotalChats > 0 && user.TotalChats%config.UpsellEveryN == 0 {
		s.replyMarkup(userID, "💎 Enjoying the chats? Premium unlocks filters and priority:", plansKeyboard())
	}
}

// SearchCancelled tells a drained searcher to queue again after a restart.
func (s *BotService) SearchCancelled(userID int64) {
	s.reply(userID, "⚙️ The service was restarted and your search was cancelled. /search to queue again.")
}

// SendText implements the broadcast Sender.
func (s *BotService) SendText(chatID int64, text string) error {
	_, err := s.BotAPI.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
