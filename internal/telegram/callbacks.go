package telegram

import (
	"strconv"
	"strings"

	"anonpair/backend/internal/models"
	"anonpair/backend/internal/state"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (s *BotService) handleCallback(cb *tgbotapi.CallbackQuery) {
	// acknowledge to stop the client-side spinner
	if _, err := s.BotAPI.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		s.log.WithError(err).Warn("callback ack failed")
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	parts := strings.SplitN(cb.Data, ":", 3)
	switch parts[0] {
	case "gender":
		if len(parts) == 2 {
			s.setGender(chatID, parts[1])
		}
	case "edit":
		if len(parts) == 2 {
			s.handleEdit(chatID, parts[1])
		}
	case "filter":
		if len(parts) == 2 {
			var filter *string
			if parts[1] != "any" {
				filter = &parts[1]
			}
			s.enterQueue(chatID, filter)
		}
	case "search":
		if len(parts) == 2 && parts[1] == "cancel" {
			s.handleCancel(chatID)
		}
	case "topic":
		if len(parts) == 2 {
			s.searchByTopic(chatID, parts[1])
		}
	case "rate":
		if len(parts) == 3 {
			s.handleRate(chatID, parts[1], parts[2])
		}
	case "report":
		if len(parts) == 2 {
			if sid, err := strconv.ParseUint(parts[1], 10, 32); err == nil {
				s.replyMarkup(chatID, "Why are you reporting your partner?", reportReasonKeyboard(uint(sid)))
			}
		}
	case "reportwhy":
		if len(parts) == 3 {
			s.handleReport(chatID, parts[1], parts[2])
		}
	case "buy":
		if len(parts) == 2 {
			s.sendInvoice(chatID, parts[1])
		}
	}
}

func (s *BotService) setGender(chatID int64, gender string) {
	if gender != "male" && gender != "female" {
		return
	}
	user, err := s.Storage.GetUser(chatID)
	if err != nil || user == nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("get user failed")
		return
	}
	user.Gender = gender
	if err := s.Storage.SaveUser(user); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("save user failed")
		return
	}
	if !user.Registered {
		if err := s.States.Set(chatID, state.ChoosingInterests); err != nil {
			s.log.WithError(err).WithField("chat_id", chatID).Error("state set failed")
			return
		}
		s.reply(chatID, "💬 Now send a few interests separated by commas, e.g. music, travel, games.")
		return
	}
	s.handleProfile(chatID)
}

func (s *BotService) handleEdit(chatID int64, field string) {
	switch field {
	case "gender":
		s.replyMarkup(chatID, "Who are you?", genderKeyboard())
	case "interests":
		if err := s.States.Set(chatID, state.ChoosingInterests); err != nil {
			s.log.WithError(err).WithField("chat_id", chatID).Error("state set failed")
			return
		}
		s.reply(chatID, "Send your new interests separated by commas.")
	}
}

func (s *BotService) handleRate(chatID int64, sidStr, valStr string) {
	sid, err := strconv.ParseUint(sidStr, 10, 32)
	if err != nil {
		return
	}
	value, err := strconv.Atoi(valStr)
	if err != nil || (value != 1 && value != -1) {
		return
	}
	sess, err := s.Storage.GetSession(uint(sid))
	if err != nil || sess == nil || !sess.Involves(chatID) {
		return
	}
	if err := s.Storage.RateUser(chatID, sess.PartnerOf(chatID), uint(sid), value); err != nil {
		s.log.WithError(err).WithField("session_id", sid).Error("rate failed")
		return
	}
	s.reply(chatID, "Thanks for the feedback! 🙌")
}

func (s *BotService) handleReport(chatID int64, sidStr, reason string) {
	sid, err := strconv.ParseUint(sidStr, 10, 32)
	if err != nil {
		return
	}
	sess, err := s.Storage.GetSession(uint(sid))
	if err != nil || sess == nil || !sess.Involves(chatID) {
		return
	}
	report := &models.Report{
		ReporterID: chatID,
		ReportedID: sess.PartnerOf(chatID),
		SessionID:  uint(sid),
		Reason:     reason,
	}
	if err := s.Storage.AddReport(report); err != nil {
		s.log.WithError(err).WithField("session_id", sid).Error("report failed")
		return
	}
	s.reply(chatID, "⚠️ Report filed. Our moderators will take a look.")
}
