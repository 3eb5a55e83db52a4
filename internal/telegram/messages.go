package telegram

import (
	"errors"
	"strings"

	"anonpair/backend/internal/models"
	"anonpair/backend/internal/state"
	"anonpair/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
)

const maxInterests = 5

// handleMessage routes a non-command message by the user's conversation
// state: registration input, promo entry, or chat relay.
func (s *BotService) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	st, err := s.States.Get(chatID)
	if err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("state read failed")
		return
	}

	switch st {
	case state.ChoosingGender:
		s.replyMarkup(chatID, "Please pick one of the buttons:", genderKeyboard())
	case state.ChoosingInterests:
		s.finishRegistration(msg)
	case state.ChoosingFilter:
		s.replyMarkup(chatID, "Please pick one of the buttons:", filterKeyboard())
	case state.EnteringPromo:
		s.redeemPromo(msg)
	case state.InChat:
		s.relay(msg)
	case state.Searching:
		s.replyMarkup(chatID, "🔎 Still looking for a partner...", searchingKeyboard())
	default:
		s.reply(chatID, "/search to find someone to talk to.")
	}
}

// parseInterests splits a comma-separated list, drops empty items and caps
// the count.
func parseInterests(input string) []string {
	parts := lo.FilterMap(strings.Split(input, ","), func(p string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(p)
		return trimmed, trimmed != ""
	})
	parts = lo.Uniq(parts)
	if len(parts) > maxInterests {
		parts = parts[:maxInterests]
	}
	return parts
}

func (s *BotService) finishRegistration(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	interests := parseInterests(msg.Text)
	if len(interests) == 0 {
		s.reply(chatID, "Send a few interests separated by commas, e.g. music, travel, games.")
		return
	}
	user, err := s.Storage.GetUser(chatID)
	if err != nil || user == nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("get user failed")
		return
	}
	if err := s.Storage.UpdateProfile(chatID, user.Gender, interests); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("update profile failed")
		return
	}
	if err := s.States.Set(chatID, state.Idle); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Warn("state reset failed")
	}
	s.reply(chatID, "✅ You're all set! /search to find your first partner.")
}

func (s *BotService) redeemPromo(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	code := strings.TrimSpace(msg.Text)
	promo, err := s.Storage.RedeemPromo(code, chatID)
	switch {
	case errors.Is(err, storage.ErrPromoInvalid):
		s.reply(chatID, "That code is not valid or has expired.")
		return
	case errors.Is(err, storage.ErrPromoAlreadyUsed):
		s.reply(chatID, "You've already used this code.")
		return
	case err != nil:
		s.log.WithError(err).WithField("chat_id", chatID).Error("promo redemption failed")
		s.reply(chatID, "Something went wrong, please try again.")
		return
	}
	if err := s.States.Set(chatID, state.Idle); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Warn("state reset failed")
	}
	s.reply(chatID, "🎉 "+strings.ToUpper(promo.Plan)+" activated! Enjoy.")
}

// relay copies the message to the partner, keeping the sender anonymous,
// and records it in the message log. An undeliverable partner ends the
// session.
func (s *BotService) relay(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	pr, ok := s.Engine.CurrentPairing(chatID)
	if !ok {
		// state said InChat but the pairing is gone, self-heal
		if err := s.States.Clear(chatID); err != nil {
			s.log.WithError(err).WithField("chat_id", chatID).Warn("state reset failed")
		}
		s.reply(chatID, "That chat is already over. /search to find a new partner.")
		return
	}

	copyMsg := tgbotapi.NewCopyMessage(pr.PartnerID, chatID, msg.MessageID)
	if _, err := s.BotAPI.Request(copyMsg); err != nil {
		s.log.WithError(err).WithFields(map[string]interface{}{
			"from": chatID,
			"to":   pr.PartnerID,
		}).Warn("relay failed, ending session")
		if endErr := s.Engine.EndSession(pr.SessionID, 0); endErr != nil {
			s.log.WithError(endErr).WithField("session_id", pr.SessionID).Error("end session failed")
		}
		return
	}

	s.logMessage(msg, pr.SessionID)
}

// logMessage stores the relayed message for moderation.
func (s *BotService) logMessage(msg *tgbotapi.Message, sessionID uint) {
	kind, fileID, fileUniqueID := mediaInfo(msg)
	entry := &models.MessageLog{
		SessionID:    sessionID,
		SenderID:     msg.Chat.ID,
		Type:         kind,
		Text:         msg.Text,
		FileID:       fileID,
		FileUniqueID: fileUniqueID,
		Caption:      msg.Caption,
		SentAt:       timeNow(),
	}
	if err := s.Storage.LogMessage(entry); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Warn("message log failed")
	}
}

// mediaInfo classifies the message content and extracts file identifiers.
func mediaInfo(msg *tgbotapi.Message) (kind, fileID, fileUniqueID string) {
	switch {
	case msg.Photo != nil:
		largest := msg.Photo[len(msg.Photo)-1]
		return "photo", largest.FileID, largest.FileUniqueID
	case msg.Video != nil:
		return "video", msg.Video.FileID, msg.Video.FileUniqueID
	case msg.Voice != nil:
		return "voice", msg.Voice.FileID, msg.Voice.FileUniqueID
	case msg.VideoNote != nil:
		return "video_note", msg.VideoNote.FileID, msg.VideoNote.FileUniqueID
	case msg.Sticker != nil:
		return "sticker", msg.Sticker.FileID, msg.Sticker.FileUniqueID
	case msg.Animation != nil:
		return "animation", msg.Animation.FileID, msg.Animation.FileUniqueID
	case msg.Document != nil:
		return "document", msg.Document.FileID, msg.Document.FileUniqueID
	case msg.Audio != nil:
		return "audio", msg.Audio.FileID, msg.Audio.FileUniqueID
	default:
		return "text", "", ""
	}
}
