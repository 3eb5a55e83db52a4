package telegram

import (
	"fmt"
	"strings"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const payloadPrefix = "plan:"

// sendInvoice issues a Telegram Stars invoice for the chosen plan and
// records a pending payment.
func (s *BotService) sendInvoice(chatID int64, planID string) {
	plan := config.PlanByID(planID)
	if plan == nil {
		return
	}

	pending := &models.Payment{
		UserID:   chatID,
		Provider: "stars",
		Plan:     plan.ID,
		Amount:   fmt.Sprintf("%d", plan.Stars),
	}
	if err := s.Storage.CreatePayment(pending); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("create payment failed")
		return
	}

	title := fmt.Sprintf("%s %s — %d days", plan.Emoji, plan.Name, plan.Days)
	description := strings.Join(plan.Features, ", ")
	// Stars payments use the XTR currency, no provider token and no tips
	invoice := tgbotapi.NewInvoice(
		chatID, title, description,
		payloadPrefix+plan.ID,
		"", "", "XTR",
		[]tgbotapi.LabeledPrice{{Label: plan.Name, Amount: plan.Stars}},
		nil,
	)
	if _, err := s.BotAPI.Request(invoice); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("send invoice failed")
	}
}

// handlePreCheckout confirms the purchase is still valid before Telegram
// charges the user.
func (s *BotService) handlePreCheckout(q *tgbotapi.PreCheckoutQuery) {
	planID := strings.TrimPrefix(q.InvoicePayload, payloadPrefix)
	answer := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: q.ID,
		OK:                 config.PlanByID(planID) != nil,
	}
	if !answer.OK {
		answer.ErrorMessage = "This plan is no longer available."
	}
	if _, err := s.BotAPI.Request(answer); err != nil {
		s.log.WithError(err).WithField("user_id", q.From.ID).Error("pre-checkout answer failed")
	}
}

// handleSuccessfulPayment confirms the pending payment and activates the
// plan.
func (s *BotService) handleSuccessfulPayment(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	sp := msg.SuccessfulPayment
	planID := strings.TrimPrefix(sp.InvoicePayload, payloadPrefix)
	plan := config.PlanByID(planID)
	if plan == nil {
		s.log.WithField("payload", sp.InvoicePayload).Error("payment for unknown plan")
		return
	}

	pending, err := s.Storage.PendingPayment(chatID, "stars")
	if err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Error("pending payment lookup failed")
		return
	}
	if pending != nil {
		if _, err := s.Storage.ConfirmPayment(pending.ID, sp.TelegramPaymentChargeID); err != nil {
			s.log.WithError(err).WithField("payment_id", pending.ID).Error("confirm payment failed")
			return
		}
	} else {
		// invoice predates a restart, activate directly
		if err := s.Storage.ActivatePlan(chatID, plan.ID, plan.Days); err != nil {
			s.log.WithError(err).WithField("chat_id", chatID).Error("plan activation failed")
			return
		}
	}

	s.log.WithFields(map[string]interface{}{
		"chat_id": chatID,
		"plan":    plan.ID,
		"stars":   sp.TotalAmount,
	}).Info("payment confirmed")
	s.reply(chatID, fmt.Sprintf("🎉 %s %s activated for %d days. Enjoy!", plan.Emoji, plan.Name, plan.Days))
}
