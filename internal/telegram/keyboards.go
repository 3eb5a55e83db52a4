package telegram

import (
	"fmt"

	"anonpair/backend/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// genderKeyboard is shown during registration.
func genderKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👨 Male", "gender:male"),
			tgbotapi.NewInlineKeyboardButtonData("👩 Female", "gender:female"),
		),
	)
}

// filterKeyboard lets premium users pick who they want to talk to.
func filterKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎲 Anyone", "filter:any"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👨 Men", "filter:male"),
			tgbotapi.NewInlineKeyboardButtonData("👩 Women", "filter:female"),
		),
	)
}

// searchingKeyboard offers cancellation while the user waits in the queue.
func searchingKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel search", "search:cancel"),
		),
	)
}

// topicsKeyboard offers one button per topic in today's rotation.
func topicsKeyboard(n int) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🔥 Topic %d", i+1), fmt.Sprintf("topic:%d", i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// rateKeyboard is attached to the session-ended notice.
func rateKeyboard(sessionID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👍", fmt.Sprintf("rate:%d:1", sessionID)),
			tgbotapi.NewInlineKeyboardButtonData("👎", fmt.Sprintf("rate:%d:-1", sessionID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚠️ Report partner", fmt.Sprintf("report:%d", sessionID)),
		),
	)
}

// reportReasonKeyboard is the second step of filing a report.
func reportReasonKeyboard(sessionID uint) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📢 Spam / ads", fmt.Sprintf("reportwhy:%d:spam", sessionID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🤬 Abuse", fmt.Sprintf("reportwhy:%d:abuse", sessionID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔞 Inappropriate content", fmt.Sprintf("reportwhy:%d:nsfw", sessionID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Other", fmt.Sprintf("reportwhy:%d:other", sessionID)),
		),
	)
}

// plansKeyboard lists the purchasable premium tiers.
func plansKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(config.Plans))
	for _, p := range config.Plans {
		label := fmt.Sprintf("%s %s — %d ⭐ / %d days", p.Emoji, p.Name, p.Stars, p.Days)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "buy:"+p.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// profileKeyboard offers profile edits.
func profileKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Change gender", "edit:gender"),
			tgbotapi.NewInlineKeyboardButtonData("Change interests", "edit:interests"),
		),
	)
}
