package telegram

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"anonpair/backend/internal/matchmaker"
	"anonpair/backend/internal/models"

	"github.com/samber/lo"
)

const dailyTopicCount = 5

// defaultTopics keep the menu alive before an admin has curated anything.
var defaultTopics = []string{
	"💭 Tell me about your dream",
	"🌙 What are you afraid of?",
	"🎯 What is your biggest goal?",
}

// dailyTopics picks today's rotation from the active topics. The pick is
// seeded by the calendar date so every user sees the same list all day and
// the topic:<idx> callbacks stay stable across restarts.
func dailyTopics(all []string, now time.Time) []string {
	if len(all) == 0 {
		all = defaultTopics
	}
	seed, _ := strconv.ParseInt(now.Format("20060102"), 10, 64)
	rng := rand.New(rand.NewSource(seed))

	picked := make([]string, len(all))
	copy(picked, all)
	rng.Shuffle(len(picked), func(i, j int) {
		picked[i], picked[j] = picked[j], picked[i]
	})
	if len(picked) > dailyTopicCount {
		picked = picked[:dailyTopicCount]
	}
	return picked
}

func (s *BotService) activeTopicTexts() []string {
	topics, err := s.Storage.ListTopics(true)
	if err != nil {
		s.log.WithError(err).Error("list topics failed")
		return nil
	}
	return lo.Map(topics, func(t models.HotTopic, _ int) string { return t.Text })
}

func (s *BotService) handleTopics(chatID int64) {
	daily := dailyTopics(s.activeTopicTexts(), timeNow())

	var b strings.Builder
	b.WriteString("🔥 Hot topics of the day\n\n")
	for i, t := range daily {
		b.WriteString(fmt.Sprintf("%d. %s\n\n", i+1, t))
	}
	b.WriteString("Pro and VIP: tap a topic to search by it.")
	s.replyMarkup(chatID, b.String(), topicsKeyboard(len(daily)))
}

// searchByTopic queues the user for a topic-scoped search. The index refers
// to today's rotation.
func (s *BotService) searchByTopic(chatID int64, idxStr string) {
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return
	}
	daily := dailyTopics(s.activeTopicTexts(), timeNow())
	if idx < 0 || idx >= len(daily) {
		s.reply(chatID, "That topic list has expired. /topics for today's.")
		return
	}
	topic := daily[idx]

	switch err := s.Engine.EnterQueueWithTopic(chatID, topic); {
	case err == nil:
		s.replyMarkup(chatID, fmt.Sprintf("🔥 Looking for a partner on:\n\n%s\n\nHang tight...", topic), searchingKeyboard())
	case errors.Is(err, matchmaker.ErrPremiumRequired):
		s.replyMarkup(chatID, "🔥 Hot topics are for Pro and VIP. Upgrade to use them:", plansKeyboard())
	case errors.Is(err, matchmaker.ErrAlreadyInChat):
		s.reply(chatID, "You're already in a chat. /stop to end it first.")
	case errors.Is(err, matchmaker.ErrNotRegistered):
		s.startRegistration(chatID)
	default:
		s.log.WithError(err).WithField("chat_id", chatID).Error("topic search failed")
		s.reply(chatID, "Something went wrong, try again.")
	}
}
