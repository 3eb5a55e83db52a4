package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDailyTopicsDeterministic verifies that the rotation is stable within
// a calendar day; the topic:<idx> callbacks depend on it.
func TestDailyTopicsDeterministic(t *testing.T) {
	all := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	day := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	first := dailyTopics(all, day)
	later := dailyTopics(all, day.Add(5*time.Hour))
	assert.Equal(t, first, later, "same day must yield the same rotation")
	assert.Len(t, first, dailyTopicCount)

	for _, topic := range first {
		assert.Contains(t, all, topic)
	}
}

// TestDailyTopicsFallback verifies the built-in prompts cover an empty
// topic table.
func TestDailyTopicsFallback(t *testing.T) {
	got := dailyTopics(nil, time.Now())
	assert.NotEmpty(t, got)
	for _, topic := range got {
		assert.Contains(t, defaultTopics, topic)
	}
}

// TestDailyTopicsShortList verifies lists smaller than the rotation size are
// returned whole.
func TestDailyTopicsShortList(t *testing.T) {
	got := dailyTopics([]string{"only one"}, time.Now())
	assert.Equal(t, []string{"only one"}, got)
}
