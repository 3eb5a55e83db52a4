package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestParseInterests(t *testing.T) {
	assert.Equal(t, []string{"music", "travel"}, parseInterests("music, travel"))
	assert.Equal(t, []string{"games"}, parseInterests("  games ,,  "))
	assert.Empty(t, parseInterests("   "))
	assert.Equal(t, []string{"music"}, parseInterests("music, music"))

	// hard cap on the list length
	long := parseInterests("a, b, c, d, e, f, g")
	assert.Len(t, long, maxInterests)
}

func TestMediaInfoClassification(t *testing.T) {
	kind, fileID, _ := mediaInfo(&tgbotapi.Message{Text: "hello"})
	assert.Equal(t, "text", kind)
	assert.Empty(t, fileID)

	kind, fileID, unique := mediaInfo(&tgbotapi.Message{
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", FileUniqueID: "u1"},
			{FileID: "large", FileUniqueID: "u2"},
		},
	})
	assert.Equal(t, "photo", kind)
	assert.Equal(t, "large", fileID, "the largest photo size should be logged")
	assert.Equal(t, "u2", unique)

	kind, fileID, _ = mediaInfo(&tgbotapi.Message{Voice: &tgbotapi.Voice{FileID: "v1"}})
	assert.Equal(t, "voice", kind)
	assert.Equal(t, "v1", fileID)

	kind, _, _ = mediaInfo(&tgbotapi.Message{Sticker: &tgbotapi.Sticker{FileID: "s1"}})
	assert.Equal(t, "sticker", kind)
}
