// Package telegram is the user-facing surface of the service: it receives
// bot updates, drives registration and search through the conversation
// states, relays chat traffic between matched partners and sells premium
// plans through Telegram Stars.
package telegram

import (
	"context"
	"time"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/matchmaker"
	"anonpair/backend/internal/state"
	"anonpair/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// replaceable in tests
var timeNow = time.Now

// BotService routes Telegram updates to the matchmaking engine and storage.
type BotService struct {
	BotAPI  *tgbotapi.BotAPI
	Cfg     *config.Config
	Storage storage.Storage
	Engine  *matchmaker.Engine
	States  state.Bridge
	Jobs    *asynq.Client // broadcast fan-out, nil disables /broadcast

	log *logrus.Entry
}

// NewBotService authorizes the bot and wires its collaborators.
func NewBotService(cfg *config.Config, st storage.Storage, engine *matchmaker.Engine, states state.Bridge, jobs *asynq.Client) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	logrus.WithField("account", bot.Self.UserName).Info("bot authorized")

	return &BotService{
		BotAPI:  bot,
		Cfg:     cfg,
		Storage: st,
		Engine:  engine,
		States:  states,
		Jobs:    jobs,
		log:     logrus.WithField("component", "telegram"),
	}, nil
}

// Run is the main long-poll loop. It returns when ctx is cancelled.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		s.BotAPI.StopReceivingUpdates()
	}()

	for update := range updates {
		s.dispatch(update)
	}
	s.log.Info("update loop stopped")
}

func (s *BotService) dispatch(update tgbotapi.Update) {
	switch {
	case update.PreCheckoutQuery != nil:
		s.handlePreCheckout(update.PreCheckoutQuery)
	case update.CallbackQuery != nil:
		s.handleCallback(update.CallbackQuery)
	case update.Message != nil:
		msg := update.Message
		if msg.SuccessfulPayment != nil {
			s.handleSuccessfulPayment(msg)
			return
		}
		banned, err := s.Storage.IsUserBanned(msg.Chat.ID)
		if err != nil {
			s.log.WithError(err).WithField("chat_id", msg.Chat.ID).Error("ban check failed")
			return
		}
		if banned {
			s.reply(msg.Chat.ID, "🚫 You are banned from the service.")
			return
		}
		if msg.IsCommand() {
			s.handleCommand(msg)
			return
		}
		s.handleMessage(msg)
	}
}

// reply sends a plain text message and logs delivery failures.
func (s *BotService) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := s.BotAPI.Send(msg); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Warn("send failed")
	}
}

// replyMarkup sends a text message with an attached keyboard.
func (s *BotService) replyMarkup(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := s.BotAPI.Send(msg); err != nil {
		s.log.WithError(err).WithField("chat_id", chatID).Warn("send failed")
	}
}
