// Package tasks runs background jobs over asynq: periodic maintenance of
// user counters and plans, and broadcast fan-out to large audiences.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/models"
	"anonpair/backend/internal/storage"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	TypeDailyMaintenance = "maintenance:daily"
	TypeBroadcast        = "broadcast:deliver"
)

// BroadcastPayload carries everything the fan-out worker needs, so the
// handler does not have to read the broadcast row back.
type BroadcastPayload struct {
	BroadcastID uint   `json:"broadcast_id"`
	Audience    string `json:"audience"`
	Text        string `json:"text"`
}

// NewBroadcastTask builds the fan-out task for an already stored broadcast.
func NewBroadcastTask(id uint, audience, text string) (*asynq.Task, error) {
	payload, err := json.Marshal(BroadcastPayload{BroadcastID: id, Audience: audience, Text: text})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBroadcast, payload, asynq.MaxRetry(2), asynq.Timeout(30*time.Minute)), nil
}

// Sender delivers bot messages during broadcast fan-out. The Telegram bot
// service implements it.
type Sender interface {
	SendText(chatID int64, text string) error
}

// Handler holds the dependencies shared by all task handlers.
type Handler struct {
	Storage storage.Storage
	Sender  Sender

	log *logrus.Entry
}

func NewHandler(st storage.Storage, sender Sender) *Handler {
	return &Handler{
		Storage: st,
		Sender:  sender,
		log:     logrus.WithField("component", "tasks"),
	}
}

// Mux routes task types to their handlers.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDailyMaintenance, h.HandleDailyMaintenance)
	mux.HandleFunc(TypeBroadcast, h.HandleBroadcast)
	return mux
}

// HandleDailyMaintenance resets stale daily chat counters and downgrades
// expired premium plans. It runs hourly; both operations only touch rows
// that are actually due, so the schedule can be tightened without harm.
func (h *Handler) HandleDailyMaintenance(ctx context.Context, t *asynq.Task) error {
	reset, err := h.Storage.ResetDailyCounters()
	if err != nil {
		return fmt.Errorf("reset daily counters: %w", err)
	}
	expired, err := h.Storage.ExpirePlans()
	if err != nil {
		return fmt.Errorf("expire plans: %w", err)
	}
	h.log.WithFields(logrus.Fields{
		"counters_reset": reset,
		"plans_expired":  expired,
	}).Info("daily maintenance done")
	return nil
}

// HandleBroadcast delivers one broadcast to its audience, throttled so the
// bot stays under the Telegram send limits. Individual delivery failures
// (blocked bot, deleted account) are counted but do not fail the task.
func (h *Handler) HandleBroadcast(ctx context.Context, t *asynq.Task) error {
	var p BroadcastPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("broadcast payload: %w", err)
	}

	ids, err := h.Storage.AudienceIDs(p.Audience)
	if err != nil {
		return fmt.Errorf("audience %q: %w", p.Audience, err)
	}

	limiter := rate.NewLimiter(rate.Limit(config.BroadcastWindow), config.BroadcastWindow)
	sent := 0
	for _, id := range ids {
		if err := limiter.Wait(ctx); err != nil {
			// cancelled mid-flight, record what went out
			_ = h.Storage.FinishBroadcast(p.BroadcastID, sent, models.BroadcastFailed)
			return err
		}
		if err := h.Sender.SendText(id, p.Text); err != nil {
			h.log.WithError(err).WithField("chat_id", id).Debug("broadcast delivery failed")
			continue
		}
		sent++
	}

	if err := h.Storage.FinishBroadcast(p.BroadcastID, sent, models.BroadcastDone); err != nil {
		return err
	}
	h.log.WithFields(logrus.Fields{
		"broadcast_id": p.BroadcastID,
		"audience":     p.Audience,
		"sent":         sent,
		"total":        len(ids),
	}).Info("broadcast delivered")
	return nil
}

// NewServer builds the asynq worker server against the shared Redis.
func NewServer(redisAddr string, redisDB int) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr, DB: redisDB},
		asynq.Config{
			Concurrency: 5,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logrus.WithError(err).WithField("task", task.Type()).Error("task failed")
			}),
		},
	)
}

// NewScheduler registers the periodic jobs.
func NewScheduler(redisAddr string, redisDB int) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddr, DB: redisDB},
		&asynq.SchedulerOpts{Location: time.UTC},
	)
	if _, err := scheduler.Register("@every 1h", asynq.NewTask(TypeDailyMaintenance, nil)); err != nil {
		return nil, err
	}
	return scheduler, nil
}
