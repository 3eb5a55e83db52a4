// Package handler is the HTTP admin panel: JWT-protected REST endpoints for
// moderation and billing plus a websocket feed of live service activity.
package handler

import (
	"anonpair/backend/internal/config"
	"anonpair/backend/internal/matchmaker"
	"anonpair/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Handler carries the dependencies shared by all endpoints.
type Handler struct {
	Cfg     *config.Config
	Storage storage.Storage
	Engine  *matchmaker.Engine
	Jobs    *asynq.Client // nil disables broadcasts

	log *logrus.Entry
}

func NewHandler(cfg *config.Config, st storage.Storage, engine *matchmaker.Engine, jobs *asynq.Client) *Handler {
	return &Handler{
		Cfg:     cfg,
		Storage: st,
		Engine:  engine,
		Jobs:    jobs,
		log:     logrus.WithField("component", "api"),
	}
}

// Register mounts all routes on the router.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/api/login", h.Login)

	authed := r.Group("/api", h.AuthRequired())
	{
		authed.GET("/stats", h.GetStats)
		authed.GET("/users", h.ListUsers)
		authed.POST("/users/:id/ban", h.BanUser)
		authed.POST("/users/:id/unban", h.UnbanUser)
		authed.POST("/users/:id/grant", h.GrantPlan)
		authed.GET("/reports", h.ListReports)
		authed.POST("/reports/:id/review", h.ReviewReport)
		authed.GET("/topics", h.ListTopics)
		authed.POST("/topics", h.CreateTopic)
		authed.DELETE("/topics/:id", h.DeleteTopic)
		authed.POST("/topics/:id/toggle", h.ToggleTopic)
		authed.POST("/promos", h.CreatePromo)
		authed.POST("/broadcasts", h.CreateBroadcast)
		authed.GET("/realtime", h.ServeRealtime)
	}
}
