package handler

import (
	"net/http"
	"strconv"
	"time"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/models"
	"anonpair/backend/internal/tasks"

	"github.com/gin-gonic/gin"
)

// GetStats serves the aggregate dashboard numbers.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.Storage.Stats()
	if err != nil {
		h.log.WithError(err).Error("stats failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers serves a paged, searchable user list.
func (h *Handler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	users, total, err := h.Storage.ListUsers(limit, offset, c.Query("search"))
	if err != nil {
		h.log.WithError(err).Error("list users failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": total})
}

func (h *Handler) userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad user id"})
		return 0, false
	}
	return id, true
}

type banRequest struct {
	Reason string `json:"reason"`
}

// BanUser bans a user and kicks them out of any ongoing activity.
func (h *Handler) BanUser(c *gin.Context) {
	id, ok := h.userIDParam(c)
	if !ok {
		return
	}
	var req banRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "rules violation"
	}

	if pr, paired := h.Engine.CurrentPairing(id); paired {
		if err := h.Engine.EndSession(pr.SessionID, 0); err != nil {
			h.log.WithError(err).WithField("session_id", pr.SessionID).Error("end session failed")
		}
	}
	if err := h.Engine.LeaveQueue(id); err != nil {
		h.log.WithError(err).WithField("user_id", id).Warn("dequeue failed")
	}
	if err := h.Storage.BanUser(id, req.Reason); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ban failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"banned": id})
}

func (h *Handler) UnbanUser(c *gin.Context) {
	id, ok := h.userIDParam(c)
	if !ok {
		return
	}
	if err := h.Storage.UnbanUser(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unban failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unbanned": id})
}

type grantRequest struct {
	Plan string `json:"plan" binding:"required"`
	Days int    `json:"days"`
}

// GrantPlan manually activates a premium plan for a user.
func (h *Handler) GrantPlan(c *gin.Context) {
	id, ok := h.userIDParam(c)
	if !ok {
		return
	}
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan required"})
		return
	}
	plan := config.PlanByID(req.Plan)
	if plan == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan"})
		return
	}
	days := req.Days
	if days <= 0 {
		days = plan.Days
	}
	if err := h.Storage.ActivatePlan(id, plan.ID, days); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "grant failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"granted": plan.ID, "days": days})
}

// ListReports serves reports, optionally filtered by status.
func (h *Handler) ListReports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	reports, err := h.Storage.ListReports(c.DefaultQuery("status", models.ReportPending), limit, offset)
	if err != nil {
		h.log.WithError(err).Error("list reports failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

type reviewRequest struct {
	Ban bool `json:"ban"`
}

// ReviewReport closes a report, optionally banning the reported user.
func (h *Handler) ReviewReport(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad report id"})
		return
	}
	var req reviewRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.Storage.ReviewReport(uint(id), req.Ban); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "review failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviewed": id, "banned": req.Ban})
}

type promoRequest struct {
	Code        string `json:"code" binding:"required"`
	Plan        string `json:"plan" binding:"required"`
	Days        int    `json:"days" binding:"required"`
	MaxUses     int    `json:"max_uses" binding:"required"`
	ExpiresDays int    `json:"expires_days"`
}

// CreatePromo registers a new promo code.
func (h *Handler) CreatePromo(c *gin.Context) {
	var req promoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if config.PlanByID(req.Plan) == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan"})
		return
	}
	var expiresIn time.Duration
	if req.ExpiresDays > 0 {
		expiresIn = time.Duration(req.ExpiresDays) * 24 * time.Hour
	}
	if err := h.Storage.CreatePromo(req.Code, req.Plan, req.Days, req.MaxUses, expiresIn); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "promo creation failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": req.Code})
}

type broadcastRequest struct {
	Audience string `json:"audience" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

// CreateBroadcast stores a broadcast and queues its fan-out.
func (h *Handler) CreateBroadcast(c *gin.Context) {
	if h.Jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "broadcasting not configured"})
		return
	}
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Audience != "all" && req.Audience != "premium" && req.Audience != "free" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audience must be all, premium or free"})
		return
	}

	b := &models.Broadcast{Text: req.Text, Audience: req.Audience, Status: models.BroadcastRunning}
	if err := h.Storage.CreateBroadcast(b); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "broadcast creation failed"})
		return
	}
	task, err := tasks.NewBroadcastTask(b.ID, req.Audience, req.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "broadcast creation failed"})
		return
	}
	if _, err := h.Jobs.Enqueue(task); err != nil {
		h.log.WithError(err).Error("broadcast enqueue failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "broadcast enqueue failed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"broadcast_id": b.ID})
}
