package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ListTopics serves all topics, active or not, for the admin panel.
func (h *Handler) ListTopics(c *gin.Context) {
	topics, err := h.Storage.ListTopics(false)
	if err != nil {
		h.log.WithError(err).Error("list topics failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"topics": topics})
}

type topicRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) CreateTopic(c *gin.Context) {
	var req topicRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}
	if err := h.Storage.CreateTopic(strings.TrimSpace(req.Text)); err != nil {
		h.log.WithError(err).Error("create topic failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

func (h *Handler) topicIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad topic id"})
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) DeleteTopic(c *gin.Context) {
	id, ok := h.topicIDParam(c)
	if !ok {
		return
	}
	if err := h.Storage.DeleteTopic(id); err != nil {
		h.log.WithError(err).Error("delete topic failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type toggleRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *Handler) ToggleTopic(c *gin.Context) {
	id, ok := h.topicIDParam(c)
	if !ok {
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "active is required"})
		return
	}
	if err := h.Storage.ToggleTopic(id, *req.Active); err != nil {
		h.log.WithError(err).Error("toggle topic failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "toggle failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
