package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the panel is served from a different origin in development
	CheckOrigin: func(r *http.Request) bool { return true },
}

const realtimePeriod = 3 * time.Second

// ServeRealtime upgrades to a websocket and streams activity snapshots to
// the admin dashboard until the client disconnects.
func (h *Handler) ServeRealtime(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
		return
	}
	defer conn.Close()

	// drain control frames so pings and the close handshake are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(realtimePeriod)
	defer ticker.Stop()

	for {
		snapshot, err := h.Storage.RealtimeSnapshot()
		if err != nil {
			h.log.WithError(err).Error("realtime snapshot failed")
			return
		}
		if err := conn.WriteJSON(snapshot); err != nil {
			return
		}
		<-ticker.C
	}
}
