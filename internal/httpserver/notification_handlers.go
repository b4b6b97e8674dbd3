package httpserver

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopora/internal/notify"
	notificationsvc "shopora/internal/service/notification"
)

// streamHeartbeat keeps idle SSE connections from being reaped by proxies.
const streamHeartbeat = 30 * time.Second

type notificationHandlers struct {
	notifications *notificationsvc.Service
	hub           *notify.Hub
	dev           bool
}

type emitRequest struct {
	UserID  *string `json:"userId"`
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Kind    string  `json:"kind"`
}

// emit lets operators send a targeted notification, or a broadcast when
// userId is omitted.
func (h *notificationHandlers) emit(c *gin.Context) {
	var in emitRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	n, err := h.notifications.Emit(c.Request.Context(), in.UserID, in.Title, in.Message, in.Kind)
	if err != nil {
		respondError(c, err, h.dev)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (h *notificationHandlers) listMine(c *gin.Context) {
	notifications, err := h.notifications.ListForUser(c.Request.Context(), callerID(c))
	if err != nil {
		respondError(c, err, h.dev)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *notificationHandlers) markRead(c *gin.Context) {
	n, err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, h.dev)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *notificationHandlers) remove(c *gin.Context) {
	if err := h.notifications.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, h.dev)
		return
	}
	c.Status(http.StatusNoContent)
}

// stream pushes the caller's live notifications over server-sent events
// until the client disconnects.
func (h *notificationHandlers) stream(c *gin.Context) {
	sub := h.hub.Subscribe(callerID(c))
	defer h.hub.Unsubscribe(sub)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case n, open := <-sub.C:
			if !open {
				return false
			}
			c.SSEvent("notification", n)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UTC().Format(time.RFC3339))
			return true
		case <-clientGone:
			return false
		}
	})
}
