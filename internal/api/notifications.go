package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rentpilot/internal/database"
	"rentpilot/internal/models"
	"rentpilot/internal/notifications"
)

// Interval between keep-alive comments on idle notification streams
var streamHeartbeat = 25 * time.Second

func (h *Handler) ListNotifications(c *gin.Context) {
	limit := notifications.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	list, err := h.feed.ListRecent(c.Request.Context(), sessionFrom(c).UserID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list notifications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) UnreadNotificationCount(c *gin.Context) {
	count, err := h.feed.UnreadCount(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count notifications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkNotificationRead only touches rows owned by the caller. Rows of other
// users look exactly like missing ones.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	n, err := h.db.GetNotification(ctx, id)
	if errors.Is(err, database.ErrNotFound) || (err == nil && n.UserID != sessionFrom(c).UserID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get notification")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	if err := h.feed.MarkOne(ctx, id); err != nil {
		h.logger.WithError(err).WithField("notification_id", id).Error("Failed to mark notification read")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	updated, err := h.feed.MarkAll(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to mark notifications read")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// StreamNotifications pushes the caller's new notifications as server-sent
// events until the client goes away
func (h *Handler) StreamNotifications(c *gin.Context) {
	session := sessionFrom(c)
	log := h.logger.WithField("user_id", session.UserID)

	events := make(chan models.Notification, 16)
	sub, err := h.feed.Subscribe(session.UserID, func(n models.Notification) {
		select {
		case events <- n:
		default:
			log.WithField("notification_id", n.ID).Warn("Notification stream is full, dropping event")
		}
	})
	if err != nil {
		log.WithError(err).Error("Failed to subscribe to notifications")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live updates unavailable"})
		return
	}
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"user_id": session.UserID})
	c.Writer.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case n := <-events:
			c.SSEvent("notification", n)
			return true
		case <-heartbeat.C:
			io.WriteString(w, ": ping\n\n")
			return true
		case <-ctx.Done():
			return false
		}
	})
	log.Debug("Notification stream closed")
}
