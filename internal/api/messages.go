package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rentpilot/internal/messages"
)

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) messageError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, messages.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
	case errors.Is(err, messages.ErrLeaseNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lease not found"})
	case errors.Is(err, messages.ErrNotLeaseParty):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a party to this lease"})
	case errors.Is(err, messages.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is empty"})
	default:
		h.logger.WithError(err).Error("Failed to " + action)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

func (h *Handler) ListMessages(c *gin.Context) {
	list, err := h.messages.ListForLease(c.Request.Context(), c.Param("id"), sessionFrom(c).UserID)
	if err != nil {
		h.messageError(c, err, "list messages")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), c.Param("id"), sessionFrom(c).UserID, req.Content)
	if err != nil {
		h.messageError(c, err, "send message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *Handler) UnreadMessageCount(c *gin.Context) {
	count, err := h.messages.GetUnreadCount(c.Request.Context(), sessionFrom(c).UserID, c.Query("lease_id"))
	if err != nil {
		h.messageError(c, err, "count messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// readStateResponse reports the unread count after a mark. A failed write
// is not an error for the client: the count just stays where it was.
func readStateResponse(c *gin.Context, r messages.Result) {
	c.JSON(http.StatusOK, gin.H{"unread": r.Unread, "updated": r.OK()})
}

func (h *Handler) MarkMessageRead(c *gin.Context) {
	ctx := c.Request.Context()
	tracker := h.messages.NewTracker(sessionFrom(c).UserID, c.Query("lease_id"))
	tracker.Refresh(ctx)
	res := tracker.MarkAsRead(ctx, c.Param("id"))
	if messages.IsAccessError(res.Err) {
		h.messageError(c, res.Err, "mark message read")
		return
	}
	readStateResponse(c, res)
}

func (h *Handler) MarkLeaseMessagesRead(c *gin.Context) {
	ctx := c.Request.Context()
	leaseID := c.Param("id")
	userID := sessionFrom(c).UserID

	if _, err := h.messages.ListForLease(ctx, leaseID, userID); err != nil {
		h.messageError(c, err, "mark messages read")
		return
	}

	tracker := h.messages.NewTracker(userID, leaseID)
	readStateResponse(c, tracker.MarkAllAsRead(ctx, leaseID))
}
