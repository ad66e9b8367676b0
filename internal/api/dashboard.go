package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rentpilot/internal/board"
	"rentpilot/internal/database"
	"rentpilot/internal/models"
)

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) GetAnalytics(c *gin.Context) {
	data, err := h.analytics.Compute(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute analytics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute analytics"})
		return
	}
	c.JSON(http.StatusOK, data)
}

func (h *Handler) GetBoard(c *gin.Context) {
	apps, err := h.rentals.ListApplications(c.Request.Context(), sessionFrom(c).UserID, "")
	if err != nil {
		h.logger.WithError(err).Error("Failed to load applications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load applications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": board.New(nil).Group(apps)})
}

// MoveApplication changes an application's status. Only applications on
// the caller's own properties can be moved.
func (h *Handler) MoveApplication(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	apps, err := h.rentals.ListApplications(ctx, sessionFrom(c).UserID, "")
	if err != nil {
		h.logger.WithError(err).Error("Failed to load applications")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load applications"})
		return
	}

	var persistErr error
	b := board.New(func(id string, status models.ApplicationStatus) {
		persistErr = h.db.UpdateApplicationStatus(ctx, id, status)
	})

	moved, err := b.Move(apps, c.Param("id"), models.ApplicationStatus(req.Status))
	switch {
	case errors.Is(err, board.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	case errors.Is(err, board.ErrApplicationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if persistErr != nil {
		if errors.Is(persistErr, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
			return
		}
		h.logger.WithError(persistErr).WithField("application_id", c.Param("id")).Error("Failed to update application status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update application"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"columns": b.Group(moved)})
}
