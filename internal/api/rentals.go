package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rentpilot/internal/models"
	"rentpilot/internal/rentals"
)

type LeaseStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active pending expired terminated"`
}

func (h *Handler) rentalsError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, rentals.ErrPropertyNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
	case errors.Is(err, rentals.ErrLeaseNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lease not found"})
	case errors.Is(err, rentals.ErrTenantNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tenant not found"})
	case errors.Is(err, rentals.ErrInvalidLease):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, rentals.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
	case errors.Is(err, rentals.ErrPropertyUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "Property is not accepting applications"})
	default:
		h.logger.WithError(err).Error("Failed to " + action)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}

func (h *Handler) ListProperties(c *gin.Context) {
	list, err := h.rentals.ListProperties(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		h.rentalsError(c, err, "list properties")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ListAvailableProperties(c *gin.Context) {
	list, err := h.rentals.ListAvailable(c.Request.Context())
	if err != nil {
		h.rentalsError(c, err, "list properties")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateProperty(c *gin.Context) {
	var req rentals.PropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.rentals.CreateProperty(c.Request.Context(), sessionFrom(c).UserID, req)
	if err != nil {
		h.rentalsError(c, err, "create property")
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdateProperty(c *gin.Context) {
	var req rentals.PropertyUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.rentals.UpdateProperty(c.Request.Context(), sessionFrom(c).UserID, c.Param("id"), req)
	if err != nil {
		h.rentalsError(c, err, "update property")
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListLeases lists the caller's leases: as landlord or as tenant, by role
func (h *Handler) ListLeases(c *gin.Context) {
	session := sessionFrom(c)
	list, err := h.rentals.ListLeases(c.Request.Context(), session.UserID, session.Role, c.Query("status"))
	if err != nil {
		h.rentalsError(c, err, "list leases")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateLease(c *gin.Context) {
	var req rentals.LeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lease, err := h.rentals.CreateLease(c.Request.Context(), sessionFrom(c).UserID, req)
	if err != nil {
		h.rentalsError(c, err, "create lease")
		return
	}
	c.JSON(http.StatusCreated, lease)
}

func (h *Handler) UpdateLeaseStatus(c *gin.Context) {
	var req LeaseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lease, err := h.rentals.UpdateLeaseStatus(c.Request.Context(), sessionFrom(c).UserID, c.Param("id"), req.Status)
	if err != nil {
		h.rentalsError(c, err, "update lease")
		return
	}
	c.JSON(http.StatusOK, lease)
}

// SubmitApplication accepts applications from tenants and from visitors
// without an account. Landlords cannot apply.
func (h *Handler) SubmitApplication(c *gin.Context) {
	applicantID := ""
	if session := sessionFrom(c); session != nil {
		if session.Role != models.RoleTenant {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not available for your role"})
			return
		}
		applicantID = session.UserID
	}

	var req rentals.ApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	app, err := h.rentals.SubmitApplication(c.Request.Context(), applicantID, c.Param("id"), req)
	if err != nil {
		h.rentalsError(c, err, "submit application")
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *Handler) ListApplications(c *gin.Context) {
	list, err := h.rentals.ListApplications(c.Request.Context(), sessionFrom(c).UserID, c.Query("status"))
	if err != nil {
		h.rentalsError(c, err, "list applications")
		return
	}
	c.JSON(http.StatusOK, list)
}
