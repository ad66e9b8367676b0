package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rentpilot/internal/billing"
)

const billingSecretHeader = "X-Billing-Secret"

type CheckoutRequest struct {
	Plan string `json:"plan" binding:"required"`
}

func (h *Handler) billingError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, billing.ErrInvalidPlan):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan"})
	case errors.Is(err, billing.ErrNoCustomer):
		c.JSON(http.StatusConflict, gin.H{"error": "No billing account yet"})
	case errors.Is(err, billing.ErrFunctionsDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Billing is not configured"})
	default:
		h.logger.WithError(err).Error("Failed to " + action)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to " + action})
	}
}

func (h *Handler) GetSubscription(c *gin.Context) {
	sub, err := h.billing.Current(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get subscription"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) CreateCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	url, err := h.billing.CreateCheckout(c.Request.Context(), sessionFrom(c).UserID, req.Plan)
	if err != nil {
		h.billingError(c, err, "create checkout")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) OpenPortal(c *gin.Context) {
	url, err := h.billing.OpenPortal(c.Request.Context(), sessionFrom(c).UserID)
	if err != nil {
		h.billingError(c, err, "open billing portal")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// BillingEvent receives subscription changes from the billing provider
func (h *Handler) BillingEvent(c *gin.Context) {
	if !h.billing.Authenticate(c.GetHeader(billingSecretHeader)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		return
	}

	var evt billing.Event
	if err := c.ShouldBindJSON(&evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.billing.ApplyEvent(c.Request.Context(), evt)
	if errors.Is(err, billing.ErrInvalidEvent) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to apply billing event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply event"})
		return
	}
	c.JSON(http.StatusOK, sub)
}
