package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rentpilot/internal/auth"
	"rentpilot/internal/database"
)

type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Token       string        `json:"token"`
	Session     *auth.Session `json:"session"`
	Destination string        `json:"destination"`
}

func (h *Handler) SignUp(c *gin.Context) {
	var req auth.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, session, err := h.auth.SignUp(c.Request.Context(), req)
	if errors.Is(err, auth.ErrEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already in use"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to sign up")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	c.JSON(http.StatusCreated, sessionResponse{Token: token, Session: session, Destination: auth.Home(session.Role)})
}

func (h *Handler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, session, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to sign in")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign in"})
		return
	}

	c.JSON(http.StatusOK, sessionResponse{Token: token, Session: session, Destination: auth.Home(session.Role)})
}

func (h *Handler) SignOut(c *gin.Context) {
	h.auth.SignOut(sessionFrom(c))
	c.Status(http.StatusNoContent)
}

// Me returns the profile behind the session
func (h *Handler) Me(c *gin.Context) {
	profile, err := h.db.GetProfile(c.Request.Context(), sessionFrom(c).UserID)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Guard tells the client where a visitor asking for ?path= should land
func (h *Handler) Guard(c *gin.Context) {
	path := c.DefaultQuery("path", "/")
	destination, redirect := auth.Destination(sessionFrom(c), path)
	c.JSON(http.StatusOK, gin.H{
		"path":        path,
		"redirect":    redirect,
		"destination": destination,
	})
}

// DeleteAccount removes the caller's data step by step and reports how far
// it got
func (h *Handler) DeleteAccount(c *gin.Context) {
	session := sessionFrom(c)
	ctx := c.Request.Context()

	profile, err := h.db.GetProfile(ctx, session.UserID)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get profile"})
		return
	}

	if _, err := h.documents.RemoveOwned(ctx, profile.ID); err != nil {
		h.logger.WithError(err).WithField("failed_step", "documents").Error("Account deletion stopped")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":  "Account deletion incomplete",
			"report": database.DeletionReport{Completed: []string{}, Failed: "documents"},
		})
		return
	}

	report, err := h.db.DeleteAccount(ctx, profile)
	report.Completed = append([]string{"documents"}, report.Completed...)
	if err != nil {
		h.logger.WithError(err).WithField("failed_step", report.Failed).Error("Account deletion stopped")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Account deletion incomplete", "report": report})
		return
	}

	h.auth.SignOut(session)
	h.logger.WithField("user_id", profile.ID).Info("Account deleted")
	c.JSON(http.StatusOK, gin.H{"report": report})
}
