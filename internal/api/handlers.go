package api

import (
	"os"

	"github.com/sirupsen/logrus"

	"rentpilot/internal/analytics"
	"rentpilot/internal/auth"
	"rentpilot/internal/billing"
	"rentpilot/internal/database"
	"rentpilot/internal/documents"
	"rentpilot/internal/messages"
	"rentpilot/internal/notifications"
	"rentpilot/internal/rentals"
)

// Services bundles everything the handlers depend on
type Services struct {
	DB        *database.Database
	Auth      *auth.Manager
	Feed      *notifications.Feed
	Rentals   *rentals.Service
	Messages  *messages.Service
	Analytics *analytics.Service
	Documents *documents.Service
	Billing   *billing.Service
}

type Handler struct {
	db        *database.Database
	auth      *auth.Manager
	feed      *notifications.Feed
	rentals   *rentals.Service
	messages  *messages.Service
	analytics *analytics.Service
	documents *documents.Service
	billing   *billing.Service
	logger    *logrus.Logger
}

func NewHandler(s Services, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:        s.DB,
		auth:      s.Auth,
		feed:      s.Feed,
		rentals:   s.Rentals,
		messages:  s.Messages,
		analytics: s.Analytics,
		documents: s.Documents,
		billing:   s.Billing,
		logger:    logger,
	}
}
