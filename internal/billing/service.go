package billing

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"rentpilot/internal/database"
	"rentpilot/internal/models"
)

const (
	PlanFree = "free"

	checkoutFunction = "create-checkout-session"
	portalFunction   = "customer-portal"
)

var (
	ErrNoCustomer   = errors.New("user has no billing customer yet")
	ErrInvalidEvent = errors.New("invalid billing event")
	ErrInvalidPlan  = errors.New("invalid plan")
)

type Store interface {
	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, s *models.Subscription) error
}

type Invoker interface {
	Invoke(ctx context.Context, name string, body, out interface{}) error
}

// Event is the billing provider's notice that a subscription changed
type Event struct {
	UserID           string     `json:"user_id" binding:"required"`
	Plan             string     `json:"plan" binding:"required"`
	Status           string     `json:"status" binding:"required"`
	CustomerID       string     `json:"customer_id"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
}

type redirect struct {
	URL string `json:"url"`
}

type Service struct {
	store   Store
	invoker Invoker
	secret  string
	logger  *logrus.Logger
}

func NewService(store Store, invoker Invoker, webhookSecret string, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Service{store: store, invoker: invoker, secret: webhookSecret, logger: logger}
}

// Current returns the user's subscription, or an active free plan when the
// user never subscribed
func (s *Service) Current(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return &models.Subscription{UserID: userID, Plan: PlanFree, Status: models.SubscriptionActive}, nil
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// CreateCheckout starts a checkout for plan and returns the page to send
// the user to
func (s *Service) CreateCheckout(ctx context.Context, userID, plan string) (string, error) {
	if plan == "" || plan == PlanFree {
		return "", ErrInvalidPlan
	}

	var out redirect
	err := s.invoker.Invoke(ctx, checkoutFunction, map[string]string{
		"user_id": userID,
		"plan":    plan,
	}, &out)
	if err != nil {
		return "", err
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "plan": plan}).Info("Checkout session created")
	return out.URL, nil
}

// OpenPortal returns the self-service billing page of the user's customer
func (s *Service) OpenPortal(ctx context.Context, userID string) (string, error) {
	sub, err := s.store.GetSubscription(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return "", ErrNoCustomer
	}
	if err != nil {
		return "", err
	}
	if sub.CustomerID == "" {
		return "", ErrNoCustomer
	}

	var out redirect
	if err := s.invoker.Invoke(ctx, portalFunction, map[string]string{"customer_id": sub.CustomerID}, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// Authenticate reports whether an incoming event carries the shared secret.
// With no secret configured every event is refused.
func (s *Service) Authenticate(presented string) bool {
	if s.secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(s.secret)) == 1
}

// ApplyEvent stores the provider's latest view of the subscription
func (s *Service) ApplyEvent(ctx context.Context, evt Event) (*models.Subscription, error) {
	status := models.SubscriptionStatus(evt.Status)
	if evt.UserID == "" || evt.Plan == "" || !status.Valid() {
		return nil, ErrInvalidEvent
	}

	sub := &models.Subscription{
		UserID:           evt.UserID,
		Plan:             evt.Plan,
		Status:           status,
		CustomerID:       evt.CustomerID,
		CurrentPeriodEnd: evt.CurrentPeriodEnd,
	}
	if err := s.store.UpsertSubscription(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": sub.UserID,
		"plan":    sub.Plan,
		"status":  sub.Status,
	}).Info("Subscription updated")
	return sub, nil
}
