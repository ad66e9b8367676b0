// Package notifications serves a user's notification feed and its live
// insert stream.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"rentpilot/internal/database"
	"rentpilot/internal/models"
	"rentpilot/internal/realtime"
)

const DefaultLimit = 10

const relation = "notifications"

var (
	ErrInvalidNotification = errors.New("invalid notification")
	ErrNotFound            = database.ErrNotFound
)

// Store is the subset of the database the feed depends on
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetRecentNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int64, error)
}

type Feed struct {
	store  Store
	broker realtime.Broker
	logger *logrus.Logger
}

func NewFeed(store Store, broker realtime.Broker, logger *logrus.Logger) *Feed {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Feed{store: store, broker: broker, logger: logger}
}

// ListRecent returns up to limit notifications for the user, most recent
// first. A non-positive limit means DefaultLimit.
func (f *Feed) ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return f.store.GetRecentNotifications(ctx, userID, limit)
}

// MarkOne flags a single notification as read. Ownership is not re-checked
// here; callers are expected to have authorised the request.
func (f *Feed) MarkOne(ctx context.Context, id string) error {
	return f.store.MarkNotificationRead(ctx, id)
}

// MarkAll flags every unread notification of the user as read and returns
// how many rows changed
func (f *Feed) MarkAll(ctx context.Context, userID string) (int64, error) {
	return f.store.MarkAllNotificationsRead(ctx, userID)
}

func (f *Feed) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return f.store.CountUnreadNotifications(ctx, userID)
}

// Create persists the notification and announces it to live subscribers.
// A failed announcement is logged; the stored row stands.
func (f *Feed) Create(ctx context.Context, n *models.Notification) error {
	if n.UserID == "" || n.Title == "" {
		return fmt.Errorf("%w: user and title are required", ErrInvalidNotification)
	}
	if !n.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidNotification, n.Type)
	}
	if n.Priority != "" && !n.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidNotification, n.Priority)
	}

	if err := f.store.CreateNotification(ctx, n); err != nil {
		return err
	}

	evt, err := realtime.NewEvent(relation, realtime.KindInsert, n)
	if err == nil {
		err = f.broker.Publish(ctx, evt)
	}
	if err != nil {
		f.logger.WithError(err).WithFields(logrus.Fields{
			"notification_id": n.ID,
			"user_id":         n.UserID,
		}).Warn("Failed to publish notification insert")
	}
	return nil
}

// Subscribe calls fn with every notification inserted for userID from now
// on. The returned handle must be closed by the caller.
func (f *Feed) Subscribe(userID string, fn func(models.Notification)) (realtime.Subscription, error) {
	log := f.logger.WithField("user_id", userID)
	return f.broker.Subscribe(realtime.Topic(relation, realtime.KindInsert), func(evt realtime.Event) {
		var n models.Notification
		if err := json.Unmarshal(evt.Payload, &n); err != nil {
			log.WithError(err).Warn("Dropping undecodable notification event")
			return
		}
		if n.UserID != userID {
			return
		}
		fn(n)
	})
}
