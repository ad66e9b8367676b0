// Package messages tracks per-user read state of lease message threads.
package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rentpilot/internal/database"
	"rentpilot/internal/models"
)

var (
	ErrEmptyMessage    = errors.New("message content is empty")
	ErrNotLeaseParty   = errors.New("user is not a party to this lease")
	ErrLeaseNotFound   = errors.New("lease not found")
	ErrMessageNotFound = errors.New("message not found")
)

type Store interface {
	GetLease(ctx context.Context, id string) (*models.Lease, error)
	CreateMessage(ctx context.Context, m *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	GetMessagesForLease(ctx context.Context, leaseID string) ([]models.Message, error)
	CountUnreadMessages(ctx context.Context, userID, leaseID string) (int64, error)
	GetUnreadMessageIDs(ctx context.Context, userID, leaseID string) ([]string, error)
	UpsertReadStatuses(ctx context.Context, userID string, messageIDs []string, readAt time.Time) error
}

// Result is the outcome of a read-state operation: the unread count the
// caller should display and the error, if any, that prevented it from
// being exact
type Result struct {
	Unread int   `json:"unread"`
	Err    error `json:"-"`
}

func (r Result) OK() bool {
	return r.Err == nil
}

type Service struct {
	store  Store
	logger *logrus.Logger
	now    func() time.Time
}

func NewService(store Store, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// GetUnreadCount counts messages on the user's leases, optionally one
// lease, that were sent by someone else and carry no read-status row for
// the user
func (s *Service) GetUnreadCount(ctx context.Context, userID, leaseID string) (int, error) {
	count, err := s.store.CountUnreadMessages(ctx, userID, leaseID)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *Service) authorize(ctx context.Context, leaseID, userID string) error {
	lease, err := s.store.GetLease(ctx, leaseID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrLeaseNotFound
	}
	if err != nil {
		return err
	}
	if lease.LandlordID != userID && lease.TenantID != userID {
		return ErrNotLeaseParty
	}
	return nil
}

// readable checks that the message exists and that userID is a party to
// its lease
func (s *Service) readable(ctx context.Context, messageID, userID string) error {
	msg, err := s.store.GetMessage(ctx, messageID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	return s.authorize(ctx, msg.LeaseID, userID)
}

// IsAccessError reports whether err means the caller may not touch the
// lease or message at all, as opposed to a failed read or write
func IsAccessError(err error) bool {
	return errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrLeaseNotFound) ||
		errors.Is(err, ErrNotLeaseParty)
}

// Send appends a message from senderID to the lease thread
func (s *Service) Send(ctx context.Context, leaseID, senderID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if err := s.authorize(ctx, leaseID, senderID); err != nil {
		return nil, err
	}

	msg := &models.Message{LeaseID: leaseID, SenderID: senderID, Content: content}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Service) ListForLease(ctx context.Context, leaseID, userID string) ([]models.Message, error) {
	if err := s.authorize(ctx, leaseID, userID); err != nil {
		return nil, err
	}
	return s.store.GetMessagesForLease(ctx, leaseID)
}

// NewTracker returns a counter of the user's unread messages, scoped to
// one lease when leaseID is set
func (s *Service) NewTracker(userID, leaseID string) *Tracker {
	return &Tracker{
		service: s,
		userID:  userID,
		leaseID: leaseID,
		log: s.logger.WithFields(logrus.Fields{
			"user_id":  userID,
			"lease_id": leaseID,
		}),
	}
}

// Tracker holds one user's unread counter between refreshes
type Tracker struct {
	service *Service
	userID  string
	leaseID string
	log     *logrus.Entry

	mu    sync.Mutex
	count int
}

func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Refresh recounts from the store. On failure the previous count stays.
func (t *Tracker) Refresh(ctx context.Context) Result {
	count, err := t.service.GetUnreadCount(ctx, t.userID, t.leaseID)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.log.WithError(err).Error("Failed to count unread messages")
		return Result{Unread: t.count, Err: err}
	}
	t.count = count
	return Result{Unread: count}
}

// MarkAsRead records the message as read, decrements the local counter
// right away and then recounts. Messages outside the user's leases are
// refused without a write.
func (t *Tracker) MarkAsRead(ctx context.Context, messageID string) Result {
	if err := t.service.readable(ctx, messageID, t.userID); err != nil {
		if !IsAccessError(err) {
			t.log.WithError(err).WithField("message_id", messageID).Error("Failed to look up message")
		}
		return Result{Unread: t.Count(), Err: err}
	}

	err := t.service.store.UpsertReadStatuses(ctx, t.userID, []string{messageID}, t.service.now().UTC())
	if err != nil {
		t.log.WithError(err).WithField("message_id", messageID).Error("Failed to mark message read")
		return Result{Unread: t.Count(), Err: err}
	}

	t.mu.Lock()
	if t.count > 0 {
		t.count--
	}
	t.mu.Unlock()

	return t.Refresh(ctx)
}

// MarkAllAsRead records every unread message of the lease as read and
// recounts. An empty leaseID falls back to the tracker's own scope.
func (t *Tracker) MarkAllAsRead(ctx context.Context, leaseID string) Result {
	if leaseID == "" {
		leaseID = t.leaseID
	}

	ids, err := t.service.store.GetUnreadMessageIDs(ctx, t.userID, leaseID)
	if err != nil {
		t.log.WithError(err).Error("Failed to list unread messages")
		return Result{Unread: t.Count(), Err: err}
	}

	if err := t.service.store.UpsertReadStatuses(ctx, t.userID, ids, t.service.now().UTC()); err != nil {
		t.log.WithError(err).WithField("messages", len(ids)).Error("Failed to mark messages read")
		return Result{Unread: t.Count(), Err: fmt.Errorf("mark %d messages read: %w", len(ids), err)}
	}

	return t.Refresh(ctx)
}
