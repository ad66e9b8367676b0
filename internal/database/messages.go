package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rentpilot/internal/models"
)

func (d *Database) CreateMessage(ctx context.Context, m *models.Message) error {
	if err := d.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (d *Database) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (d *Database) GetMessagesForLease(ctx context.Context, leaseID string) ([]models.Message, error) {
	var messages []models.Message
	err := d.db.WithContext(ctx).
		Where("lease_id = ?", leaseID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	return messages, nil
}

// unreadMessages selects messages on the user's leases that someone else
// sent and the user has no read-status row for. An empty leaseID means all
// of the user's leases.
func (d *Database) unreadMessages(ctx context.Context, userID, leaseID string) *gorm.DB {
	q := d.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("messages.sender_id <> ?", userID).
		Where(`NOT EXISTS (
			SELECT 1 FROM message_read_status r
			WHERE r.message_id = messages.id AND r.user_id = ?
		)`, userID).
		Where(`messages.lease_id IN (
			SELECT id FROM leases WHERE landlord_id = ? OR tenant_id = ?
		)`, userID, userID)
	if leaseID != "" {
		q = q.Where("messages.lease_id = ?", leaseID)
	}
	return q
}

func (d *Database) CountUnreadMessages(ctx context.Context, userID, leaseID string) (int64, error) {
	var count int64
	if err := d.unreadMessages(ctx, userID, leaseID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

func (d *Database) GetUnreadMessageIDs(ctx context.Context, userID, leaseID string) ([]string, error) {
	var ids []string
	if err := d.unreadMessages(ctx, userID, leaseID).Pluck("messages.id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to query unread messages: %w", err)
	}
	return ids, nil
}

// UpsertReadStatuses inserts a read-status row per message, refreshing
// read_at when the (message_id, user_id) pair already exists
func (d *Database) UpsertReadStatuses(ctx context.Context, userID string, messageIDs []string, readAt time.Time) error {
	if len(messageIDs) == 0 {
		return nil
	}

	rows := make([]models.MessageReadStatus, len(messageIDs))
	for i, id := range messageIDs {
		rows[i] = models.MessageReadStatus{MessageID: id, UserID: userID, ReadAt: readAt}
	}

	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"read_at"}),
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to upsert read status: %w", err)
	}
	return nil
}
