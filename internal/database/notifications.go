package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"rentpilot/internal/models"
)

func (d *Database) CreateNotification(ctx context.Context, n *models.Notification) error {
	if err := d.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// GetRecentNotifications returns the user's notifications, newest first
func (d *Database) GetRecentNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	return notifications, nil
}

func (d *Database) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, translate(err)
	}
	return &n, nil
}

// MarkNotificationRead sets is_read without checking who owns the row
func (d *Database) MarkNotificationRead(ctx context.Context, id string) error {
	result := d.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *Database) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	result := d.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (d *Database) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// NotificationExists reports whether the user already has a notification of
// the given type carrying metadata.dedupe_key == key
func (d *Database) NotificationExists(ctx context.Context, userID string, kind models.NotificationType, key string) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", userID, kind).
		Where(datatypes.JSONQuery("metadata").Equals(key, "dedupe_key")).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up notification: %w", err)
	}
	return count > 0, nil
}

func (d *Database) DeleteExpiredNotifications(ctx context.Context, now time.Time) (int64, error) {
	result := d.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", result.Error)
	}
	return result.RowsAffected, nil
}
