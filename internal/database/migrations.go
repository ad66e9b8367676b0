package database

import (
	"fmt"

	"rentpilot/internal/models"
)

func (d *Database) RunMigrations() error {
	err := d.db.AutoMigrate(
		&models.Profile{},
		&models.Property{},
		&models.Lease{},
		&models.Application{},
		&models.Message{},
		&models.MessageReadStatus{},
		&models.Notification{},
		&models.Document{},
		&models.Subscription{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Unread lookups filter by user and read flag together
	err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_notifications_user_unread
		ON notifications(user_id, is_read);
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create notification index: %w", err)
	}

	err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_messages_lease_sender
		ON messages(lease_id, sender_id);
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create message index: %w", err)
	}

	return nil
}
