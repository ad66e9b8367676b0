package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationApplication   NotificationType = "application"
	NotificationLeaseExpiring NotificationType = "lease_expiring"
	NotificationVacantUnit    NotificationType = "vacant_unit"
	NotificationPayment       NotificationType = "payment"
	NotificationMaintenance   NotificationType = "maintenance"
	NotificationSystem        NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationApplication, NotificationLeaseExpiring, NotificationVacantUnit,
		NotificationPayment, NotificationMaintenance, NotificationSystem:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Notification belongs to exactly one user. Clients only ever flip IsRead
// from false to true.
type Notification struct {
	ID          string            `gorm:"primaryKey" json:"id"`
	UserID      string            `gorm:"index;not null" json:"user_id"`
	Type        NotificationType  `gorm:"not null" json:"type"`
	Title       string            `gorm:"not null" json:"title"`
	Description *string           `json:"description,omitempty"`
	Priority    Priority          `gorm:"default:medium" json:"priority"`
	IsRead      bool              `gorm:"default:false;index" json:"is_read"`
	ActionURL   *string           `json:"action_url,omitempty"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	assignID(&n.ID)
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if n.Metadata == nil {
		n.Metadata = datatypes.JSONMap{}
	}
	return nil
}
