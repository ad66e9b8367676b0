package models

import (
	"time"

	"gorm.io/gorm"
)

type Document struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	OwnerID     string    `gorm:"index;not null" json:"owner_id"`
	LeaseID     *string   `gorm:"index" json:"lease_id,omitempty"`
	PropertyID  *string   `gorm:"index" json:"property_id,omitempty"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	StoragePath string    `gorm:"not null" json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	assignID(&d.ID)
	return nil
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionActive, SubscriptionTrialing, SubscriptionPastDue, SubscriptionCanceled:
		return true
	}
	return false
}

// Subscription mirrors the billing provider's view of a user's plan
type Subscription struct {
	UserID           string             `gorm:"primaryKey" json:"user_id"`
	Plan             string             `json:"plan"`
	Status           SubscriptionStatus `json:"status"`
	CustomerID       string             `json:"customer_id,omitempty"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end,omitempty"`
	UpdatedAt        time.Time          `json:"updated_at"`
}
