package models

import (
	"time"

	"gorm.io/gorm"
)

type Message struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	LeaseID   string    `gorm:"index;not null" json:"lease_id"`
	SenderID  string    `gorm:"index;not null" json:"sender_id"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// MessageReadStatus records that UserID has read MessageID. A missing row
// means unread.
type MessageReadStatus struct {
	MessageID string    `gorm:"primaryKey" json:"message_id"`
	UserID    string    `gorm:"primaryKey" json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}

func (MessageReadStatus) TableName() string {
	return "message_read_status"
}
