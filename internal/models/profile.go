package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Role tags a profile as either a landlord or a tenant. Every branch on it
// must handle both values.
type Role string

const (
	RoleLandlord Role = "landlord"
	RoleTenant   Role = "tenant"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleLandlord:
		return RoleLandlord, nil
	case RoleTenant:
		return RoleTenant, nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

type Profile struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone,omitempty"`
	Role         Role      `gorm:"not null" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}
