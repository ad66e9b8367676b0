package models

import (
	"time"

	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	ApplicationNew      ApplicationStatus = "new"
	ApplicationReviewed ApplicationStatus = "reviewed"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationNew, ApplicationReviewed, ApplicationApproved, ApplicationRejected:
		return true
	}
	return false
}

type Application struct {
	ID             string            `gorm:"primaryKey" json:"id"`
	PropertyID     string            `gorm:"index;not null" json:"property_id"`
	ApplicantID    *string           `gorm:"index" json:"applicant_id,omitempty"`
	ApplicantName  string            `json:"applicant_name"`
	ApplicantEmail string            `json:"applicant_email"`
	MonthlyIncome  float64           `json:"monthly_income"`
	Notes          string            `json:"notes,omitempty"`
	Status         ApplicationStatus `gorm:"index;default:new" json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
