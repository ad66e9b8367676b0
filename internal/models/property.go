package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Property struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	LandlordID  string    `gorm:"index;not null" json:"landlord_id"`
	Name        string    `json:"name"`
	Street      string    `json:"street"`
	City        string    `json:"city"`
	PostalCode  string    `json:"postal_code"`
	UnitCount   int       `json:"unit_count"`
	IsAvailable bool      `json:"is_available"`
	MonthlyRent float64   `json:"monthly_rent"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

type LeaseStatus string

const (
	LeaseActive     LeaseStatus = "active"
	LeasePending    LeaseStatus = "pending"
	LeaseExpired    LeaseStatus = "expired"
	LeaseTerminated LeaseStatus = "terminated"
)

func (s LeaseStatus) Valid() bool {
	switch s {
	case LeaseActive, LeasePending, LeaseExpired, LeaseTerminated:
		return true
	}
	return false
}

type Lease struct {
	ID             string      `gorm:"primaryKey" json:"id"`
	PropertyID     string      `gorm:"index;not null" json:"property_id"`
	LandlordID     string      `gorm:"index;not null" json:"landlord_id"`
	TenantID       string      `gorm:"index" json:"tenant_id"`
	MonthlyRent    float64     `json:"monthly_rent"`
	LeaseStartDate time.Time   `json:"lease_start_date"`
	LeaseEndDate   time.Time   `gorm:"index" json:"lease_end_date"`
	Status         LeaseStatus `gorm:"index;default:active" json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (l *Lease) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	return nil
}

// AnalyticsData is derived on every request and never stored
type AnalyticsData struct {
	TotalRentCollected  float64 `json:"totalRentCollected"`
	RentDueThisMonth    float64 `json:"rentDueThisMonth"`
	OccupancyRate       int     `json:"occupancyRate"`
	UpcomingRenewals    int     `json:"upcomingRenewals"`
	NewApplications     int     `json:"newApplications"`
	MaintenanceRequests int     `json:"maintenanceRequests"`
}

func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
