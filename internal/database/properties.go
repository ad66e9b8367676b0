package database

import (
	"context"
	"fmt"
	"time"

	"rentpilot/internal/models"
)

func (d *Database) CreateProperty(ctx context.Context, p *models.Property) error {
	if err := d.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to insert property: %w", err)
	}
	return nil
}

func (d *Database) GetPropertiesByLandlord(ctx context.Context, landlordID string) ([]models.Property, error) {
	var properties []models.Property
	err := d.db.WithContext(ctx).
		Where("landlord_id = ?", landlordID).
		Order("created_at ASC").
		Find(&properties).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	return properties, nil
}

func (d *Database) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	var p models.Property
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// UpdateProperty writes every column of the property back
func (d *Database) UpdateProperty(ctx context.Context, p *models.Property) error {
	result := d.db.WithContext(ctx).Model(p).Select("*").Omit("id", "landlord_id", "created_at").Updates(p)
	if result.Error != nil {
		return fmt.Errorf("failed to update property: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *Database) GetAvailableProperties(ctx context.Context) ([]models.Property, error) {
	var properties []models.Property
	if err := d.db.WithContext(ctx).Where("is_available = ?", true).Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to query available properties: %w", err)
	}
	return properties, nil
}

func (d *Database) CreateLease(ctx context.Context, l *models.Lease) error {
	if err := d.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to insert lease: %w", err)
	}
	return nil
}

func (d *Database) GetLease(ctx context.Context, id string) (*models.Lease, error) {
	var l models.Lease
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

// LeaseFilter narrows a lease listing. Empty fields do not filter.
type LeaseFilter struct {
	LandlordID string
	TenantID   string
	Status     models.LeaseStatus
}

func (d *Database) GetLeases(ctx context.Context, filter LeaseFilter) ([]models.Lease, error) {
	q := d.db.WithContext(ctx)
	if filter.LandlordID != "" {
		q = q.Where("landlord_id = ?", filter.LandlordID)
	}
	if filter.TenantID != "" {
		q = q.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var leases []models.Lease
	if err := q.Order("lease_end_date ASC").Find(&leases).Error; err != nil {
		return nil, fmt.Errorf("failed to query leases: %w", err)
	}
	return leases, nil
}

func (d *Database) UpdateLeaseStatus(ctx context.Context, id string, status models.LeaseStatus) error {
	result := d.db.WithContext(ctx).
		Model(&models.Lease{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update lease: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *Database) GetActiveLeasesByLandlord(ctx context.Context, landlordID string) ([]models.Lease, error) {
	var leases []models.Lease
	err := d.db.WithContext(ctx).
		Where("landlord_id = ? AND status = ?", landlordID, models.LeaseActive).
		Find(&leases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query leases: %w", err)
	}
	return leases, nil
}

// GetActiveLeasesEndingBetween returns active leases whose end date falls in [from, to]
func (d *Database) GetActiveLeasesEndingBetween(ctx context.Context, from, to time.Time) ([]models.Lease, error) {
	var leases []models.Lease
	err := d.db.WithContext(ctx).
		Where("status = ? AND lease_end_date >= ? AND lease_end_date <= ?", models.LeaseActive, from, to).
		Order("lease_end_date ASC").
		Find(&leases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query expiring leases: %w", err)
	}
	return leases, nil
}

func (d *Database) CreateApplication(ctx context.Context, a *models.Application) error {
	if err := d.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

// GetApplicationsForProperties returns applications on the given properties,
// optionally restricted to a set of statuses
func (d *Database) GetApplicationsForProperties(ctx context.Context, propertyIDs []string, statuses ...models.ApplicationStatus) ([]models.Application, error) {
	if len(propertyIDs) == 0 {
		return []models.Application{}, nil
	}

	q := d.db.WithContext(ctx).Where("property_id IN ?", propertyIDs)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var applications []models.Application
	if err := q.Order("created_at DESC").Find(&applications).Error; err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	return applications, nil
}

func (d *Database) UpdateApplicationStatus(ctx context.Context, id string, status models.ApplicationStatus) error {
	result := d.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update application: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
