// Package analytics derives the landlord dashboard figures from properties,
// leases and applications.
package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"rentpilot/internal/models"
)

type Options struct {
	// Leases ending within this many days of today count as upcoming renewals
	RenewalWindowDays int

	// Share of rent due assumed collected. This is an estimate, not a
	// figure taken from payments.
	CollectionRatio float64
}

func DefaultOptions() Options {
	return Options{RenewalWindowDays: 60, CollectionRatio: 0.95}
}

type Store interface {
	GetPropertiesByLandlord(ctx context.Context, landlordID string) ([]models.Property, error)
	GetActiveLeasesByLandlord(ctx context.Context, landlordID string) ([]models.Lease, error)
	GetApplicationsForProperties(ctx context.Context, propertyIDs []string, statuses ...models.ApplicationStatus) ([]models.Application, error)
}

type Service struct {
	store  Store
	opts   Options
	logger *logrus.Logger
	now    func() time.Time
}

func NewService(store Store, opts Options, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{store: store, opts: opts, logger: logger, now: time.Now}
}

// Compute issues the three reads for the landlord and aggregates them. The
// first failing read aborts the whole computation.
func (s *Service) Compute(ctx context.Context, landlordID string) (models.AnalyticsData, error) {
	properties, err := s.store.GetPropertiesByLandlord(ctx, landlordID)
	if err != nil {
		return models.AnalyticsData{}, fmt.Errorf("failed to load properties: %w", err)
	}

	leases, err := s.store.GetActiveLeasesByLandlord(ctx, landlordID)
	if err != nil {
		return models.AnalyticsData{}, fmt.Errorf("failed to load leases: %w", err)
	}

	propertyIDs := make([]string, len(properties))
	for i, p := range properties {
		propertyIDs[i] = p.ID
	}
	applications, err := s.store.GetApplicationsForProperties(ctx, propertyIDs, models.ApplicationNew)
	if err != nil {
		return models.AnalyticsData{}, fmt.Errorf("failed to load applications: %w", err)
	}

	data := Aggregate(properties, leases, applications, s.now(), s.opts)
	s.logger.WithFields(logrus.Fields{
		"landlord_id":    landlordID,
		"properties":     len(properties),
		"active_leases":  len(leases),
		"occupancy_rate": data.OccupancyRate,
	}).Debug("Computed analytics")
	return data, nil
}

// Aggregate is the pure part of Compute. Only applications with status new
// are counted, whatever the caller passes.
func Aggregate(properties []models.Property, leases []models.Lease, applications []models.Application, now time.Time, opts Options) models.AnalyticsData {
	var data models.AnalyticsData

	totalUnits, occupiedUnits := 0, 0
	for _, p := range properties {
		totalUnits += p.UnitCount
		if !p.IsAvailable {
			occupiedUnits++
		}
	}
	data.OccupancyRate = OccupancyRate(occupiedUnits, totalUnits)

	// Lease dates are stored as midnight UTC
	today := utcDate(now)
	windowEnd := today.AddDate(0, 0, opts.RenewalWindowDays)
	for _, l := range leases {
		if l.Status != models.LeaseActive {
			continue
		}
		data.RentDueThisMonth += l.MonthlyRent

		end := utcDate(l.LeaseEndDate)
		if !end.Before(today) && !end.After(windowEnd) {
			data.UpcomingRenewals++
		}
	}

	data.TotalRentCollected = data.RentDueThisMonth * opts.CollectionRatio

	for _, a := range applications {
		if a.Status == models.ApplicationNew {
			data.NewApplications++
		}
	}

	// Maintenance tracking does not exist yet
	data.MaintenanceRequests = 0
	return data
}

// OccupancyRate returns round(100 * occupied / total), or 0 without units
func OccupancyRate(occupied, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(occupied) / float64(total)))
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
