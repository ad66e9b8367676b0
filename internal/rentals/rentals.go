// Package rentals manages the landlord's portfolio: properties, the leases
// signed on them and the applications prospective tenants submit.
package rentals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"rentpilot/internal/database"
	"rentpilot/internal/models"
)

// DateLayout is the wire format of lease dates. Dates are stored as
// midnight UTC.
const DateLayout = "2006-01-02"

var (
	ErrPropertyNotFound    = errors.New("property not found")
	ErrLeaseNotFound       = errors.New("lease not found")
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrInvalidLease        = errors.New("invalid lease")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrPropertyUnavailable = errors.New("property is not accepting applications")
)

type Store interface {
	CreateProperty(ctx context.Context, p *models.Property) error
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	GetPropertiesByLandlord(ctx context.Context, landlordID string) ([]models.Property, error)
	GetAvailableProperties(ctx context.Context) ([]models.Property, error)
	UpdateProperty(ctx context.Context, p *models.Property) error
	CreateLease(ctx context.Context, l *models.Lease) error
	GetLease(ctx context.Context, id string) (*models.Lease, error)
	GetLeases(ctx context.Context, filter database.LeaseFilter) ([]models.Lease, error)
	UpdateLeaseStatus(ctx context.Context, id string, status models.LeaseStatus) error
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	CreateApplication(ctx context.Context, a *models.Application) error
	GetApplicationsForProperties(ctx context.Context, propertyIDs []string, statuses ...models.ApplicationStatus) ([]models.Application, error)
}

// Notifier delivers in-app notifications, usually a notifications.Feed
type Notifier interface {
	Create(ctx context.Context, n *models.Notification) error
}

type Service struct {
	store    Store
	notifier Notifier
	logger   *logrus.Logger
}

func NewService(store Store, notifier Notifier, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Service{store: store, notifier: notifier, logger: logger}
}

type PropertyRequest struct {
	Name        string  `json:"name" binding:"required"`
	Street      string  `json:"street"`
	City        string  `json:"city"`
	PostalCode  string  `json:"postal_code"`
	UnitCount   int     `json:"unit_count" binding:"required,min=1"`
	MonthlyRent float64 `json:"monthly_rent" binding:"min=0"`
	IsAvailable bool    `json:"is_available"`
}

// PropertyUpdate changes only the fields that are set
type PropertyUpdate struct {
	Name        *string  `json:"name" binding:"omitempty,min=1"`
	Street      *string  `json:"street"`
	City        *string  `json:"city"`
	PostalCode  *string  `json:"postal_code"`
	UnitCount   *int     `json:"unit_count" binding:"omitempty,min=1"`
	MonthlyRent *float64 `json:"monthly_rent" binding:"omitempty,min=0"`
	IsAvailable *bool    `json:"is_available"`
}

type LeaseRequest struct {
	PropertyID     string  `json:"property_id" binding:"required"`
	TenantID       string  `json:"tenant_id" binding:"required"`
	MonthlyRent    float64 `json:"monthly_rent" binding:"required,gt=0"`
	LeaseStartDate string  `json:"lease_start_date" binding:"required,datetime=2006-01-02"`
	LeaseEndDate   string  `json:"lease_end_date" binding:"required,datetime=2006-01-02"`
	Status         string  `json:"status" binding:"omitempty,oneof=active pending"`
}

type ApplicationRequest struct {
	ApplicantName  string  `json:"applicant_name" binding:"required"`
	ApplicantEmail string  `json:"applicant_email" binding:"required,email"`
	MonthlyIncome  float64 `json:"monthly_income" binding:"min=0"`
	Notes          string  `json:"notes" binding:"max=2000"`
}

func (s *Service) CreateProperty(ctx context.Context, landlordID string, req PropertyRequest) (*models.Property, error) {
	p := &models.Property{
		LandlordID:  landlordID,
		Name:        strings.TrimSpace(req.Name),
		Street:      req.Street,
		City:        req.City,
		PostalCode:  req.PostalCode,
		UnitCount:   req.UnitCount,
		MonthlyRent: req.MonthlyRent,
		IsAvailable: req.IsAvailable,
	}
	if err := s.store.CreateProperty(ctx, p); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"landlord_id": landlordID, "property_id": p.ID}).Info("Created property")
	return p, nil
}

func (s *Service) ListProperties(ctx context.Context, landlordID string) ([]models.Property, error) {
	return s.store.GetPropertiesByLandlord(ctx, landlordID)
}

// ListAvailable returns the properties currently open for applications
func (s *Service) ListAvailable(ctx context.Context) ([]models.Property, error) {
	return s.store.GetAvailableProperties(ctx)
}

// owned loads a property of the landlord. Other landlords' properties look
// missing.
func (s *Service) owned(ctx context.Context, landlordID, id string) (*models.Property, error) {
	p, err := s.store.GetProperty(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.LandlordID != landlordID {
		return nil, ErrPropertyNotFound
	}
	return p, nil
}

func (s *Service) UpdateProperty(ctx context.Context, landlordID, id string, req PropertyUpdate) (*models.Property, error) {
	p, err := s.owned(ctx, landlordID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Street != nil {
		p.Street = *req.Street
	}
	if req.City != nil {
		p.City = *req.City
	}
	if req.PostalCode != nil {
		p.PostalCode = *req.PostalCode
	}
	if req.UnitCount != nil {
		p.UnitCount = *req.UnitCount
	}
	if req.MonthlyRent != nil {
		p.MonthlyRent = *req.MonthlyRent
	}
	if req.IsAvailable != nil {
		p.IsAvailable = *req.IsAvailable
	}

	if err := s.store.UpdateProperty(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func parseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidLease, value)
	}
	return t, nil
}

// CreateLease signs a lease on one of the landlord's properties with an
// existing tenant account
func (s *Service) CreateLease(ctx context.Context, landlordID string, req LeaseRequest) (*models.Lease, error) {
	if _, err := s.owned(ctx, landlordID, req.PropertyID); err != nil {
		return nil, err
	}

	tenant, err := s.store.GetProfile(ctx, req.TenantID)
	if errors.Is(err, database.ErrNotFound) || (err == nil && tenant.Role != models.RoleTenant) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}

	start, err := parseDate(req.LeaseStartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(req.LeaseEndDate)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end date must be after start date", ErrInvalidLease)
	}

	status := models.LeaseActive
	if req.Status != "" {
		status = models.LeaseStatus(req.Status)
	}

	lease := &models.Lease{
		PropertyID:     req.PropertyID,
		LandlordID:     landlordID,
		TenantID:       tenant.ID,
		MonthlyRent:    req.MonthlyRent,
		LeaseStartDate: start,
		LeaseEndDate:   end,
		Status:         status,
	}
	if err := s.store.CreateLease(ctx, lease); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"lease_id": lease.ID, "property_id": lease.PropertyID}).Info("Created lease")
	return lease, nil
}

// ListLeases returns the leases the user is a party to, in the role they
// hold. An empty status lists every status.
func (s *Service) ListLeases(ctx context.Context, userID string, role models.Role, status string) ([]models.Lease, error) {
	filter := database.LeaseFilter{Status: models.LeaseStatus(status)}
	if status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	switch role {
	case models.RoleLandlord:
		filter.LandlordID = userID
	case models.RoleTenant:
		filter.TenantID = userID
	default:
		return nil, fmt.Errorf("unknown role: %q", role)
	}
	return s.store.GetLeases(ctx, filter)
}

func (s *Service) UpdateLeaseStatus(ctx context.Context, landlordID, id, status string) (*models.Lease, error) {
	next := models.LeaseStatus(status)
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}

	lease, err := s.store.GetLease(ctx, id)
	if errors.Is(err, database.ErrNotFound) || (err == nil && lease.LandlordID != landlordID) {
		return nil, ErrLeaseNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateLeaseStatus(ctx, id, next); err != nil {
		return nil, err
	}
	lease.Status = next
	return lease, nil
}

// SubmitApplication records an application on an available property.
// applicantID is empty for applicants without an account. The landlord is
// notified; a failed notification does not fail the submission.
func (s *Service) SubmitApplication(ctx context.Context, applicantID, propertyID string, req ApplicationRequest) (*models.Application, error) {
	property, err := s.store.GetProperty(ctx, propertyID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrPropertyNotFound
	}
	if err != nil {
		return nil, err
	}
	if !property.IsAvailable {
		return nil, ErrPropertyUnavailable
	}

	app := &models.Application{
		PropertyID:     property.ID,
		ApplicantName:  strings.TrimSpace(req.ApplicantName),
		ApplicantEmail: strings.ToLower(strings.TrimSpace(req.ApplicantEmail)),
		MonthlyIncome:  req.MonthlyIncome,
		Notes:          req.Notes,
		Status:         models.ApplicationNew,
	}
	if applicantID != "" {
		app.ApplicantID = &applicantID
	}
	if err := s.store.CreateApplication(ctx, app); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		action := "/dashboard/applications"
		description := fmt.Sprintf("%s applied for %s", app.ApplicantName, property.Name)
		err := s.notifier.Create(ctx, &models.Notification{
			UserID:      property.LandlordID,
			Type:        models.NotificationApplication,
			Title:       "New application",
			Description: &description,
			Priority:    models.PriorityMedium,
			ActionURL:   &action,
			Metadata: map[string]interface{}{
				"property_id":    property.ID,
				"application_id": app.ID,
			},
		})
		if err != nil {
			s.logger.WithError(err).WithField("application_id", app.ID).Warn("Failed to notify landlord of application")
		}
	}
	return app, nil
}

// ListApplications returns applications on the landlord's properties,
// newest first, optionally of one status
func (s *Service) ListApplications(ctx context.Context, landlordID, status string) ([]models.Application, error) {
	var statuses []models.ApplicationStatus
	if status != "" {
		st := models.ApplicationStatus(status)
		if !st.Valid() {
			return nil, ErrInvalidStatus
		}
		statuses = append(statuses, st)
	}

	properties, err := s.store.GetPropertiesByLandlord(ctx, landlordID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(properties))
	for i, p := range properties {
		ids[i] = p.ID
	}
	return s.store.GetApplicationsForProperties(ctx, ids, statuses...)
}
