package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"rentpilot/internal/models"
)

// JobType represents the different housekeeping jobs
type JobType int

const (
	JobTypeLeaseExpiry JobType = iota
	JobTypeVacantUnits
	JobTypePurge
)

// String returns the string representation of a JobType
func (j JobType) String() string {
	switch j {
	case JobTypeLeaseExpiry:
		return "lease_expiry"
	case JobTypeVacantUnits:
		return "vacant_units"
	case JobTypePurge:
		return "purge"
	default:
		return "unknown"
	}
}

// Hour of day at which vacant unit reminders go out
const vacantUnitHour = 9

type Store interface {
	GetActiveLeasesEndingBetween(ctx context.Context, from, to time.Time) ([]models.Lease, error)
	GetAvailableProperties(ctx context.Context) ([]models.Property, error)
	NotificationExists(ctx context.Context, userID string, kind models.NotificationType, key string) (bool, error)
	DeleteExpiredNotifications(ctx context.Context, now time.Time) (int64, error)
}

// Notifier delivers a generated notification
type Notifier interface {
	Create(ctx context.Context, n *models.Notification) error
}

type Options struct {
	LeaseExpiryHorizon time.Duration
	NotificationTTL    time.Duration
}

// Scheduler runs periodic jobs that generate and expire notifications
type Scheduler struct {
	store    Store
	notifier Notifier
	opts     Options
	logger   *logrus.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	jobMutex sync.Mutex // Ensures sequential job execution
	startup  atomic.Bool
	now      func() time.Time
}

// NewScheduler creates a new scheduler
func NewScheduler(store Store, notifier Notifier, opts Options, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	s := &Scheduler{
		store:    store,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
	s.startup.Store(true)
	return s
}

// Start begins the scheduled tasks
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.jobMutex.Lock()
		defer s.jobMutex.Unlock()
		s.logger.Info("Running startup jobs")
		for _, job := range []JobType{JobTypePurge, JobTypeLeaseExpiry, JobTypeVacantUnits} {
			s.runJob(ctx, job)
		}
		s.startup.Store(false)
		s.logger.Info("Startup jobs completed")
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.executeScheduledJobs(ctx, t)
		}
	}
}

// executeScheduledJobs runs all jobs that are scheduled for the given time
func (s *Scheduler) executeScheduledJobs(ctx context.Context, t time.Time) {
	if s.startup.Load() {
		s.logger.Debug("Skipping scheduled jobs while startup is in progress")
		return
	}
	if t.Minute() != 0 {
		return
	}

	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	if t.Hour() == 0 {
		s.runJob(ctx, JobTypePurge)
	}
	s.runJob(ctx, JobTypeLeaseExpiry)
	if t.Hour() == vacantUnitHour {
		s.runJob(ctx, JobTypeVacantUnits)
	}
}

func (s *Scheduler) runJob(ctx context.Context, job JobType) {
	log := s.logger.WithField("job_type", job.String())
	log.Info("Starting job")
	if err := s.RunJob(ctx, job); err != nil {
		log.WithError(err).Error("Job failed")
		return
	}
	log.Info("Job completed successfully")
}

// RunJob runs a single job immediately
func (s *Scheduler) RunJob(ctx context.Context, job JobType) error {
	switch job {
	case JobTypeLeaseExpiry:
		_, err := s.notifyExpiringLeases(ctx)
		return err
	case JobTypeVacantUnits:
		_, err := s.notifyVacantUnits(ctx)
		return err
	case JobTypePurge:
		n, err := s.store.DeleteExpiredNotifications(ctx, s.now().UTC())
		if err == nil && n > 0 {
			s.logger.WithField("deleted", n).Info("Purged expired notifications")
		}
		return err
	default:
		return fmt.Errorf("unknown job type: %d", job)
	}
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *Scheduler) expiry(now time.Time) *time.Time {
	if s.opts.NotificationTTL <= 0 {
		return nil
	}
	t := now.Add(s.opts.NotificationTTL)
	return &t
}

// notify creates n unless the user already has one with the same dedupe key
func (s *Scheduler) notify(ctx context.Context, n *models.Notification, key string) (bool, error) {
	exists, err := s.store.NotificationExists(ctx, n.UserID, n.Type, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	n.Metadata["dedupe_key"] = key
	if err := s.notifier.Create(ctx, n); err != nil {
		return false, err
	}
	return true, nil
}

func strPtr(s string) *string {
	return &s
}

// notifyExpiringLeases tells both parties of every active lease ending
// within the horizon, once per lease per day
func (s *Scheduler) notifyExpiringLeases(ctx context.Context) (int, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	leases, err := s.store.GetActiveLeasesEndingBetween(ctx, today, today.Add(s.opts.LeaseExpiryHorizon))
	if err != nil {
		return 0, err
	}

	created := 0
	for _, lease := range leases {
		end := lease.LeaseEndDate.UTC()
		days := int(time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).Sub(today).Hours() / 24)
		key := fmt.Sprintf("lease:%s:%s", lease.ID, today.Format("2006-01-02"))

		priority := models.PriorityMedium
		if days <= 7 {
			priority = models.PriorityHigh
		}

		recipients := []struct {
			userID string
			url    string
		}{
			{lease.LandlordID, "/dashboard/leases/" + lease.ID},
			{lease.TenantID, "/tenant/lease"},
		}
		for _, r := range recipients {
			if r.userID == "" {
				continue
			}
			n := &models.Notification{
				UserID:      r.userID,
				Type:        models.NotificationLeaseExpiring,
				Title:       "Lease ending soon",
				Description: strPtr(fmt.Sprintf("The lease ends on %s (%d days left).", end.Format("2 Jan 2006"), days)),
				Priority:    priority,
				ActionURL:   strPtr(r.url),
				Metadata:    map[string]interface{}{"lease_id": lease.ID, "days_left": days},
				ExpiresAt:   s.expiry(now),
			}
			ok, err := s.notify(ctx, n, key)
			if err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"lease_id": lease.ID,
					"user_id":  r.userID,
				}).Error("Failed to create lease expiry notification")
				continue
			}
			if ok {
				created++
			}
		}
	}
	return created, nil
}

// notifyVacantUnits reminds landlords of properties still marked available,
// once per property per day
func (s *Scheduler) notifyVacantUnits(ctx context.Context) (int, error) {
	now := s.now().UTC()
	properties, err := s.store.GetAvailableProperties(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, p := range properties {
		key := fmt.Sprintf("vacant:%s:%s", p.ID, now.Format("2006-01-02"))
		n := &models.Notification{
			UserID:      p.LandlordID,
			Type:        models.NotificationVacantUnit,
			Title:       "Unit available: " + p.Name,
			Description: strPtr("This property is listed as available and has no active tenant."),
			Priority:    models.PriorityLow,
			ActionURL:   strPtr("/dashboard/properties/" + p.ID),
			Metadata:    map[string]interface{}{"property_id": p.ID},
			ExpiresAt:   s.expiry(now),
		}
		ok, err := s.notify(ctx, n, key)
		if err != nil {
			s.logger.WithError(err).WithField("property_id", p.ID).Error("Failed to create vacant unit notification")
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}
