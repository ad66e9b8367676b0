package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"rentpilot/internal/models"
)

func (d *Database) CreateProfile(ctx context.Context, p *models.Profile) error {
	if err := d.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

func (d *Database) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (d *Database) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var p models.Profile
	if err := d.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (d *Database) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	var s models.Subscription
	if err := d.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// UpsertSubscription stores the provider's latest view of the user's plan
func (d *Database) UpsertSubscription(ctx context.Context, s *models.Subscription) error {
	s.UpdatedAt = time.Now().UTC()
	err := d.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"plan", "status", "customer_id", "current_period_end", "updated_at"}),
		}).
		Create(s).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}
