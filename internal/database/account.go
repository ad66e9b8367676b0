package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"rentpilot/internal/models"
)

// DeletionReport lists the steps of an account deletion that went through
// and, when one failed, which one. Steps already done are not rolled back.
// A tenant's messages stay in the lease thread of the landlord they wrote
// to. Documents and their stored objects are removed by the caller before
// DeleteAccount runs.
type DeletionReport struct {
	Completed []string `json:"completed"`
	Failed    string   `json:"failed,omitempty"`
}

type deletionStep struct {
	name string
	run  func(tx *gorm.DB) error
}

// DeleteAccount removes everything owned by the profile as a strict ordered
// sequence of independent statements. It stops at the first failure.
func (d *Database) DeleteAccount(ctx context.Context, profile *models.Profile) (DeletionReport, error) {
	var steps []deletionStep

	switch profile.Role {
	case models.RoleLandlord:
		steps = []deletionStep{
			{"messages", func(tx *gorm.DB) error {
				leaseIDs := tx.Model(&models.Lease{}).Select("id").Where("landlord_id = ?", profile.ID)
				messageIDs := tx.Model(&models.Message{}).Select("id").Where("lease_id IN (?)", leaseIDs)
				if err := tx.Where("message_id IN (?)", messageIDs).Delete(&models.MessageReadStatus{}).Error; err != nil {
					return err
				}
				return tx.Where("lease_id IN (?)", leaseIDs).Delete(&models.Message{}).Error
			}},
			{"leases", func(tx *gorm.DB) error {
				return tx.Where("landlord_id = ?", profile.ID).Delete(&models.Lease{}).Error
			}},
			{"applications", func(tx *gorm.DB) error {
				propertyIDs := tx.Model(&models.Property{}).Select("id").Where("landlord_id = ?", profile.ID)
				return tx.Where("property_id IN (?)", propertyIDs).Delete(&models.Application{}).Error
			}},
			{"properties", func(tx *gorm.DB) error {
				return tx.Where("landlord_id = ?", profile.ID).Delete(&models.Property{}).Error
			}},
		}
	case models.RoleTenant:
		steps = []deletionStep{
			{"applications", func(tx *gorm.DB) error {
				return tx.Where("applicant_id = ?", profile.ID).Delete(&models.Application{}).Error
			}},
		}
	default:
		return DeletionReport{}, fmt.Errorf("unknown role: %q", profile.Role)
	}

	steps = append(steps,
		deletionStep{"read_status", func(tx *gorm.DB) error {
			return tx.Where("user_id = ?", profile.ID).Delete(&models.MessageReadStatus{}).Error
		}},
		deletionStep{"notifications", func(tx *gorm.DB) error {
			return tx.Where("user_id = ?", profile.ID).Delete(&models.Notification{}).Error
		}},
		deletionStep{"profile", func(tx *gorm.DB) error {
			return tx.Where("id = ?", profile.ID).Delete(&models.Profile{}).Error
		}},
	)

	report := DeletionReport{Completed: []string{}}
	for _, step := range steps {
		if err := step.run(d.db.WithContext(ctx)); err != nil {
			report.Failed = step.name
			return report, fmt.Errorf("failed to delete %s: %w", step.name, err)
		}
		report.Completed = append(report.Completed, step.name)
	}
	return report, nil
}
