package database

import (
	"context"
	"fmt"

	"rentpilot/internal/models"
)

type DocumentFilter struct {
	OwnerID    string
	LeaseID    string
	PropertyID string
}

func (d *Database) CreateDocument(ctx context.Context, doc *models.Document) error {
	if err := d.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (d *Database) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (d *Database) ListDocuments(ctx context.Context, filter DocumentFilter) ([]models.Document, error) {
	q := d.db.WithContext(ctx)
	if filter.OwnerID != "" {
		q = q.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.LeaseID != "" {
		q = q.Where("lease_id = ?", filter.LeaseID)
	}
	if filter.PropertyID != "" {
		q = q.Where("property_id = ?", filter.PropertyID)
	}

	var docs []models.Document
	if err := q.Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	return docs, nil
}

func (d *Database) DeleteDocument(ctx context.Context, id string) error {
	result := d.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Document{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
