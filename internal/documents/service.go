package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rentpilot/internal/database"
	"rentpilot/internal/models"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrForbidden        = errors.New("document access denied")
	ErrInvalidDocument  = errors.New("invalid document")
	ErrNotServable      = errors.New("storage backend serves files directly")
)

type Store interface {
	GetLease(ctx context.Context, id string) (*models.Lease, error)
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, filter database.DocumentFilter) ([]models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

type Service struct {
	store   Store
	storage Storage
	ttl     time.Duration
	logger  *logrus.Logger
}

func NewService(store Store, storage Storage, ttl time.Duration, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Service{store: store, storage: storage, ttl: ttl, logger: logger}
}

type UploadRequest struct {
	OwnerID     string
	LeaseID     string
	PropertyID  string
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Upload stores the bytes first and the row second. If the row cannot be
// written the object is removed again.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.Document, error) {
	name := strings.TrimSpace(req.Name)
	if req.OwnerID == "" || name == "" || req.Body == nil {
		return nil, ErrInvalidDocument
	}
	if err := s.checkScope(ctx, req.OwnerID, req.LeaseID, req.PropertyID); err != nil {
		return nil, err
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".bin"
	}
	key := fmt.Sprintf("%s/%s%s", req.OwnerID, uuid.NewString(), ext)

	if err := s.storage.Put(ctx, key, req.Body, contentType); err != nil {
		return nil, err
	}

	doc := &models.Document{
		OwnerID:     req.OwnerID,
		LeaseID:     optional(req.LeaseID),
		PropertyID:  optional(req.PropertyID),
		Name:        name,
		ContentType: contentType,
		Size:        req.Size,
		StoragePath: key,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		if rmErr := s.storage.Remove(ctx, key); rmErr != nil {
			s.logger.WithError(rmErr).WithField("key", key).Warn("Failed to remove orphaned object")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"document_id": doc.ID,
		"owner_id":    doc.OwnerID,
		"size":        doc.Size,
	}).Info("Document uploaded")
	return doc, nil
}

// List returns the documents of a lease or property the user belongs to,
// or the user's own documents when neither is given
func (s *Service) List(ctx context.Context, userID string, filter database.DocumentFilter) ([]models.Document, error) {
	if filter.LeaseID == "" && filter.PropertyID == "" {
		filter.OwnerID = userID
	} else if err := s.checkScope(ctx, userID, filter.LeaseID, filter.PropertyID); err != nil {
		return nil, err
	}
	return s.store.ListDocuments(ctx, filter)
}

// Remove deletes the object, then the row. Only the owner may remove.
func (s *Service) Remove(ctx context.Context, userID, id string) error {
	doc, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if doc.OwnerID != userID {
		return ErrForbidden
	}

	if err := s.storage.Remove(ctx, doc.StoragePath); err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrDocumentNotFound
		}
		return err
	}
	return nil
}

// RemoveOwned removes every document the user uploaded, objects first. It
// stops at the first failure and returns how many were removed.
func (s *Service) RemoveOwned(ctx context.Context, userID string) (int, error) {
	docs, err := s.store.ListDocuments(ctx, database.DocumentFilter{OwnerID: userID})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, doc := range docs {
		if err := s.Remove(ctx, userID, doc.ID); err != nil {
			return removed, fmt.Errorf("failed to remove document %s: %w", doc.ID, err)
		}
		removed++
	}
	if removed > 0 {
		s.logger.WithFields(logrus.Fields{"owner_id": userID, "documents": removed}).Info("Removed owned documents")
	}
	return removed, nil
}

// SignedURL returns a short-lived download link for the document
func (s *Service) SignedURL(ctx context.Context, userID, id string) (string, error) {
	doc, err := s.get(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.OwnerID != userID {
		var leaseID, propertyID string
		if doc.LeaseID != nil {
			leaseID = *doc.LeaseID
		}
		if doc.PropertyID != nil {
			propertyID = *doc.PropertyID
		}
		if leaseID == "" && propertyID == "" {
			return "", ErrForbidden
		}
		if err := s.checkScope(ctx, userID, leaseID, propertyID); err != nil {
			return "", err
		}
	}
	return s.storage.SignedURL(ctx, doc.StoragePath, s.ttl)
}

// Open exchanges a download token for the file when the backend needs the
// server to stream it
func (s *Service) Open(token string) (io.ReadCloser, string, error) {
	opener, ok := s.storage.(Opener)
	if !ok {
		return nil, "", ErrNotServable
	}
	return opener.Open(token)
}

func (s *Service) get(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrDocumentNotFound
	}
	return doc, err
}

// checkScope requires the user to be a party to the lease and the landlord
// of the property, for whichever of the two is set
func (s *Service) checkScope(ctx context.Context, userID, leaseID, propertyID string) error {
	if leaseID != "" {
		lease, err := s.store.GetLease(ctx, leaseID)
		if errors.Is(err, database.ErrNotFound) {
			return ErrForbidden
		}
		if err != nil {
			return err
		}
		if lease.LandlordID != userID && lease.TenantID != userID {
			return ErrForbidden
		}
	}
	if propertyID != "" {
		property, err := s.store.GetProperty(ctx, propertyID)
		if errors.Is(err, database.ErrNotFound) {
			return ErrForbidden
		}
		if err != nil {
			return err
		}
		if property.LandlordID != userID {
			return ErrForbidden
		}
	}
	return nil
}
