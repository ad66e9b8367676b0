// Package documents keeps lease and property files in object storage and
// hands out time-limited download links.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"rentpilot/config"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidToken   = errors.New("invalid or expired download token")
)

// Storage is where document bytes live. Keys are relative paths chosen by
// the Service.
type Storage interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Remove(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Opener is implemented by backends that cannot sign URLs on their own and
// need the server to stream the object behind a token.
type Opener interface {
	Open(token string) (io.ReadCloser, string, error)
}

// NewStorage builds the configured backend
func NewStorage(cfg *config.Config) (Storage, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return NewS3Storage(S3Options{
			Bucket:    cfg.Storage.S3Bucket,
			Region:    cfg.Storage.S3Region,
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
			Endpoint:  cfg.Storage.S3Endpoint,
		})
	case "local", "":
		return NewLocalStorage(cfg.Storage.LocalDir, cfg.Storage.PublicURL, cfg.Auth.JWTSecret)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}
}
