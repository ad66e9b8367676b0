package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Server struct {
		// Port the HTTP server listens on
		Port string `env:"PORT" envDefault:"5250"`

		// Comma separated list of origins allowed by CORS
		AllowedOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

		// Time allowed for in-flight requests on shutdown (in seconds)
		ShutdownTimeout int `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	}

	Database struct {
		Path string `env:"DATABASE_PATH" envDefault:"database/rentpilot.db"`
	}

	Auth struct {
		JWTSecret string `env:"JWT_SECRET" envDefault:"rentpilot-dev-secret"`

		// Session lifetime in hours
		SessionTTL int `env:"SESSION_TTL_HOURS" envDefault:"24"`
	}

	Storage struct {
		// "local" or "s3"
		Backend  string `env:"STORAGE_BACKEND" envDefault:"local"`
		LocalDir string `env:"STORAGE_LOCAL_DIR" envDefault:"storage/documents"`

		// Base URL used when building local signed download links
		PublicURL string `env:"STORAGE_PUBLIC_URL" envDefault:"http://localhost:5250"`

		S3Bucket    string `env:"S3_BUCKET"`
		S3Region    string `env:"S3_REGION" envDefault:"eu-west-1"`
		S3AccessKey string `env:"S3_ACCESS_KEY"`
		S3SecretKey string `env:"S3_SECRET_KEY"`
		S3Endpoint  string `env:"S3_ENDPOINT"`

		// Lifetime of signed document URLs (in seconds)
		SignedURLTTL int `env:"SIGNED_URL_TTL" envDefault:"3600"`
	}

	Realtime struct {
		// "memory" or "redis"
		Backend    string `env:"REALTIME_BACKEND" envDefault:"memory"`
		RedisURL   string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
		BufferSize int    `env:"REALTIME_BUFFER_SIZE" envDefault:"256"`
	}

	Billing struct {
		FunctionsURL string `env:"BILLING_FUNCTIONS_URL" envDefault:"http://localhost:54321/functions/v1"`
		APIKey       string `env:"BILLING_API_KEY"`

		// Maximum number of retries for a failed function call
		MaxRetries int `env:"BILLING_MAX_RETRIES" envDefault:"3"`

		// Shared secret expected on incoming billing events
		WebhookSecret string `env:"BILLING_WEBHOOK_SECRET"`
	}

	Analytics struct {
		RenewalWindowDays int     `env:"RENEWAL_WINDOW_DAYS" envDefault:"60"`
		CollectionRatio   float64 `env:"COLLECTION_RATIO" envDefault:"0.95"`
	}

	Scheduler struct {
		Enabled bool `env:"SCHEDULER_ENABLED" envDefault:"true"`

		// Leases ending within this many days raise a lease_expiring notification
		LeaseExpiryHorizonDays int `env:"LEASE_EXPIRY_HORIZON_DAYS" envDefault:"30"`

		// Days a generated notification stays visible
		NotificationTTLDays int `env:"NOTIFICATION_TTL_DAYS" envDefault:"14"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	switch c.Realtime.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown realtime backend: %s", c.Realtime.Backend)
	}

	if c.Analytics.RenewalWindowDays < 0 {
		return fmt.Errorf("RENEWAL_WINDOW_DAYS must not be negative")
	}
	return nil
}

// SessionDuration returns the configured session lifetime
func (c *Config) SessionDuration() time.Duration {
	return time.Duration(c.Auth.SessionTTL) * time.Hour
}

// SignedURLDuration returns the configured lifetime of signed document URLs
func (c *Config) SignedURLDuration() time.Duration {
	return time.Duration(c.Storage.SignedURLTTL) * time.Second
}
