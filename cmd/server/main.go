package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rentpilot/config"
	"rentpilot/internal/analytics"
	"rentpilot/internal/api"
	"rentpilot/internal/auth"
	"rentpilot/internal/billing"
	"rentpilot/internal/database"
	"rentpilot/internal/documents"
	"rentpilot/internal/messages"
	"rentpilot/internal/notifications"
	"rentpilot/internal/realtime"
	"rentpilot/internal/rentals"
	"rentpilot/internal/scheduler"
)

func newBroker(cfg *config.Config, logger *logrus.Logger) (realtime.Broker, error) {
	switch cfg.Realtime.Backend {
	case "redis":
		return realtime.NewRedisBroker(cfg.Realtime.RedisURL, logger)
	default:
		b := realtime.NewMemoryBroker(cfg.Realtime.BufferSize, logger)
		b.Start()
		return b, nil
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logger.Infof("Using database at: %s", cfg.Database.Path)
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	broker, err := newBroker(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start realtime broker")
	}
	defer broker.Close()

	storage, err := documents.NewStorage(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize document storage")
	}

	feed := notifications.NewFeed(db, broker, logger)
	handler := api.NewHandler(api.Services{
		DB:       db,
		Auth:     auth.NewManager(db, cfg.Auth.JWTSecret, cfg.SessionDuration()),
		Feed:     feed,
		Rentals:  rentals.NewService(db, feed, logger),
		Messages: messages.NewService(db, logger),
		Analytics: analytics.NewService(db, analytics.Options{
			RenewalWindowDays: cfg.Analytics.RenewalWindowDays,
			CollectionRatio:   cfg.Analytics.CollectionRatio,
		}, logger),
		Documents: documents.NewService(db, storage, cfg.SignedURLDuration(), logger),
		Billing: billing.NewService(db,
			billing.NewClient(cfg.Billing.FunctionsURL, cfg.Billing.APIKey, cfg.Billing.MaxRetries, logger),
			cfg.Billing.WebhookSecret, logger),
	}, logger)

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(db, feed, scheduler.Options{
			LeaseExpiryHorizon: time.Duration(cfg.Scheduler.LeaseExpiryHorizonDays) * 24 * time.Hour,
			NotificationTTL:    time.Duration(cfg.Scheduler.NotificationTTLDays) * 24 * time.Hour,
		}, logger)
		sched.Start()
		defer sched.Stop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, handler, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Server stopped")
}
