package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/account-service/internal/api"
	"github.com/dom/account-service/internal/config"
	"github.com/dom/account-service/internal/logging"
	"github.com/dom/account-service/internal/mail"
	"github.com/dom/account-service/internal/media"
	"github.com/dom/account-service/internal/repository/postgres"
	"github.com/dom/account-service/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// Initialize repositories
	repos := postgres.NewRepositories(db)

	mailer, err := mail.New(cfg.Mail)
	if err != nil {
		logger.Fatal("failed to configure email transport", zap.Error(err))
	}

	// Avatar uploads are optional
	var store media.Store
	if cfg.Media.Enabled() {
		s3Store, err := media.NewS3Store(context.Background(), cfg.Media)
		if err != nil {
			logger.Fatal("failed to configure media storage", zap.Error(err))
		}
		store = s3Store
	} else {
		logger.Info("media storage not configured, avatar uploads disabled")
	}

	// Initialize services
	services := service.NewServices(repos, cfg, mailer, store, logger)

	// Initialize router
	router := api.NewRouter(services, cfg, logger)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Let queued welcome emails finish
	services.Account.Wait()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("server stopped")
}
