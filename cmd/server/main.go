// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/creatorclaim/backend/internal/config"
	"github.com/creatorclaim/backend/internal/database"
	"github.com/creatorclaim/backend/internal/indexer"
	"github.com/creatorclaim/backend/internal/ledger"
	"github.com/creatorclaim/backend/internal/router"
	"github.com/creatorclaim/backend/internal/stream"
	"github.com/creatorclaim/backend/internal/utils"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	// Certificate registry and licence ledger
	ledgerHandle := ledger.New(cfg.Ledger.TreasuryWallet, logger)

	// Live royalty fan-out
	hub := stream.NewHub(stream.Config{
		PingInterval:   time.Duration(cfg.Stream.PingIntervalSec) * time.Second,
		WriteTimeout:   time.Duration(cfg.Stream.WriteTimeoutSec) * time.Second,
		ReadTimeout:    time.Duration(cfg.Stream.ReadTimeoutSec) * time.Second,
		MaxMessageSize: 1024,
		SendBufferSize: cfg.Stream.SendBufferSize,
	}, logger)
	hub.Start()
	defer hub.Stop()

	// Event ingestion pipeline: ledger log -> Postgres index -> stream
	pipelineCtx, stopPipeline := context.WithCancel(context.Background())
	defer stopPipeline()

	pipelineCfg := indexer.DefaultConfig()
	pipelineCfg.Workers = cfg.Indexer.Workers
	pipelineCfg.SubscribeBuffer = cfg.Indexer.SubscribeBuffer
	pipelineCfg.ApplyRetry = utils.RetryPolicy{
		MaxAttempts:     cfg.Indexer.ApplyMaxAttempts,
		InitialInterval: time.Duration(cfg.Indexer.ApplyBackoffMs) * time.Millisecond,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		JitterFraction:  0.2,
	}
	pipelineCfg.ReconnectRetry.InitialInterval = time.Duration(cfg.Indexer.ReconnectBackoffMs) * time.Millisecond

	pipeline := indexer.NewPipeline(ledgerHandle, indexer.NewGormStore(db), hub, pipelineCfg, logger)
	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		if err := pipeline.Run(pipelineCtx); err != nil && err != context.Canceled {
			logger.WithError(err).Error("Event pipeline stopped")
		}
	}()

	// Initialize router
	r, err := router.Initialize(db, ledgerHandle, hub, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize router")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	// Drain the pipeline before closing the database.
	stopPipeline()
	select {
	case <-pipelineDone:
	case <-ctx.Done():
		logger.Warn("Event pipeline did not stop in time")
	}

	logger.Info("Server exited")
}
