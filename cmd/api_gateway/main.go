package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/esusu-circle-engine/internal/api_gateway"
	"github.com/esusu-circle-engine/internal/api_gateway/service"
	"github.com/esusu-circle-engine/internal/config"
	"github.com/esusu-circle-engine/internal/data/mongo"
	"github.com/esusu-circle-engine/internal/data/postgres"
	"github.com/esusu-circle-engine/internal/engine/compliance"
	"github.com/esusu-circle-engine/internal/engine/ledger"
	"github.com/esusu-circle-engine/internal/logger"
	"github.com/esusu-circle-engine/internal/platform/messaging/producers"
	"github.com/esusu-circle-engine/internal/platform/payments"
	"github.com/esusu-circle-engine/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for the engine event stream
	eventProducer, err := producers.NewEngineEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	groupRepo := postgres.NewGroupRepository(log, postgresDB)
	requestRepo := postgres.NewJoinRequestRepository(log, postgresDB)
	entryRepo := mongo.NewContributionRepository(log, mongoDB.Database())
	alertRepo := mongo.NewAlertRepository(log, mongoDB.Database())

	// Initialize the payment gateway client
	paystackClient := payments.NewClient(log, &cfg.Paystack)

	// Initialize services
	reader := ledger.NewReader(log, entryRepo)
	evaluator := compliance.NewEvaluator(log, reader)
	groupService := service.NewGroupService(groupRepo, reader, evaluator)
	requestService := service.NewRequestService(log, postgresDB, requestRepo, groupRepo, eventProducer)
	contributionService := service.NewContributionService(log, entryRepo, groupRepo, alertRepo, reader, paystackClient, eventProducer)
	alertService := service.NewAlertService(alertRepo)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, groupService, requestService, contributionService, alertService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
