package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/esusu-circle-engine/internal/config"
	"github.com/esusu-circle-engine/internal/data/mongo"
	"github.com/esusu-circle-engine/internal/data/postgres"
	"github.com/esusu-circle-engine/internal/engine/compliance"
	"github.com/esusu-circle-engine/internal/engine/ledger"
	"github.com/esusu-circle-engine/internal/engine/orchestrator"
	"github.com/esusu-circle-engine/internal/engine/payout"
	"github.com/esusu-circle-engine/internal/logger"
	"github.com/esusu-circle-engine/internal/platform/messaging/producers"
	"github.com/esusu-circle-engine/internal/platform/persistence"
	"github.com/esusu-circle-engine/internal/scheduler"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("cycle_engine")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Cycle Engine",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"timezone", cfg.Engine.Timezone,
	)

	// All day-granularity decisions (activation, deadlines, overdue counts)
	// are taken in the configured timezone
	location, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		log.Error("Invalid engine timezone", "timezone", cfg.Engine.Timezone, "error", err)
		os.Exit(1)
	}

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
	entryRepo := mongo.NewContributionRepository(log, mongoDB.Database())
	alertRepo := mongo.NewAlertRepository(log, mongoDB.Database())

	// Initialize the engine components
	reader := ledger.NewReader(log, entryRepo)
	evaluator := compliance.NewEvaluator(log, reader)
	gate := payout.NewGate(log, reader, evaluator, entryRepo, alertRepo, eventProducer)

	orch, err := orchestrator.NewOrchestrator(
		log,
		cfg.Engine.WorkerPoolSize,
		location,
		groupRepo,
		reader,
		evaluator,
		gate,
		alertRepo,
		eventProducer,
	)
	if err != nil {
		log.Error("Failed to initialize sweep orchestrator", "error", err)
		os.Exit(1)
	}

	// Initialize and start the sweep scheduler
	engineScheduler := scheduler.NewEngineScheduler(log, &cfg.Engine, location, orch)
	if err := engineScheduler.Start(); err != nil {
		log.Error("Failed to start sweep scheduler", "error", err)
		os.Exit(1)
	}

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context
	cancelAppCtx()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Stop scheduling new sweeps and wait for running ones
	engineScheduler.Stop()

	// Release the sweep worker pool
	orch.Shutdown()

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	log.Info("Cycle engine shutdown completed")
}
