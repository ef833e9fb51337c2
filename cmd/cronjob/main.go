package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"locker-rental-backend/internal/config"
	"locker-rental-backend/internal/jobs"
	"locker-rental-backend/internal/lockctl"
	"locker-rental-backend/internal/logger"
	"locker-rental-backend/internal/payment"
	"locker-rental-backend/internal/repository/postgres"
	"locker-rental-backend/internal/service"
	"locker-rental-backend/internal/session"
)

// The cronjob binary runs one job against the durable registry and exits.
// The server runs the same jobs on its own schedule when scheduler.enabled
// is set; this entry point is for external schedulers and manual runs.
func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "all", "Job to run: 'send-overstay-reminders', 'prune-sessions' or 'all'")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Locker Cronjob Runner...", "log_level", cfg.Log.Level, "job", *runOnce)

	if cfg.Database.Host == "" {
		log.Fatal("The cronjob runner needs the PostgreSQL registry; set database.host")
	}

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// The engine is read-only here: jobs never actuate or charge.
	pricing := cfg.Pricing()
	rentalSvc, err := service.NewRentalService(context.Background(), postgres.NewStore(db),
		lockctl.NewMockController(0, 0), payment.NewMockProvider(),
		service.RentalOptions{Pricing: &pricing})
	if err != nil {
		log.Fatalf("Failed to load locker registry: %v", err)
	}

	services := &jobs.Services{
		Rental:       rentalSvc,
		Notification: service.NewEmailService(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName),
	}
	if cfg.Session.Backend == "sqlite" {
		store, err := session.OpenSQLite(cfg.Session.Path)
		if err != nil {
			log.Fatalf("Failed to open session store: %v", err)
		}
		defer store.Close()
		services.Sessions = store
	}

	jobRunner := jobs.NewJobRunner(services, cfg)
	if !runJobOnce(jobRunner, *runOnce) {
		os.Exit(1)
	}
	logger.Info("Job execution completed", "job", *runOnce)
}

// runJobOnce runs a specific job once
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) bool {
	switch jobName {
	case "send-overstay-reminders":
		jobRunner.SendOverstayReminders()
	case "prune-sessions":
		jobRunner.PruneExpiredSessions()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - send-overstay-reminders\n")
		fmt.Printf("  - prune-sessions\n")
		fmt.Printf("  - all\n")
		return false
	}
	return true
}
