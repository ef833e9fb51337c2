package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "locker-rental-backend/internal/api/http"
	"locker-rental-backend/internal/config"
	"locker-rental-backend/internal/jobs"
	"locker-rental-backend/internal/lockctl"
	"locker-rental-backend/internal/logger"
	"locker-rental-backend/internal/metrics"
	"locker-rental-backend/internal/payment"
	"locker-rental-backend/internal/repository"
	"locker-rental-backend/internal/repository/memory"
	"locker-rental-backend/internal/repository/postgres"
	"locker-rental-backend/internal/scheduler"
	"locker-rental-backend/internal/security"
	"locker-rental-backend/internal/service"
	"locker-rental-backend/internal/session"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Locker Rental Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())

	ctx := context.Background()

	// Initialize locker registry
	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open locker registry", "error", err)
		log.Fatalf("Failed to open locker registry: %v", err)
	}
	defer closeRepo()

	if err := service.SeedRegistry(ctx, repo, zoneSpecs(cfg), cfg.Lockers.OutOfService); err != nil {
		log.Fatalf("Failed to seed locker registry: %v", err)
	}

	// Initialize collaborators
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}
	lockCtl := lockctl.NewMockController(0, cfg.Lock.FailureRate)
	psp := payment.NewMockProvider()
	pricing := cfg.Pricing()

	rentalSvc, err := service.NewRentalService(ctx, repo, lockCtl, psp, service.RentalOptions{
		Pricing:          &pricing,
		ActuationTimeout: cfg.ActuationTimeout(),
		Metrics:          m,
	})
	if err != nil {
		log.Fatalf("Failed to start rental engine: %v", err)
	}

	emailSvc := service.NewEmailService(cfg.Email.SendGridAPIKey, cfg.Email.FromEmail, cfg.Email.FromName)

	// Initialize session store
	var (
		sessions    httpapi.SessionStoreFunc
		deviceStore session.Store
	)
	switch cfg.Session.Backend {
	case "sqlite":
		store, err := session.OpenSQLite(cfg.Session.Path)
		if err != nil {
			log.Fatalf("Failed to open session store: %v", err)
		}
		defer store.Close()
		deviceStore = store
		sessions = httpapi.SharedSessions(store)
	default:
		sessions = httpapi.CookieSessions(session.CookieOptions{
			Name:   cfg.Session.CookieName,
			MaxAge: cfg.SessionMaxAge(),
		})
	}
	logger.Info("Session store configured", "backend", cfg.Session.Backend)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.Admin.JWTSecret, cfg.AdminTokenExpiry())
	if cfg.Admin.PasswordHash == "" {
		logger.Warn("No admin password hash configured; admin login is disabled")
	}

	// Set up HTTP server
	apiServer := httpapi.NewServer(rentalSvc, tokenManager, httpapi.AdminCredentials{
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
	}, sessions)
	if m != nil {
		apiServer.WithMetrics(m.Handler())
	}

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start scheduler
	var cronScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobRunner := jobs.NewJobRunner(&jobs.Services{
			Rental:       rentalSvc,
			Notification: emailSvc,
			Sessions:     deviceStore,
		}, cfg)
		cronScheduler, err = scheduler.NewScheduler(jobRunner)
		if err != nil {
			log.Fatalf("Failed to register cron jobs: %v", err)
		}
		cronScheduler.Start()
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down...")
	if cronScheduler != nil {
		cronScheduler.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}

// openRepository picks PostgreSQL when a database host is configured and the
// in-memory registry otherwise.
func openRepository(ctx context.Context, cfg *config.Config) (repository.LockerRepository, func(), error) {
	if cfg.Database.Host == "" {
		logger.Warn("No database configured; locker state will not survive a restart")
		return memory.NewLockerRepository(), func() {}, nil
	}

	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, func() { db.Close() }, nil
}

func zoneSpecs(cfg *config.Config) []service.ZoneSpec {
	specs := make([]service.ZoneSpec, 0, len(cfg.Lockers.Zones))
	for _, z := range cfg.Lockers.Zones {
		specs = append(specs, service.ZoneSpec{Zone: z.Zone, Count: z.Count})
	}
	return specs
}
