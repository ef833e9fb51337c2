package jobs

import (
	"sync"
	"time"

	"locker-rental-backend/internal/config"
	"locker-rental-backend/internal/logger"
	"locker-rental-backend/internal/service"
	"locker-rental-backend/internal/session"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	now      func() time.Time

	mu sync.Mutex
	// reminded holds the overstay block count last mailed per session token.
	reminded map[string]int32
}

// Services holds all service dependencies needed by jobs. Sessions may be
// nil when credentials live in renter cookies.
type Services struct {
	Rental       service.RentalService
	Notification service.NotificationService
	Sessions     session.Store
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		now:      time.Now,
		reminded: make(map[string]int32),
	}
}

// Config exposes the configuration the scheduler registers jobs from.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.SendOverstayReminders()
	jr.PruneExpiredSessions()
}
