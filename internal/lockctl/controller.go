package lockctl

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"locker-rental-backend/internal/logger"
)

var ErrNotAcknowledged = errors.New("lock controller did not acknowledge command")

// Controller drives the physical lock. A nil error is the controller's ack.
type Controller interface {
	Actuate(ctx context.Context, lockerID string, locked bool) error
}

// Command is one actuation request seen by the mock controller.
type Command struct {
	LockerID string
	Locked   bool
	At       time.Time
}

// MockController stands in for the lock server. It can be slowed down or
// made to fail to exercise the engine's timeout handling.
type MockController struct {
	mu          sync.Mutex
	latency     time.Duration
	failureRate float64
	failNext    error
	commands    []Command
}

func NewMockController(latency time.Duration, failureRate float64) *MockController {
	return &MockController{latency: latency, failureRate: failureRate}
}

func (m *MockController) Actuate(ctx context.Context, lockerID string, locked bool) error {
	logger.ExternalServiceCall("lock-controller", "actuate", "locker_id", lockerID, "locked", locked)

	m.mu.Lock()
	latency, failNext, rate := m.latency, m.failNext, m.failureRate
	m.failNext = nil
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			logger.ExternalServiceResult("lock-controller", "actuate", ctx.Err(), "locker_id", lockerID)
			return ctx.Err()
		}
	}

	err := failNext
	if err == nil && rate > 0 && rand.Float64() < rate {
		err = ErrNotAcknowledged
	}
	if err == nil {
		m.mu.Lock()
		m.commands = append(m.commands, Command{LockerID: lockerID, Locked: locked, At: time.Now()})
		m.mu.Unlock()
	}

	logger.ExternalServiceResult("lock-controller", "actuate", err, "locker_id", lockerID)
	return err
}

// FailNext makes the next Actuate call return err.
func (m *MockController) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MockController) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// Commands returns the acknowledged commands in order.
func (m *MockController) Commands() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Command, len(m.commands))
	copy(out, m.commands)
	return out
}
