package service

import (
	"context"
	"sync"
	"time"

	"locker-rental-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockLockerRepo
type MockLockerRepo struct {
	mock.Mock
}

func (m *MockLockerRepo) List(ctx context.Context) ([]domain.Locker, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Locker), args.Error(1)
}

func (m *MockLockerRepo) Get(ctx context.Context, id string) (*domain.Locker, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Locker), args.Error(1)
}

func (m *MockLockerRepo) Save(ctx context.Context, locker *domain.Locker) error {
	args := m.Called(ctx, locker)
	return args.Error(0)
}

func (m *MockLockerRepo) Seed(ctx context.Context, lockers []domain.Locker) error {
	args := m.Called(ctx, lockers)
	return args.Error(0)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
