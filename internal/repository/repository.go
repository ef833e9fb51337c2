package repository

import (
	"context"

	"locker-rental-backend/internal/domain"
)

// LockerRepository is the engine's durable record of the registry. Get
// returns domain.ErrNotFound for unknown ids.
type LockerRepository interface {
	List(ctx context.Context) ([]domain.Locker, error)
	Get(ctx context.Context, id string) (*domain.Locker, error)
	Save(ctx context.Context, locker *domain.Locker) error
	// Seed inserts lockers that do not exist yet and leaves existing rows alone.
	Seed(ctx context.Context, lockers []domain.Locker) error
}
