package service

import (
	"context"
	"time"

	"locker-rental-backend/internal/domain"
	"locker-rental-backend/internal/utils"
)

// RentalService owns the locker registry, the lifecycle state machine and
// billing. Mutations on one locker are serialised; different lockers proceed
// in parallel.
type RentalService interface {
	GetLocker(ctx context.Context, lockerID string) (*domain.Locker, error)
	CheckAvailability(ctx context.Context, lockerID string) (bool, *domain.Locker, error)
	ListLockers(ctx context.Context) ([]domain.Locker, error)
	FindByToken(ctx context.Context, token string) (*domain.Locker, error)

	Rent(ctx context.Context, lockerID string, durationHours int32, contact *domain.Contact) (string, *domain.Locker, error)
	Unlock(ctx context.Context, lockerID, token string) (*domain.Locker, error)
	Lock(ctx context.Context, lockerID, token string) (*domain.Locker, error)
	Extend(ctx context.Context, lockerID, token string, extraHours int32) (*domain.Locker, domain.ExtensionCharge, error)
	EndSession(ctx context.Context, lockerID, token string) (*domain.Locker, error)
	Release(ctx context.Context, lockerID string) (*domain.Locker, error)
	Resynchronize(ctx context.Context, lockerID string, cred domain.SessionCredential) (*domain.Locker, error)

	AdminUnlock(ctx context.Context, lockerID string) (*domain.Locker, error)
	OpenAll(ctx context.Context) (int, error)
	SetOutOfService(ctx context.Context, lockerID string, outOfService bool) (*domain.Locker, error)
	Overstays(ctx context.Context, now time.Time) ([]domain.Locker, error)

	Pricing() utils.Pricing
}

// NotificationService delivers renter-facing messages.
type NotificationService interface {
	SendOverstayReminder(ctx context.Context, email string, locker *domain.Locker, blocks, charge int32) error
}
