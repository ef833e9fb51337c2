// Package session keeps renter credentials at the client boundary. Entries
// are keyed by locker id and the last write for an id wins.
package session

import (
	"context"
	"errors"
	"time"

	"locker-rental-backend/internal/domain"
)

var ErrNotFound = errors.New("session not found")

// Store persists session credentials on the renter's side.
type Store interface {
	// Save records a new credential. rentedAt is the rental's start time so a
	// resync rebuilds the window the engine issued.
	Save(ctx context.Context, lockerID, token string, rentedAt, expiresAt time.Time, contact *domain.Contact) error
	Get(ctx context.Context, lockerID string) (*domain.SessionCredential, error)
	// UpdateContact merges the non-empty fields of contact. Missing ids are ignored.
	UpdateContact(ctx context.Context, lockerID string, contact domain.Contact) error
	// Extend moves ExpiresAt. Missing ids are ignored.
	Extend(ctx context.Context, lockerID string, expiresAt time.Time) error
	Remove(ctx context.Context, lockerID string) error
	ListAll(ctx context.Context) ([]domain.SessionCredential, error)
}

func newCredential(lockerID, token string, rentedAt, expiresAt time.Time, contact *domain.Contact) domain.SessionCredential {
	cred := domain.SessionCredential{
		LockerID:     lockerID,
		SessionToken: token,
		RentedAt:     rentedAt.UTC(),
		ExpiresAt:    expiresAt.UTC(),
	}
	if contact != nil {
		cred.Phone = contact.Phone
		cred.Email = contact.Email
	}
	return cred
}

func mergeContact(cred *domain.SessionCredential, contact domain.Contact) {
	if contact.Phone != "" {
		cred.Phone = contact.Phone
	}
	if contact.Email != "" {
		cred.Email = contact.Email
	}
}
