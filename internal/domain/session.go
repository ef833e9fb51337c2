package domain

import "time"

// SessionCredential is the renter-held proof of a rental. The engine never
// persists it; the client round-trips it for resynchronization.
type SessionCredential struct {
	LockerID     string    `json:"lockerId"`
	SessionToken string    `json:"sessionToken"`
	RentedAt     time.Time `json:"rentedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
}

func (c *SessionCredential) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
