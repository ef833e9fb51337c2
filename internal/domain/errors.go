package domain

import "errors"

var (
	ErrNotFound          = errors.New("locker not found")
	ErrNotAvailable      = errors.New("locker not available")
	ErrNotRented         = errors.New("locker not rented")
	ErrInvalidToken      = errors.New("invalid session token")
	ErrActuationFailed   = errors.New("lock actuation failed")
	ErrCredentialExpired = errors.New("session credential expired")
	ErrInvalidDuration   = errors.New("invalid rental duration")
	ErrPaymentFailed     = errors.New("payment failed")
)
