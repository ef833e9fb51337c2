package domain

import "time"

type LockerStatus string

const (
	LockerStatusAvailable    LockerStatus = "available"
	LockerStatusRented       LockerStatus = "rented"
	LockerStatusOutOfService LockerStatus = "out_of_service"
)

type LockerSize string

const (
	LockerSizeSmall  LockerSize = "small"
	LockerSizeMedium LockerSize = "medium"
	LockerSizeLarge  LockerSize = "large"
)

type Locker struct {
	ID         string       `json:"id"`
	Number     int32        `json:"number"`
	Zone       string       `json:"zone"`
	Size       LockerSize   `json:"size"`
	Status     LockerStatus `json:"status"`
	RentalInfo *RentalInfo  `json:"rental_info,omitempty"`
}

// RentalInfo is present if and only if the locker is rented.
type RentalInfo struct {
	SessionToken  string    `json:"session_token"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	DurationHours int32     `json:"duration_hours"`
	Pin           string    `json:"pin,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	IsLocked      bool      `json:"is_locked"`
	// PaidAmount is the cumulative amount authorized with the PSP.
	PaidAmount     int32 `json:"paid_amount"`
	OverstayCharge int32 `json:"overstay_charge"`
}

// Contact is the optional renter metadata collected at checkout.
type Contact struct {
	Pin   string `json:"pin,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Clone returns a deep copy so callers never share RentalInfo with the registry.
func (l *Locker) Clone() *Locker {
	if l == nil {
		return nil
	}
	c := *l
	if l.RentalInfo != nil {
		ri := *l.RentalInfo
		c.RentalInfo = &ri
	}
	return &c
}

// IsOverstaying reports whether the rental has passed its paid end time.
func (l *Locker) IsOverstaying(now time.Time) bool {
	return l.Status == LockerStatusRented && l.RentalInfo != nil && now.After(l.RentalInfo.EndTime)
}
