package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"locker-rental-backend/internal/domain"
	"locker-rental-backend/internal/logger"
	"locker-rental-backend/internal/session"
	"locker-rental-backend/internal/utils"
)

type errorResponse struct {
	Error  string          `json:"error"`
	Locker *LockerResponse `json:"locker,omitempty"`
}

// LockerResponse is the wire view of a locker. Rental details are only
// included for the renter and for operators; the token never leaves the
// rent response.
type LockerResponse struct {
	ID         string              `json:"id"`
	Number     int32               `json:"number"`
	Zone       string              `json:"zone"`
	Size       domain.LockerSize   `json:"size"`
	Status     domain.LockerStatus `json:"status"`
	RentalInfo *RentalResponse     `json:"rental_info,omitempty"`
}

type RentalResponse struct {
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	DurationHours  int32     `json:"duration_hours"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	IsLocked       bool      `json:"is_locked"`
	PaidAmount     int32     `json:"paid_amount"`
	OverstayCharge int32     `json:"overstay_charge"`
}

func mapLocker(l *domain.Locker, withRental bool) *LockerResponse {
	if l == nil {
		return nil
	}
	resp := &LockerResponse{
		ID:     l.ID,
		Number: l.Number,
		Zone:   l.Zone,
		Size:   l.Size,
		Status: l.Status,
	}
	if withRental && l.RentalInfo != nil {
		ri := l.RentalInfo
		resp.RentalInfo = &RentalResponse{
			StartTime:      ri.StartTime,
			EndTime:        ri.EndTime,
			DurationHours:  ri.DurationHours,
			Phone:          ri.Phone,
			Email:          ri.Email,
			IsLocked:       ri.IsLocked,
			PaidAmount:     ri.PaidAmount,
			OverstayCharge: ri.OverstayCharge,
		}
	}
	return resp
}

func mapLockers(lockers []domain.Locker, withRental bool) []*LockerResponse {
	out := make([]*LockerResponse, 0, len(lockers))
	for i := range lockers {
		out = append(out, mapLocker(&lockers[i], withRental))
	}
	return out
}

type PriceResponse struct {
	Amount int32   `json:"amount"`
	Net    float64 `json:"net"`
	VAT    float64 `json:"vat"`
}

func mapPrice(p utils.Pricing, amount int32) PriceResponse {
	b := p.SplitVAT(amount)
	return PriceResponse{Amount: amount, Net: b.Net, VAT: b.VAT}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAvailable), errors.Is(err, domain.ErrNotRented):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrCredentialExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrActuationFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidDuration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err. locker is attached when the engine returned
// one alongside the error, as it does for unconfirmed actuation.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, locker *domain.Locker) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Locker: mapLocker(locker, true)})
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
