package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"locker-rental-backend/internal/domain"
	"locker-rental-backend/internal/logger"
	"locker-rental-backend/internal/session"
)

type rentRequest struct {
	DurationHours int32  `json:"duration_hours"`
	Pin           string `json:"pin,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
}

type rentResponse struct {
	SessionToken string          `json:"session_token"`
	ExpiresAt    time.Time       `json:"expires_at"`
	Price        PriceResponse   `json:"price"`
	Locker       *LockerResponse `json:"locker"`
}

type extendRequest struct {
	ExtraHours int32 `json:"extra_hours"`
}

type extendResponse struct {
	Charge domain.ExtensionCharge `json:"charge"`
	Price  PriceResponse          `json:"price"`
	Locker *LockerResponse        `json:"locker"`
}

type contactRequest struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

func lockerID(r *http.Request) string {
	return strings.ToUpper(mux.Vars(r)["id"])
}

// sessionToken prefers the explicit header and falls back to the credential
// held in the renter's session store.
func sessionToken(r *http.Request, store session.Store, id string) string {
	if token := r.Header.Get(headerSessionToken); token != "" {
		return token
	}
	cred, err := store.Get(r.Context(), id)
	if err != nil {
		return ""
	}
	return cred.SessionToken
}

func ownsRental(l *domain.Locker, token string) bool {
	return token != "" && l.RentalInfo != nil &&
		subtle.ConstantTimeCompare([]byte(l.RentalInfo.SessionToken), []byte(token)) == 1
}

func (s *Server) handleListLockers(w http.ResponseWriter, r *http.Request) {
	lockers, err := s.svc.ListLockers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := lockers[:0]
		for _, l := range lockers {
			if string(l.Status) == status {
				filtered = append(filtered, l)
			}
		}
		lockers = filtered
	}
	writeJSON(w, http.StatusOK, mapLockers(lockers, false))
}

func (s *Server) handleGetLocker(w http.ResponseWriter, r *http.Request) {
	id := lockerID(r)
	l, err := s.svc.GetLocker(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	token := sessionToken(r, s.sessions(w, r), id)
	writeJSON(w, http.StatusOK, mapLocker(l, ownsRental(l, token)))
}

func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	p := s.svc.Pricing()
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		minutes, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "minutes must be a 32-bit integer")
			return
		}
		snapped, price, err := p.DialPrice(int32(minutes))
		if err != nil {
			writeServiceError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"minutes": snapped,
			"price":   mapPrice(p, price),
		})
		return
	}

	steps := make([]map[string]any, 0, len(p.Steps))
	for _, step := range p.Steps {
		steps = append(steps, map[string]any{
			"max_minutes": step.MaxMinutes,
			"price":       mapPrice(p, step.Price),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"steps":                  steps,
		"rate_per_hour":          p.RatePerHour,
		"overstay_rate":          p.OverstayRate,
		"overstay_block_minutes": int(p.OverstayBlock / time.Minute),
		"vat_rate":               p.VATRate,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	creds, err := s.sessions(w, r).ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, creds)
}

func (s *Server) handleRent(w http.ResponseWriter, r *http.Request) {
	var req rentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	contact := &domain.Contact{Pin: req.Pin, Phone: req.Phone, Email: req.Email}
	token, l, err := s.svc.Rent(r.Context(), lockerID(r), req.DurationHours, contact)
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}

	store := s.sessions(w, r)
	if err := store.Save(r.Context(), l.ID, token, l.RentalInfo.StartTime, l.RentalInfo.EndTime, contact); err != nil {
		// The renter still gets the token in the body.
		logger.WarnContext(r.Context(), "Failed to store session credential", "locker_id", l.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, rentResponse{
		SessionToken: token,
		ExpiresAt:    l.RentalInfo.EndTime,
		Price:        mapPrice(s.svc.Pricing(), l.RentalInfo.PaidAmount),
		Locker:       mapLocker(l, true),
	})
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	id := lockerID(r)
	l, err := s.svc.Lock(r.Context(), id, sessionToken(r, s.sessions(w, r), id))
	if err != nil {
		writeServiceError(w, r, err, l)
		return
	}
	writeJSON(w, http.StatusOK, mapLocker(l, true))
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	id := lockerID(r)
	l, err := s.svc.Unlock(r.Context(), id, sessionToken(r, s.sessions(w, r), id))
	if err != nil {
		writeServiceError(w, r, err, l)
		return
	}
	writeJSON(w, http.StatusOK, mapLocker(l, true))
}

func (s *Server) handleExtend(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := lockerID(r)
	store := s.sessions(w, r)
	l, charge, err := s.svc.Extend(r.Context(), id, sessionToken(r, store, id), req.ExtraHours)
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	if err := store.Extend(r.Context(), l.ID, l.RentalInfo.EndTime); err != nil {
		logger.WarnContext(r.Context(), "Failed to extend session credential", "locker_id", l.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, extendResponse{
		Charge: charge,
		Price:  mapPrice(s.svc.Pricing(), charge.AdditionalCharge),
		Locker: mapLocker(l, true),
	})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := lockerID(r)
	store := s.sessions(w, r)
	l, err := s.svc.EndSession(r.Context(), id, sessionToken(r, store, id))
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	if err := store.Remove(r.Context(), l.ID); err != nil {
		logger.WarnContext(r.Context(), "Failed to remove session credential", "locker_id", l.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, mapLocker(l, false))
}

// handleResync accepts the credential in the body or reads it from the
// renter's session store.
func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	id := lockerID(r)
	store := s.sessions(w, r)

	var cred domain.SessionCredential
	if err := decodeJSON(r, &cred); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if cred.SessionToken == "" {
		stored, err := store.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err, nil)
			return
		}
		cred = *stored
	}

	l, err := s.svc.Resynchronize(r.Context(), id, cred)
	if err != nil {
		if errors.Is(err, domain.ErrCredentialExpired) {
			if rmErr := store.Remove(r.Context(), id); rmErr != nil {
				logger.WarnContext(r.Context(), "Failed to remove expired session credential", "locker_id", id, "error", rmErr)
			}
		}
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, mapLocker(l, true))
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := lockerID(r)
	store := s.sessions(w, r)
	if err := store.UpdateContact(r.Context(), id, domain.Contact{Phone: req.Phone, Email: req.Email}); err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	cred, err := store.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}
