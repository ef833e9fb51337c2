package http

import (
	"crypto/subtle"
	"net/http"
	"time"

	"locker-rental-backend/internal/logger"
	"locker-rental-backend/internal/security"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type outOfServiceRequest struct {
	OutOfService bool `json:"out_of_service"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.admin.Username)) == 1
	passOK := s.admin.PasswordHash != "" && security.CheckPassword(s.admin.PasswordHash, req.Password)
	if !userOK || !passOK {
		logger.WarnContext(r.Context(), "Admin login rejected", "username", req.Username)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.tokens.GenerateAdminToken(req.Username, []string{security.RoleAdmin})
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	logger.InfoContext(r.Context(), "Admin logged in", "username", req.Username)
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (s *Server) auditAdmin(r *http.Request, action string, args ...any) {
	username := ""
	if claims, ok := AdminFromContext(r.Context()); ok {
		username = claims.Username
	}
	logger.InfoContext(r.Context(), "Admin action", append([]any{"action", action, "admin", username}, args...)...)
}

func (s *Server) handleAdminListLockers(w http.ResponseWriter, r *http.Request) {
	lockers, err := s.svc.ListLockers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, mapLockers(lockers, true))
}

func (s *Server) handleAdminOverstays(w http.ResponseWriter, r *http.Request) {
	lockers, err := s.svc.Overstays(r.Context(), time.Now())
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, mapLockers(lockers, true))
}

func (s *Server) handleAdminOpenAll(w http.ResponseWriter, r *http.Request) {
	count, err := s.svc.OpenAll(r.Context())
	s.auditAdmin(r, "open_all", "count", count)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]any{"opened": count, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"opened": count})
}

func (s *Server) handleAdminRelease(w http.ResponseWriter, r *http.Request) {
	id := lockerID(r)
	s.auditAdmin(r, "release", "locker_id", id)
	l, err := s.svc.Release(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, mapLocker(l, true))
}

func (s *Server) handleAdminUnlock(w http.ResponseWriter, r *http.Request) {
	id := lockerID(r)
	s.auditAdmin(r, "unlock", "locker_id", id)
	l, err := s.svc.AdminUnlock(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, l)
		return
	}
	writeJSON(w, http.StatusOK, mapLocker(l, true))
}

func (s *Server) handleAdminOutOfService(w http.ResponseWriter, r *http.Request) {
	req := outOfServiceRequest{OutOfService: true}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := lockerID(r)
	s.auditAdmin(r, "set_out_of_service", "locker_id", id, "out_of_service", req.OutOfService)
	l, err := s.svc.SetOutOfService(r.Context(), id, req.OutOfService)
	if err != nil {
		writeServiceError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, mapLocker(l, true))
}
