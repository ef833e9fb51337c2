package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"locker-rental-backend/internal/security"
	"locker-rental-backend/internal/service"
	"locker-rental-backend/internal/session"
)

// SessionStoreFunc returns the credential store for one request. Cookie
// stores are bound to the request; a kiosk store ignores it.
type SessionStoreFunc func(w http.ResponseWriter, r *http.Request) session.Store

// AdminCredentials is the single operator account allowed to log in.
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

type Server struct {
	svc      service.RentalService
	tokens   security.TokenManager
	admin    AdminCredentials
	sessions SessionStoreFunc
	metrics  http.Handler
}

func NewServer(svc service.RentalService, tokens security.TokenManager, admin AdminCredentials, sessions SessionStoreFunc) *Server {
	return &Server{
		svc:      svc,
		tokens:   tokens,
		admin:    admin,
		sessions: sessions,
	}
}

// WithMetrics exposes h at /metrics.
func (s *Server) WithMetrics(h http.Handler) *Server {
	s.metrics = h
	return s
}

// CookieSessions builds a SessionStoreFunc for browser renters.
func CookieSessions(opts session.CookieOptions) SessionStoreFunc {
	return func(w http.ResponseWriter, r *http.Request) session.Store {
		return session.NewCookieStore(w, r, opts)
	}
}

// SharedSessions serves every request from one device-local store.
func SharedSessions(store session.Store) SessionStoreFunc {
	return func(http.ResponseWriter, *http.Request) session.Store {
		return store
	}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware, loggingMiddleware)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	router.HandleFunc("/pricing", s.handlePricing).Methods(http.MethodGet)
	router.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	router.HandleFunc("/lockers", s.handleListLockers).Methods(http.MethodGet)
	router.HandleFunc("/lockers/{id}", s.handleGetLocker).Methods(http.MethodGet)
	router.HandleFunc("/lockers/{id}/rent", s.handleRent).Methods(http.MethodPost)
	router.HandleFunc("/lockers/{id}/lock", s.handleLock).Methods(http.MethodPost)
	router.HandleFunc("/lockers/{id}/unlock", s.handleUnlock).Methods(http.MethodPost)
	router.HandleFunc("/lockers/{id}/extend", s.handleExtend).Methods(http.MethodPost)
	router.HandleFunc("/lockers/{id}/end", s.handleEndSession).Methods(http.MethodPost)
	router.HandleFunc("/lockers/{id}/resync", s.handleResync).Methods(http.MethodPost)
	router.HandleFunc("/lockers/{id}/contact", s.handleUpdateContact).Methods(http.MethodPost)

	router.HandleFunc("/admin/login", s.handleAdminLogin).Methods(http.MethodPost)

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(s.adminAuthMiddleware)
	admin.HandleFunc("/lockers", s.handleAdminListLockers).Methods(http.MethodGet)
	admin.HandleFunc("/overstays", s.handleAdminOverstays).Methods(http.MethodGet)
	admin.HandleFunc("/lockers/open-all", s.handleAdminOpenAll).Methods(http.MethodPost)
	admin.HandleFunc("/lockers/{id}/release", s.handleAdminRelease).Methods(http.MethodPost)
	admin.HandleFunc("/lockers/{id}/unlock", s.handleAdminUnlock).Methods(http.MethodPost)
	admin.HandleFunc("/lockers/{id}/out-of-service", s.handleAdminOutOfService).Methods(http.MethodPost)

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
