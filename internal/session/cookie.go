package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"locker-rental-backend/internal/domain"
	"locker-rental-backend/internal/logger"
)

const (
	DefaultCookieName = "blaaplanet_locker_sessions"
	DefaultMaxAge     = 7 * 24 * time.Hour
)

// CookieOptions configures the session cookie.
type CookieOptions struct {
	Name   string
	MaxAge time.Duration
}

func (o CookieOptions) withDefaults() CookieOptions {
	if o.Name == "" {
		o.Name = DefaultCookieName
	}
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultMaxAge
	}
	return o
}

// CookieStore keeps every credential of one browser in a single JSON cookie.
// It is bound to one request: it reads the incoming cookie once and rewrites
// the outgoing Set-Cookie header on each mutation.
type CookieStore struct {
	mu       sync.Mutex
	w        http.ResponseWriter
	opts     CookieOptions
	sessions map[string]domain.SessionCredential
}

func NewCookieStore(w http.ResponseWriter, r *http.Request, opts CookieOptions) *CookieStore {
	opts = opts.withDefaults()
	s := &CookieStore{w: w, opts: opts, sessions: map[string]domain.SessionCredential{}}
	if c, err := r.Cookie(opts.Name); err == nil {
		s.sessions = DecodeSessions(c.Value)
	}
	return s
}

// EncodeSessions renders the map as URL-encoded JSON.
func EncodeSessions(sessions map[string]domain.SessionCredential) (string, error) {
	raw, err := json.Marshal(sessions)
	if err != nil {
		return "", err
	}
	return url.PathEscape(string(raw)), nil
}

// DecodeSessions parses a cookie value. A malformed value yields an empty map.
func DecodeSessions(value string) map[string]domain.SessionCredential {
	out := map[string]domain.SessionCredential{}
	raw, err := url.PathUnescape(value)
	if err != nil {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logger.Debug("Discarding malformed session cookie", "error", err)
		return map[string]domain.SessionCredential{}
	}
	return out
}

func (s *CookieStore) write() error {
	value, err := EncodeSessions(s.sessions)
	if err != nil {
		return err
	}

	h := s.w.Header()
	prefix := s.opts.Name + "="
	kept := make([]string, 0)
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}

	http.SetCookie(s.w, &http.Cookie{
		Name:     s.opts.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.opts.MaxAge / time.Second),
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (s *CookieStore) Save(ctx context.Context, lockerID, token string, rentedAt, expiresAt time.Time, contact *domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[lockerID] = newCredential(lockerID, token, rentedAt, expiresAt, contact)
	return s.write()
}

func (s *CookieStore) Get(ctx context.Context, lockerID string) (*domain.SessionCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.sessions[lockerID]
	if !ok {
		return nil, ErrNotFound
	}
	return &cred, nil
}

func (s *CookieStore) UpdateContact(ctx context.Context, lockerID string, contact domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.sessions[lockerID]
	if !ok {
		return nil
	}
	mergeContact(&cred, contact)
	s.sessions[lockerID] = cred
	return s.write()
}

func (s *CookieStore) Extend(ctx context.Context, lockerID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.sessions[lockerID]
	if !ok {
		return nil
	}
	cred.ExpiresAt = expiresAt.UTC()
	s.sessions[lockerID] = cred
	return s.write()
}

func (s *CookieStore) Remove(ctx context.Context, lockerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, lockerID)
	return s.write()
}

func (s *CookieStore) ListAll(ctx context.Context) ([]domain.SessionCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SessionCredential, 0, len(s.sessions))
	for _, cred := range s.sessions {
		out = append(out, cred)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LockerID < out[j].LockerID })
	return out, nil
}
