package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"locker-rental-backend/internal/domain"
	"locker-rental-backend/internal/logger"
)

// SQLiteStore keeps credentials in a local SQLite file. It is used on kiosk
// devices where the renter has no browser of their own.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate session store: %w", err)
	}

	logger.Info("Session store opened", "path", path)
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS sessions (
	locker_id TEXT PRIMARY KEY,
	session_token TEXT NOT NULL,
	rented_at TEXT NOT NULL,
	expires_at TEXT NOT NULL,
	phone TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT ''
);
`)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func iso(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *SQLiteStore) Save(ctx context.Context, lockerID, token string, rentedAt, expiresAt time.Time, contact *domain.Contact) error {
	cred := newCredential(lockerID, token, rentedAt, expiresAt, contact)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions(locker_id, session_token, rented_at, expires_at, phone, email)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(locker_id) DO UPDATE SET
	session_token = excluded.session_token,
	rented_at = excluded.rented_at,
	expires_at = excluded.expires_at,
	phone = excluded.phone,
	email = excluded.email
`,
		cred.LockerID,
		cred.SessionToken,
		iso(cred.RentedAt),
		iso(cred.ExpiresAt),
		cred.Phone,
		cred.Email,
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", lockerID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, lockerID string) (*domain.SessionCredential, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT locker_id, session_token, rented_at, expires_at, phone, email
FROM sessions WHERE locker_id = ?`, lockerID)

	cred, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", lockerID, err)
	}
	return cred, nil
}

func (s *SQLiteStore) UpdateContact(ctx context.Context, lockerID string, contact domain.Contact) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE sessions SET
	phone = CASE WHEN ? <> '' THEN ? ELSE phone END,
	email = CASE WHEN ? <> '' THEN ? ELSE email END
WHERE locker_id = ?`,
		contact.Phone, contact.Phone,
		contact.Email, contact.Email,
		lockerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session contact %s: %w", lockerID, err)
	}
	return nil
}

func (s *SQLiteStore) Extend(ctx context.Context, lockerID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET expires_at = ? WHERE locker_id = ?`, iso(expiresAt), lockerID)
	if err != nil {
		return fmt.Errorf("failed to extend session %s: %w", lockerID, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, lockerID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE locker_id = ?`, lockerID)
	if err != nil {
		return fmt.Errorf("failed to remove session %s: %w", lockerID, err)
	}
	return nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]domain.SessionCredential, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT locker_id, session_token, rented_at, expires_at, phone, email
FROM sessions ORDER BY locker_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.SessionCredential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, *cred)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(row scanner) (*domain.SessionCredential, error) {
	var (
		cred                domain.SessionCredential
		rentedAt, expiresAt string
	)
	if err := row.Scan(&cred.LockerID, &cred.SessionToken, &rentedAt, &expiresAt, &cred.Phone, &cred.Email); err != nil {
		return nil, err
	}
	var err error
	if cred.RentedAt, err = time.Parse(time.RFC3339Nano, rentedAt); err != nil {
		return nil, fmt.Errorf("bad rented_at %q: %w", rentedAt, err)
	}
	if cred.ExpiresAt, err = time.Parse(time.RFC3339Nano, expiresAt); err != nil {
		return nil, fmt.Errorf("bad expires_at %q: %w", expiresAt, err)
	}
	return &cred, nil
}
