package postgres

import (
	"context"
	"database/sql"

	"locker-rental-backend/internal/repository"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS lockers (
	id              TEXT PRIMARY KEY,
	number          INTEGER NOT NULL,
	zone            TEXT NOT NULL,
	size            TEXT NOT NULL,
	status          TEXT NOT NULL,
	session_token   TEXT UNIQUE,
	start_time      TIMESTAMPTZ,
	end_time        TIMESTAMPTZ,
	duration_hours  INTEGER,
	pin             TEXT,
	phone           TEXT,
	email           TEXT,
	is_locked       BOOLEAN,
	paid_amount     INTEGER,
	overstay_charge INTEGER,
	updated_on      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK ((status = 'rented') = (session_token IS NOT NULL))
)`

type Store struct {
	db *sql.DB
	repository.LockerRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:               db,
		LockerRepository: NewLockerRepository(db),
	}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
