package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"locker-rental-backend/internal/domain"
	"locker-rental-backend/internal/logger"
	"locker-rental-backend/internal/repository"
)

const lockerColumns = `id, number, zone, size, status, session_token, start_time, end_time, duration_hours, pin, phone, email, is_locked, paid_amount, overstay_charge`

type lockerRepository struct {
	db *sql.DB
}

func NewLockerRepository(db *sql.DB) repository.LockerRepository {
	return &lockerRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLocker(s scanner) (*domain.Locker, error) {
	var (
		l        domain.Locker
		token    sql.NullString
		start    sql.NullTime
		end      sql.NullTime
		duration sql.NullInt32
		pin      sql.NullString
		phone    sql.NullString
		email    sql.NullString
		locked   sql.NullBool
		paid     sql.NullInt32
		overstay sql.NullInt32
	)
	if err := s.Scan(&l.ID, &l.Number, &l.Zone, &l.Size, &l.Status, &token, &start, &end, &duration, &pin, &phone, &email, &locked, &paid, &overstay); err != nil {
		return nil, err
	}
	if l.Status == domain.LockerStatusRented && token.Valid {
		l.RentalInfo = &domain.RentalInfo{
			SessionToken:   token.String,
			StartTime:      start.Time,
			EndTime:        end.Time,
			DurationHours:  duration.Int32,
			Pin:            pin.String,
			Phone:          phone.String,
			Email:          email.String,
			IsLocked:       locked.Bool,
			PaidAmount:     paid.Int32,
			OverstayCharge: overstay.Int32,
		}
	}
	return &l, nil
}

func (r *lockerRepository) List(ctx context.Context) ([]domain.Locker, error) {
	query := `SELECT ` + lockerColumns + ` FROM lockers ORDER BY id`
	logger.DatabaseCall("ListLockers", query)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.DatabaseResult("ListLockers", 0, err)
		return nil, err
	}
	defer rows.Close()

	var lockers []domain.Locker
	for rows.Next() {
		l, err := scanLocker(rows)
		if err != nil {
			return nil, err
		}
		lockers = append(lockers, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("ListLockers", int64(len(lockers)), nil)
	return lockers, nil
}

func (r *lockerRepository) Get(ctx context.Context, id string) (*domain.Locker, error) {
	query := `SELECT ` + lockerColumns + ` FROM lockers WHERE id = $1`
	l, err := scanLocker(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *lockerRepository) Save(ctx context.Context, l *domain.Locker) error {
	query := `INSERT INTO lockers (` + lockerColumns + `, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	          ON CONFLICT (id) DO UPDATE SET
	            status = EXCLUDED.status, session_token = EXCLUDED.session_token,
	            start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
	            duration_hours = EXCLUDED.duration_hours, pin = EXCLUDED.pin,
	            phone = EXCLUDED.phone, email = EXCLUDED.email, is_locked = EXCLUDED.is_locked,
	            paid_amount = EXCLUDED.paid_amount, overstay_charge = EXCLUDED.overstay_charge,
	            updated_on = EXCLUDED.updated_on`
	args := append([]any{l.ID, l.Number, l.Zone, l.Size, l.Status}, rentalArgs(l.RentalInfo)...)
	args = append(args, time.Now())

	logger.DatabaseCall("SaveLocker", query, "locker_id", l.ID)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("SaveLocker", 0, err, "locker_id", l.ID)
		return fmt.Errorf("failed to save locker %s: %w", l.ID, err)
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("SaveLocker", n, nil, "locker_id", l.ID)
	return nil
}

func (r *lockerRepository) Seed(ctx context.Context, lockers []domain.Locker) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO lockers (id, number, zone, size, status, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`
	now := time.Now()
	for _, l := range lockers {
		if _, err := tx.ExecContext(ctx, query, l.ID, l.Number, l.Zone, l.Size, l.Status, now); err != nil {
			return fmt.Errorf("failed to seed locker %s: %w", l.ID, err)
		}
	}
	return tx.Commit()
}

// rentalArgs flattens RentalInfo into the ten nullable rental columns.
func rentalArgs(ri *domain.RentalInfo) []any {
	if ri == nil {
		return []any{nil, nil, nil, nil, nil, nil, nil, nil, nil, nil}
	}
	return []any{
		ri.SessionToken, ri.StartTime, ri.EndTime, ri.DurationHours,
		nullable(ri.Pin), nullable(ri.Phone), nullable(ri.Email),
		ri.IsLocked, ri.PaidAmount, ri.OverstayCharge,
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
