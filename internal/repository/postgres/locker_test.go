package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"locker-rental-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "number", "zone", "size", "status", "session_token", "start_time", "end_time", "duration_hours", "pin", "phone", "email", "is_locked", "paid_amount", "overstay_charge"}

func TestLockerRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewLockerRepository(db)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Rented", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).
			AddRow("A001", 1, "A", "small", "rented", "psp_abc", start, start.Add(2*time.Hour), 2, nil, "+4511223344", nil, true, 30, 0)
		mock.ExpectQuery("SELECT (.+) FROM lockers WHERE id = \\$1").
			WithArgs("A001").
			WillReturnRows(rows)

		l, err := repo.Get(ctx, "A001")
		require.NoError(t, err)
		assert.Equal(t, domain.LockerStatusRented, l.Status)
		require.NotNil(t, l.RentalInfo)
		assert.Equal(t, "psp_abc", l.RentalInfo.SessionToken)
		assert.Equal(t, int32(2), l.RentalInfo.DurationHours)
		assert.Equal(t, "+4511223344", l.RentalInfo.Phone)
		assert.Empty(t, l.RentalInfo.Email)
		assert.True(t, l.RentalInfo.IsLocked)
		assert.Equal(t, int32(30), l.RentalInfo.PaidAmount)
	})

	t.Run("Available has no rental info", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).
			AddRow("A002", 2, "A", "medium", "available", nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
		mock.ExpectQuery("SELECT (.+) FROM lockers WHERE id = \\$1").
			WithArgs("A002").
			WillReturnRows(rows)

		l, err := repo.Get(ctx, "A002")
		require.NoError(t, err)
		assert.Equal(t, domain.LockerStatusAvailable, l.Status)
		assert.Nil(t, l.RentalInfo)
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM lockers WHERE id = \\$1").
			WithArgs("Z999").
			WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.Get(ctx, "Z999")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockerRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewLockerRepository(db)

	rows := sqlmock.NewRows(columns).
		AddRow("A001", 1, "A", "small", "available", nil, nil, nil, nil, nil, nil, nil, nil, nil, nil).
		AddRow("B025", 45, "B", "large", "out_of_service", nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM lockers ORDER BY id").WillReturnRows(rows)

	lockers, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, lockers, 2)
	assert.Equal(t, domain.LockerStatusOutOfService, lockers[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockerRepository_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewLockerRepository(db)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Rented", func(t *testing.T) {
		l := &domain.Locker{
			ID: "A001", Number: 1, Zone: "A", Size: domain.LockerSizeSmall, Status: domain.LockerStatusRented,
			RentalInfo: &domain.RentalInfo{
				SessionToken: "psp_abc", StartTime: start, EndTime: start.Add(time.Hour),
				DurationHours: 1, Email: "a@b.dk", PaidAmount: 20,
			},
		}
		mock.ExpectExec("INSERT INTO lockers").
			WithArgs("A001", int32(1), "A", domain.LockerSizeSmall, domain.LockerStatusRented,
				"psp_abc", start, start.Add(time.Hour), int32(1), nil, nil, "a@b.dk", false, int32(20), int32(0), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Save(ctx, l))
	})

	t.Run("Released clears rental columns", func(t *testing.T) {
		l := &domain.Locker{ID: "A001", Number: 1, Zone: "A", Size: domain.LockerSizeSmall, Status: domain.LockerStatusAvailable}
		mock.ExpectExec("INSERT INTO lockers").
			WithArgs("A001", int32(1), "A", domain.LockerSizeSmall, domain.LockerStatusAvailable,
				nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Save(ctx, l))
	})

	t.Run("Database error", func(t *testing.T) {
		l := &domain.Locker{ID: "A003", Status: domain.LockerStatusAvailable}
		mock.ExpectExec("INSERT INTO lockers").WillReturnError(errors.New("connection reset"))

		err := repo.Save(ctx, l)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "A003")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockerRepository_Seed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := NewLockerRepository(db)
	lockers := []domain.Locker{
		{ID: "A001", Number: 1, Zone: "A", Size: domain.LockerSizeMedium, Status: domain.LockerStatusAvailable},
		{ID: "A002", Number: 2, Zone: "A", Size: domain.LockerSizeLarge, Status: domain.LockerStatusAvailable},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lockers (.+) ON CONFLICT \\(id\\) DO NOTHING").
		WithArgs("A001", int32(1), "A", domain.LockerSizeMedium, domain.LockerStatusAvailable, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO lockers (.+) ON CONFLICT \\(id\\) DO NOTHING").
		WithArgs("A002", int32(2), "A", domain.LockerSizeLarge, domain.LockerStatusAvailable, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	assert.NoError(t, repo.Seed(context.Background(), lockers))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Migrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS lockers").WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db)
	assert.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
