package memory

import (
	"context"
	"testing"
	"time"

	"locker-rental-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockerRepository(t *testing.T) {
	repo := NewLockerRepository()
	ctx := context.Background()

	require.NoError(t, repo.Seed(ctx, []domain.Locker{
		{ID: "B001", Zone: "B", Size: domain.LockerSizeSmall, Status: domain.LockerStatusAvailable},
		{ID: "A001", Zone: "A", Size: domain.LockerSizeLarge, Status: domain.LockerStatusAvailable},
	}))

	t.Run("List is sorted", func(t *testing.T) {
		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "A001", all[0].ID)
		assert.Equal(t, "B001", all[1].ID)
	})

	t.Run("Get unknown", func(t *testing.T) {
		_, err := repo.Get(ctx, "Z999")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Save and isolate copies", func(t *testing.T) {
		l, err := repo.Get(ctx, "A001")
		require.NoError(t, err)
		l.Status = domain.LockerStatusRented
		l.RentalInfo = &domain.RentalInfo{SessionToken: "psp_x", StartTime: time.Now(), EndTime: time.Now().Add(time.Hour)}
		require.NoError(t, repo.Save(ctx, l))

		l.RentalInfo.IsLocked = true

		got, err := repo.Get(ctx, "A001")
		require.NoError(t, err)
		assert.Equal(t, domain.LockerStatusRented, got.Status)
		assert.False(t, got.RentalInfo.IsLocked)
	})

	t.Run("Seed keeps existing rows", func(t *testing.T) {
		require.NoError(t, repo.Seed(ctx, []domain.Locker{{ID: "A001", Zone: "A", Status: domain.LockerStatusAvailable}}))
		got, err := repo.Get(ctx, "A001")
		require.NoError(t, err)
		assert.Equal(t, domain.LockerStatusRented, got.Status)
	})
}
