package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"locker-rental-backend/internal/config"
	"locker-rental-backend/internal/domain"
	"locker-rental-backend/internal/lockctl"
	"locker-rental-backend/internal/payment"
	"locker-rental-backend/internal/repository/memory"
	"locker-rental-backend/internal/service"
	"locker-rental-backend/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendOverstayReminder(ctx context.Context, email string, locker *domain.Locker, blocks, charge int32) error {
	args := m.Called(ctx, email, locker, blocks, charge)
	return args.Error(0)
}

var start = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newRentalService(t *testing.T, now *time.Time) service.RentalService {
	t.Helper()
	ctx := context.Background()
	repo := memory.NewLockerRepository()
	require.NoError(t, service.SeedRegistry(ctx, repo, []service.ZoneSpec{{Zone: "A", Count: 3}}, nil))
	svc, err := service.NewRentalService(ctx, repo, lockctl.NewMockController(0, 0), payment.NewMockProvider(), service.RentalOptions{
		Now: func() time.Time { return *now },
	})
	require.NoError(t, err)
	return svc
}

func TestSendOverstayReminders(t *testing.T) {
	ctx := context.Background()
	now := start
	svc := newRentalService(t, &now)

	_, _, err := svc.Rent(ctx, "A001", 1, &domain.Contact{Email: "renter@example.com"})
	require.NoError(t, err)
	_, _, err = svc.Rent(ctx, "A002", 1, nil)
	require.NoError(t, err)
	_, _, err = svc.Rent(ctx, "A003", 4, &domain.Contact{Email: "other@example.com"})
	require.NoError(t, err)

	notifier := new(MockNotifier)
	notifier.On("SendOverstayReminder", mock.Anything, "renter@example.com",
		mock.MatchedBy(func(l *domain.Locker) bool { return l.ID == "A001" }), int32(1), int32(15)).Return(nil).Once()
	notifier.On("SendOverstayReminder", mock.Anything, "renter@example.com",
		mock.MatchedBy(func(l *domain.Locker) bool { return l.ID == "A001" }), int32(2), int32(30)).Return(nil).Once()

	jr := NewJobRunner(&Services{Rental: svc, Notification: notifier}, &config.Config{})
	jr.now = func() time.Time { return now }

	now = start.Add(time.Hour + 10*time.Minute)
	jr.SendOverstayReminders()

	// Same block: no second mail.
	now = start.Add(time.Hour + 20*time.Minute)
	jr.SendOverstayReminders()

	now = start.Add(time.Hour + 40*time.Minute)
	jr.SendOverstayReminders()

	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "SendOverstayReminder", 2)
}

func TestSendOverstayReminders_RetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	now := start
	svc := newRentalService(t, &now)
	_, _, err := svc.Rent(ctx, "A001", 1, &domain.Contact{Email: "renter@example.com"})
	require.NoError(t, err)

	notifier := new(MockNotifier)
	notifier.On("SendOverstayReminder", mock.Anything, "renter@example.com", mock.Anything, int32(1), int32(15)).
		Return(errors.New("smtp down")).Once()
	notifier.On("SendOverstayReminder", mock.Anything, "renter@example.com", mock.Anything, int32(1), int32(15)).
		Return(nil).Once()

	jr := NewJobRunner(&Services{Rental: svc, Notification: notifier}, &config.Config{})
	now = start.Add(time.Hour + 5*time.Minute)
	jr.now = func() time.Time { return now }

	jr.SendOverstayReminders()
	jr.SendOverstayReminders()
	jr.SendOverstayReminders()

	notifier.AssertNumberOfCalls(t, "SendOverstayReminder", 2)
}

func TestSendOverstayReminders_RecoversFromPanic(t *testing.T) {
	jr := NewJobRunner(&Services{}, &config.Config{})
	assert.NotPanics(t, jr.SendOverstayReminders)
}

func TestPruneExpiredSessions(t *testing.T) {
	ctx := context.Background()
	store, err := session.OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, "A001", "psp_old", start.Add(-12*24*time.Hour), start.Add(-10*24*time.Hour), nil))
	require.NoError(t, store.Save(ctx, "A002", "psp_recent", start.Add(-12*24*time.Hour), start.Add(-time.Hour), nil))
	require.NoError(t, store.Save(ctx, "A003", "psp_live", start.Add(-12*24*time.Hour), start.Add(time.Hour), nil))

	cfg := &config.Config{Session: config.SessionConfig{MaxAgeDays: 7}}
	jr := NewJobRunner(&Services{Sessions: store}, cfg)
	jr.now = func() time.Time { return start }
	jr.PruneExpiredSessions()

	creds, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "A002", creds[0].LockerID)
	assert.Equal(t, "A003", creds[1].LockerID)
}

func TestPruneExpiredSessions_NoStore(t *testing.T) {
	jr := NewJobRunner(&Services{}, &config.Config{})
	assert.NotPanics(t, jr.PruneExpiredSessions)
}
