package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"locker-rental-backend/internal/domain"
	"locker-rental-backend/internal/lockctl"
	"locker-rental-backend/internal/logger"
	"locker-rental-backend/internal/metrics"
	"locker-rental-backend/internal/payment"
	"locker-rental-backend/internal/repository"
	"locker-rental-backend/internal/security"
	"locker-rental-backend/internal/utils"
)

const defaultActuationTimeout = 5 * time.Second

// RentalOptions tunes the engine. Zero values select defaults.
type RentalOptions struct {
	Pricing          *utils.Pricing
	ActuationTimeout time.Duration
	Metrics          *metrics.Metrics
	Now              func() time.Time
}

type lockerEntry struct {
	mu     sync.Mutex
	locker *domain.Locker
}

type rentalService struct {
	repo             repository.LockerRepository
	lockCtl          lockctl.Controller
	psp              payment.Provider
	pricing          utils.Pricing
	metrics          *metrics.Metrics
	actuationTimeout time.Duration
	now              func() time.Time

	// entries is built once at construction and never resized, so the map
	// itself needs no lock; each entry carries its own mutex.
	entries map[string]*lockerEntry
	ids     []string
}

// NewRentalService loads the registry from repo and returns the engine.
func NewRentalService(
	ctx context.Context,
	repo repository.LockerRepository,
	lockCtl lockctl.Controller,
	psp payment.Provider,
	opts RentalOptions,
) (RentalService, error) {
	pricing := utils.DefaultPricing()
	if opts.Pricing != nil {
		pricing = *opts.Pricing
	}
	if err := pricing.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pricing: %w", err)
	}
	if opts.ActuationTimeout <= 0 {
		opts.ActuationTimeout = defaultActuationTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	lockers, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load locker registry: %w", err)
	}

	s := &rentalService{
		repo:             repo,
		lockCtl:          lockCtl,
		psp:              psp,
		pricing:          pricing,
		metrics:          opts.Metrics,
		actuationTimeout: opts.ActuationTimeout,
		now:              opts.Now,
		entries:          make(map[string]*lockerEntry, len(lockers)),
	}
	for i := range lockers {
		l := lockers[i].Clone()
		s.entries[l.ID] = &lockerEntry{locker: l}
		s.ids = append(s.ids, l.ID)
	}
	sort.Strings(s.ids)

	logger.Info("Locker registry loaded", "lockers", len(s.ids))
	return s, nil
}

func (s *rentalService) Pricing() utils.Pricing {
	return s.pricing
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func (s *rentalService) entry(lockerID string) (*lockerEntry, error) {
	e, ok := s.entries[normalizeID(lockerID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

// commit persists next and only then swaps it into the registry, so a failed
// write leaves the in-memory state untouched.
func (s *rentalService) commit(ctx context.Context, e *lockerEntry, next *domain.Locker) error {
	if err := s.repo.Save(ctx, next); err != nil {
		return err
	}
	e.locker = next
	return nil
}

func (s *rentalService) snapshot(e *lockerEntry) *domain.Locker {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locker.Clone()
}

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// authorize checks the locker is rented under token. Unknown ids report
// ErrNotRented so token-bearing calls do not reveal which ids exist.
func authorize(l *domain.Locker, token string) error {
	if l.Status != domain.LockerStatusRented || l.RentalInfo == nil {
		return domain.ErrNotRented
	}
	if !tokensEqual(l.RentalInfo.SessionToken, token) {
		return domain.ErrInvalidToken
	}
	return nil
}

func (s *rentalService) GetLocker(ctx context.Context, lockerID string) (*domain.Locker, error) {
	e, err := s.entry(lockerID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(e), nil
}

func (s *rentalService) CheckAvailability(ctx context.Context, lockerID string) (bool, *domain.Locker, error) {
	l, err := s.GetLocker(ctx, lockerID)
	if err != nil {
		return false, nil, err
	}
	return l.Status == domain.LockerStatusAvailable, l, nil
}

func (s *rentalService) ListLockers(ctx context.Context) ([]domain.Locker, error) {
	out := make([]domain.Locker, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, *s.snapshot(s.entries[id]))
	}
	return out, nil
}

func (s *rentalService) FindByToken(ctx context.Context, token string) (*domain.Locker, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	for _, id := range s.ids {
		l := s.snapshot(s.entries[id])
		if l.RentalInfo != nil && tokensEqual(l.RentalInfo.SessionToken, token) {
			return l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *rentalService) Rent(ctx context.Context, lockerID string, durationHours int32, contact *domain.Contact) (token string, locker *domain.Locker, err error) {
	defer func() { s.metrics.ObserveOperation("rent", err) }()

	e, err := s.entry(lockerID)
	if err != nil {
		return "", nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.locker
	if cur.Status != domain.LockerStatusAvailable {
		return "", nil, fmt.Errorf("rent %s: %w", cur.ID, domain.ErrNotAvailable)
	}
	price, err := s.pricing.PriceForHours(durationHours)
	if err != nil {
		return "", nil, err
	}
	token, err = security.NewSessionToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	if _, err := s.psp.Charge(ctx, "rent:"+cur.ID, price); err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}

	now := s.now()
	next := cur.Clone()
	next.Status = domain.LockerStatusRented
	next.RentalInfo = &domain.RentalInfo{
		SessionToken:  token,
		StartTime:     now,
		EndTime:       now.Add(time.Duration(durationHours) * time.Hour),
		DurationHours: durationHours,
		IsLocked:      false,
		PaidAmount:    price,
	}
	if contact != nil {
		next.RentalInfo.Pin = contact.Pin
		next.RentalInfo.Phone = contact.Phone
		next.RentalInfo.Email = contact.Email
	}

	if err := s.commit(ctx, e, next); err != nil {
		logger.WithLocker(ctx, cur.ID, "rent").Error("Charged but failed to persist rental", "amount", price, "error", err)
		return "", nil, err
	}

	s.metrics.ObserveRent(price)
	logger.WithLocker(ctx, cur.ID, "rent").Info("Locker rented", "duration_hours", durationHours, "amount", price, "end_time", next.RentalInfo.EndTime)
	return token, next.Clone(), nil
}

func (s *rentalService) Unlock(ctx context.Context, lockerID, token string) (*domain.Locker, error) {
	return s.setLocked(ctx, "unlock", lockerID, token, false)
}

func (s *rentalService) Lock(ctx context.Context, lockerID, token string) (*domain.Locker, error) {
	return s.setLocked(ctx, "lock", lockerID, token, true)
}

// setLocked records the desired lock state and then dispatches it to the lock
// controller. An actuation failure returns the updated locker together with
// ErrActuationFailed; the state change is kept and the caller retries.
func (s *rentalService) setLocked(ctx context.Context, op, lockerID, token string, locked bool) (locker *domain.Locker, err error) {
	defer func() { s.metrics.ObserveOperation(op, err) }()

	e, err := s.entry(lockerID)
	if err != nil {
		return nil, domain.ErrNotRented
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := authorize(e.locker, token); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, e.locker.ID, err)
	}

	next := e.locker.Clone()
	next.RentalInfo.IsLocked = locked
	if err := s.commit(ctx, e, next); err != nil {
		return nil, err
	}

	if err := s.actuate(ctx, next.ID, locked); err != nil {
		return next.Clone(), err
	}
	logger.WithLocker(ctx, next.ID, op).Info("Lock state changed", "locked", locked)
	return next.Clone(), nil
}

func (s *rentalService) actuate(ctx context.Context, lockerID string, locked bool) error {
	actx, cancel := context.WithTimeout(ctx, s.actuationTimeout)
	defer cancel()

	if err := s.lockCtl.Actuate(actx, lockerID, locked); err != nil {
		s.metrics.ObserveActuationFailure()
		logger.WithLocker(ctx, lockerID, "actuate").Warn("Lock controller did not confirm", "locked", locked, "error", err)
		return fmt.Errorf("%w: %s: %v", domain.ErrActuationFailed, lockerID, err)
	}
	return nil
}

func (s *rentalService) Extend(ctx context.Context, lockerID, token string, extraHours int32) (locker *domain.Locker, charge domain.ExtensionCharge, err error) {
	defer func() { s.metrics.ObserveOperation("extend", err) }()

	e, err := s.entry(lockerID)
	if err != nil {
		return nil, domain.ExtensionCharge{}, domain.ErrNotRented
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := authorize(e.locker, token); err != nil {
		return nil, domain.ExtensionCharge{}, fmt.Errorf("extend %s: %w", e.locker.ID, err)
	}

	now := s.now()
	cur := e.locker.RentalInfo
	charge, newEnd, err := s.pricing.CalculateExtension(cur.EndTime, now, extraHours)
	if err != nil {
		return nil, domain.ExtensionCharge{}, err
	}

	if _, err := s.psp.Charge(ctx, "extend:"+e.locker.ID, charge.AdditionalCharge); err != nil {
		return nil, domain.ExtensionCharge{}, fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
	}

	next := e.locker.Clone()
	next.RentalInfo.EndTime = newEnd
	next.RentalInfo.DurationHours += extraHours
	next.RentalInfo.PaidAmount += charge.AdditionalCharge
	next.RentalInfo.OverstayCharge += charge.OverstayCharge

	if err := s.commit(ctx, e, next); err != nil {
		logger.WithLocker(ctx, next.ID, "extend").Error("Charged but failed to persist extension", "amount", charge.AdditionalCharge, "error", err)
		return nil, domain.ExtensionCharge{}, err
	}

	s.metrics.ObserveExtension(charge)
	logger.WithLocker(ctx, next.ID, "extend").Info("Rental extended",
		"extra_hours", extraHours,
		"overstay_blocks", charge.OverstayBlocks,
		"additional_charge", charge.AdditionalCharge,
		"end_time", newEnd,
	)
	return next.Clone(), charge, nil
}

func (s *rentalService) EndSession(ctx context.Context, lockerID, token string) (locker *domain.Locker, err error) {
	defer func() { s.metrics.ObserveOperation("end_session", err) }()

	e, err := s.entry(lockerID)
	if err != nil {
		return nil, domain.ErrNotRented
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := authorize(e.locker, token); err != nil {
		return nil, fmt.Errorf("end session %s: %w", e.locker.ID, err)
	}
	return s.releaseLocked(ctx, e, "end_session")
}

func (s *rentalService) Release(ctx context.Context, lockerID string) (locker *domain.Locker, err error) {
	defer func() { s.metrics.ObserveOperation("release", err) }()

	e, err := s.entry(lockerID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.releaseLocked(ctx, e, "release")
}

// releaseLocked expects e.mu to be held.
func (s *rentalService) releaseLocked(ctx context.Context, e *lockerEntry, op string) (*domain.Locker, error) {
	next := e.locker.Clone()
	next.Status = domain.LockerStatusAvailable
	next.RentalInfo = nil
	if err := s.commit(ctx, e, next); err != nil {
		return nil, err
	}
	logger.WithLocker(ctx, next.ID, op).Info("Locker released")
	return next.Clone(), nil
}

// Resynchronize rebuilds a rental from a client-held credential after the
// registry lost it. If the registry still holds the same rental it wins and is
// returned unchanged. Reconstruction trusts client input for billing defaults
// and is logged at warn level for audit.
func (s *rentalService) Resynchronize(ctx context.Context, lockerID string, cred domain.SessionCredential) (locker *domain.Locker, err error) {
	defer func() { s.metrics.ObserveOperation("resynchronize", err) }()

	e, err := s.entry(lockerID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if cred.IsExpired(now) {
		return nil, domain.ErrCredentialExpired
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.locker

	if cred.LockerID != "" && normalizeID(cred.LockerID) != cur.ID {
		return nil, fmt.Errorf("resynchronize %s: credential is for %s: %w", cur.ID, cred.LockerID, domain.ErrInvalidToken)
	}
	if cred.SessionToken == "" || !cred.ExpiresAt.After(cred.RentedAt) {
		return nil, fmt.Errorf("resynchronize %s: malformed credential: %w", cur.ID, domain.ErrInvalidToken)
	}

	switch cur.Status {
	case domain.LockerStatusRented:
		if err := authorize(cur, cred.SessionToken); err != nil {
			return nil, fmt.Errorf("resynchronize %s: %w", cur.ID, err)
		}
		return cur.Clone(), nil
	case domain.LockerStatusOutOfService:
		return nil, fmt.Errorf("resynchronize %s: %w", cur.ID, domain.ErrNotAvailable)
	}

	duration := int32(math.Round(cred.ExpiresAt.Sub(cred.RentedAt).Hours()))
	if duration < 1 {
		duration = 1
	}

	next := cur.Clone()
	next.Status = domain.LockerStatusRented
	next.RentalInfo = &domain.RentalInfo{
		SessionToken:  cred.SessionToken,
		StartTime:     cred.RentedAt,
		EndTime:       cred.ExpiresAt,
		DurationHours: duration,
		Phone:         cred.Phone,
		Email:         cred.Email,
		IsLocked:      true,
		PaidAmount:    s.pricing.ResyncPaidAmount(duration),
	}
	if err := s.commit(ctx, e, next); err != nil {
		return nil, err
	}

	logger.WithLocker(ctx, next.ID, "resynchronize").Warn("Rental reconstructed from client credential",
		"rented_at", cred.RentedAt,
		"expires_at", cred.ExpiresAt,
		"assumed_paid", next.RentalInfo.PaidAmount,
	)
	return next.Clone(), nil
}

func (s *rentalService) AdminUnlock(ctx context.Context, lockerID string) (locker *domain.Locker, err error) {
	defer func() { s.metrics.ObserveOperation("admin_unlock", err) }()

	e, err := s.entry(lockerID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return s.adminUnlockLocked(ctx, e)
}

// adminUnlockLocked expects e.mu to be held.
func (s *rentalService) adminUnlockLocked(ctx context.Context, e *lockerEntry) (*domain.Locker, error) {
	next := e.locker
	if next.RentalInfo != nil && next.RentalInfo.IsLocked {
		next = e.locker.Clone()
		next.RentalInfo.IsLocked = false
		if err := s.commit(ctx, e, next); err != nil {
			return nil, err
		}
	}
	if err := s.actuate(ctx, next.ID, false); err != nil {
		return next.Clone(), err
	}
	logger.WithLocker(ctx, next.ID, "admin_unlock").Info("Locker opened by operator")
	return next.Clone(), nil
}

// OpenAll unlocks every rented locker. Actuation failures do not stop the
// sweep; they are joined into the returned error.
func (s *rentalService) OpenAll(ctx context.Context) (int, error) {
	count := 0
	var errs []error
	for _, id := range s.ids {
		e := s.entries[id]
		e.mu.Lock()
		if e.locker.RentalInfo != nil {
			count++
			if _, err := s.adminUnlockLocked(ctx, e); err != nil {
				errs = append(errs, err)
			}
		}
		e.mu.Unlock()
	}
	err := errors.Join(errs...)
	s.metrics.ObserveOperation("open_all", err)
	logger.Info("Opened all rented lockers", "count", count, "failures", len(errs))
	return count, err
}

// SetOutOfService is the administrative override. Taking a rented locker out
// of service ends the rental.
func (s *rentalService) SetOutOfService(ctx context.Context, lockerID string, outOfService bool) (locker *domain.Locker, err error) {
	defer func() { s.metrics.ObserveOperation("set_out_of_service", err) }()

	e, err := s.entry(lockerID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.locker
	next := cur.Clone()
	switch {
	case outOfService && cur.Status != domain.LockerStatusOutOfService:
		if cur.RentalInfo != nil {
			logger.WithLocker(ctx, cur.ID, "set_out_of_service").Warn("Ending active rental for maintenance", "paid_amount", cur.RentalInfo.PaidAmount)
		}
		next.Status = domain.LockerStatusOutOfService
		next.RentalInfo = nil
	case !outOfService && cur.Status == domain.LockerStatusOutOfService:
		next.Status = domain.LockerStatusAvailable
	default:
		return cur.Clone(), nil
	}

	if err := s.commit(ctx, e, next); err != nil {
		return nil, err
	}
	logger.WithLocker(ctx, next.ID, "set_out_of_service").Info("Locker service state changed", "status", next.Status)
	return next.Clone(), nil
}

func (s *rentalService) Overstays(ctx context.Context, now time.Time) ([]domain.Locker, error) {
	var out []domain.Locker
	for _, id := range s.ids {
		l := s.snapshot(s.entries[id])
		if l.IsOverstaying(now) {
			out = append(out, *l)
		}
	}
	return out, nil
}
