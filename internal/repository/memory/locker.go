package memory

import (
	"context"
	"sort"
	"sync"

	"locker-rental-backend/internal/domain"
	"locker-rental-backend/internal/repository"
)

// lockerRepository keeps the registry in process memory. State is lost on
// restart, which is the case resynchronization exists for.
type lockerRepository struct {
	mu      sync.RWMutex
	lockers map[string]*domain.Locker
}

func NewLockerRepository() repository.LockerRepository {
	return &lockerRepository{lockers: make(map[string]*domain.Locker)}
}

func (r *lockerRepository) List(ctx context.Context) ([]domain.Locker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Locker, 0, len(r.lockers))
	for _, l := range r.lockers {
		out = append(out, *l.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *lockerRepository) Get(ctx context.Context, id string) (*domain.Locker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lockers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return l.Clone(), nil
}

func (r *lockerRepository) Save(ctx context.Context, locker *domain.Locker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lockers[locker.ID] = locker.Clone()
	return nil
}

func (r *lockerRepository) Seed(ctx context.Context, lockers []domain.Locker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range lockers {
		if _, ok := r.lockers[lockers[i].ID]; !ok {
			r.lockers[lockers[i].ID] = lockers[i].Clone()
		}
	}
	return nil
}
