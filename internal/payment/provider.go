package payment

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"locker-rental-backend/internal/logger"
)

var ErrDeclined = errors.New("payment declined")

// Provider is the PSP boundary: charge an amount, get success or failure.
// The engine never sees card data.
type Provider interface {
	Charge(ctx context.Context, reference string, amount int32) (string, error)
}

// Charge is one captured payment recorded by the mock PSP.
type Charge struct {
	ID        string
	Reference string
	Amount    int32
}

// MockProvider approves every charge unless told to decline.
type MockProvider struct {
	mu          sync.Mutex
	declineNext bool
	charges     []Charge
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Charge(ctx context.Context, reference string, amount int32) (string, error) {
	logger.ExternalServiceCall("psp", "charge", "reference", reference, "amount", amount)
	if err := ctx.Err(); err != nil {
		logger.ExternalServiceResult("psp", "charge", err, "reference", reference)
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.declineNext {
		p.declineNext = false
		logger.ExternalServiceResult("psp", "charge", ErrDeclined, "reference", reference)
		return "", ErrDeclined
	}

	c := Charge{ID: "ch_" + uuid.NewString(), Reference: reference, Amount: amount}
	p.charges = append(p.charges, c)
	logger.ExternalServiceResult("psp", "charge", nil, "reference", reference, "charge_id", c.ID)
	return c.ID, nil
}

func (p *MockProvider) DeclineNext() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.declineNext = true
}

func (p *MockProvider) Charges() []Charge {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Charge, len(p.charges))
	copy(out, p.charges)
	return out
}

// Total sums every captured charge.
func (p *MockProvider) Total() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total int32
	for _, c := range p.charges {
		total += c.Amount
	}
	return total
}
