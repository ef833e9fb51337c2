package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"locker-rental-backend/internal/domain"
)

func TestObserveOperation(t *testing.T) {
	m := New()
	m.ObserveOperation("rent", nil)
	m.ObserveOperation("rent", fmt.Errorf("rent A001: %w", domain.ErrNotAvailable))
	m.ObserveOperation("rent", errors.New("disk full"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("rent", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("rent", "not_available")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("rent", "error")))
}

func TestObserveExtension(t *testing.T) {
	m := New()
	m.ObserveRent(30)
	m.ObserveExtension(domain.ExtensionCharge{OverstayBlocks: 1, OverstayCharge: 15, ExtensionCost: 20, AdditionalCharge: 35})

	assert.Equal(t, 30.0, testutil.ToFloat64(m.revenue.WithLabelValues("rent")))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.revenue.WithLabelValues("extension")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.revenue.WithLabelValues("overstay")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.overstayBlocks))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("rent", nil)
		m.ObserveRent(20)
		m.ObserveActuationFailure()
	})
}
