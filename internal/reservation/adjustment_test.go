package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arcadia/internal/clock"
)

func testAdjustment(t *testing.T, actualMinutes int, reason AdjustmentReason) Adjustment {
	t.Helper()
	origStart := clock.Date(2025, time.July, 10, 14, 0)
	origEnd := clock.Date(2025, time.July, 10, 16, 0)
	now := clock.Date(2025, time.July, 10, 16, 30)

	adj, err := NewAdjustment(
		origStart, origEnd,
		origStart, origStart.AddMinutes(actualMinutes),
		reason, "", "admin-1", now,
	)
	require.NoError(t, err)
	return adj
}

func TestNewAdjustmentValidation(t *testing.T) {
	start := clock.Date(2025, time.July, 10, 14, 0)
	now := clock.Date(2025, time.July, 10, 16, 0)

	t.Run("inverted actual range", func(t *testing.T) {
		_, err := NewAdjustment(start, start.AddHours(2), start, start.AddMinutes(-10), ReasonOther, "", "admin-1", now)
		var valErr *ValidationError
		assert.ErrorAs(t, err, &valErr)
	})

	t.Run("zero-length actual range", func(t *testing.T) {
		_, err := NewAdjustment(start, start.AddHours(2), start, start, ReasonOther, "", "admin-1", now)
		assert.Error(t, err)
	})

	t.Run("unknown reason", func(t *testing.T) {
		_, err := NewAdjustment(start, start.AddHours(2), start, start.AddHours(2), AdjustmentReason("whatever"), "", "admin-1", now)
		assert.Error(t, err)
	})
}

func TestChargeableMinutes(t *testing.T) {
	tests := []struct {
		actual     int
		chargeable int
	}{
		{130, 150},
		{120, 120}, // exact boundary, no over-rounding
		{121, 150},
		{90, 90},
		{31, 60},
		{29, 30},
	}

	for _, tt := range tests {
		adj := testAdjustment(t, tt.actual, ReasonCustomerExtend)
		assert.Equal(t, tt.chargeable, adj.ChargeableMinutes(),
			"actual %d minutes", tt.actual)
	}
}

func TestAdjustmentDerivedFields(t *testing.T) {
	adj := testAdjustment(t, 180, ReasonCustomerExtend)

	assert.Equal(t, 120, adj.OriginalMinutes())
	assert.Equal(t, 180, adj.ActualMinutes())
	assert.Equal(t, 60, adj.DeltaMinutes())

	short := testAdjustment(t, 90, ReasonEarlyFinish)
	assert.Equal(t, -30, short.DeltaMinutes())
}

func TestChargeFor(t *testing.T) {
	adj := testAdjustment(t, 130, ReasonCustomerExtend)
	// 150 chargeable minutes at 10000/h.
	assert.Equal(t, int64(25000), adj.ChargeFor(10000))
}
