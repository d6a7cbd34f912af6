package reservation

import "arcadia/internal/clock"

// AdjustmentReason categorizes why actual usage diverged from the
// booked slot.
type AdjustmentReason string

const (
	ReasonAdminLate      AdjustmentReason = "admin_late"
	ReasonSystemError    AdjustmentReason = "system_error"
	ReasonCustomerExtend AdjustmentReason = "customer_extend"
	ReasonEarlyFinish    AdjustmentReason = "early_finish"
	ReasonOther          AdjustmentReason = "other"
)

// Valid reports whether the reason is a known category.
func (r AdjustmentReason) Valid() bool {
	switch r {
	case ReasonAdminLate, ReasonSystemError, ReasonCustomerExtend, ReasonEarlyFinish, ReasonOther:
		return true
	}
	return false
}

// Adjustment is an immutable record of a post-check-in time correction,
// attached 1:1 to a check-in event.
type Adjustment struct {
	OriginalStart clock.Time       `json:"original_start"`
	OriginalEnd   clock.Time       `json:"original_end"`
	ActualStart   clock.Time       `json:"actual_start"`
	ActualEnd     clock.Time       `json:"actual_end"`
	Reason        AdjustmentReason `json:"reason"`
	Detail        string           `json:"detail,omitempty"`
	AdjustedBy    string           `json:"adjusted_by"`
	AdjustedAt    clock.Time       `json:"adjusted_at"`
}

// NewAdjustment validates and builds a time adjustment.
func NewAdjustment(originalStart, originalEnd, actualStart, actualEnd clock.Time, reason AdjustmentReason, detail, adjustedBy string, now clock.Time) (Adjustment, error) {
	if !actualEnd.After(actualStart) {
		return Adjustment{}, &ValidationError{Field: "actual times", Reason: "actual end must be after actual start"}
	}
	if !reason.Valid() {
		return Adjustment{}, &ValidationError{Field: "adjustment reason", Reason: "unknown reason " + string(reason)}
	}
	return Adjustment{
		OriginalStart: originalStart,
		OriginalEnd:   originalEnd,
		ActualStart:   actualStart,
		ActualEnd:     actualEnd,
		Reason:        reason,
		Detail:        detail,
		AdjustedBy:    adjustedBy,
		AdjustedAt:    now,
	}, nil
}

// OriginalMinutes is the booked duration.
func (a Adjustment) OriginalMinutes() int {
	return a.OriginalEnd.DiffMinutes(a.OriginalStart)
}

// ActualMinutes is the corrected usage duration.
func (a Adjustment) ActualMinutes() int {
	return a.ActualEnd.DiffMinutes(a.ActualStart)
}

// DeltaMinutes is actual minus original, negative for early finishes.
func (a Adjustment) DeltaMinutes() int {
	return a.ActualMinutes() - a.OriginalMinutes()
}

// ChargeableMinutes rounds actual usage up to the next 30-minute
// boundary. Exact boundaries are not over-rounded: 120 stays 120.
func (a Adjustment) ChargeableMinutes() int {
	actual := a.ActualMinutes()
	return (actual + 29) / 30 * 30
}

// ChargeFor multiplies chargeable time by an hourly rate.
func (a Adjustment) ChargeFor(hourlyRate int64) int64 {
	return hourlyRate * int64(a.ChargeableMinutes()) / 60
}
