// Package reservation implements the arcade reservation engine: the
// reservation entity, its status state machine, booking rule validators
// and post-check-in time adjustments. Everything here is a plain
// immutable value; transitions return new copies.
package reservation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"arcadia/internal/clock"
	"arcadia/internal/slots"
)

// Reservation is the booking entity. Identity is ID; every mutator-like
// method returns a new copy instead of mutating in place.
//
// Device binding is two-phase: RequestedTypeID is set at creation, and a
// concrete unit (AssignedDeviceID/AssignedDeviceNumber) only once staff
// approve the reservation.
type Reservation struct {
	ID                   string       `json:"id"`
	Number               string       `json:"number"`
	CustomerID           string       `json:"customer_id"`
	RequestedTypeID      string       `json:"requested_type_id"`
	AssignedDeviceID     string       `json:"assigned_device_id,omitempty"`
	AssignedDeviceNumber string       `json:"assigned_device_number,omitempty"`
	Date                 clock.Time   `json:"date"`
	Slot                 slots.Slot   `json:"slot"`
	Status               Status       `json:"status"`
	RejectionReason      string       `json:"rejection_reason,omitempty"`
	CheckedInAt          clock.Time   `json:"checked_in_at,omitempty"`
	ActualStart          clock.Time   `json:"actual_start,omitempty"`
	ActualEnd            clock.Time   `json:"actual_end,omitempty"`
	Note                 string       `json:"note,omitempty"`
	TotalAmount          int64        `json:"total_amount"`
	CreatedAt            clock.Time   `json:"created_at"`
	UpdatedAt            clock.Time   `json:"updated_at"`
	Version              int64        `json:"version"`
}

// New builds a pending reservation with a generated id and number.
func New(customerID, requestedTypeID string, date clock.Time, slot slots.Slot, note string, now clock.Time) Reservation {
	return Reservation{
		ID:              uuid.New().String(),
		Number:          NumberFor(date),
		CustomerID:      customerID,
		RequestedTypeID: requestedTypeID,
		Date:            date.StartOfDay(),
		Slot:            slot,
		Status:          StatusPending,
		Note:            note,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// NumberFor derives a human-readable reservation number from the date
// plus a random suffix. Unique enough, not unique guaranteed.
func NumberFor(date clock.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:6])
	return fmt.Sprintf("R%s-%s", date.Std().Format("20060102"), suffix)
}

// StartDateTime combines the date and slot start. Extended hours (>=24)
// roll the calendar date forward by one day.
func (r Reservation) StartDateTime() clock.Time {
	day := r.Date.StartOfDay()
	if r.Slot.StartsNextDay() {
		day = day.AddDays(1)
	}
	return day.AddHours(r.Slot.NormalizedStartHour())
}

// EndDateTime combines the date and slot end, rolling extended hours.
func (r Reservation) EndDateTime() clock.Time {
	day := r.Date.StartOfDay()
	if r.Slot.EndHour >= 24 {
		day = day.AddDays(1)
	}
	return day.AddHours(r.Slot.NormalizedEndHour())
}

// ApproveWithDevice transitions pending -> approved and stamps the
// assigned unit.
func (r Reservation) ApproveWithDevice(deviceID, deviceNumber string, now clock.Time) (Reservation, error) {
	if r.Status != StatusPending {
		return r, &InvalidStateError{Op: "approve", Current: r.Status, Required: StatusPending}
	}
	next, err := r.Status.TransitionTo(StatusApproved)
	if err != nil {
		return r, err
	}
	r.Status = next
	r.AssignedDeviceID = deviceID
	r.AssignedDeviceNumber = deviceNumber
	r.UpdatedAt = now
	return r, nil
}

// RejectWithReason transitions pending -> rejected. The reason is
// mandatory and surfaced to the customer.
func (r Reservation) RejectWithReason(reason string, now clock.Time) (Reservation, error) {
	if strings.TrimSpace(reason) == "" {
		return r, &ValidationError{Field: "rejection reason", Reason: "must not be blank"}
	}
	if r.Status != StatusPending {
		return r, &InvalidStateError{Op: "reject", Current: r.Status, Required: StatusPending}
	}
	next, err := r.Status.TransitionTo(StatusRejected)
	if err != nil {
		return r, err
	}
	r.Status = next
	r.RejectionReason = strings.TrimSpace(reason)
	r.UpdatedAt = now
	return r, nil
}

// CheckIn requires an approved reservation with an assigned device and
// stamps CheckedInAt plus ActualStart together with the transition.
func (r Reservation) CheckIn(now clock.Time) (Reservation, error) {
	if r.Status != StatusApproved {
		return r, &InvalidStateError{Op: "check-in", Current: r.Status, Required: StatusApproved}
	}
	if r.AssignedDeviceID == "" {
		return r, &ValidationError{Field: "assigned device", Reason: "reservation has no device assigned"}
	}
	next, err := r.Status.TransitionTo(StatusCheckedIn)
	if err != nil {
		return r, err
	}
	r.Status = next
	r.CheckedInAt = now
	r.ActualStart = now
	r.UpdatedAt = now
	return r, nil
}

// Complete transitions checked_in -> completed.
func (r Reservation) Complete(now clock.Time) (Reservation, error) {
	return r.transition(StatusCompleted, now)
}

// Cancel transitions to cancelled from any non-final pre-use status.
func (r Reservation) Cancel(now clock.Time) (Reservation, error) {
	return r.transition(StatusCancelled, now)
}

// MarkNoShow transitions approved -> no_show.
func (r Reservation) MarkNoShow(now clock.Time) (Reservation, error) {
	return r.transition(StatusNoShow, now)
}

func (r Reservation) transition(target Status, now clock.Time) (Reservation, error) {
	next, err := r.Status.TransitionTo(target)
	if err != nil {
		return r, err
	}
	r.Status = next
	r.UpdatedAt = now
	return r, nil
}

// WithActualTimes stamps corrected usage times from a time adjustment.
func (r Reservation) WithActualTimes(start, end clock.Time, now clock.Time) Reservation {
	r.ActualStart = start
	r.ActualEnd = end
	r.UpdatedAt = now
	return r
}

// WithAmount stamps a recomputed billing amount.
func (r Reservation) WithAmount(amount int64, now clock.Time) Reservation {
	r.TotalAmount = amount
	r.UpdatedAt = now
	return r
}

// ConflictsWith reports a device-level collision: same calendar day,
// overlapping slots, different reservations.
func (r Reservation) ConflictsWith(other Reservation) bool {
	if r.ID == other.ID {
		return false
	}
	return r.Date.SameDay(other.Date) && r.Slot.Overlaps(other.Slot)
}

// HasUserConflict reports a customer-level collision: same customer,
// different reservation, neither final, conflicting slots. This backs
// the one-active-reservation-at-a-time rule and is distinct from the
// device-level check.
func (r Reservation) HasUserConflict(other Reservation) bool {
	if r.ID == other.ID || r.CustomerID != other.CustomerID {
		return false
	}
	if r.Status.IsFinal() || other.Status.IsFinal() {
		return false
	}
	return r.ConflictsWith(other)
}

// ValidFor24HourRule reports whether the slot starts at least 24 hours
// from now.
func (r Reservation) ValidFor24HourRule(now clock.Time) bool {
	start := r.StartDateTime()
	if !start.After(now) {
		return false
	}
	return start.DiffHours(now) >= 24
}
