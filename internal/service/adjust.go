package service

import (
	"context"
	"fmt"

	"arcadia/internal/catalog"
	"arcadia/internal/clock"
	"arcadia/internal/metrics"
	"arcadia/internal/notify"
	"arcadia/internal/reservation"
)

// AdjustRequest corrects actual usage times after check-in.
type AdjustRequest struct {
	ActualStart clock.Time
	ActualEnd   clock.Time
	Reason      reservation.AdjustmentReason
	Detail      string
	AdjustedBy  string
}

// AdjustEffects lists everything an adjustment changed, so callers and
// audit logs see the full blast radius of one correction.
type AdjustEffects struct {
	Reservation    reservation.Reservation
	Adjustment     reservation.Adjustment
	NewAmount      int64
	AutoCompleted  bool
	DeviceReleased bool
}

// AdjustTime records a post-check-in time correction, recalculates the
// charge from actual usage rounded up to the half hour, and, when the
// corrected end is already in the past, completes the reservation and
// releases its device.
func (s *Service) AdjustTime(ctx context.Context, id string, req AdjustRequest) (AdjustEffects, error) {
	now := s.now()
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return AdjustEffects{}, err
	}
	if r.Status != reservation.StatusCheckedIn {
		return AdjustEffects{}, &reservation.InvalidStateError{
			Op: "adjust time", Current: r.Status, Required: reservation.StatusCheckedIn,
		}
	}

	adj, err := reservation.NewAdjustment(
		r.StartDateTime(), r.EndDateTime(),
		req.ActualStart, req.ActualEnd,
		req.Reason, req.Detail, req.AdjustedBy, now)
	if err != nil {
		return AdjustEffects{}, err
	}

	deviceType, ok := s.Hierarchy().Type(r.RequestedTypeID)
	if !ok {
		return AdjustEffects{}, &catalog.NotFoundError{Kind: "device type", ID: r.RequestedTypeID}
	}
	amount := adj.ChargeFor(deviceType.HourlyRate)

	updated := r.WithActualTimes(adj.ActualStart, adj.ActualEnd, now).WithAmount(amount, now)

	effects := AdjustEffects{Adjustment: adj, NewAmount: amount}
	if !adj.ActualEnd.After(now) {
		completed, cerr := updated.Complete(now)
		if cerr != nil {
			return AdjustEffects{}, cerr
		}
		updated = completed
		effects.AutoCompleted = true
	}

	persisted, err := s.store.UpdateReservation(ctx, updated)
	if err != nil {
		return AdjustEffects{}, err
	}
	if err := s.store.CreateAdjustment(ctx, persisted.ID, adj); err != nil {
		return AdjustEffects{}, fmt.Errorf("record adjustment: %w", err)
	}
	effects.Reservation = persisted

	// The device is released only once the reservation and its
	// adjustment record are both on disk. A failed write must not
	// leave a freed unit next to a still checked_in reservation.
	if effects.AutoCompleted {
		effects.DeviceReleased = s.setDeviceStatus(ctx, persisted.AssignedDeviceID, catalog.DeviceAvailable)
	}

	metrics.IncTimeAdjustment(string(adj.Reason))
	s.logger.Info().
		Str("reservation", persisted.Number).
		Str("reason", string(adj.Reason)).
		Int("delta_minutes", adj.DeltaMinutes()).
		Int64("amount", amount).
		Bool("auto_completed", effects.AutoCompleted).
		Msg("time adjusted")

	s.send(ctx, notify.Notification{
		CustomerID: persisted.CustomerID,
		Type:       "time_adjusted",
		Title:      "Session time corrected",
		Body: fmt.Sprintf("Your session was recorded as %d minutes; the charge is %d.",
			adj.ActualMinutes(), amount),
		Metadata: map[string]string{"reservation_id": persisted.ID, "reason": string(adj.Reason)},
	})
	s.invalidateAvailability(ctx, persisted)

	return effects, nil
}
