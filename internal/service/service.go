// Package service implements the reservation workflows around the
// domain engine: load, validate, mutate, persist the whole entity,
// then notify. Notification failures never roll back a transition.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"arcadia/internal/catalog"
	"arcadia/internal/clock"
	"arcadia/internal/metrics"
	"arcadia/internal/notify"
	"arcadia/internal/reservation"
	"arcadia/internal/slots"
)

// Store is the reservation persistence boundary.
type Store interface {
	GetReservation(ctx context.Context, id string) (reservation.Reservation, error)
	CreateReservation(ctx context.Context, r reservation.Reservation) error
	UpdateReservation(ctx context.Context, r reservation.Reservation) (reservation.Reservation, error)
	ListCustomerReservations(ctx context.Context, customerID string) ([]reservation.Reservation, error)
	ListDeviceDayReservations(ctx context.Context, deviceID string, date clock.Time) ([]reservation.Reservation, error)
	ListTypeDayReservations(ctx context.Context, typeID string, date clock.Time) ([]reservation.Reservation, error)
	CreateAdjustment(ctx context.Context, reservationID string, a reservation.Adjustment) error
}

// CatalogStore persists catalog entities behind the in-memory aggregate.
type CatalogStore interface {
	SaveCategory(ctx context.Context, c catalog.Category) error
	DeleteCategory(ctx context.Context, id string) error
	SaveType(ctx context.Context, t catalog.DeviceType) error
	DeleteType(ctx context.Context, id string) error
	SaveDevice(ctx context.Context, d catalog.Device) error
	DeleteDevice(ctx context.Context, id string) error
}

// Service drives the reservation lifecycle.
type Service struct {
	store    Store
	catStore CatalogStore
	notifier notify.Notifier
	rules    reservation.Rules
	now      func() clock.Time
	logger   *zerolog.Logger
	cache    *AvailabilityCache

	mu        sync.RWMutex
	hierarchy catalog.Hierarchy
}

// New wires a service. now may be nil for the wall clock.
func New(store Store, catStore CatalogStore, hierarchy catalog.Hierarchy, notifier notify.Notifier, rules reservation.Rules, logger *zerolog.Logger) *Service {
	return &Service{
		store:     store,
		catStore:  catStore,
		notifier:  notifier,
		rules:     rules,
		now:       clock.Now,
		logger:    logger,
		hierarchy: hierarchy,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() clock.Time) *Service {
	s.now = now
	return s
}

// UseCache attaches an availability cache.
func (s *Service) UseCache(cache *AvailabilityCache) *Service {
	s.cache = cache
	return s
}

// Hierarchy returns the current catalog snapshot. The aggregate is
// immutable, so the snapshot is safe to use without locking.
func (s *Service) Hierarchy() catalog.Hierarchy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hierarchy
}

// updateHierarchy runs a catalog mutation under the write lock: apply
// derives the next snapshot, persist writes it through, and only then
// does the snapshot swap in. Holding the lock across the whole
// sequence keeps two concurrent mutations from cloning the same
// snapshot and losing each other's change; a failed persist leaves the
// in-memory aggregate untouched, matching the store.
func (s *Service) updateHierarchy(apply func(catalog.Hierarchy) (catalog.Hierarchy, error), persist func(catalog.Hierarchy) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := apply(s.hierarchy)
	if err != nil {
		return err
	}
	if err := persist(h); err != nil {
		return err
	}
	s.hierarchy = h
	return nil
}

// CreateRequest is the customer-facing reservation request.
type CreateRequest struct {
	CustomerID string
	TypeID     string
	Date       clock.Time
	Slot       slots.Slot
	Note       string
}

// Create validates a new reservation against every booking rule and
// persists it pending. All rule violations are reported together.
func (s *Service) Create(ctx context.Context, req CreateRequest) (reservation.Reservation, error) {
	now := s.now()
	h := s.Hierarchy()

	deviceType, ok := h.Type(req.TypeID)
	if !ok {
		return reservation.Reservation{}, &catalog.NotFoundError{Kind: "device type", ID: req.TypeID}
	}
	if !deviceType.Active {
		return reservation.Reservation{}, &reservation.ValidationError{
			Field: "device type", Reason: fmt.Sprintf("%s is not accepting reservations", deviceType.Name),
		}
	}
	if d := req.Slot.Duration(); d < deviceType.MinHours || d > deviceType.MaxHours {
		return reservation.Reservation{}, &reservation.ValidationError{
			Field: "slot",
			Reason: fmt.Sprintf("%s sessions must be %d-%d hours, got %d",
				deviceType.Name, deviceType.MinHours, deviceType.MaxHours, d),
		}
	}

	candidate := reservation.New(req.CustomerID, req.TypeID, req.Date, req.Slot, req.Note, now)

	peers, err := s.store.ListCustomerReservations(ctx, req.CustomerID)
	if err != nil {
		return reservation.Reservation{}, fmt.Errorf("load customer reservations: %w", err)
	}
	if result := s.rules.ValidateAll(candidate, peers, now, ""); !result.Valid {
		metrics.IncRuleRejection()
		return reservation.Reservation{}, result.Err()
	}

	if err := s.store.CreateReservation(ctx, candidate); err != nil {
		return reservation.Reservation{}, err
	}
	candidate.Version = 1

	metrics.IncReservationCreated(req.TypeID)
	s.logger.Info().
		Str("reservation", candidate.Number).
		Str("customer", candidate.CustomerID).
		Str("slot", candidate.Slot.Label()).
		Msg("reservation created")

	s.send(ctx, notify.Notification{
		CustomerID: candidate.CustomerID,
		Type:       "reservation_requested",
		Title:      "Reservation received",
		Body: fmt.Sprintf("Your request for %s on %s at %s is awaiting approval.",
			deviceType.Name, candidate.Date.DateString(), candidate.Slot.Label()),
		Metadata: map[string]string{"reservation_id": candidate.ID, "number": candidate.Number},
	})
	s.invalidateAvailability(ctx, candidate)

	return candidate, nil
}

// Approve assigns the first available unit of the requested type and
// transitions the reservation to approved. Conflicts are re-checked
// against freshly re-read peer reservations immediately before
// persisting; the store's unique index is the last line of defense.
func (s *Service) Approve(ctx context.Context, id string) (reservation.Reservation, error) {
	now := s.now()
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return reservation.Reservation{}, err
	}

	h := s.Hierarchy()
	device, ok := s.pickDevice(ctx, h, r)
	if !ok {
		return reservation.Reservation{}, &reservation.ValidationError{
			Field: "device", Reason: "no unit of the requested type is free for this slot",
		}
	}

	approved, err := r.ApproveWithDevice(device.ID, device.Number, now)
	if err != nil {
		return reservation.Reservation{}, err
	}

	// Re-read peers for the chosen unit right before persisting.
	peers, err := s.store.ListDeviceDayReservations(ctx, device.ID, approved.Date)
	if err != nil {
		return reservation.Reservation{}, fmt.Errorf("re-read device reservations: %w", err)
	}
	for _, p := range peers {
		if p.Status.IsActive() && approved.ConflictsWith(p) {
			return reservation.Reservation{}, &reservation.ConflictError{
				Violations: []string{fmt.Sprintf(
					"device %s was taken by reservation %s while approving", device.Number, p.Number)},
			}
		}
	}

	persisted, err := s.store.UpdateReservation(ctx, approved)
	if err != nil {
		return reservation.Reservation{}, err
	}

	metrics.IncStaffDecision("approved")
	s.logger.Info().
		Str("reservation", persisted.Number).
		Str("device", device.Number).
		Msg("reservation approved")

	s.send(ctx, notify.Notification{
		CustomerID: persisted.CustomerID,
		Type:       "reservation_approved",
		Title:      "Reservation approved",
		Body: fmt.Sprintf("Device %s is yours on %s at %s.",
			device.Number, persisted.Date.DateString(), persisted.Slot.Label()),
		Metadata: map[string]string{"reservation_id": persisted.ID, "device": device.Number},
	})
	s.invalidateAvailability(ctx, persisted)

	return persisted, nil
}

// pickDevice returns the first unit of the requested type that is
// operationally available and has no active reservation overlapping
// the candidate's slot. First fit, no load balancing.
func (s *Service) pickDevice(ctx context.Context, h catalog.Hierarchy, r reservation.Reservation) (catalog.Device, bool) {
	for _, d := range h.DevicesByType(r.RequestedTypeID) {
		if d.Status != catalog.DeviceAvailable {
			continue
		}
		peers, err := s.store.ListDeviceDayReservations(ctx, d.ID, r.Date)
		if err != nil {
			s.logger.Error().Err(err).Str("device", d.Number).Msg("load device reservations")
			continue
		}
		busy := false
		for _, p := range peers {
			if p.Status.IsActive() && r.ConflictsWith(p) {
				busy = true
				break
			}
		}
		if !busy {
			return d, true
		}
	}
	return catalog.Device{}, false
}

// Reject transitions pending -> rejected with a mandatory reason.
func (s *Service) Reject(ctx context.Context, id, reason string) (reservation.Reservation, error) {
	now := s.now()
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return reservation.Reservation{}, err
	}

	rejected, err := r.RejectWithReason(reason, now)
	if err != nil {
		return reservation.Reservation{}, err
	}

	persisted, err := s.store.UpdateReservation(ctx, rejected)
	if err != nil {
		return reservation.Reservation{}, err
	}

	metrics.IncStaffDecision("rejected")
	s.send(ctx, notify.Notification{
		CustomerID: persisted.CustomerID,
		Type:       "reservation_rejected",
		Title:      "Reservation rejected",
		Body:       fmt.Sprintf("Your reservation %s was rejected: %s", persisted.Number, persisted.RejectionReason),
		Metadata:   map[string]string{"reservation_id": persisted.ID},
	})

	return persisted, nil
}

// Cancel transitions a reservation to cancelled.
func (s *Service) Cancel(ctx context.Context, id string) (reservation.Reservation, error) {
	now := s.now()
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return reservation.Reservation{}, err
	}

	cancelled, err := r.Cancel(now)
	if err != nil {
		return reservation.Reservation{}, err
	}

	persisted, err := s.store.UpdateReservation(ctx, cancelled)
	if err != nil {
		return reservation.Reservation{}, err
	}

	metrics.IncStaffDecision("cancelled")
	s.invalidateAvailability(ctx, persisted)
	return persisted, nil
}

// MarkNoShow transitions approved -> no_show.
func (s *Service) MarkNoShow(ctx context.Context, id string) (reservation.Reservation, error) {
	now := s.now()
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return reservation.Reservation{}, err
	}

	noShow, err := r.MarkNoShow(now)
	if err != nil {
		return reservation.Reservation{}, err
	}

	persisted, err := s.store.UpdateReservation(ctx, noShow)
	if err != nil {
		return reservation.Reservation{}, err
	}

	metrics.IncStaffDecision("no_show")
	s.invalidateAvailability(ctx, persisted)
	return persisted, nil
}

// CheckIn stamps the arrival: status, CheckedInAt and ActualStart
// change together and are persisted as one write.
func (s *Service) CheckIn(ctx context.Context, id string) (reservation.Reservation, error) {
	now := s.now()
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return reservation.Reservation{}, err
	}

	checkedIn, err := r.CheckIn(now)
	if err != nil {
		return reservation.Reservation{}, err
	}

	persisted, err := s.store.UpdateReservation(ctx, checkedIn)
	if err != nil {
		return reservation.Reservation{}, err
	}

	s.setDeviceStatus(ctx, persisted.AssignedDeviceID, catalog.DeviceInUse)

	metrics.IncCheckIn()
	s.logger.Info().
		Str("reservation", persisted.Number).
		Str("device", persisted.AssignedDeviceNumber).
		Msg("customer checked in")

	s.send(ctx, notify.Notification{
		CustomerID: persisted.CustomerID,
		Type:       "reservation_checked_in",
		Title:      "Checked in",
		Body:       fmt.Sprintf("Enjoy your session on %s.", persisted.AssignedDeviceNumber),
		Metadata:   map[string]string{"reservation_id": persisted.ID},
	})

	return persisted, nil
}

// setDeviceStatus flips a unit's operational status as a side effect
// of a reservation transition. The transition is already committed, so
// a failure here is logged and reported to the caller, not escalated.
func (s *Service) setDeviceStatus(ctx context.Context, deviceID string, status catalog.DeviceStatus) bool {
	err := s.updateHierarchy(func(h catalog.Hierarchy) (catalog.Hierarchy, error) {
		return h.SetDeviceStatus(deviceID, status)
	}, func(h catalog.Hierarchy) error {
		d, ok := h.Device(deviceID)
		if !ok {
			return &catalog.NotFoundError{Kind: "device", ID: deviceID}
		}
		return s.catStore.SaveDevice(ctx, d)
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("device", deviceID).
			Str("status", string(status)).
			Msg("update device status")
		return false
	}
	return true
}

// send delivers a notification, logging failures without surfacing
// them: the state transition already happened.
func (s *Service) send(ctx context.Context, n notify.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Error().Err(err).Str("type", n.Type).Msg("notification failed")
	}
}
