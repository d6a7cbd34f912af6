package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"arcadia/internal/catalog"
	"arcadia/internal/clock"
	"arcadia/internal/reservation"
	"arcadia/internal/slots"
)

// Availability partitions the catalog slots of one day into free and
// taken, from the customer's point of view.
type Availability struct {
	Date      string       `json:"date"`
	Available []slots.Slot `json:"available"`
	Reserved  []slots.Slot `json:"reserved"`
}

// DeviceAvailability reports which catalog slots are free on a single
// unit for the given day. A slot is reserved when any active
// reservation on the device overlaps it.
func (s *Service) DeviceAvailability(ctx context.Context, deviceID string, date clock.Time) (Availability, error) {
	if _, ok := s.Hierarchy().Device(deviceID); !ok {
		return Availability{}, &catalog.NotFoundError{Kind: "device", ID: deviceID}
	}

	key := availabilityKey("device", deviceID, date)
	if av, ok := s.cache.get(ctx, key); ok {
		return av, nil
	}

	peers, err := s.store.ListDeviceDayReservations(ctx, deviceID, date)
	if err != nil {
		return Availability{}, fmt.Errorf("load device reservations: %w", err)
	}

	av := Availability{Date: date.DateString()}
	for _, slot := range slots.Catalog() {
		if slotTaken(slot, peers) {
			av.Reserved = append(av.Reserved, slot)
		} else {
			av.Available = append(av.Available, slot)
		}
	}

	s.cache.set(ctx, key, av)
	return av, nil
}

// TypeAvailability reports slot availability across every operational
// unit of a device type: a slot is reserved only when active
// reservations fill the whole fleet for that hour range.
func (s *Service) TypeAvailability(ctx context.Context, typeID string, date clock.Time) (Availability, error) {
	h := s.Hierarchy()
	if _, ok := h.Type(typeID); !ok {
		return Availability{}, &catalog.NotFoundError{Kind: "device type", ID: typeID}
	}

	key := availabilityKey("type", typeID, date)
	if av, ok := s.cache.get(ctx, key); ok {
		return av, nil
	}

	capacity := 0
	for _, d := range h.DevicesByType(typeID) {
		if d.Status != catalog.DeviceMaintenance {
			capacity++
		}
	}

	peers, err := s.store.ListTypeDayReservations(ctx, typeID, date)
	if err != nil {
		return Availability{}, fmt.Errorf("load type reservations: %w", err)
	}

	av := Availability{Date: date.DateString()}
	for _, slot := range slots.Catalog() {
		taken := 0
		for _, p := range peers {
			if p.Status.IsActive() && slot.Overlaps(p.Slot) {
				taken++
			}
		}
		if capacity == 0 || taken >= capacity {
			av.Reserved = append(av.Reserved, slot)
		} else {
			av.Available = append(av.Available, slot)
		}
	}

	s.cache.set(ctx, key, av)
	return av, nil
}

func slotTaken(slot slots.Slot, peers []reservation.Reservation) bool {
	for _, p := range peers {
		if p.Status.IsActive() && slot.Overlaps(p.Slot) {
			return true
		}
	}
	return false
}

// invalidateAvailability drops cached availability touched by a
// reservation change.
func (s *Service) invalidateAvailability(ctx context.Context, r reservation.Reservation) {
	keys := []string{availabilityKey("type", r.RequestedTypeID, r.Date)}
	if r.AssignedDeviceID != "" {
		keys = append(keys, availabilityKey("device", r.AssignedDeviceID, r.Date))
	}
	s.cache.del(ctx, keys...)
}

func availabilityKey(kind, id string, date clock.Time) string {
	return fmt.Sprintf("availability:%s:%s:%s", kind, id, date.DateString())
}

// AvailabilityCache is a Redis-backed read cache for availability
// queries. A nil cache is valid and caches nothing.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func (c *AvailabilityCache) get(ctx context.Context, key string) (Availability, bool) {
	if c == nil || c.client == nil {
		return Availability{}, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return Availability{}, false
	}
	var av Availability
	if err := json.Unmarshal(raw, &av); err != nil {
		return Availability{}, false
	}
	return av, true
}

func (c *AvailabilityCache) set(ctx context.Context, key string, av Availability) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(av)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, c.ttl)
}

func (c *AvailabilityCache) del(ctx context.Context, keys ...string) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}
	c.client.Del(ctx, keys...)
}
