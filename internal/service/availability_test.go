package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"arcadia/internal/catalog"
	"arcadia/internal/clock"
	"arcadia/internal/reservation"
	"arcadia/internal/slots"
)

func TestDeviceAvailability(t *testing.T) {
	ctx := context.Background()
	date := clock.Date(2025, 7, 10, 0, 0)

	t.Run("active reservations block overlapping slots", func(t *testing.T) {
		svc, store, _, _ := newTestService(t)
		r := reservation.New("cust-1", "type-ddr", date, mustSlot(t, 14, 16), "", clock.Date(2025, 7, 1, 9, 0))
		approved, err := r.ApproveWithDevice("dev-1", "DDR-01", clock.Date(2025, 7, 1, 9, 30))
		require.NoError(t, err)
		store.On("ListDeviceDayReservations", ctx, "dev-1", date).Return([]reservation.Reservation{approved}, nil).Once()

		av, err := svc.DeviceAvailability(ctx, "dev-1", date)
		require.NoError(t, err)
		require.Len(t, av.Reserved, 1)
		assert.Equal(t, "14:00-16:00", av.Reserved[0].Label())
		assert.Len(t, av.Available, len(slots.Catalog())-1)
	})

	t.Run("pending and final reservations do not block", func(t *testing.T) {
		svc, store, _, _ := newTestService(t)
		pending := reservation.New("cust-1", "type-ddr", date, mustSlot(t, 14, 16), "", clock.Date(2025, 7, 1, 9, 0))
		done := reservation.New("cust-2", "type-ddr", date, mustSlot(t, 18, 20), "", clock.Date(2025, 7, 1, 9, 0))
		cancelled, err := done.Cancel(clock.Date(2025, 7, 2, 9, 0))
		require.NoError(t, err)
		store.On("ListDeviceDayReservations", ctx, "dev-1", date).
			Return([]reservation.Reservation{pending, cancelled}, nil).Once()

		av, err := svc.DeviceAvailability(ctx, "dev-1", date)
		require.NoError(t, err)
		assert.Empty(t, av.Reserved)
		assert.Len(t, av.Available, len(slots.Catalog()))
	})

	t.Run("unknown device", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)
		_, err := svc.DeviceAvailability(ctx, "dev-nope", date)
		var nf *catalog.NotFoundError
		require.ErrorAs(t, err, &nf)
	})

	t.Run("cache serves repeat queries and is dropped on writes", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

		svc, store, _, _ := newTestService(t)
		svc.UseCache(NewAvailabilityCache(client, 5*time.Minute))

		store.On("ListDeviceDayReservations", ctx, "dev-1", date).Return([]reservation.Reservation{}, nil).Once()

		first, err := svc.DeviceAvailability(ctx, "dev-1", date)
		require.NoError(t, err)
		second, err := svc.DeviceAvailability(ctx, "dev-1", date)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		store.AssertExpectations(t)

		// A reservation change on the device invalidates the entry.
		r := reservation.New("cust-1", "type-ddr", date, mustSlot(t, 14, 16), "", clock.Date(2025, 7, 1, 9, 0))
		r.AssignedDeviceID = "dev-1"
		svc.invalidateAvailability(ctx, r)

		store.On("ListDeviceDayReservations", ctx, "dev-1", date).Return([]reservation.Reservation{}, nil).Once()
		_, err = svc.DeviceAvailability(ctx, "dev-1", date)
		require.NoError(t, err)
		store.AssertExpectations(t)
	})
}

func TestTypeAvailability(t *testing.T) {
	ctx := context.Background()
	date := clock.Date(2025, 7, 10, 0, 0)

	build := func(t *testing.T, device, number string) reservation.Reservation {
		r := reservation.New("cust-x", "type-ddr", date, mustSlot(t, 14, 16), "", clock.Date(2025, 7, 1, 9, 0))
		approved, err := r.ApproveWithDevice(device, number, clock.Date(2025, 7, 1, 9, 30))
		require.NoError(t, err)
		return approved
	}

	t.Run("slot stays open while any unit is free", func(t *testing.T) {
		svc, store, _, _ := newTestService(t)
		store.On("ListTypeDayReservations", ctx, "type-ddr", date).
			Return([]reservation.Reservation{build(t, "dev-1", "DDR-01")}, nil).Once()

		av, err := svc.TypeAvailability(ctx, "type-ddr", date)
		require.NoError(t, err)
		assert.Empty(t, av.Reserved)
	})

	t.Run("slot closes when the fleet is full", func(t *testing.T) {
		svc, store, _, _ := newTestService(t)
		store.On("ListTypeDayReservations", ctx, "type-ddr", date).
			Return([]reservation.Reservation{build(t, "dev-1", "DDR-01"), build(t, "dev-2", "DDR-02")}, nil).Once()

		av, err := svc.TypeAvailability(ctx, "type-ddr", date)
		require.NoError(t, err)
		require.Len(t, av.Reserved, 1)
		assert.Equal(t, 14, av.Reserved[0].StartHour)
	})

	t.Run("maintenance shrinks capacity", func(t *testing.T) {
		svc, store, catStore, _ := newTestService(t)
		catStore.On("SaveDevice", ctx, mock.Anything).Return(nil).Once()
		require.NoError(t, svc.SetDeviceStatus(ctx, "dev-2", catalog.DeviceMaintenance))
		store.On("ListTypeDayReservations", ctx, "type-ddr", date).
			Return([]reservation.Reservation{build(t, "dev-1", "DDR-01")}, nil).Once()

		av, err := svc.TypeAvailability(ctx, "type-ddr", date)
		require.NoError(t, err)
		require.Len(t, av.Reserved, 1)
	})
}
