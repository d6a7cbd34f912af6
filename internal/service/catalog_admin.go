package service

import (
	"context"

	"arcadia/internal/catalog"
)

// Catalog admin operations. Each one applies the change to the
// in-memory aggregate first, so every hierarchy invariant is enforced
// before anything touches the store. Mutation, persist and snapshot
// swap run as one locked sequence in updateHierarchy, so concurrent
// admin calls serialize instead of overwriting each other.

func (s *Service) AddCategory(ctx context.Context, c catalog.Category) error {
	return s.updateHierarchy(func(h catalog.Hierarchy) (catalog.Hierarchy, error) {
		return h.AddCategory(c)
	}, func(catalog.Hierarchy) error {
		return s.catStore.SaveCategory(ctx, c)
	})
}

func (s *Service) UpdateCategory(ctx context.Context, c catalog.Category) error {
	return s.updateHierarchy(func(h catalog.Hierarchy) (catalog.Hierarchy, error) {
		return h.UpdateCategory(c)
	}, func(catalog.Hierarchy) error {
		return s.catStore.SaveCategory(ctx, c)
	})
}

func (s *Service) RemoveCategory(ctx context.Context, id string) error {
	return s.updateHierarchy(func(h catalog.Hierarchy) (catalog.Hierarchy, error) {
		return h.RemoveCategory(id)
	}, func(catalog.Hierarchy) error {
		return s.catStore.DeleteCategory(ctx, id)
	})
}

func (s *Service) AddType(ctx context.Context, t catalog.DeviceType) error {
	return s.updateHierarchy(func(h catalog.Hierarchy) (catalog.Hierarchy, error) {
		return h.AddType(t)
	}, func(catalog.Hierarchy) error {
		return s.catStore.SaveType(ctx, t)
	})
}

func (s *Service) UpdateType(ctx context.Context, t catalog.DeviceType) error {
	return s.updateHierarchy(func(h catalog.Hierarchy) (catalog.Hierarchy, error) {
		return h.UpdateType(t)
	}, func(catalog.Hierarchy) error {
		return s.catStore.SaveType(ctx, t)
	})
}

// MoveType re-parents a device type. The aggregate applies the move
// atomically; the store only sees the final row.
func (s *Service) MoveType(ctx context.Context, typeID, newCategoryID string) error {
	return s.updateHierarchy(func(h catalog.Hierarchy) (catalog.Hierarchy, error) {
		return h.MoveType(typeID, newCategoryID)
	}, func(h catalog.Hierarchy) error {
		moved, _ := h.Type(typeID)
		return s.catStore.SaveType(ctx, moved)
	})
}

func (s *Service) RemoveType(ctx context.Context, id string) error {
	return s.updateHierarchy(func(h catalog.Hierarchy) (catalog.Hierarchy, error) {
		return h.RemoveType(id)
	}, func(catalog.Hierarchy) error {
		return s.catStore.DeleteType(ctx, id)
	})
}

func (s *Service) AddDevice(ctx context.Context, d catalog.Device) error {
	return s.updateHierarchy(func(h catalog.Hierarchy) (catalog.Hierarchy, error) {
		return h.AddDevice(d)
	}, func(h catalog.Hierarchy) error {
		// The aggregate may have defaulted the status.
		saved, _ := h.Device(d.ID)
		return s.catStore.SaveDevice(ctx, saved)
	})
}

func (s *Service) UpdateDevice(ctx context.Context, d catalog.Device) error {
	return s.updateHierarchy(func(h catalog.Hierarchy) (catalog.Hierarchy, error) {
		return h.UpdateDevice(d)
	}, func(catalog.Hierarchy) error {
		return s.catStore.SaveDevice(ctx, d)
	})
}

func (s *Service) SetDeviceStatus(ctx context.Context, id string, status catalog.DeviceStatus) error {
	return s.updateHierarchy(func(h catalog.Hierarchy) (catalog.Hierarchy, error) {
		return h.SetDeviceStatus(id, status)
	}, func(h catalog.Hierarchy) error {
		d, _ := h.Device(id)
		return s.catStore.SaveDevice(ctx, d)
	})
}

func (s *Service) RemoveDevice(ctx context.Context, id string) error {
	return s.updateHierarchy(func(h catalog.Hierarchy) (catalog.Hierarchy, error) {
		return h.RemoveDevice(id)
	}, func(catalog.Hierarchy) error {
		return s.catStore.DeleteDevice(ctx, id)
	})
}
