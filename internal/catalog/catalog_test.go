package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustValidate is the post-condition of every mutator in these tests:
// the derived indexes always match the entity maps.
func mustValidate(t *testing.T, h Hierarchy) Hierarchy {
	t.Helper()
	if violations := h.Validate(); len(violations) > 0 {
		t.Fatalf("hierarchy inconsistent: %v", violations)
	}
	return h
}

func seedHierarchy(t *testing.T) Hierarchy {
	t.Helper()
	h := NewHierarchy()

	h, err := h.AddCategory(Category{ID: "cat-rhythm", Name: "Rhythm", DisplayOrder: 1, Active: true})
	require.NoError(t, err)
	h, err = h.AddCategory(Category{ID: "cat-racing", Name: "Racing", DisplayOrder: 2, Active: true})
	require.NoError(t, err)
	h, err = h.AddType(DeviceType{ID: "type-ddr", CategoryID: "cat-rhythm", Name: "DDR", HourlyRate: 12000, MinHours: 1, MaxHours: 4, Active: true})
	require.NoError(t, err)
	h, err = h.AddDevice(Device{ID: "dev-1", TypeID: "type-ddr", Number: "DDR-01", Status: DeviceAvailable})
	require.NoError(t, err)
	h, err = h.AddDevice(Device{ID: "dev-2", TypeID: "type-ddr", Number: "DDR-02", Status: DeviceAvailable})
	require.NoError(t, err)

	return mustValidate(t, h)
}

func TestAddCategory(t *testing.T) {
	h := seedHierarchy(t)

	t.Run("duplicate id", func(t *testing.T) {
		_, err := h.AddCategory(Category{ID: "cat-rhythm", Name: "Other"})
		var inv *InvariantViolationError
		assert.ErrorAs(t, err, &inv)
	})

	t.Run("duplicate name aggregate-wide", func(t *testing.T) {
		_, err := h.AddCategory(Category{ID: "cat-x", Name: "Rhythm"})
		assert.Error(t, err)
	})

	t.Run("ordering", func(t *testing.T) {
		cats := h.Categories()
		require.Len(t, cats, 2)
		assert.Equal(t, "Rhythm", cats[0].Name)
		assert.Equal(t, "Racing", cats[1].Name)
	})
}

func TestAddTypeLifecycle(t *testing.T) {
	h := NewHierarchy()

	t.Run("type before category fails", func(t *testing.T) {
		_, err := h.AddType(DeviceType{ID: "type-x", CategoryID: "cat-missing", Name: "X"})
		var nf *NotFoundError
		assert.ErrorAs(t, err, &nf)
	})

	h, err := h.AddCategory(Category{ID: "cat-1", Name: "Rhythm", Active: true})
	require.NoError(t, err)
	h, err = h.AddType(DeviceType{ID: "type-1", CategoryID: "cat-1", Name: "DDR", HourlyRate: 10000})
	require.NoError(t, err)
	mustValidate(t, h)

	t.Run("remove category blocked while type exists", func(t *testing.T) {
		_, err := h.RemoveCategory("cat-1")
		var inv *InvariantViolationError
		require.ErrorAs(t, err, &inv)
	})

	t.Run("remove type then category succeeds", func(t *testing.T) {
		h2, err := h.RemoveType("type-1")
		require.NoError(t, err)
		mustValidate(t, h2)

		h2, err = h2.RemoveCategory("cat-1")
		require.NoError(t, err)
		mustValidate(t, h2)
		assert.Empty(t, h2.Categories())
	})

	t.Run("duplicate type name within category", func(t *testing.T) {
		_, err := h.AddType(DeviceType{ID: "type-2", CategoryID: "cat-1", Name: "DDR"})
		assert.Error(t, err)
	})
}

func TestDeviceLifecycle(t *testing.T) {
	h := seedHierarchy(t)

	t.Run("device before type fails", func(t *testing.T) {
		_, err := h.AddDevice(Device{ID: "dev-x", TypeID: "type-missing", Number: "X-01"})
		var nf *NotFoundError
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("duplicate number within type", func(t *testing.T) {
		_, err := h.AddDevice(Device{ID: "dev-3", TypeID: "type-ddr", Number: "DDR-01"})
		assert.Error(t, err)
	})

	t.Run("remove type blocked while devices exist", func(t *testing.T) {
		_, err := h.RemoveType("type-ddr")
		var inv *InvariantViolationError
		assert.ErrorAs(t, err, &inv)
	})

	t.Run("remove device updates index", func(t *testing.T) {
		h2, err := h.RemoveDevice("dev-1")
		require.NoError(t, err)
		mustValidate(t, h2)
		assert.Len(t, h2.DevicesByType("type-ddr"), 1)

		// Original aggregate untouched.
		assert.Len(t, h.DevicesByType("type-ddr"), 2)
	})

	t.Run("default status is available", func(t *testing.T) {
		h2, err := h.AddDevice(Device{ID: "dev-9", TypeID: "type-ddr", Number: "DDR-09"})
		require.NoError(t, err)
		d, ok := h2.Device("dev-9")
		require.True(t, ok)
		assert.Equal(t, DeviceAvailable, d.Status)
	})
}

func TestMoveType(t *testing.T) {
	h := seedHierarchy(t)

	moved, err := h.MoveType("type-ddr", "cat-racing")
	require.NoError(t, err)
	mustValidate(t, moved)

	assert.Empty(t, moved.TypesByCategory("cat-rhythm"))
	types := moved.TypesByCategory("cat-racing")
	require.Len(t, types, 1)
	assert.Equal(t, "type-ddr", types[0].ID)
	assert.Equal(t, "cat-racing", types[0].CategoryID)

	// Device associations unchanged by the move.
	assert.Len(t, moved.DevicesByType("type-ddr"), 2)

	t.Run("move to missing category", func(t *testing.T) {
		_, err := h.MoveType("type-ddr", "cat-missing")
		var nf *NotFoundError
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("move to same category is a no-op", func(t *testing.T) {
		same, err := h.MoveType("type-ddr", "cat-rhythm")
		require.NoError(t, err)
		assert.Len(t, same.TypesByCategory("cat-rhythm"), 1)
	})

	t.Run("name collision in target category", func(t *testing.T) {
		h2, err := h.AddType(DeviceType{ID: "type-ddr2", CategoryID: "cat-racing", Name: "DDR"})
		require.NoError(t, err)
		_, err = h2.MoveType("type-ddr", "cat-racing")
		var inv *InvariantViolationError
		assert.ErrorAs(t, err, &inv)
	})
}

func TestUpdateEntities(t *testing.T) {
	h := seedHierarchy(t)

	t.Run("update category", func(t *testing.T) {
		h2, err := h.UpdateCategory(Category{ID: "cat-rhythm", Name: "Rhythm Games", DisplayOrder: 5, Active: false})
		require.NoError(t, err)
		mustValidate(t, h2)
		c, _ := h2.Category("cat-rhythm")
		assert.Equal(t, "Rhythm Games", c.Name)
	})

	t.Run("update category name collision", func(t *testing.T) {
		_, err := h.UpdateCategory(Category{ID: "cat-rhythm", Name: "Racing"})
		assert.Error(t, err)
	})

	t.Run("update type cannot change category", func(t *testing.T) {
		tp, _ := h.Type("type-ddr")
		tp.CategoryID = "cat-racing"
		_, err := h.UpdateType(tp)
		var inv *InvariantViolationError
		assert.ErrorAs(t, err, &inv)
	})

	t.Run("update type rate", func(t *testing.T) {
		tp, _ := h.Type("type-ddr")
		tp.HourlyRate = 15000
		h2, err := h.UpdateType(tp)
		require.NoError(t, err)
		mustValidate(t, h2)
		got, _ := h2.Type("type-ddr")
		assert.Equal(t, int64(15000), got.HourlyRate)
	})

	t.Run("update device cannot change type", func(t *testing.T) {
		d, _ := h.Device("dev-1")
		d.TypeID = "type-other"
		_, err := h.UpdateDevice(d)
		assert.Error(t, err)
	})
}

func TestAvailableDevice(t *testing.T) {
	h := seedHierarchy(t)

	t.Run("first fit by number", func(t *testing.T) {
		d, ok := h.AvailableDevice("type-ddr")
		require.True(t, ok)
		assert.Equal(t, "DDR-01", d.Number)
	})

	t.Run("skips busy units", func(t *testing.T) {
		h2, err := h.SetDeviceStatus("dev-1", DeviceInUse)
		require.NoError(t, err)
		mustValidate(t, h2)

		d, ok := h2.AvailableDevice("type-ddr")
		require.True(t, ok)
		assert.Equal(t, "DDR-02", d.Number)
	})

	t.Run("none available", func(t *testing.T) {
		h2, _ := h.SetDeviceStatus("dev-1", DeviceMaintenance)
		h2, _ = h2.SetDeviceStatus("dev-2", DeviceInUse)
		_, ok := h2.AvailableDevice("type-ddr")
		assert.False(t, ok)
	})
}

func TestValidateDetectsCorruption(t *testing.T) {
	h := seedHierarchy(t)
	assert.Empty(t, h.Validate())

	t.Run("orphan type", func(t *testing.T) {
		broken := h.clone()
		delete(broken.categories, "cat-rhythm")
		violations := broken.Validate()
		assert.NotEmpty(t, violations)
	})

	t.Run("dangling index entry", func(t *testing.T) {
		broken := h.clone()
		broken.devicesByType["type-ddr"]["dev-ghost"] = struct{}{}
		violations := broken.Validate()
		require.NotEmpty(t, violations)
		assert.Contains(t, violations[0], "dev-ghost")
	})

	t.Run("entity missing from index", func(t *testing.T) {
		broken := h.clone()
		delete(broken.devicesByType["type-ddr"], "dev-1")
		assert.NotEmpty(t, broken.Validate())
	})
}
