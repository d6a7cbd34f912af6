// Package catalog maintains the three-level device catalog:
// category -> type -> unit. The aggregate is effectively immutable;
// every mutator returns a new value, so a loaded copy can be shared
// across request handlers without locking.
package catalog

import (
	"fmt"
	"sort"
)

// DeviceStatus is the operational state of a single unit.
type DeviceStatus string

const (
	DeviceAvailable   DeviceStatus = "available"
	DeviceInUse       DeviceStatus = "in_use"
	DeviceMaintenance DeviceStatus = "maintenance"
)

// Valid reports whether s is a known operational state.
func (s DeviceStatus) Valid() bool {
	switch s {
	case DeviceAvailable, DeviceInUse, DeviceMaintenance:
		return true
	}
	return false
}

// Category groups device types, e.g. rhythm games or racing cabinets.
type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"display_order"`
	Active       bool   `json:"active"`
}

// DeviceType is a bookable model within a category.
type DeviceType struct {
	ID         string   `json:"id"`
	CategoryID string   `json:"category_id"`
	Name       string   `json:"name"`
	HourlyRate int64    `json:"hourly_rate"`
	MinHours   int      `json:"min_hours"`
	MaxHours   int      `json:"max_hours"`
	PlayModes  []string `json:"play_modes,omitempty"`
	Active     bool     `json:"active"`
}

// Device is a physical unit of a type.
type Device struct {
	ID       string       `json:"id"`
	TypeID   string       `json:"type_id"`
	Number   string       `json:"number"`
	Status   DeviceStatus `json:"status"`
	Location string       `json:"location,omitempty"`
	Notes    string       `json:"notes,omitempty"`
}

// InvariantViolationError reports a hierarchy integrity breach. It is a
// hard stop, never silently ignored.
type InvariantViolationError struct {
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return "catalog invariant violated: " + e.Reason
}

// NotFoundError reports a missing entity reference.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Hierarchy is the aggregate root: entity maps plus two derived index
// maps that must stay consistent with them.
type Hierarchy struct {
	categories map[string]Category
	types      map[string]DeviceType
	devices    map[string]Device

	typesByCategory map[string]map[string]struct{}
	devicesByType   map[string]map[string]struct{}
}

// NewHierarchy returns an empty aggregate.
func NewHierarchy() Hierarchy {
	return Hierarchy{
		categories:      map[string]Category{},
		types:           map[string]DeviceType{},
		devices:         map[string]Device{},
		typesByCategory: map[string]map[string]struct{}{},
		devicesByType:   map[string]map[string]struct{}{},
	}
}

// clone deep-copies all maps so mutators never alias the receiver.
func (h Hierarchy) clone() Hierarchy {
	next := NewHierarchy()
	for id, c := range h.categories {
		next.categories[id] = c
	}
	for id, t := range h.types {
		next.types[id] = t
	}
	for id, d := range h.devices {
		next.devices[id] = d
	}
	for catID, set := range h.typesByCategory {
		copied := make(map[string]struct{}, len(set))
		for id := range set {
			copied[id] = struct{}{}
		}
		next.typesByCategory[catID] = copied
	}
	for typeID, set := range h.devicesByType {
		copied := make(map[string]struct{}, len(set))
		for id := range set {
			copied[id] = struct{}{}
		}
		next.devicesByType[typeID] = copied
	}
	return next
}

// AddCategory inserts a category. Names are unique aggregate-wide.
func (h Hierarchy) AddCategory(c Category) (Hierarchy, error) {
	if c.ID == "" || c.Name == "" {
		return h, &InvariantViolationError{Reason: "category requires id and name"}
	}
	if _, exists := h.categories[c.ID]; exists {
		return h, &InvariantViolationError{Reason: fmt.Sprintf("category id %q already exists", c.ID)}
	}
	for _, existing := range h.categories {
		if existing.Name == c.Name {
			return h, &InvariantViolationError{Reason: fmt.Sprintf("category name %q already exists", c.Name)}
		}
	}
	next := h.clone()
	next.categories[c.ID] = c
	next.typesByCategory[c.ID] = map[string]struct{}{}
	return next, nil
}

// UpdateCategory replaces a category's mutable fields, keeping the name
// unique.
func (h Hierarchy) UpdateCategory(c Category) (Hierarchy, error) {
	if _, exists := h.categories[c.ID]; !exists {
		return h, &NotFoundError{Kind: "category", ID: c.ID}
	}
	for id, existing := range h.categories {
		if id != c.ID && existing.Name == c.Name {
			return h, &InvariantViolationError{Reason: fmt.Sprintf("category name %q already exists", c.Name)}
		}
	}
	next := h.clone()
	next.categories[c.ID] = c
	return next, nil
}

// RemoveCategory fails while the category still has types.
func (h Hierarchy) RemoveCategory(id string) (Hierarchy, error) {
	if _, exists := h.categories[id]; !exists {
		return h, &NotFoundError{Kind: "category", ID: id}
	}
	if len(h.typesByCategory[id]) > 0 {
		return h, &InvariantViolationError{
			Reason: fmt.Sprintf("category %q still has %d type(s)", id, len(h.typesByCategory[id])),
		}
	}
	next := h.clone()
	delete(next.categories, id)
	delete(next.typesByCategory, id)
	return next, nil
}

// AddType inserts a type. Its category must exist; the name is unique
// within that category.
func (h Hierarchy) AddType(t DeviceType) (Hierarchy, error) {
	if t.ID == "" || t.Name == "" {
		return h, &InvariantViolationError{Reason: "device type requires id and name"}
	}
	if _, exists := h.categories[t.CategoryID]; !exists {
		return h, &NotFoundError{Kind: "category", ID: t.CategoryID}
	}
	if _, exists := h.types[t.ID]; exists {
		return h, &InvariantViolationError{Reason: fmt.Sprintf("device type id %q already exists", t.ID)}
	}
	for siblingID := range h.typesByCategory[t.CategoryID] {
		if h.types[siblingID].Name == t.Name {
			return h, &InvariantViolationError{
				Reason: fmt.Sprintf("device type name %q already exists in category %q", t.Name, t.CategoryID),
			}
		}
	}
	next := h.clone()
	next.types[t.ID] = t
	next.typesByCategory[t.CategoryID][t.ID] = struct{}{}
	next.devicesByType[t.ID] = map[string]struct{}{}
	return next, nil
}

// UpdateType replaces a type's fields. The category reference cannot
// change here; MoveType re-parents.
func (h Hierarchy) UpdateType(t DeviceType) (Hierarchy, error) {
	current, exists := h.types[t.ID]
	if !exists {
		return h, &NotFoundError{Kind: "device type", ID: t.ID}
	}
	if t.CategoryID != current.CategoryID {
		return h, &InvariantViolationError{Reason: "use MoveType to change a type's category"}
	}
	for siblingID := range h.typesByCategory[t.CategoryID] {
		if siblingID != t.ID && h.types[siblingID].Name == t.Name {
			return h, &InvariantViolationError{
				Reason: fmt.Sprintf("device type name %q already exists in category %q", t.Name, t.CategoryID),
			}
		}
	}
	next := h.clone()
	next.types[t.ID] = t
	return next, nil
}

// RemoveType fails while the type still has devices.
func (h Hierarchy) RemoveType(id string) (Hierarchy, error) {
	t, exists := h.types[id]
	if !exists {
		return h, &NotFoundError{Kind: "device type", ID: id}
	}
	if len(h.devicesByType[id]) > 0 {
		return h, &InvariantViolationError{
			Reason: fmt.Sprintf("device type %q still has %d device(s)", id, len(h.devicesByType[id])),
		}
	}
	next := h.clone()
	delete(next.types, id)
	delete(next.devicesByType, id)
	delete(next.typesByCategory[t.CategoryID], id)
	return next, nil
}

// MoveType re-parents a type. Entity map and both index maps update in
// the same returned value, so a partial move is never observable.
// Device associations do not change.
func (h Hierarchy) MoveType(typeID, newCategoryID string) (Hierarchy, error) {
	t, exists := h.types[typeID]
	if !exists {
		return h, &NotFoundError{Kind: "device type", ID: typeID}
	}
	if _, exists := h.categories[newCategoryID]; !exists {
		return h, &NotFoundError{Kind: "category", ID: newCategoryID}
	}
	if t.CategoryID == newCategoryID {
		return h, nil
	}
	for siblingID := range h.typesByCategory[newCategoryID] {
		if h.types[siblingID].Name == t.Name {
			return h, &InvariantViolationError{
				Reason: fmt.Sprintf("device type name %q already exists in category %q", t.Name, newCategoryID),
			}
		}
	}
	next := h.clone()
	delete(next.typesByCategory[t.CategoryID], typeID)
	t.CategoryID = newCategoryID
	next.types[typeID] = t
	next.typesByCategory[newCategoryID][typeID] = struct{}{}
	return next, nil
}

// AddDevice inserts a unit. Its type must exist; the device number is
// unique within that type.
func (h Hierarchy) AddDevice(d Device) (Hierarchy, error) {
	if d.ID == "" || d.Number == "" {
		return h, &InvariantViolationError{Reason: "device requires id and number"}
	}
	if _, exists := h.types[d.TypeID]; !exists {
		return h, &NotFoundError{Kind: "device type", ID: d.TypeID}
	}
	if _, exists := h.devices[d.ID]; exists {
		return h, &InvariantViolationError{Reason: fmt.Sprintf("device id %q already exists", d.ID)}
	}
	for siblingID := range h.devicesByType[d.TypeID] {
		if h.devices[siblingID].Number == d.Number {
			return h, &InvariantViolationError{
				Reason: fmt.Sprintf("device number %q already exists for type %q", d.Number, d.TypeID),
			}
		}
	}
	if d.Status == "" {
		d.Status = DeviceAvailable
	}
	if !d.Status.Valid() {
		return h, &InvariantViolationError{Reason: fmt.Sprintf("unknown device status %q", d.Status)}
	}
	next := h.clone()
	next.devices[d.ID] = d
	next.devicesByType[d.TypeID][d.ID] = struct{}{}
	return next, nil
}

// UpdateDevice replaces a device's fields within its type.
func (h Hierarchy) UpdateDevice(d Device) (Hierarchy, error) {
	current, exists := h.devices[d.ID]
	if !exists {
		return h, &NotFoundError{Kind: "device", ID: d.ID}
	}
	if d.TypeID != current.TypeID {
		return h, &InvariantViolationError{Reason: "a device cannot change type"}
	}
	for siblingID := range h.devicesByType[d.TypeID] {
		if siblingID != d.ID && h.devices[siblingID].Number == d.Number {
			return h, &InvariantViolationError{
				Reason: fmt.Sprintf("device number %q already exists for type %q", d.Number, d.TypeID),
			}
		}
	}
	next := h.clone()
	next.devices[d.ID] = d
	return next, nil
}

// SetDeviceStatus stamps a unit's operational state, e.g. releasing it
// back to available after an auto-completed reservation.
func (h Hierarchy) SetDeviceStatus(deviceID string, status DeviceStatus) (Hierarchy, error) {
	if !status.Valid() {
		return h, &InvariantViolationError{Reason: fmt.Sprintf("unknown device status %q", status)}
	}
	d, exists := h.devices[deviceID]
	if !exists {
		return h, &NotFoundError{Kind: "device", ID: deviceID}
	}
	next := h.clone()
	d.Status = status
	next.devices[deviceID] = d
	return next, nil
}

// RemoveDevice deletes a unit.
func (h Hierarchy) RemoveDevice(id string) (Hierarchy, error) {
	d, exists := h.devices[id]
	if !exists {
		return h, &NotFoundError{Kind: "device", ID: id}
	}
	next := h.clone()
	delete(next.devices, id)
	delete(next.devicesByType[d.TypeID], id)
	return next, nil
}

// Category looks up a category by id.
func (h Hierarchy) Category(id string) (Category, bool) {
	c, ok := h.categories[id]
	return c, ok
}

// Type looks up a device type by id.
func (h Hierarchy) Type(id string) (DeviceType, bool) {
	t, ok := h.types[id]
	return t, ok
}

// Device looks up a unit by id.
func (h Hierarchy) Device(id string) (Device, bool) {
	d, ok := h.devices[id]
	return d, ok
}

// Categories returns all categories ordered by display order, then name.
func (h Hierarchy) Categories() []Category {
	out := make([]Category, 0, len(h.categories))
	for _, c := range h.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TypesByCategory returns a category's types sorted by name.
func (h Hierarchy) TypesByCategory(categoryID string) []DeviceType {
	out := make([]DeviceType, 0, len(h.typesByCategory[categoryID]))
	for id := range h.typesByCategory[categoryID] {
		out = append(out, h.types[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DevicesByType returns a type's units sorted by device number.
func (h Hierarchy) DevicesByType(typeID string) []Device {
	out := make([]Device, 0, len(h.devicesByType[typeID]))
	for id := range h.devicesByType[typeID] {
		out = append(out, h.devices[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// AvailableDevice returns the first available unit of a type in device
// number order. Assignment is first-fit; there is no load balancing.
func (h Hierarchy) AvailableDevice(typeID string) (Device, bool) {
	for _, d := range h.DevicesByType(typeID) {
		if d.Status == DeviceAvailable {
			return d, true
		}
	}
	return Device{}, false
}

// Validate sweeps the aggregate for inconsistencies: orphan types,
// orphan devices and dangling index entries. It returns human-readable
// violations instead of failing, so it doubles as a health check.
func (h Hierarchy) Validate() []string {
	var violations []string

	for id, t := range h.types {
		if _, ok := h.categories[t.CategoryID]; !ok {
			violations = append(violations, fmt.Sprintf("type %q references missing category %q", id, t.CategoryID))
		}
		if set, ok := h.typesByCategory[t.CategoryID]; !ok {
			violations = append(violations, fmt.Sprintf("type %q has no index bucket for category %q", id, t.CategoryID))
		} else if _, ok := set[id]; !ok {
			violations = append(violations, fmt.Sprintf("type %q missing from typesByCategory[%q]", id, t.CategoryID))
		}
	}

	for id, d := range h.devices {
		if _, ok := h.types[d.TypeID]; !ok {
			violations = append(violations, fmt.Sprintf("device %q references missing type %q", id, d.TypeID))
		}
		if set, ok := h.devicesByType[d.TypeID]; !ok {
			violations = append(violations, fmt.Sprintf("device %q has no index bucket for type %q", id, d.TypeID))
		} else if _, ok := set[id]; !ok {
			violations = append(violations, fmt.Sprintf("device %q missing from devicesByType[%q]", id, d.TypeID))
		}
	}

	for catID, set := range h.typesByCategory {
		if _, ok := h.categories[catID]; !ok {
			violations = append(violations, fmt.Sprintf("typesByCategory has bucket for missing category %q", catID))
		}
		for typeID := range set {
			t, ok := h.types[typeID]
			if !ok {
				violations = append(violations, fmt.Sprintf("typesByCategory[%q] references missing type %q", catID, typeID))
			} else if t.CategoryID != catID {
				violations = append(violations, fmt.Sprintf("typesByCategory[%q] holds type %q whose category is %q", catID, typeID, t.CategoryID))
			}
		}
	}

	for typeID, set := range h.devicesByType {
		if _, ok := h.types[typeID]; !ok {
			violations = append(violations, fmt.Sprintf("devicesByType has bucket for missing type %q", typeID))
		}
		for deviceID := range set {
			d, ok := h.devices[deviceID]
			if !ok {
				violations = append(violations, fmt.Sprintf("devicesByType[%q] references missing device %q", typeID, deviceID))
			} else if d.TypeID != typeID {
				violations = append(violations, fmt.Sprintf("devicesByType[%q] holds device %q whose type is %q", typeID, deviceID, d.TypeID))
			}
		}
	}

	return violations
}
