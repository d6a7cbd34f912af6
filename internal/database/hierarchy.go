package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"arcadia/internal/catalog"
)

// LoadHierarchy rebuilds the in-memory catalog aggregate from the
// entity tables. Rows are applied parent-first so referential checks in
// the aggregate hold during the rebuild.
func (db *DB) LoadHierarchy(ctx context.Context) (catalog.Hierarchy, error) {
	h := catalog.NewHierarchy()

	rows, err := db.QueryContext(ctx,
		`SELECT id, name, display_order, active FROM categories ORDER BY display_order, name`)
	if err != nil {
		return h, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.DisplayOrder, &c.Active); err != nil {
			return h, err
		}
		if h, err = h.AddCategory(c); err != nil {
			return h, fmt.Errorf("load category %s: %w", c.ID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return h, err
	}

	typeRows, err := db.QueryContext(ctx,
		`SELECT id, category_id, name, hourly_rate, min_hours, max_hours, play_modes, active
		 FROM device_types ORDER BY name`)
	if err != nil {
		return h, fmt.Errorf("load device types: %w", err)
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var t catalog.DeviceType
		var modes sql.NullString
		if err := typeRows.Scan(&t.ID, &t.CategoryID, &t.Name, &t.HourlyRate,
			&t.MinHours, &t.MaxHours, &modes, &t.Active); err != nil {
			return h, err
		}
		if modes.Valid && modes.String != "" {
			if err := json.Unmarshal([]byte(modes.String), &t.PlayModes); err != nil {
				return h, fmt.Errorf("device type %s play modes: %w", t.ID, err)
			}
		}
		if h, err = h.AddType(t); err != nil {
			return h, fmt.Errorf("load device type %s: %w", t.ID, err)
		}
	}
	if err := typeRows.Err(); err != nil {
		return h, err
	}

	deviceRows, err := db.QueryContext(ctx,
		`SELECT id, type_id, number, status, location, notes FROM devices ORDER BY number`)
	if err != nil {
		return h, fmt.Errorf("load devices: %w", err)
	}
	defer deviceRows.Close()
	for deviceRows.Next() {
		var d catalog.Device
		var location, notes sql.NullString
		var status string
		if err := deviceRows.Scan(&d.ID, &d.TypeID, &d.Number, &status, &location, &notes); err != nil {
			return h, err
		}
		d.Status = catalog.DeviceStatus(status)
		d.Location = location.String
		d.Notes = notes.String
		if h, err = h.AddDevice(d); err != nil {
			return h, fmt.Errorf("load device %s: %w", d.ID, err)
		}
	}
	return h, deviceRows.Err()
}

// SaveCategory upserts a category row.
func (db *DB) SaveCategory(ctx context.Context, c catalog.Category) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO categories (id, name, display_order, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			display_order = excluded.display_order,
			active = excluded.active`,
		c.ID, c.Name, c.DisplayOrder, c.Active)
	if err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	return nil
}

// DeleteCategory removes a category row.
func (db *DB) DeleteCategory(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// SaveType upserts a device type row.
func (db *DB) SaveType(ctx context.Context, t catalog.DeviceType) error {
	var modes []byte
	if len(t.PlayModes) > 0 {
		var err error
		if modes, err = json.Marshal(t.PlayModes); err != nil {
			return fmt.Errorf("marshal play modes: %w", err)
		}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO device_types (id, category_id, name, hourly_rate, min_hours, max_hours, play_modes, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			category_id = excluded.category_id,
			name = excluded.name,
			hourly_rate = excluded.hourly_rate,
			min_hours = excluded.min_hours,
			max_hours = excluded.max_hours,
			play_modes = excluded.play_modes,
			active = excluded.active`,
		t.ID, t.CategoryID, t.Name, t.HourlyRate, t.MinHours, t.MaxHours,
		nullString(string(modes)), t.Active)
	if err != nil {
		return fmt.Errorf("save device type: %w", err)
	}
	return nil
}

// DeleteType removes a device type row.
func (db *DB) DeleteType(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM device_types WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete device type: %w", err)
	}
	return nil
}

// SaveDevice upserts a device row.
func (db *DB) SaveDevice(ctx context.Context, d catalog.Device) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO devices (id, type_id, number, status, location, notes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			type_id = excluded.type_id,
			number = excluded.number,
			status = excluded.status,
			location = excluded.location,
			notes = excluded.notes`,
		d.ID, d.TypeID, d.Number, string(d.Status),
		nullString(d.Location), nullString(d.Notes))
	if err != nil {
		return fmt.Errorf("save device: %w", err)
	}
	return nil
}

// DeleteDevice removes a device row.
func (db *DB) DeleteDevice(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}
