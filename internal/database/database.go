// Package database persists reservations, time adjustments and the
// device catalog in SQLite.
package database

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when an optimistic update lost the
	// race; the caller must re-read and re-validate.
	ErrVersionConflict = errors.New("version conflict")
)

// DB wraps sql.DB for the reservation service.
type DB struct {
	*sql.DB
}

// New opens the database at path and runs migrations.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			display_order INTEGER NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT 1
		)`,

		`CREATE TABLE IF NOT EXISTS device_types (
			id TEXT PRIMARY KEY,
			category_id TEXT NOT NULL,
			name TEXT NOT NULL,
			hourly_rate INTEGER NOT NULL DEFAULT 0,
			min_hours INTEGER NOT NULL DEFAULT 1,
			max_hours INTEGER NOT NULL DEFAULT 12,
			play_modes TEXT,
			active BOOLEAN NOT NULL DEFAULT 1,
			UNIQUE (category_id, name),
			FOREIGN KEY (category_id) REFERENCES categories(id)
		)`,

		`CREATE TABLE IF NOT EXISTS devices (
			id TEXT PRIMARY KEY,
			type_id TEXT NOT NULL,
			number TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'available',
			location TEXT,
			notes TEXT,
			UNIQUE (type_id, number),
			FOREIGN KEY (type_id) REFERENCES device_types(id)
		)`,

		`CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			number TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			requested_type_id TEXT NOT NULL,
			assigned_device_id TEXT,
			assigned_device_number TEXT,
			date TEXT NOT NULL,
			start_hour INTEGER NOT NULL,
			end_hour INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			rejection_reason TEXT,
			checked_in_at DATETIME,
			actual_start DATETIME,
			actual_end DATETIME,
			note TEXT,
			total_amount INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			version INTEGER NOT NULL DEFAULT 1
		)`,

		// Last line of defense against concurrent approvals of the same
		// device slot: active statuses may not share (device, date, slot).
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_active_device_slot
			ON reservations (assigned_device_id, date, start_hour, end_hour)
			WHERE status IN ('approved', 'checked_in') AND assigned_device_id IS NOT NULL`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_customer ON reservations (customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_date ON reservations (date)`,

		`CREATE TABLE IF NOT EXISTS time_adjustments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reservation_id TEXT NOT NULL,
			original_start DATETIME NOT NULL,
			original_end DATETIME NOT NULL,
			actual_start DATETIME NOT NULL,
			actual_end DATETIME NOT NULL,
			reason TEXT NOT NULL,
			detail TEXT,
			adjusted_by TEXT NOT NULL,
			adjusted_at DATETIME NOT NULL,
			FOREIGN KEY (reservation_id) REFERENCES reservations(id)
		)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}
