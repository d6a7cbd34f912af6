package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"arcadia/internal/clock"
	"arcadia/internal/reservation"
	"arcadia/internal/slots"
)

// Filter narrows reservation listings.
type Filter struct {
	Status     string
	CustomerID string
	TypeID     string
	DeviceID   string
	DateFrom   string
	DateTo     string
	Limit      int
	Offset     int
}

const reservationColumns = `id, number, customer_id, requested_type_id,
	assigned_device_id, assigned_device_number, date, start_hour, end_hour,
	status, rejection_reason, checked_in_at, actual_start, actual_end,
	note, total_amount, created_at, updated_at, version`

// CreateReservation inserts a new reservation with version 1.
func (db *DB) CreateReservation(ctx context.Context, r reservation.Reservation) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		r.ID, r.Number, r.CustomerID, r.RequestedTypeID,
		nullString(r.AssignedDeviceID), nullString(r.AssignedDeviceNumber),
		r.Date.DateString(), r.Slot.StartHour, r.Slot.EndHour,
		string(r.Status), nullString(r.RejectionReason),
		nullTime(r.CheckedInAt), nullTime(r.ActualStart), nullTime(r.ActualEnd),
		nullString(r.Note), r.TotalAmount,
		r.CreatedAt.Std(), r.UpdatedAt.Std(),
	)
	if err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// GetReservation loads a reservation by id.
func (db *DB) GetReservation(ctx context.Context, id string) (reservation.Reservation, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return reservation.Reservation{}, fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	return r, err
}

// UpdateReservation writes back the whole entity guarded by the version
// it was loaded at. Several fields change together on a transition, so
// partial patches are not supported.
func (db *DB) UpdateReservation(ctx context.Context, r reservation.Reservation) (reservation.Reservation, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE reservations SET
			number = ?, customer_id = ?, requested_type_id = ?,
			assigned_device_id = ?, assigned_device_number = ?,
			date = ?, start_hour = ?, end_hour = ?,
			status = ?, rejection_reason = ?,
			checked_in_at = ?, actual_start = ?, actual_end = ?,
			note = ?, total_amount = ?, updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?`,
		r.Number, r.CustomerID, r.RequestedTypeID,
		nullString(r.AssignedDeviceID), nullString(r.AssignedDeviceNumber),
		r.Date.DateString(), r.Slot.StartHour, r.Slot.EndHour,
		string(r.Status), nullString(r.RejectionReason),
		nullTime(r.CheckedInAt), nullTime(r.ActualStart), nullTime(r.ActualEnd),
		nullString(r.Note), r.TotalAmount, r.UpdatedAt.Std(),
		r.ID, r.Version,
	)
	if err != nil {
		return r, fmt.Errorf("update reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return r, err
	}
	if affected == 0 {
		return r, fmt.Errorf("reservation %s at version %d: %w", r.ID, r.Version, ErrVersionConflict)
	}
	r.Version++
	return r, nil
}

// ListCustomerReservations returns all reservations for a customer,
// newest first.
func (db *DB) ListCustomerReservations(ctx context.Context, customerID string) ([]reservation.Reservation, error) {
	return db.queryReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE customer_id = ? ORDER BY created_at DESC`, customerID)
}

// ListDeviceDayReservations returns a device's reservations on a date.
func (db *DB) ListDeviceDayReservations(ctx context.Context, deviceID string, date clock.Time) ([]reservation.Reservation, error) {
	return db.queryReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE assigned_device_id = ? AND date = ? ORDER BY start_hour`,
		deviceID, date.DateString())
}

// ListTypeDayReservations returns all reservations requesting a device
// type on a date, used for type-level availability.
func (db *DB) ListTypeDayReservations(ctx context.Context, typeID string, date clock.Time) ([]reservation.Reservation, error) {
	return db.queryReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE requested_type_id = ? AND date = ? ORDER BY start_hour`,
		typeID, date.DateString())
}

// ListReservations applies a filter, newest first.
func (db *DB) ListReservations(ctx context.Context, f Filter) ([]reservation.Reservation, error) {
	var conds []string
	var args []interface{}

	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.CustomerID != "" {
		conds = append(conds, "customer_id = ?")
		args = append(args, f.CustomerID)
	}
	if f.TypeID != "" {
		conds = append(conds, "requested_type_id = ?")
		args = append(args, f.TypeID)
	}
	if f.DeviceID != "" {
		conds = append(conds, "assigned_device_id = ?")
		args = append(args, f.DeviceID)
	}
	if f.DateFrom != "" {
		conds = append(conds, "date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		conds = append(conds, "date <= ?")
		args = append(args, f.DateTo)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	return db.queryReservations(ctx, query, args...)
}

// ListUpcoming returns active reservations whose date falls in
// [from, to], used by the reminder sweep.
func (db *DB) ListUpcoming(ctx context.Context, from, to clock.Time) ([]reservation.Reservation, error) {
	return db.queryReservations(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE status IN ('approved', 'checked_in') AND date >= ? AND date <= ?
		 ORDER BY date, start_hour`,
		from.DateString(), to.DateString())
}

// DeleteFinishedBefore removes reservations that reached a final status
// before the cutoff date, with their adjustments. Active reservations
// are never touched regardless of age.
func (db *DB) DeleteFinishedBefore(ctx context.Context, cutoff clock.Time) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	const finalStatuses = `('rejected', 'completed', 'cancelled', 'no_show')`
	_, err = tx.ExecContext(ctx, `
		DELETE FROM time_adjustments WHERE reservation_id IN
			(SELECT id FROM reservations WHERE status IN `+finalStatuses+` AND date < ?)`,
		cutoff.DateString())
	if err != nil {
		return 0, fmt.Errorf("delete old adjustments: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM reservations WHERE status IN `+finalStatuses+` AND date < ?`,
		cutoff.DateString())
	if err != nil {
		return 0, fmt.Errorf("delete old reservations: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return deleted, tx.Commit()
}

// CreateAdjustment appends a time adjustment record for a reservation.
func (db *DB) CreateAdjustment(ctx context.Context, reservationID string, a reservation.Adjustment) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO time_adjustments
			(reservation_id, original_start, original_end, actual_start, actual_end,
			 reason, detail, adjusted_by, adjusted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reservationID,
		a.OriginalStart.Std(), a.OriginalEnd.Std(),
		a.ActualStart.Std(), a.ActualEnd.Std(),
		string(a.Reason), nullString(a.Detail), a.AdjustedBy, a.AdjustedAt.Std(),
	)
	if err != nil {
		return fmt.Errorf("create adjustment: %w", err)
	}
	return nil
}

// ListAdjustments returns a reservation's adjustments, oldest first.
func (db *DB) ListAdjustments(ctx context.Context, reservationID string) ([]reservation.Adjustment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT original_start, original_end, actual_start, actual_end,
		       reason, detail, adjusted_by, adjusted_at
		FROM time_adjustments WHERE reservation_id = ? ORDER BY id`,
		reservationID)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()

	var out []reservation.Adjustment
	for rows.Next() {
		var a reservation.Adjustment
		var origStart, origEnd, actStart, actEnd, adjustedAt time.Time
		var detail sql.NullString
		var reason string
		if err := rows.Scan(&origStart, &origEnd, &actStart, &actEnd,
			&reason, &detail, &a.AdjustedBy, &adjustedAt); err != nil {
			return nil, err
		}
		a.OriginalStart = clock.New(origStart)
		a.OriginalEnd = clock.New(origEnd)
		a.ActualStart = clock.New(actStart)
		a.ActualEnd = clock.New(actEnd)
		a.AdjustedAt = clock.New(adjustedAt)
		a.Reason = reservation.AdjustmentReason(reason)
		a.Detail = detail.String
		out = append(out, a)
	}
	return out, rows.Err()
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...interface{}) ([]reservation.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var out []reservation.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row scanner) (reservation.Reservation, error) {
	var r reservation.Reservation
	var assignedID, assignedNumber, rejection, note sql.NullString
	var checkedInAt, actualStart, actualEnd sql.NullTime
	var createdAt, updatedAt time.Time
	var date, status string
	var startHour, endHour int

	err := row.Scan(
		&r.ID, &r.Number, &r.CustomerID, &r.RequestedTypeID,
		&assignedID, &assignedNumber, &date, &startHour, &endHour,
		&status, &rejection, &checkedInAt, &actualStart, &actualEnd,
		&note, &r.TotalAmount, &createdAt, &updatedAt, &r.Version,
	)
	if err != nil {
		return r, err
	}

	parsedDate, err := clock.Parse(date)
	if err != nil {
		return r, fmt.Errorf("reservation %s: %w", r.ID, err)
	}
	slot, err := slots.New(startHour, endHour)
	if err != nil {
		return r, fmt.Errorf("reservation %s: %w", r.ID, err)
	}

	r.AssignedDeviceID = assignedID.String
	r.AssignedDeviceNumber = assignedNumber.String
	r.Date = parsedDate
	r.Slot = slot
	r.Status = reservation.Status(status)
	r.RejectionReason = rejection.String
	r.Note = note.String
	r.CreatedAt = clock.New(createdAt)
	r.UpdatedAt = clock.New(updatedAt)
	if checkedInAt.Valid {
		r.CheckedInAt = clock.New(checkedInAt.Time)
	}
	if actualStart.Valid {
		r.ActualStart = clock.New(actualStart.Time)
	}
	if actualEnd.Valid {
		r.ActualEnd = clock.New(actualEnd.Time)
	}
	return r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t clock.Time) sql.NullTime {
	return sql.NullTime{Time: t.Std(), Valid: !t.IsZero()}
}
