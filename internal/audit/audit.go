// Package audit produces monthly Excel reports of reservations, time
// adjustments and the device catalog, and prunes finished reservations
// past the retention window.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"arcadia/internal/catalog"
	"arcadia/internal/clock"
	"arcadia/internal/database"
	"arcadia/internal/reservation"
)

// Store provides the data the report covers.
type Store interface {
	ListReservations(ctx context.Context, f database.Filter) ([]reservation.Reservation, error)
	ListAdjustments(ctx context.Context, reservationID string) ([]reservation.Adjustment, error)
	DeleteFinishedBefore(ctx context.Context, cutoff clock.Time) (int64, error)
}

// Config tunes the export schedule and retention.
type Config struct {
	// OutputDir is where report files land. Default "reports".
	OutputDir string

	// RetentionDays is how long finished reservations are kept after
	// their date. Default 93 (one quarter).
	RetentionDays int
}

// Service runs monthly exports and cleanup.
type Service struct {
	cfg       Config
	store     Store
	hierarchy func() catalog.Hierarchy
	logger    *zerolog.Logger
	now       func() clock.Time
}

func NewService(cfg Config, store Store, hierarchy func() catalog.Hierarchy, logger *zerolog.Logger) *Service {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "reports"
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 93
	}
	return &Service{
		cfg:       cfg,
		store:     store,
		hierarchy: hierarchy,
		logger:    logger,
		now:       clock.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() clock.Time) *Service {
	s.now = now
	return s
}

// Run exports on the first of every month until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) {
	for {
		next := nextFirstOfMonth(s.now().Std())
		s.logger.Info().Time("next_run", next).Msg("monthly audit scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := s.ExportNow(ctx); err != nil {
				s.logger.Error().Err(err).Msg("monthly export failed")
			}
			if err := s.CleanupNow(ctx); err != nil {
				s.logger.Error().Err(err).Msg("monthly cleanup failed")
			}
		}
	}
}

func nextFirstOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 1, 0, 0, now.Location())
}

// ExportNow writes the previous month's report and returns its path.
func (s *Service) ExportNow(ctx context.Context) (string, error) {
	now := s.now()
	from, to := previousMonth(now)

	reservations, err := s.store.ListReservations(ctx, database.Filter{
		DateFrom: from.DateString(),
		DateTo:   to.DateString(),
	})
	if err != nil {
		return "", fmt.Errorf("list reservations: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeReservationSheet(f, reservations); err != nil {
		return "", err
	}
	if err := s.writeAdjustmentSheet(ctx, f, reservations); err != nil {
		return "", err
	}
	if err := s.writeCatalogSheet(f); err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(s.cfg.OutputDir,
		fmt.Sprintf("arcade_report_%s.xlsx", from.Std().Format("2006-01")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}

	s.logger.Info().
		Str("path", path).
		Int("reservations", len(reservations)).
		Msg("audit report written")
	return path, nil
}

func previousMonth(now clock.Time) (clock.Time, clock.Time) {
	t := now.Std()
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	prevFirst := first.AddDate(0, -1, 0)
	return clock.New(prevFirst), clock.New(first.AddDate(0, 0, -1))
}

func (s *Service) writeReservationSheet(f *excelize.File, rs []reservation.Reservation) error {
	const sheet = "Reservations"
	f.SetSheetName("Sheet1", sheet)

	headers := []interface{}{
		"Number", "Customer", "Type", "Device", "Date", "Slot",
		"Status", "Checked In", "Actual Minutes", "Amount",
	}
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return err
	}
	boldHeader(f, sheet, len(headers))

	for i, r := range rs {
		actualMinutes := ""
		if !r.ActualStart.IsZero() && !r.ActualEnd.IsZero() {
			actualMinutes = fmt.Sprintf("%d", r.ActualEnd.DiffMinutes(r.ActualStart))
		}
		checkedIn := ""
		if !r.CheckedInAt.IsZero() {
			checkedIn = r.CheckedInAt.String()
		}
		row := []interface{}{
			r.Number, r.CustomerID, r.RequestedTypeID, r.AssignedDeviceNumber,
			r.Date.DateString(), r.Slot.Label(),
			string(r.Status), checkedIn, actualMinutes, r.TotalAmount,
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) writeAdjustmentSheet(ctx context.Context, f *excelize.File, rs []reservation.Reservation) error {
	const sheet = "Adjustments"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	headers := []interface{}{
		"Reservation", "Reason", "Original Minutes", "Actual Minutes",
		"Delta", "Chargeable", "Adjusted By", "Adjusted At",
	}
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return err
	}
	boldHeader(f, sheet, len(headers))

	rowIdx := 2
	for _, r := range rs {
		adjs, err := s.store.ListAdjustments(ctx, r.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("reservation", r.Number).Msg("list adjustments")
			continue
		}
		for _, a := range adjs {
			row := []interface{}{
				r.Number, string(a.Reason), a.OriginalMinutes(), a.ActualMinutes(),
				a.DeltaMinutes(), a.ChargeableMinutes(), a.AdjustedBy, a.AdjustedAt.String(),
			}
			if err := writeRow(f, sheet, rowIdx, row); err != nil {
				return err
			}
			rowIdx++
		}
	}
	return nil
}

func (s *Service) writeCatalogSheet(f *excelize.File) error {
	const sheet = "Devices"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	headers := []interface{}{"Category", "Type", "Number", "Status", "Location", "Hourly Rate"}
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return err
	}
	boldHeader(f, sheet, len(headers))

	h := s.hierarchy()
	rowIdx := 2
	for _, c := range h.Categories() {
		for _, dt := range h.TypesByCategory(c.ID) {
			for _, d := range h.DevicesByType(dt.ID) {
				row := []interface{}{c.Name, dt.Name, d.Number, string(d.Status), d.Location, dt.HourlyRate}
				if err := writeRow(f, sheet, rowIdx, row); err != nil {
					return err
				}
				rowIdx++
			}
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func boldHeader(f *excelize.File, sheet string, cols int) {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return
	}
	start, _ := excelize.CoordinatesToCellName(1, 1)
	end, _ := excelize.CoordinatesToCellName(cols, 1)
	_ = f.SetCellStyle(sheet, start, end, style)
}

// CleanupNow deletes finished reservations older than the retention
// window.
func (s *Service) CleanupNow(ctx context.Context) error {
	cutoff := s.now().AddDays(-s.cfg.RetentionDays)
	deleted, err := s.store.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	s.logger.Info().
		Int64("deleted", deleted).
		Int("retention_days", s.cfg.RetentionDays).
		Msg("old reservations pruned")
	return nil
}
