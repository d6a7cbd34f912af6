// Package reminder sweeps upcoming approved reservations and sends a
// single reminder per reservation ahead of its start time.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"arcadia/internal/clock"
	"arcadia/internal/notify"
	"arcadia/internal/reservation"
)

// Store lists reservations the sweep should consider.
type Store interface {
	ListUpcoming(ctx context.Context, from, to clock.Time) ([]reservation.Reservation, error)
}

// Config tunes the sweep.
type Config struct {
	// CheckInterval is how often the sweep runs. Default 15 minutes.
	CheckInterval time.Duration

	// HoursBefore is how far ahead of the slot start a reminder goes
	// out. Default 24.
	HoursBefore int
}

// Service runs the periodic reminder sweep.
type Service struct {
	cfg      Config
	store    Store
	notifier notify.Notifier
	logger   *zerolog.Logger
	now      func() clock.Time

	mu   sync.Mutex
	sent map[string]struct{}
}

func NewService(cfg Config, store Store, notifier notify.Notifier, logger *zerolog.Logger) *Service {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 15 * time.Minute
	}
	if cfg.HoursBefore == 0 {
		cfg.HoursBefore = 24
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      clock.Now,
		sent:     make(map[string]struct{}),
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() clock.Time) *Service {
	s.now = now
	return s
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info().
		Dur("check_interval", s.cfg.CheckInterval).
		Int("hours_before", s.cfg.HoursBefore).
		Msg("reminder sweep started")

	s.CheckNow(ctx)

	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("reminder sweep stopped")
			return
		case <-ticker.C:
			s.CheckNow(ctx)
		}
	}
}

// CheckNow runs one sweep pass.
func (s *Service) CheckNow(ctx context.Context) {
	now := s.now()
	upcoming, err := s.store.ListUpcoming(ctx, now, now.AddHours(s.cfg.HoursBefore+1))
	if err != nil {
		s.logger.Error().Err(err).Msg("list upcoming reservations")
		return
	}

	for _, r := range upcoming {
		if r.Status != reservation.StatusApproved {
			continue
		}
		start := r.StartDateTime()
		if start.DiffHours(now) > float64(s.cfg.HoursBefore) || !start.After(now) {
			continue
		}
		if s.alreadySent(r.ID) {
			continue
		}

		err := s.notifier.Notify(ctx, notify.Notification{
			CustomerID: r.CustomerID,
			Type:       "reservation_reminder",
			Title:      "Upcoming reservation",
			Body: fmt.Sprintf("Reminder: device %s on %s at %s.",
				r.AssignedDeviceNumber, r.Date.DateString(), r.Slot.Label()),
			Metadata: map[string]string{"reservation_id": r.ID, "number": r.Number},
		})
		if err != nil {
			s.logger.Error().Err(err).Str("reservation", r.Number).Msg("send reminder")
			continue
		}
		s.markSent(r.ID)
		s.logger.Info().Str("reservation", r.Number).Msg("reminder sent")
	}

	s.prune()
}

func (s *Service) alreadySent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sent[id]
	return ok
}

func (s *Service) markSent(id string) {
	s.mu.Lock()
	s.sent[id] = struct{}{}
	s.mu.Unlock()
}

// prune drops the dedup set once it grows past a day's worth of slots
// to keep memory flat on long uptimes.
func (s *Service) prune() {
	s.mu.Lock()
	if len(s.sent) > 4096 {
		s.sent = make(map[string]struct{})
	}
	s.mu.Unlock()
}
