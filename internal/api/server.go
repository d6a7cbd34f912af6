// Package api exposes the reservation workflows over HTTP with
// API-key authentication.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"arcadia/internal/catalog"
	"arcadia/internal/database"
	"arcadia/internal/reservation"
	"arcadia/internal/service"
)

// ReservationReader serves the read endpoints directly from the store.
type ReservationReader interface {
	GetReservation(ctx context.Context, id string) (reservation.Reservation, error)
	ListReservations(ctx context.Context, f database.Filter) ([]reservation.Reservation, error)
	ListAdjustments(ctx context.Context, reservationID string) ([]reservation.Adjustment, error)
}

// HTTPServer hosts the JSON API.
type HTTPServer struct {
	svc    *service.Service
	reader ReservationReader
	apiKey string
	log    *zerolog.Logger
}

func NewHTTPServer(svc *service.Service, reader ReservationReader, apiKey string, log *zerolog.Logger) *HTTPServer {
	return &HTTPServer{svc: svc, reader: reader, apiKey: apiKey, log: log}
}

// Handler builds the route table.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/reservations", s.auth(s.handleCreate))
	mux.HandleFunc("GET /api/v1/reservations", s.auth(s.handleList))
	mux.HandleFunc("GET /api/v1/reservations/{id}", s.auth(s.handleGet))
	mux.HandleFunc("POST /api/v1/reservations/{id}/approve", s.auth(s.handleApprove))
	mux.HandleFunc("POST /api/v1/reservations/{id}/reject", s.auth(s.handleReject))
	mux.HandleFunc("POST /api/v1/reservations/{id}/check-in", s.auth(s.handleCheckIn))
	mux.HandleFunc("POST /api/v1/reservations/{id}/cancel", s.auth(s.handleCancel))
	mux.HandleFunc("POST /api/v1/reservations/{id}/no-show", s.auth(s.handleNoShow))
	mux.HandleFunc("POST /api/v1/reservations/{id}/adjust-time", s.auth(s.handleAdjustTime))
	mux.HandleFunc("GET /api/v1/reservations/{id}/adjustments", s.auth(s.handleAdjustments))
	mux.HandleFunc("GET /api/v1/availability", s.auth(s.handleAvailability))
	mux.HandleFunc("GET /api/v1/catalog", s.auth(s.handleCatalog))
	s.catalogAdminRoutes(mux)

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	return mux
}

// ListenAndServe blocks until the context is cancelled, then drains
// in-flight requests.
func (s *HTTPServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *HTTPServer) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.Header.Get("x-api-key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(w, r)
	}
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// writeDomainError maps domain errors onto HTTP statuses. Rule
// conflicts carry the full violation list in the body.
func writeDomainError(w http.ResponseWriter, err error) {
	var conflict *reservation.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "reservation rules violated",
			"violations": conflict.Violations,
		})
		return
	}

	var nf *catalog.NotFoundError
	switch {
	case errors.Is(err, database.ErrNotFound), errors.As(err, &nf):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		var (
			validation *reservation.ValidationError
			state      *reservation.InvalidStateError
			transition *reservation.InvalidTransitionError
			invariant  *catalog.InvariantViolationError
		)
		if errors.As(err, &validation) || errors.As(err, &invariant) {
			writeError(w, http.StatusBadRequest, err.Error())
		} else if errors.As(err, &state) || errors.As(err, &transition) {
			writeError(w, http.StatusConflict, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
