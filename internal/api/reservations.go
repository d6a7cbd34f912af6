package api

import (
	"net/http"

	"arcadia/internal/clock"
	"arcadia/internal/database"
	"arcadia/internal/metrics"
	"arcadia/internal/reservation"
	"arcadia/internal/service"
	"arcadia/internal/slots"
)

// CreateReservationRequest is the body for POST /api/v1/reservations.
type CreateReservationRequest struct {
	CustomerID string `json:"customer_id"`
	TypeID     string `json:"type_id"`
	Date       string `json:"date"`       // YYYY-MM-DD
	StartHour  int    `json:"start_hour"` // 0-29, 24+ for after-midnight
	EndHour    int    `json:"end_hour"`
	Note       string `json:"note,omitempty"`
}

// ReservationResponse is the wire form of a reservation.
type ReservationResponse struct {
	ID              string `json:"id"`
	Number          string `json:"number"`
	CustomerID      string `json:"customer_id"`
	TypeID          string `json:"type_id"`
	DeviceID        string `json:"device_id,omitempty"`
	DeviceNumber    string `json:"device_number,omitempty"`
	Date            string `json:"date"`
	Slot            string `json:"slot"`
	StartHour       int    `json:"start_hour"`
	EndHour         int    `json:"end_hour"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	Note            string `json:"note,omitempty"`
	TotalAmount     int64  `json:"total_amount"`
	Version         int64  `json:"version"`
}

func toResponse(r reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:              r.ID,
		Number:          r.Number,
		CustomerID:      r.CustomerID,
		TypeID:          r.RequestedTypeID,
		DeviceID:        r.AssignedDeviceID,
		DeviceNumber:    r.AssignedDeviceNumber,
		Date:            r.Date.DateString(),
		Slot:            r.Slot.Label(),
		StartHour:       r.Slot.StartHour,
		EndHour:         r.Slot.EndHour,
		Status:          string(r.Status),
		RejectionReason: r.RejectionReason,
		Note:            r.Note,
		TotalAmount:     r.TotalAmount,
		Version:         r.Version,
	}
}

func (s *HTTPServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_reservation")

	var req CreateReservationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CustomerID == "" || req.TypeID == "" || req.Date == "" {
		writeError(w, http.StatusBadRequest, "customer_id, type_id and date are required")
		return
	}
	date, err := clock.Parse(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	slot, err := slots.New(req.StartHour, req.EndHour)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.svc.Create(r.Context(), service.CreateRequest{
		CustomerID: req.CustomerID,
		TypeID:     req.TypeID,
		Date:       date,
		Slot:       slot,
		Note:       req.Note,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(created))
}

func (s *HTTPServer) handleList(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_reservations")

	q := r.URL.Query()
	f := database.Filter{
		Status:     q.Get("status"),
		CustomerID: q.Get("customer_id"),
		TypeID:     q.Get("type_id"),
		DeviceID:   q.Get("device_id"),
		DateFrom:   q.Get("date_from"),
		DateTo:     q.Get("date_to"),
	}

	list, err := s.reader.ListReservations(r.Context(), f)
	if err != nil {
		s.log.Error().Err(err).Msg("list reservations")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]ReservationResponse, 0, len(list))
	for _, item := range list {
		out = append(out, toResponse(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": out})
}

func (s *HTTPServer) handleGet(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_reservation")

	res, err := s.reader.GetReservation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (s *HTTPServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("approve_reservation")

	approved, err := s.svc.Approve(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(approved))
}

func (s *HTTPServer) handleReject(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reject_reservation")

	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	rejected, err := s.svc.Reject(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(rejected))
}

func (s *HTTPServer) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("check_in")

	checkedIn, err := s.svc.CheckIn(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(checkedIn))
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_reservation")

	cancelled, err := s.svc.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(cancelled))
}

func (s *HTTPServer) handleNoShow(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("no_show")

	noShow, err := s.svc.MarkNoShow(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(noShow))
}

// AdjustTimeRequest is the body for POST .../adjust-time. Times are
// full timestamps, "2006-01-02 15:04".
type AdjustTimeRequest struct {
	ActualStart string `json:"actual_start"`
	ActualEnd   string `json:"actual_end"`
	Reason      string `json:"reason"`
	Detail      string `json:"detail,omitempty"`
	AdjustedBy  string `json:"adjusted_by"`
}

// AdjustTimeResponse reports every side effect of the correction.
type AdjustTimeResponse struct {
	Reservation    ReservationResponse `json:"reservation"`
	ActualMinutes  int                 `json:"actual_minutes"`
	ChargedMinutes int                 `json:"charged_minutes"`
	DeltaMinutes   int                 `json:"delta_minutes"`
	NewAmount      int64               `json:"new_amount"`
	AutoCompleted  bool                `json:"auto_completed"`
	DeviceReleased bool                `json:"device_released"`
}

func (s *HTTPServer) handleAdjustTime(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("adjust_time")

	var req AdjustTimeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actualStart, err := clock.Parse(req.ActualStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid actual_start; expected YYYY-MM-DD HH:MM")
		return
	}
	actualEnd, err := clock.Parse(req.ActualEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid actual_end; expected YYYY-MM-DD HH:MM")
		return
	}

	effects, err := s.svc.AdjustTime(r.Context(), r.PathValue("id"), service.AdjustRequest{
		ActualStart: actualStart,
		ActualEnd:   actualEnd,
		Reason:      reservation.AdjustmentReason(req.Reason),
		Detail:      req.Detail,
		AdjustedBy:  req.AdjustedBy,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AdjustTimeResponse{
		Reservation:    toResponse(effects.Reservation),
		ActualMinutes:  effects.Adjustment.ActualMinutes(),
		ChargedMinutes: effects.Adjustment.ChargeableMinutes(),
		DeltaMinutes:   effects.Adjustment.DeltaMinutes(),
		NewAmount:      effects.NewAmount,
		AutoCompleted:  effects.AutoCompleted,
		DeviceReleased: effects.DeviceReleased,
	})
}

func (s *HTTPServer) handleAdjustments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_adjustments")

	id := r.PathValue("id")
	if _, err := s.reader.GetReservation(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	adjs, err := s.reader.ListAdjustments(r.Context(), id)
	if err != nil {
		s.log.Error().Err(err).Str("reservation", id).Msg("list adjustments")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"adjustments": adjs})
}

// handleAvailability answers GET /api/v1/availability with either a
// device_id or a type_id plus a date.
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")

	q := r.URL.Query()
	date, err := clock.Parse(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	var av service.Availability
	switch {
	case q.Get("device_id") != "":
		av, err = s.svc.DeviceAvailability(r.Context(), q.Get("device_id"), date)
	case q.Get("type_id") != "":
		av, err = s.svc.TypeAvailability(r.Context(), q.Get("type_id"), date)
	default:
		writeError(w, http.StatusBadRequest, "device_id or type_id is required")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse(av))
}

// availabilityResponse renders the two slot lists as H:MM-H:MM labels,
// the extended-hour form clients already receive on reservations.
func availabilityResponse(av service.Availability) map[string]any {
	labels := func(in []slots.Slot) []string {
		out := make([]string, 0, len(in))
		for _, sl := range in {
			out = append(out, sl.Label())
		}
		return out
	}
	return map[string]any{
		"date":           av.Date,
		"availableSlots": labels(av.Available),
		"reservedSlots":  labels(av.Reserved),
	}
}
