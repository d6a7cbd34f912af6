package api

import (
	"net/http"

	"arcadia/internal/catalog"
	"arcadia/internal/metrics"
)

func (s *HTTPServer) catalogAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/catalog/categories", s.auth(s.handleAddCategory))
	mux.HandleFunc("DELETE /api/v1/catalog/categories/{id}", s.auth(s.handleRemoveCategory))
	mux.HandleFunc("POST /api/v1/catalog/types", s.auth(s.handleAddType))
	mux.HandleFunc("POST /api/v1/catalog/types/{id}/move", s.auth(s.handleMoveType))
	mux.HandleFunc("DELETE /api/v1/catalog/types/{id}", s.auth(s.handleRemoveType))
	mux.HandleFunc("POST /api/v1/catalog/devices", s.auth(s.handleAddDevice))
	mux.HandleFunc("PUT /api/v1/catalog/devices/{id}/status", s.auth(s.handleDeviceStatus))
	mux.HandleFunc("DELETE /api/v1/catalog/devices/{id}", s.auth(s.handleRemoveDevice))
}

// handleCatalog returns the full hierarchy: categories in display
// order, each with its types and numbered devices.
func (s *HTTPServer) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	metrics.IncHTTP("catalog")

	h := s.svc.Hierarchy()
	type deviceOut struct {
		ID       string `json:"id"`
		Number   string `json:"number"`
		Status   string `json:"status"`
		Location string `json:"location,omitempty"`
	}
	type typeOut struct {
		ID         string      `json:"id"`
		Name       string      `json:"name"`
		HourlyRate int64       `json:"hourly_rate"`
		MinHours   int         `json:"min_hours"`
		MaxHours   int         `json:"max_hours"`
		PlayModes  []string    `json:"play_modes,omitempty"`
		Active     bool        `json:"active"`
		Devices    []deviceOut `json:"devices"`
	}
	type categoryOut struct {
		ID    string    `json:"id"`
		Name  string    `json:"name"`
		Types []typeOut `json:"types"`
	}

	out := make([]categoryOut, 0)
	for _, c := range h.Categories() {
		co := categoryOut{ID: c.ID, Name: c.Name, Types: make([]typeOut, 0)}
		for _, dt := range h.TypesByCategory(c.ID) {
			to := typeOut{
				ID: dt.ID, Name: dt.Name, HourlyRate: dt.HourlyRate,
				MinHours: dt.MinHours, MaxHours: dt.MaxHours,
				PlayModes: dt.PlayModes, Active: dt.Active,
				Devices: make([]deviceOut, 0),
			}
			for _, d := range h.DevicesByType(dt.ID) {
				to.Devices = append(to.Devices, deviceOut{
					ID: d.ID, Number: d.Number, Status: string(d.Status), Location: d.Location,
				})
			}
			co.Types = append(co.Types, to)
		}
		out = append(out, co)
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

func (s *HTTPServer) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("add_category")

	var c catalog.Category
	if !decodeBody(w, r, &c) {
		return
	}
	if err := s.svc.AddCategory(r.Context(), c); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *HTTPServer) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("remove_category")

	if err := s.svc.RemoveCategory(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *HTTPServer) handleAddType(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("add_type")

	var t catalog.DeviceType
	if !decodeBody(w, r, &t) {
		return
	}
	if err := s.svc.AddType(r.Context(), t); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *HTTPServer) handleMoveType(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("move_type")

	var req struct {
		CategoryID string `json:"category_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.MoveType(r.Context(), r.PathValue("id"), req.CategoryID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *HTTPServer) handleRemoveType(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("remove_type")

	if err := s.svc.RemoveType(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *HTTPServer) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("add_device")

	var d catalog.Device
	if !decodeBody(w, r, &d) {
		return
	}
	if err := s.svc.AddDevice(r.Context(), d); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *HTTPServer) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("device_status")

	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.SetDeviceStatus(r.Context(), r.PathValue("id"), catalog.DeviceStatus(req.Status)); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *HTTPServer) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("remove_device")

	if err := s.svc.RemoveDevice(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
