package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-registration/internal/export"
)

func (h *Handler) ExportRegistrations(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	format := export.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatExcel
	}
	file, err := h.Service.ExportRegistrations(r.Context(), format, f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeFile(w, file)
}

func (h *Handler) ExportEvent(w http.ResponseWriter, r *http.Request) {
	file, err := h.Service.ExportEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeFile(w, file)
}

func (h *Handler) ExportAttendance(w http.ResponseWriter, r *http.Request) {
	file, err := h.Service.ExportAttendance(r.Context(), chi.URLParam(r, "eventId"), r.URL.Query().Get("day"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeFile(w, file)
}
