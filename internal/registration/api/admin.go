package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ms-registration/internal/auth"
	"ms-registration/internal/models"
	"ms-registration/internal/registration/db"
	"ms-registration/internal/registration/service"
	"ms-registration/internal/utils"
)

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Dashboard", stats))
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.ListEvents(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Events retrieved", events))
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in service.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	event, err := h.Service.CreateEvent(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Logger.Info("ADMIN", auth.AdminEmail(r.Context())+" created event "+event.ID)
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Event created", event))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.Service.GetEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event retrieved", event))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in service.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	event, err := h.Service.UpdateEvent(r.Context(), chi.URLParam(r, "eventId"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event updated", event))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "eventId")
	if err := h.Service.DeleteEvent(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Logger.Info("ADMIN", auth.AdminEmail(r.Context())+" deleted event "+id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetEventActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Active == nil {
		h.writeError(w, r, &service.InputError{Field: "active", Message: "is required"})
		return
	}
	event, err := h.Service.SetEventActive(r.Context(), chi.URLParam(r, "eventId"), *req.Active)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event updated", event))
}

func (h *Handler) EventDays(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.EventDayReport(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Day report", report))
}

func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.Service.ListRegistrations(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Registrations retrieved", page))
}

func (h *Handler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := h.Service.GetRegistration(r.Context(), chi.URLParam(r, "registrationId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Registration retrieved", reg))
}

func (h *Handler) UpdateRegistration(w http.ResponseWriter, r *http.Request) {
	var in service.ApplicantInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	reg, err := h.Service.UpdateRegistration(r.Context(), chi.URLParam(r, "registrationId"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Registration updated", reg))
}

type statusRequest struct {
	Status models.Status `json:"status"`
	IDs    []string      `json:"ids,omitempty"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "registrationId")
	reg, err := h.Service.TransitionRegistration(r.Context(), id, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Logger.Info("ADMIN", auth.AdminEmail(r.Context())+" set "+id+" to "+string(req.Status))
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Status updated", reg))
}

func (h *Handler) BulkStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.Service.BulkTransition(r.Context(), req.IDs, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Statuses updated", res))
}

// filterFromQuery reads event_id, status, category, day, q, limit and offset.
func filterFromQuery(r *http.Request) (db.RegistrationFilter, error) {
	q := r.URL.Query()
	f := db.RegistrationFilter{
		EventID:  q.Get("event_id"),
		Status:   models.Status(q.Get("status")),
		Category: models.Category(q.Get("category")),
		Day:      q.Get("day"),
		Search:   strings.TrimSpace(q.Get("q")),
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &f.Limit}, {"offset", &f.Offset}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, &service.InputError{Field: p.name, Message: "must be a number"}
		}
		*p.dst = n
	}
	return f, nil
}
