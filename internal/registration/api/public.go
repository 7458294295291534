package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-registration/internal/export"
	"ms-registration/internal/registration/service"
	"ms-registration/internal/utils"
)

func (h *Handler) ListPublicEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.PublicEvents(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Events retrieved", events))
}

func (h *Handler) GetPublicEvent(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Service.PublicEvent(r.Context(), chi.URLParam(r, "eventId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Event retrieved", detail))
}

func (h *Handler) SubmitRegistration(w http.ResponseWriter, r *http.Request) {
	var in service.SubmissionInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	adm, err := h.Service.Submit(r.Context(), chi.URLParam(r, "eventId"), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Registration received", adm))
}

type lookupRequest struct {
	Protocol   string `json:"protocol"`
	AccessCode string `json:"access_code"`
}

func (h *Handler) LookupRegistration(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.Service.Lookup(r.Context(), req.Protocol, req.AccessCode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("Registration found", res))
}

func (h *Handler) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	pdf, name, err := h.Service.Receipt(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeFile(w, &export.File{Name: name, ContentType: "application/pdf", Data: pdf})
}
