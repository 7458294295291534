package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ms-registration/internal/admission"
	"ms-registration/internal/export"
	"ms-registration/internal/models"
	"ms-registration/internal/receipt"
	"ms-registration/internal/registration/service"
	"ms-registration/internal/utils"
)

const maxBodyBytes = 1 << 20

type errorDetails struct {
	Field string        `json:"field,omitempty"`
	Days  []string      `json:"days,omitempty"`
	From  models.Status `json:"from,omitempty"`
	To    models.Status `json:"to,omitempty"`
}

// writeError maps service and engine errors to HTTP responses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var inputErr *service.InputError
	if errors.As(err, &inputErr) {
		utils.WriteJSON(w, http.StatusUnprocessableEntity,
			utils.ErrorResponse("Invalid input", inputErr.Error()).WithCode("INVALID_INPUT", errorDetails{Field: inputErr.Field}))
		return
	}

	if derr, ok := admission.AsError(err); ok {
		status := http.StatusConflict
		switch {
		case derr.Input():
			status = http.StatusUnprocessableEntity
		case derr.Code == admission.CodeBusy:
			status = http.StatusServiceUnavailable
			w.Header().Set("Retry-After", "1")
		}
		details := errorDetails{Field: derr.Field, From: derr.From, To: derr.To}
		if len(derr.Days) > 0 {
			details.Days = derr.DayKeys()
		}
		utils.WriteJSON(w, status, utils.ErrorResponse(derr.Message, derr.Error()).WithCode(string(derr.Code), details))
		return
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Not found", "resource not found").WithCode("NOT_FOUND", nil))
	case errors.Is(err, models.ErrEventInUse):
		utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("Event has registrations", err.Error()).WithCode("EVENT_IN_USE", nil))
	case errors.Is(err, receipt.ErrInvalidToken):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("Receipt not found", "the receipt link is invalid or expired").WithCode("INVALID_RECEIPT", nil))
	case errors.Is(err, admission.ErrStore):
		w.Header().Set("Retry-After", "5")
		utils.WriteJSON(w, http.StatusServiceUnavailable,
			utils.ErrorResponse("Temporarily unavailable", "nothing was saved, it is safe to try again").WithCode("STORE_UNAVAILABLE", nil))
	default:
		h.Logger.Error("API", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Internal error", "unexpected error"))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &service.InputError{Message: "request body is empty"}
		}
		return &service.InputError{Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

func writeFile(w http.ResponseWriter, file *export.File) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}
