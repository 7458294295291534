package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ms-registration/internal/models"
	"ms-registration/internal/utils"
)

// StreamEvent sends every admission and status change of one event as Server-Sent Events.
func (h *Handler) StreamEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventId")
	if _, err := h.Service.GetEvent(r.Context(), eventID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.stream(w, r, eventID, h.Feed.SubscribeToEvent(r.Context(), eventID))
}

// StreamAll sends the registration activity of every event.
func (h *Handler) StreamAll(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "", h.Feed.SubscribeToAll(r.Context()))
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, eventID string, events <-chan models.RegistrationEvent) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Streaming unsupported", "response writer cannot flush"))
		return
	}

	// the server write timeout would otherwise cut long-lived streams
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	hello, _ := json.Marshal(map[string]string{"status": "connected", "event_id": eventID})
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", hello)
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("client connected to registration feed %q (%d subscribers)", eventID, h.Feed.Subscribers(eventID)))

	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("failed to serialize registration event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()

		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("client disconnected from registration feed %q", eventID))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
