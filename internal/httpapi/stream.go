package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Stream handles Server-Sent Events for attempt progress. The attempt_id
// query parameter is required and the caller must be a collaborator on the
// attempt's intake; events never cross account boundaries.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	if a.events == nil {
		http.Error(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}
	filter := strings.TrimSpace(r.URL.Query().Get("attempt_id"))
	if filter == "" {
		writeError(w, r, http.StatusBadRequest, "attempt_id is required")
		return
	}
	att, err := a.drafts.GetAttempt(r.Context(), filter)
	if err != nil {
		handleDraftError(w, r, err)
		return
	}
	rec, err := a.intakes.Get(r.Context(), att.IntakeID)
	if err != nil {
		handleIntakeError(w, r, err)
		return
	}
	if _, err := a.requireIntakeRole(r.Context(), rec); err != nil {
		handleAuthError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.events.Subscribe(ctx)

	// Send an initial comment to establish the stream
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for event := range ch {
		if filter != "" && event.AttemptID != filter {
			continue
		}
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}
