package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/remivoice/remi/internal/extract"
	"github.com/remivoice/remi/internal/session"
)

// requireEvents gates the calendar mirror handlers when the mirror is not
// configured.
func (r *Router) requireEvents(w http.ResponseWriter) bool {
	if r.events == nil {
		http.Error(w, `{"error": "calendar mirror not configured"}`, http.StatusServiceUnavailable)
		return false
	}
	return true
}

// handleListEvents returns upcoming mirrored calendar events
func (r *Router) handleListEvents(w http.ResponseWriter, req *http.Request) {
	if !r.requireEvents(w) {
		return
	}

	events, err := r.events.List(req.Context())
	if err != nil {
		r.logger.Printf("events: failed to list: %v", err)
		captureError(req, err, "failed to list events")
		http.Error(w, `{"error": "failed to list events"}`, http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []session.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleCreateEvent inserts a mirrored calendar event
func (r *Router) handleCreateEvent(w http.ResponseWriter, req *http.Request) {
	if !r.requireEvents(w) {
		return
	}

	var body struct {
		Date    string `json:"date"`
		Time    string `json:"time"`
		Summary string `json:"summary"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if body.Summary == "" {
		http.Error(w, `{"error": "summary is required"}`, http.StatusBadRequest)
		return
	}

	event, err := r.events.Create(req.Context(), extract.DraftEntry{
		Date: body.Date,
		Time: body.Time,
		Text: body.Summary,
	})
	if err != nil {
		r.logger.Printf("events: failed to create: %v", err)
		captureError(req, err, "failed to create event")
		http.Error(w, `{"error": "failed to create event"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// handleUpdateEvent patches a mirrored calendar event
func (r *Router) handleUpdateEvent(w http.ResponseWriter, req *http.Request) {
	if !r.requireEvents(w) {
		return
	}
	id := req.PathValue("id")

	var patch session.EventPatch
	if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if patch.Date == nil && patch.Time == nil && patch.Summary == nil {
		http.Error(w, `{"error": "no fields to update"}`, http.StatusBadRequest)
		return
	}

	if err := r.events.Update(req.Context(), id, patch); err != nil {
		r.logger.Printf("events: failed to update %s: %v", id, err)
		captureError(req, err, "failed to update event")
		http.Error(w, `{"error": "failed to update event"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleDeleteEvent removes a mirrored calendar event
func (r *Router) handleDeleteEvent(w http.ResponseWriter, req *http.Request) {
	if !r.requireEvents(w) {
		return
	}
	id := req.PathValue("id")

	if err := r.events.Delete(req.Context(), id); err != nil {
		r.logger.Printf("events: failed to delete %s: %v", id, err)
		captureError(req, err, "failed to delete event")
		http.Error(w, `{"error": "failed to delete event"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
