package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/remivoice/remi/internal/extract"
	"github.com/remivoice/remi/internal/session"
	"github.com/remivoice/remi/internal/store"
)

// handleListReminders returns all reminders for the device
func (r *Router) handleListReminders(w http.ResponseWriter, req *http.Request) {
	deviceID := getDeviceID(req.Context())

	reminders, err := r.store.ListReminders(req.Context(), deviceID)
	if err != nil {
		r.logger.Printf("reminders: failed to list for device %s: %v", deviceID, err)
		captureError(req, err, "failed to list reminders")
		http.Error(w, `{"error": "failed to list reminders"}`, http.StatusInternalServerError)
		return
	}
	if reminders == nil {
		reminders = []store.Reminder{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"reminders": reminders})
}

// handleCreateReminder creates a reminder from a draft entry
func (r *Router) handleCreateReminder(w http.ResponseWriter, req *http.Request) {
	deviceID := getDeviceID(req.Context())

	var body struct {
		Date string `json:"date"`
		Time string `json:"time"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if body.Text == "" {
		http.Error(w, `{"error": "text is required"}`, http.StatusBadRequest)
		return
	}

	reminder, err := r.store.CreateReminder(req.Context(), deviceID, extract.DraftEntry{
		Date: body.Date,
		Time: body.Time,
		Text: body.Text,
	})
	if err != nil {
		r.logger.Printf("reminders: failed to create for device %s: %v", deviceID, err)
		captureError(req, err, "failed to create reminder")
		http.Error(w, `{"error": "failed to create reminder"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, reminder)
}

// handleUpdateReminder applies a partial update to a reminder
func (r *Router) handleUpdateReminder(w http.ResponseWriter, req *http.Request) {
	deviceID := getDeviceID(req.Context())
	id := req.PathValue("id")

	var patch session.ReminderPatch
	if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if patch.Date == nil && patch.Time == nil && patch.Text == nil {
		http.Error(w, `{"error": "no fields to update"}`, http.StatusBadRequest)
		return
	}

	if _, err := r.store.GetReminder(req.Context(), deviceID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, `{"error": "reminder not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error": "failed to load reminder"}`, http.StatusInternalServerError)
		return
	}

	if err := r.store.UpdateReminder(req.Context(), deviceID, id, patch); err != nil {
		r.logger.Printf("reminders: failed to update %s: %v", id, err)
		captureError(req, err, "failed to update reminder")
		http.Error(w, `{"error": "failed to update reminder"}`, http.StatusInternalServerError)
		return
	}

	reminder, err := r.store.GetReminder(req.Context(), deviceID, id)
	if err != nil {
		http.Error(w, `{"error": "failed to load reminder"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reminder)
}

// handleDeleteReminder removes a reminder
func (r *Router) handleDeleteReminder(w http.ResponseWriter, req *http.Request) {
	deviceID := getDeviceID(req.Context())
	id := req.PathValue("id")

	if err := r.store.DeleteReminder(req.Context(), deviceID, id); err != nil {
		r.logger.Printf("reminders: failed to delete %s: %v", id, err)
		captureError(req, err, "failed to delete reminder")
		http.Error(w, `{"error": "failed to delete reminder"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
