package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// handleAssistantQuery runs a one-shot text query against the assistant,
// outside any live session.
func (r *Router) handleAssistantQuery(w http.ResponseWriter, req *http.Request) {
	if r.llm == nil {
		http.Error(w, `{"error": "assistant not configured"}`, http.StatusServiceUnavailable)
		return
	}

	var body struct {
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

	reply, err := r.llm.Query(req.Context(), body.Text)
	if err != nil {
		r.logger.Printf("assistant: query failed: %v", err)
		captureError(req, err, "assistant query failed")
		http.Error(w, `{"error": "assistant query failed"}`, http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// handleGetSessionEvents returns the logged event trail for one assistant
// session.
func (r *Router) handleGetSessionEvents(w http.ResponseWriter, req *http.Request) {
	sessionID := req.PathValue("sessionId")

	limit := 200
	if v := req.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	events, err := r.eventLog.ListSessionEvents(req.Context(), sessionID, limit)
	if err != nil {
		r.logger.Printf("sessions: failed to list events for %s: %v", sessionID, err)
		http.Error(w, `{"error": "failed to list session events"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"events":     events,
	})
}
