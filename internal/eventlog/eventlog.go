package eventlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventType represents the type of assistant session event
type EventType string

const (
	EventSessionStarted    EventType = "session_started"
	EventCaptureStarted    EventType = "capture_started"
	EventCaptureStopped    EventType = "capture_stopped"
	EventTranscriptUpdated EventType = "transcript_updated"
	EventSubmitStarted     EventType = "submit_started"
	EventDraftExtracted    EventType = "draft_extracted"
	EventReminderCreated   EventType = "reminder_created"
	EventResponderReply    EventType = "responder_reply"
	EventResponderError    EventType = "responder_error"
	EventListsRefreshed    EventType = "lists_refreshed"
	EventSubmitFailed      EventType = "submit_failed"
	EventSessionEnded      EventType = "session_ended"
)

// Logger provides event logging to the database
type Logger struct {
	db *pgxpool.Pool
}

// New creates a new event logger
func New(db *pgxpool.Pool) *Logger {
	return &Logger{db: db}
}

// Log writes an event to the database synchronously. Safe on a nil
// logger, like the other degradable collaborators.
func (l *Logger) Log(ctx context.Context, sessionID string, eventType EventType, data map[string]any) error {
	if l == nil || l.db == nil || sessionID == "" {
		return nil // Silently skip if no DB or session ID
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		dataJSON = []byte("{}")
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO session_events (session_id, event_type, event_data)
		VALUES ($1, $2, $3)
	`, sessionID, string(eventType), dataJSON)

	return err
}

// LogAsync logs an event without blocking the caller
func (l *Logger) LogAsync(sessionID string, eventType EventType, data map[string]any) {
	if l == nil || l.db == nil || sessionID == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.Log(ctx, sessionID, eventType, data)
	}()
}

// SessionEvent is one logged event row.
type SessionEvent struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListSessionEvents returns events for a session in insertion order.
func (l *Logger) ListSessionEvents(ctx context.Context, sessionID string, limit int) ([]SessionEvent, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}

	rows, err := l.db.Query(ctx, `
		SELECT id, session_id, event_type, event_data, created_at
		FROM session_events
		WHERE session_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionEvent
	for rows.Next() {
		var e SessionEvent
		var data []byte
		if err := rows.Scan(&e.ID, &e.SessionID, &e.EventType, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			e.EventData = json.RawMessage(data)
		} else {
			e.EventData = json.RawMessage(`{}`)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
