package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/remivoice/remi/internal/eventlog"
	"github.com/remivoice/remi/internal/extract"
	"github.com/remivoice/remi/internal/session"
	"github.com/remivoice/remi/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// assistantCommand is a client-to-server control frame. Binary frames on
// the same connection carry raw linear16 audio for recognition.
type assistantCommand struct {
	Type string `json:"type"` // start, stop, toggle, submit, transcript
	Text string `json:"text,omitempty"`
}

// snapshotMessage is the server-to-client state push. The full snapshot is
// sent after every change; the client renders it wholesale.
type snapshotMessage struct {
	Type      string `json:"type"` // "snapshot"
	SessionID string `json:"session_id"`
	session.Snapshot
}

// deviceReminders scopes the Postgres store to one device and adapts it to
// the controller's reminder collaborator.
type deviceReminders struct {
	store    *store.Store
	deviceID string
}

func (d *deviceReminders) List(ctx context.Context) ([]session.Reminder, error) {
	rows, err := d.store.ListReminders(ctx, d.deviceID)
	if err != nil {
		return nil, err
	}
	out := make([]session.Reminder, 0, len(rows))
	for _, r := range rows {
		out = append(out, session.Reminder{ID: r.ID, Date: r.Date, Time: r.Time, Text: r.Text})
	}
	return out, nil
}

func (d *deviceReminders) Create(ctx context.Context, draft extract.DraftEntry) (session.Reminder, error) {
	r, err := d.store.CreateReminder(ctx, d.deviceID, draft)
	if err != nil {
		return session.Reminder{}, err
	}
	return session.Reminder{ID: r.ID, Date: r.Date, Time: r.Time, Text: r.Text}, nil
}

func (d *deviceReminders) Update(ctx context.Context, id string, patch session.ReminderPatch) error {
	return d.store.UpdateReminder(ctx, d.deviceID, id, patch)
}

func (d *deviceReminders) Delete(ctx context.Context, id string) error {
	return d.store.DeleteReminder(ctx, d.deviceID, id)
}

// assistantSession manages a single browser's assistant session over one
// WebSocket connection.
type assistantSession struct {
	sessionID string
	deviceID  string

	conn   *websocket.Conn
	connMu sync.Mutex

	controller *session.Controller
	capture    *sttCapture
	eventLog   *eventlog.Logger
	logger     *log.Logger
}

// handleAssistantWS upgrades to a WebSocket and runs the session until the
// client disconnects.
func (r *Router) handleAssistantWS(w http.ResponseWriter, req *http.Request) {
	deviceID, err := r.parseToken(req.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, `{"error": "invalid token"}`, http.StatusUnauthorized)
		return
	}
	if r.llm == nil {
		http.Error(w, `{"error": "assistant not configured"}`, http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("assistant: websocket upgrade failed: %v", err)
		return
	}

	s := &assistantSession{
		sessionID: randomID(),
		deviceID:  deviceID,
		conn:      conn,
		eventLog:  r.eventLog,
		logger:    r.logger,
	}

	s.capture = newSTTCapture(r.cfg, r.logger, func(text string) {
		s.controller.SetTranscript(text)
	})

	s.controller = session.New(session.Config{
		Reminders: &deviceReminders{store: r.store, deviceID: deviceID},
		Events:    r.events,
		Responder: r.llm,
		Capture:   s.capture,
		Logger:    r.logger,
		OnChange:  s.sendSnapshot,
	})

	r.logger.Printf("assistant: session %s started for device %s", s.sessionID, deviceID)
	s.eventLog.LogAsync(s.sessionID, eventlog.EventSessionStarted, map[string]any{
		"device_id": deviceID,
	})

	s.run(req.Context())

	_ = s.controller.Close()
	_ = conn.Close()
	s.eventLog.LogAsync(s.sessionID, eventlog.EventSessionEnded, nil)
	r.logger.Printf("assistant: session %s ended", s.sessionID)
}

func (s *assistantSession) run(ctx context.Context) {
	// Initial snapshot carries the current lists.
	s.controller.Refresh(ctx)

	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		if mt == websocket.BinaryMessage {
			s.capture.StreamAudio(ctx, data)
			continue
		}

		var cmd assistantCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.logger.Printf("assistant: invalid command frame: %v", err)
			continue
		}
		s.dispatch(ctx, cmd)
	}
}

func (s *assistantSession) dispatch(ctx context.Context, cmd assistantCommand) {
	switch cmd.Type {
	case "start":
		if err := s.controller.Start(ctx); err != nil {
			s.logger.Printf("assistant: capture start failed: %v", err)
			return
		}
		s.eventLog.LogAsync(s.sessionID, eventlog.EventCaptureStarted, nil)

	case "stop":
		if err := s.controller.Stop(); err != nil {
			s.logger.Printf("assistant: capture stop failed: %v", err)
		}
		s.eventLog.LogAsync(s.sessionID, eventlog.EventCaptureStopped, nil)

	case "toggle":
		if err := s.controller.Toggle(ctx); err != nil {
			s.logger.Printf("assistant: toggle failed: %v", err)
		}

	case "transcript":
		// Client-side recognition mode: each frame carries the complete
		// text so far.
		s.controller.SetTranscript(cmd.Text)
		s.eventLog.LogAsync(s.sessionID, eventlog.EventTranscriptUpdated, map[string]any{
			"length": len(cmd.Text),
		})

	case "submit":
		// Submit blocks on the store and the responder; run it off the
		// read loop so a second submit arrives and gets rejected instead
		// of queueing.
		go s.submit(ctx)

	default:
		s.logger.Printf("assistant: unknown command type %q", cmd.Type)
	}
}

func (s *assistantSession) submit(ctx context.Context) {
	s.eventLog.LogAsync(s.sessionID, eventlog.EventSubmitStarted, nil)

	err := s.controller.Submit(ctx)
	switch {
	case errors.Is(err, session.ErrSubmitInFlight):
		s.logger.Printf("assistant: session %s rejected overlapping submit", s.sessionID)
	case err != nil:
		s.eventLog.LogAsync(s.sessionID, eventlog.EventSubmitFailed, map[string]any{
			"error": err.Error(),
		})
	default:
		s.capture.Reset()
		s.eventLog.LogAsync(s.sessionID, eventlog.EventReminderCreated, nil)
		s.eventLog.LogAsync(s.sessionID, eventlog.EventListsRefreshed, nil)
	}
}

func (s *assistantSession) sendSnapshot(snap session.Snapshot) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	msg := snapshotMessage{
		Type:      "snapshot",
		SessionID: s.sessionID,
		Snapshot:  snap,
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Printf("assistant: failed to send snapshot: %v", err)
	}
}
