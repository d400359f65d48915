package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/remivoice/remi/internal/extract"
)

// State is the controller's lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateSubmitting State = "submitting"
)

// FailureReply is the single user-facing message shown for any submit
// failure. No distinction is surfaced between a store and a responder
// failure.
const FailureReply = "Sorry, I couldn't save that reminder. Please try again."

// ErrSubmitInFlight is returned when Submit is called while a previous
// submit has not finished. The second call is rejected, never queued.
var ErrSubmitInFlight = errors.New("session: submit already in flight")

// Reminder is the locally cached snapshot of a stored reminder.
type Reminder struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Time string `json:"time"`
	Text string `json:"text"`
}

// Event is the locally cached snapshot of a mirrored calendar event.
type Event struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Summary string `json:"summary"`
}

// ReminderPatch carries partial updates; nil fields are left unchanged.
type ReminderPatch struct {
	Date *string `json:"date,omitempty"`
	Time *string `json:"time,omitempty"`
	Text *string `json:"text,omitempty"`
}

// EventPatch carries partial updates; nil fields are left unchanged.
type EventPatch struct {
	Date    *string `json:"date,omitempty"`
	Time    *string `json:"time,omitempty"`
	Summary *string `json:"summary,omitempty"`
}

// ReminderStore is the external reminder CRUD collaborator.
type ReminderStore interface {
	List(ctx context.Context) ([]Reminder, error)
	Create(ctx context.Context, draft extract.DraftEntry) (Reminder, error)
	Update(ctx context.Context, id string, patch ReminderPatch) error
	Delete(ctx context.Context, id string) error
}

// EventStore is the external calendar-mirror CRUD collaborator.
type EventStore interface {
	List(ctx context.Context) ([]Event, error)
	Create(ctx context.Context, draft extract.DraftEntry) (Event, error)
	Update(ctx context.Context, id string, patch EventPatch) error
	Delete(ctx context.Context, id string) error
}

// Responder is the AI collaborator: text in, text out, no streaming.
type Responder interface {
	Query(ctx context.Context, text string) (string, error)
}

// Capture is the speech capture collaborator. Start and Stop must both be
// idempotent; the controller releases the capture on Stop and again on
// Close without tracking whether it is live.
type Capture interface {
	Start(ctx context.Context) error
	Stop() error
}

// Snapshot is the full controller state delivered to the UI after every
// change. Lists are whole-replacement copies, never patched in place.
type Snapshot struct {
	State      State      `json:"state"`
	Transcript string     `json:"transcript"`
	Reply      string     `json:"reply"`
	Reminders  []Reminder `json:"reminders"`
	Events     []Event    `json:"events"`
}

// Controller owns one assistant session: the live transcript buffer, the
// listening/submitting state machine, and the cached list snapshots. All
// methods are safe for concurrent use; the overlapping-submit hazard is
// handled by rejecting re-entry at the boundary.
type Controller struct {
	reminders ReminderStore
	events    EventStore
	responder Responder
	capture   Capture
	extractor *extract.Extractor
	logger    *log.Logger

	// onChange delivers snapshots to the single consumer. Last write wins;
	// the consumer must not rely on seeing every intermediate state.
	onChange func(Snapshot)

	mu           sync.Mutex
	state        State
	transcript   string
	reply        string
	reminderList []Reminder
	eventList    []Event
	closed       bool
}

// Config wires a Controller. Capture may be nil when the client does its
// own speech recognition and only sends transcript text.
type Config struct {
	Reminders ReminderStore
	Events    EventStore
	Responder Responder
	Capture   Capture
	Clock     func() time.Time
	Logger    *log.Logger
	OnChange  func(Snapshot)
}

func New(cfg Config) *Controller {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		reminders: cfg.Reminders,
		events:    cfg.Events,
		responder: cfg.Responder,
		capture:   cfg.Capture,
		extractor: &extract.Extractor{Now: clock},
		logger:    logger,
		onChange:  cfg.OnChange,
		state:     StateIdle,
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:      c.state,
		Transcript: c.transcript,
		Reply:      c.reply,
		Reminders:  append([]Reminder(nil), c.reminderList...),
		Events:     append([]Event(nil), c.eventList...),
	}
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.Snapshot())
}

// Start begins speech capture: Idle -> Listening. Starting while already
// listening or submitting is a no-op.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.state = StateListening
	c.mu.Unlock()

	if c.capture != nil {
		if err := c.capture.Start(ctx); err != nil {
			c.mu.Lock()
			c.state = StateIdle
			c.mu.Unlock()
			c.notify()
			return err
		}
	}
	c.notify()
	return nil
}

// Stop ends speech capture: Listening -> Idle. The transcript is retained
// as-is. Stopping an already-stopped session is a no-op, but the capture
// is released again regardless, idempotently.
func (c *Controller) Stop() error {
	c.mu.Lock()
	wasListening := c.state == StateListening
	if wasListening {
		c.state = StateIdle
	}
	c.mu.Unlock()

	var err error
	if c.capture != nil {
		err = c.capture.Stop()
	}
	if wasListening {
		c.notify()
	}
	return err
}

// Toggle starts capture when idle and stops it when listening. It is the
// server half of the global space-key binding; the caller guards against
// firing while a text input has focus.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case StateIdle:
		return c.Start(ctx)
	case StateListening:
		return c.Stop()
	default:
		return nil
	}
}

// SetTranscript replaces the transcript wholesale. Each recognition update
// (interim or final) carries the complete text so far; last write wins and
// nothing is merged.
func (c *Controller) SetTranscript(text string) {
	c.mu.Lock()
	if c.state == StateSubmitting {
		// A submit snapshotted the transcript already; late recognition
		// results would be lost either way, so drop them.
		c.mu.Unlock()
		return
	}
	c.transcript = text
	c.mu.Unlock()
	c.notify()
}

// Submit runs the pipeline: extract a draft from the current transcript,
// create the reminder, query the responder with the raw transcript, then
// reload both cached lists. The two external writes run sequentially. On
// any failure the transcript is left untouched so the user can retry, the
// reply becomes FailureReply, and no list reload happens.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("session: closed")
	}
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	transcript := c.transcript
	c.state = StateSubmitting
	c.mu.Unlock()

	// Capture does not run across a submit; release is idempotent.
	if c.capture != nil {
		_ = c.capture.Stop()
	}
	c.notify()

	draft := c.extractor.Extract(transcript)

	err := c.runPipeline(ctx, transcript, draft)

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.notify()
	return err
}

func (c *Controller) runPipeline(ctx context.Context, transcript string, draft extract.DraftEntry) error {
	if _, err := c.reminders.Create(ctx, draft); err != nil {
		c.logger.Printf("session: reminder create failed: %v", err)
		c.failSubmit()
		return err
	}

	reply, err := c.responder.Query(ctx, transcript)
	if err != nil {
		c.logger.Printf("session: responder query failed: %v", err)
		c.failSubmit()
		return err
	}

	c.mu.Lock()
	c.transcript = ""
	c.reply = reply
	c.mu.Unlock()

	c.reloadReminders(ctx)
	c.reloadEvents(ctx)
	return nil
}

func (c *Controller) failSubmit() {
	c.mu.Lock()
	c.reply = FailureReply
	c.mu.Unlock()
}

// reloadReminders replaces the cached reminder list with a fresh snapshot.
// A failed fetch keeps the previous snapshot.
func (c *Controller) reloadReminders(ctx context.Context) {
	list, err := c.reminders.List(ctx)
	if err != nil {
		c.logger.Printf("session: reminder reload failed: %v", err)
		return
	}
	c.mu.Lock()
	c.reminderList = list
	c.mu.Unlock()
}

func (c *Controller) reloadEvents(ctx context.Context) {
	if c.events == nil {
		return
	}
	list, err := c.events.List(ctx)
	if err != nil {
		c.logger.Printf("session: event reload failed: %v", err)
		return
	}
	c.mu.Lock()
	c.eventList = list
	c.mu.Unlock()
}

// Refresh reloads both cached lists, for session startup.
func (c *Controller) Refresh(ctx context.Context) {
	c.reloadReminders(ctx)
	c.reloadEvents(ctx)
	c.notify()
}

// UpdateReminder writes the patch and reloads the cached list. The reload
// happens even when the write fails, so the cache reflects true server
// state; reload-after-write is the only consistency mechanism.
func (c *Controller) UpdateReminder(ctx context.Context, id string, patch ReminderPatch) error {
	err := c.reminders.Update(ctx, id, patch)
	if err != nil {
		c.logger.Printf("session: reminder update failed: %v", err)
	}
	c.reloadReminders(ctx)
	c.notify()
	return err
}

// DeleteReminder removes the reminder and reloads the cached list.
func (c *Controller) DeleteReminder(ctx context.Context, id string) error {
	err := c.reminders.Delete(ctx, id)
	if err != nil {
		c.logger.Printf("session: reminder delete failed: %v", err)
	}
	c.reloadReminders(ctx)
	c.notify()
	return err
}

// UpdateEvent writes the patch and reloads the cached event list.
func (c *Controller) UpdateEvent(ctx context.Context, id string, patch EventPatch) error {
	if c.events == nil {
		return errors.New("session: event store not configured")
	}
	err := c.events.Update(ctx, id, patch)
	if err != nil {
		c.logger.Printf("session: event update failed: %v", err)
	}
	c.reloadEvents(ctx)
	c.notify()
	return err
}

// DeleteEvent removes the event and reloads the cached event list.
func (c *Controller) DeleteEvent(ctx context.Context, id string) error {
	if c.events == nil {
		return errors.New("session: event store not configured")
	}
	err := c.events.Delete(ctx, id)
	if err != nil {
		c.logger.Printf("session: event delete failed: %v", err)
	}
	c.reloadEvents(ctx)
	c.notify()
	return err
}

// Close tears the session down and releases the capture resource. Safe to
// call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = StateIdle
	c.mu.Unlock()

	if c.capture != nil {
		return c.capture.Stop()
	}
	return nil
}
