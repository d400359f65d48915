package session

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/remivoice/remi/internal/extract"
)

// fakeReminderStore records calls and serves canned lists.
type fakeReminderStore struct {
	mu          sync.Mutex
	created     []extract.DraftEntry
	updated     []string
	deleted     []string
	listCalls   int
	list        []Reminder
	createErr   error
	updateErr   error
	listErr     error
	createEntry chan struct{} // closed-ish signal: one send per Create
	createGate  chan struct{} // Create blocks until this is closed, if set
}

func (f *fakeReminderStore) List(ctx context.Context) ([]Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Reminder(nil), f.list...), nil
}

func (f *fakeReminderStore) Create(ctx context.Context, draft extract.DraftEntry) (Reminder, error) {
	f.mu.Lock()
	f.created = append(f.created, draft)
	entry := f.createEntry
	gate := f.createGate
	err := f.createErr
	f.mu.Unlock()

	if entry != nil {
		entry <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return Reminder{}, err
	}
	return Reminder{ID: "r1", Date: draft.Date, Time: draft.Time, Text: draft.Text}, nil
}

func (f *fakeReminderStore) Update(ctx context.Context, id string, patch ReminderPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, id)
	return f.updateErr
}

func (f *fakeReminderStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeReminderStore) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeEventStore struct {
	mu        sync.Mutex
	listCalls int
	list      []Event
	deleted   []string
}

func (f *fakeEventStore) List(ctx context.Context) ([]Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]Event(nil), f.list...), nil
}

func (f *fakeEventStore) Create(ctx context.Context, draft extract.DraftEntry) (Event, error) {
	return Event{ID: "e1"}, nil
}

func (f *fakeEventStore) Update(ctx context.Context, id string, patch EventPatch) error {
	return nil
}

func (f *fakeEventStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeResponder struct {
	mu      sync.Mutex
	queries []string
	reply   string
	err     error
}

func (f *fakeResponder) Query(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, text)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeResponder) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeCapture struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (f *fakeCapture) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return nil
}

func (f *fakeCapture) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testClock() time.Time {
	return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
}

func newTestController(rs ReminderStore, es EventStore, resp Responder, cap Capture) *Controller {
	return New(Config{
		Reminders: rs,
		Events:    es,
		Responder: resp,
		Capture:   cap,
		Clock:     testClock,
		Logger:    testLogger(),
	})
}

func TestSubmit_Success(t *testing.T) {
	rs := &fakeReminderStore{list: []Reminder{{ID: "r1", Text: "call mom"}}}
	es := &fakeEventStore{list: []Event{{ID: "e1", Summary: "standup"}}}
	resp := &fakeResponder{reply: "Saved! I'll remind you."}
	c := newTestController(rs, es, resp, nil)

	const transcript = "remind me to call mom on 2024-06-01 at 15:30"
	c.SetTranscript(transcript)

	if err := c.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	snap := c.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("state = %q, want idle", snap.State)
	}
	if snap.Transcript != "" {
		t.Errorf("transcript = %q, want cleared", snap.Transcript)
	}
	if snap.Reply != "Saved! I'll remind you." {
		t.Errorf("reply = %q", snap.Reply)
	}

	// The draft came from the keyword-anchored extractor.
	if len(rs.created) != 1 {
		t.Fatalf("created %d reminders, want 1", len(rs.created))
	}
	draft := rs.created[0]
	if draft.Date != "2024-06-01" || draft.Time != "15:30" || draft.Text != transcript {
		t.Errorf("draft = %+v", draft)
	}

	// The responder got the raw transcript, not the draft.
	if len(resp.queries) != 1 || resp.queries[0] != transcript {
		t.Errorf("queries = %v", resp.queries)
	}

	// Cached lists equal what a subsequent List would return.
	if len(snap.Reminders) != 1 || snap.Reminders[0].ID != "r1" {
		t.Errorf("reminders = %+v", snap.Reminders)
	}
	if len(snap.Events) != 1 || snap.Events[0].ID != "e1" {
		t.Errorf("events = %+v", snap.Events)
	}
}

func TestSubmit_StoreFailure(t *testing.T) {
	rs := &fakeReminderStore{createErr: errors.New("store down")}
	es := &fakeEventStore{}
	resp := &fakeResponder{reply: "unused"}
	c := newTestController(rs, es, resp, nil)

	const transcript = "pay rent on 2024-08-01"
	c.SetTranscript(transcript)

	if err := c.Submit(context.Background()); err == nil {
		t.Fatal("Submit should fail when create fails")
	}

	snap := c.Snapshot()
	if snap.Transcript != transcript {
		t.Errorf("transcript = %q, want unchanged pre-submit value", snap.Transcript)
	}
	if snap.Reply != FailureReply {
		t.Errorf("reply = %q, want fixed failure message", snap.Reply)
	}
	if snap.State != StateIdle {
		t.Errorf("state = %q, want idle", snap.State)
	}

	// No AI call and no list reload after a store failure.
	if resp.queryCount() != 0 {
		t.Errorf("responder queried %d times, want 0", resp.queryCount())
	}
	if rs.listCalls != 0 || es.listCalls != 0 {
		t.Errorf("list reloads = %d/%d, want none", rs.listCalls, es.listCalls)
	}
}

func TestSubmit_ResponderFailure(t *testing.T) {
	rs := &fakeReminderStore{}
	resp := &fakeResponder{err: errors.New("timeout")}
	c := newTestController(rs, &fakeEventStore{}, resp, nil)

	c.SetTranscript("meet sarah at 9:00")

	if err := c.Submit(context.Background()); err == nil {
		t.Fatal("Submit should surface the responder failure")
	}

	snap := c.Snapshot()
	if snap.Transcript != "meet sarah at 9:00" {
		t.Errorf("transcript = %q, want unchanged", snap.Transcript)
	}
	if snap.Reply != FailureReply {
		t.Errorf("reply = %q, want fixed failure message", snap.Reply)
	}
	if rs.listCalls != 0 {
		t.Errorf("reminder list reloaded %d times after failure, want 0", rs.listCalls)
	}
}

func TestSubmit_ReentryRejected(t *testing.T) {
	rs := &fakeReminderStore{
		createEntry: make(chan struct{}, 1),
		createGate:  make(chan struct{}),
	}
	resp := &fakeResponder{reply: "ok"}
	c := newTestController(rs, &fakeEventStore{}, resp, nil)

	c.SetTranscript("first submit")

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()

	// Wait until the first submit is inside the store create call.
	<-rs.createEntry

	if err := c.Submit(context.Background()); !errors.Is(err, ErrSubmitInFlight) {
		t.Errorf("second Submit = %v, want ErrSubmitInFlight", err)
	}

	close(rs.createGate)
	if err := <-done; err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	if got := rs.createdCount(); got != 1 {
		t.Errorf("store creates = %d, want exactly 1", got)
	}
	if got := resp.queryCount(); got != 1 {
		t.Errorf("responder queries = %d, want exactly 1", got)
	}
}

func TestStartStop_CaptureLifecycle(t *testing.T) {
	cap := &fakeCapture{}
	c := newTestController(&fakeReminderStore{}, &fakeEventStore{}, &fakeResponder{}, cap)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if c.Snapshot().State != StateListening {
		t.Errorf("state = %q, want listening", c.Snapshot().State)
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if c.Snapshot().State != StateIdle {
		t.Errorf("state = %q, want idle after stop", c.Snapshot().State)
	}

	// Stop again while already stopped: state unchanged, release repeated
	// idempotently.
	if err := c.Stop(); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
	if cap.starts != 1 {
		t.Errorf("capture starts = %d, want 1", cap.starts)
	}
	if cap.stops < 2 {
		t.Errorf("capture stops = %d, want release on every stop", cap.stops)
	}
}

func TestStop_RetainsTranscript(t *testing.T) {
	c := newTestController(&fakeReminderStore{}, &fakeEventStore{}, &fakeResponder{}, &fakeCapture{})

	_ = c.Start(context.Background())
	c.SetTranscript("half a thought")
	_ = c.Stop()

	if got := c.Snapshot().Transcript; got != "half a thought" {
		t.Errorf("transcript = %q, want retained after stop", got)
	}
}

func TestToggle(t *testing.T) {
	cap := &fakeCapture{}
	c := newTestController(&fakeReminderStore{}, &fakeEventStore{}, &fakeResponder{}, cap)

	_ = c.Toggle(context.Background())
	if c.Snapshot().State != StateListening {
		t.Errorf("after first toggle state = %q, want listening", c.Snapshot().State)
	}

	_ = c.Toggle(context.Background())
	if c.Snapshot().State != StateIdle {
		t.Errorf("after second toggle state = %q, want idle", c.Snapshot().State)
	}
	if cap.starts != 1 || cap.stops == 0 {
		t.Errorf("capture starts/stops = %d/%d", cap.starts, cap.stops)
	}
}

func TestSetTranscript_LastWriteWins(t *testing.T) {
	c := newTestController(&fakeReminderStore{}, &fakeEventStore{}, &fakeResponder{}, nil)

	c.SetTranscript("remind")
	c.SetTranscript("remind me")
	c.SetTranscript("remind me to stretch")

	if got := c.Snapshot().Transcript; got != "remind me to stretch" {
		t.Errorf("transcript = %q, want last full replacement", got)
	}
}

func TestUpdateReminder_ReloadsEvenOnFailure(t *testing.T) {
	rs := &fakeReminderStore{updateErr: errors.New("validation failed")}
	c := newTestController(rs, &fakeEventStore{}, &fakeResponder{}, nil)

	text := "new text"
	err := c.UpdateReminder(context.Background(), "r9", ReminderPatch{Text: &text})
	if err == nil {
		t.Fatal("UpdateReminder should return the store error")
	}
	if rs.listCalls != 1 {
		t.Errorf("list reloads = %d, want 1 (reload reflects true server state)", rs.listCalls)
	}
}

func TestDeleteReminder_ReloadAfterWrite(t *testing.T) {
	rs := &fakeReminderStore{list: []Reminder{{ID: "r2"}}}
	c := newTestController(rs, &fakeEventStore{}, &fakeResponder{}, nil)

	if err := c.DeleteReminder(context.Background(), "r1"); err != nil {
		t.Fatalf("DeleteReminder failed: %v", err)
	}
	if len(rs.deleted) != 1 || rs.deleted[0] != "r1" {
		t.Errorf("deleted = %v", rs.deleted)
	}
	if rs.listCalls != 1 {
		t.Errorf("list reloads = %d, want 1", rs.listCalls)
	}
	if got := c.Snapshot().Reminders; len(got) != 1 || got[0].ID != "r2" {
		t.Errorf("cached reminders = %+v, want server snapshot", got)
	}
}

func TestDeleteEvent_ReloadAfterWrite(t *testing.T) {
	es := &fakeEventStore{}
	c := newTestController(&fakeReminderStore{}, es, &fakeResponder{}, nil)

	if err := c.DeleteEvent(context.Background(), "e7"); err != nil {
		t.Fatalf("DeleteEvent failed: %v", err)
	}
	if len(es.deleted) != 1 || es.deleted[0] != "e7" {
		t.Errorf("deleted = %v", es.deleted)
	}
	if es.listCalls != 1 {
		t.Errorf("event list reloads = %d, want 1", es.listCalls)
	}
}

func TestFailedReloadKeepsPreviousSnapshot(t *testing.T) {
	rs := &fakeReminderStore{list: []Reminder{{ID: "r1"}}}
	c := newTestController(rs, &fakeEventStore{}, &fakeResponder{reply: "ok"}, nil)

	c.Refresh(context.Background())
	if len(c.Snapshot().Reminders) != 1 {
		t.Fatal("expected initial snapshot of one reminder")
	}

	rs.mu.Lock()
	rs.listErr = errors.New("fetch failed")
	rs.mu.Unlock()

	c.Refresh(context.Background())
	if got := c.Snapshot().Reminders; len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("cached reminders = %+v, want previous snapshot kept", got)
	}
}

func TestClose_ReleasesCapture(t *testing.T) {
	cap := &fakeCapture{}
	c := newTestController(&fakeReminderStore{}, &fakeEventStore{}, &fakeResponder{}, cap)

	_ = c.Start(context.Background())
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if cap.stops == 0 {
		t.Error("Close should release the capture")
	}

	// Close twice is safe.
	if err := c.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestOnChange_DeliversSnapshots(t *testing.T) {
	var mu sync.Mutex
	var last Snapshot
	c := New(Config{
		Reminders: &fakeReminderStore{},
		Events:    &fakeEventStore{},
		Responder: &fakeResponder{},
		Clock:     testClock,
		Logger:    testLogger(),
		OnChange: func(s Snapshot) {
			mu.Lock()
			last = s
			mu.Unlock()
		},
	})

	c.SetTranscript("hello there")

	mu.Lock()
	defer mu.Unlock()
	if last.Transcript != "hello there" {
		t.Errorf("last snapshot transcript = %q", last.Transcript)
	}
}
