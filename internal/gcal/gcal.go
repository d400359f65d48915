package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/remivoice/remi/internal/extract"
	"github.com/remivoice/remi/internal/session"
)

// Config holds configuration for the Google Calendar mirror.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenFile    string // path to a stored oauth2 token JSON
	CalendarID   string // target calendar, "primary" for the default
}

// Client mirrors reminders into a Google Calendar. It implements
// session.EventStore over {date, time, summary}.
type Client struct {
	svc        *calendar.Service
	calendarID string
	logger     *log.Logger
	now        func() time.Time

	// listWindow bounds List to upcoming events; the UI shows a snapshot,
	// not the full history.
	listWindow time.Duration
}

// NewClient builds an authenticated calendar client from a previously
// obtained oauth2 token. Returns (nil, nil) when unconfigured, so the
// event mirror degrades to disabled rather than failing startup.
func NewClient(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TokenFile == "" {
		logger.Println("gcal: missing configuration, calendar mirror disabled")
		return nil, nil
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarEventsScope},
	}

	tok, err := loadToken(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar token: %w", err)
	}

	httpClient := oauthCfg.Client(ctx, tok)
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	return &Client{
		svc:        svc,
		calendarID: calendarID,
		logger:     logger,
		now:        time.Now,
		listWindow: 90 * 24 * time.Hour,
	}, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &tok, nil
}

// List returns upcoming events in the calendar's own start order.
func (c *Client) List(ctx context.Context) ([]session.Event, error) {
	now := c.now()
	res, err := c.svc.Events.List(c.calendarID).
		Context(ctx).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.Add(c.listWindow).Format(time.RFC3339)).
		MaxResults(100).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	out := make([]session.Event, 0, len(res.Items))
	for _, item := range res.Items {
		out = append(out, fromAPIEvent(item))
	}
	return out, nil
}

// Create inserts a one-hour event built from the draft entry.
func (c *Client) Create(ctx context.Context, draft extract.DraftEntry) (session.Event, error) {
	start := eventStart(draft.Date, draft.Time, c.now)
	ev := &calendar.Event{
		Summary: draft.Text,
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: start.Add(time.Hour).Format(time.RFC3339)},
	}

	created, err := c.svc.Events.Insert(c.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return session.Event{}, fmt.Errorf("failed to insert event: %w", err)
	}
	return fromAPIEvent(created), nil
}

// Update patches summary and/or start time; nil fields are left unchanged.
func (c *Client) Update(ctx context.Context, id string, patch session.EventPatch) error {
	existing, err := c.svc.Events.Get(c.calendarID, id).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}

	if patch.Summary != nil {
		existing.Summary = *patch.Summary
	}
	if patch.Date != nil || patch.Time != nil {
		cur := fromAPIEvent(existing)
		date := cur.Date
		tm := cur.Time
		if patch.Date != nil {
			date = *patch.Date
		}
		if patch.Time != nil {
			tm = *patch.Time
		}
		start := eventStart(date, tm, c.now)
		existing.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)}
		existing.End = &calendar.EventDateTime{DateTime: start.Add(time.Hour).Format(time.RFC3339)}
	}

	_, err = c.svc.Events.Update(c.calendarID, id, existing).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

// Delete removes an event.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.svc.Events.Delete(c.calendarID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// eventStart converts the literal date/time strings into a concrete start
// instant. The extractor passes tokens through unvalidated, so this must
// be total: an unparseable literal falls back to the current date at the
// default time.
func eventStart(date, tm string, now func() time.Time) time.Time {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		d = now().UTC()
	}

	clock, err := time.Parse("15:04", tm)
	if err != nil {
		clock, err = time.Parse("3:04", tm)
		if err != nil {
			clock, _ = time.Parse("15:04", extract.DefaultTime)
		}
	}

	return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
}

// fromAPIEvent maps a calendar API event onto the local snapshot shape.
// All-day events carry a bare date and get the default display time.
func fromAPIEvent(ev *calendar.Event) session.Event {
	out := session.Event{
		ID:      ev.Id,
		Summary: ev.Summary,
		Time:    extract.DefaultTime,
	}

	if ev.Start == nil {
		return out
	}

	if ev.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, ev.Start.DateTime); err == nil {
			out.Date = t.Format("2006-01-02")
			out.Time = t.Format("15:04")
			return out
		}
	}
	out.Date = ev.Start.Date
	return out
}
