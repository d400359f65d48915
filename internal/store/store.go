package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remivoice/remi/internal/extract"
	"github.com/remivoice/remi/internal/session"
)

// Store is the reminder store backed by Postgres. Schema migrations are
// applied externally by the deploy job; there is no migration runner at
// startup.
type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Reminder is a persisted reminder row. Date and Time are stored as the
// literal strings the extractor produced; the store does not validate
// them.
type Reminder struct {
	ID         string     `json:"id"`
	DeviceID   string     `json:"device_id"`
	Date       string     `json:"date"`
	Time       string     `json:"time"`
	Text       string     `json:"text"`
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ListReminders returns all reminders for a device in server order
// (most recently created first).
func (s *Store) ListReminders(ctx context.Context, deviceID string) ([]Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, device_id, date, time, text, notified_at, created_at, updated_at
		FROM reminders
		WHERE device_id = $1
		ORDER BY created_at DESC
	`, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var r Reminder
		if err := rows.Scan(&r.ID, &r.DeviceID, &r.Date, &r.Time, &r.Text, &r.NotifiedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateReminder inserts a reminder from a draft entry and returns the
// stored row.
func (s *Store) CreateReminder(ctx context.Context, deviceID string, draft extract.DraftEntry) (Reminder, error) {
	var r Reminder
	err := s.db.QueryRow(ctx, `
		INSERT INTO reminders (id, device_id, date, time, text)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, device_id, date, time, text, notified_at, created_at, updated_at
	`, deviceID, draft.Date, draft.Time, draft.Text).Scan(
		&r.ID, &r.DeviceID, &r.Date, &r.Time, &r.Text, &r.NotifiedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// GetReminder fetches a single reminder by id.
func (s *Store) GetReminder(ctx context.Context, deviceID, id string) (Reminder, error) {
	var r Reminder
	err := s.db.QueryRow(ctx, `
		SELECT id, device_id, date, time, text, notified_at, created_at, updated_at
		FROM reminders
		WHERE device_id = $1 AND id = $2
	`, deviceID, id).Scan(
		&r.ID, &r.DeviceID, &r.Date, &r.Time, &r.Text, &r.NotifiedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// UpdateReminder applies a partial update. Nil fields are left unchanged.
// A changed date or time clears notified_at so the notifier fires again.
func (s *Store) UpdateReminder(ctx context.Context, deviceID, id string, patch session.ReminderPatch) error {
	_, err := s.db.Exec(ctx, `
		UPDATE reminders
		SET date = COALESCE($3, date),
		    time = COALESCE($4, time),
		    text = COALESCE($5, text),
		    notified_at = CASE WHEN $3 IS NOT NULL OR $4 IS NOT NULL THEN NULL ELSE notified_at END,
		    updated_at = NOW()
		WHERE device_id = $1 AND id = $2
	`, deviceID, id, patch.Date, patch.Time, patch.Text)
	return err
}

// DeleteReminder removes a reminder.
func (s *Store) DeleteReminder(ctx context.Context, deviceID, id string) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM reminders WHERE device_id = $1 AND id = $2
	`, deviceID, id)
	return err
}

// dueScanPageSize bounds each keyset page of the due-reminder scan.
const dueScanPageSize = 500

// DueReminders returns unnotified reminders whose literal date/time parse
// to an instant at or before the horizon. Rows with unparseable literals
// never come due; they were stored as free text and have no clock meaning.
// Those rows stay unnotified forever, so the scan pages past them with a
// keyset cursor instead of letting them occupy the batch and starve newer
// parseable reminders.
func (s *Store) DueReminders(ctx context.Context, horizon time.Time, limit int) ([]Reminder, error) {
	var (
		out      []Reminder
		cursorAt time.Time
		cursorID string
	)

	for len(out) < limit {
		page, err := s.dueScanPage(ctx, cursorAt, cursorID)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		last := page[len(page)-1]
		cursorAt, cursorID = last.CreatedAt, last.ID

		for _, r := range page {
			due, ok := ReminderDueAt(r)
			if ok && !due.After(horizon) {
				out = append(out, r)
				if len(out) == limit {
					break
				}
			}
		}
		if len(page) < dueScanPageSize {
			break
		}
	}
	return out, nil
}

func (s *Store) dueScanPage(ctx context.Context, afterAt time.Time, afterID string) ([]Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, device_id, date, time, text, notified_at, created_at, updated_at
		FROM reminders
		WHERE notified_at IS NULL
		  AND (created_at, id::text) > ($1, $2)
		ORDER BY created_at ASC, id::text ASC
		LIMIT $3
	`, afterAt, afterID, dueScanPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var page []Reminder
	for rows.Next() {
		var r Reminder
		if err := rows.Scan(&r.ID, &r.DeviceID, &r.Date, &r.Time, &r.Text, &r.NotifiedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		page = append(page, r)
	}
	return page, rows.Err()
}

// MarkReminderNotified records that a due push was sent.
func (s *Store) MarkReminderNotified(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE reminders SET notified_at = $2 WHERE id = $1
	`, id, at)
	return err
}

// ReminderDueAt parses the literal date/time strings into an instant in
// UTC. The second return is false when either literal is not in the
// YYYY-MM-DD / HH:MM shape the extractor defaults to.
func ReminderDueAt(r Reminder) (time.Time, bool) {
	d, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return time.Time{}, false
	}
	clock, err := time.Parse("15:04", r.Time)
	if err != nil {
		// Single-digit hour also arrives from speech ("at 9:15").
		clock, err = time.Parse("3:04", r.Time)
		if err != nil {
			return time.Time{}, false
		}
	}
	return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC), true
}
