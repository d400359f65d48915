package gcal

import (
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
)

func fixedNow() time.Time {
	return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)
}

func TestEventStart(t *testing.T) {
	tests := []struct {
		name string
		date string
		tm   string
		want time.Time
	}{
		{
			name: "canonical date and time",
			date: "2024-06-01",
			tm:   "15:30",
			want: time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC),
		},
		{
			name: "single digit hour",
			date: "2024-06-01",
			tm:   "9:15",
			want: time.Date(2024, 6, 1, 9, 15, 0, 0, time.UTC),
		},
		{
			name: "loose date literal falls back to current date",
			date: "friday",
			tm:   "15:30",
			want: time.Date(2024, 6, 15, 15, 30, 0, 0, time.UTC),
		},
		{
			name: "loose time literal falls back to default time",
			date: "2024-06-01",
			tm:   "noon",
			want: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "both loose",
			date: "",
			tm:   "",
			want: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := eventStart(tt.date, tt.tm, fixedNow)
			if !got.Equal(tt.want) {
				t.Errorf("eventStart(%q, %q) = %v, want %v", tt.date, tt.tm, got, tt.want)
			}
		})
	}
}

func TestFromAPIEvent(t *testing.T) {
	t.Run("timed event", func(t *testing.T) {
		got := fromAPIEvent(&calendar.Event{
			Id:      "ev1",
			Summary: "standup",
			Start:   &calendar.EventDateTime{DateTime: "2024-06-01T15:30:00Z"},
		})
		if got.ID != "ev1" || got.Summary != "standup" {
			t.Errorf("event = %+v", got)
		}
		if got.Date != "2024-06-01" || got.Time != "15:30" {
			t.Errorf("date/time = %q/%q", got.Date, got.Time)
		}
	})

	t.Run("all-day event gets default time", func(t *testing.T) {
		got := fromAPIEvent(&calendar.Event{
			Id:      "ev2",
			Summary: "holiday",
			Start:   &calendar.EventDateTime{Date: "2024-07-04"},
		})
		if got.Date != "2024-07-04" {
			t.Errorf("date = %q", got.Date)
		}
		if got.Time != "12:00" {
			t.Errorf("time = %q, want default", got.Time)
		}
	})

	t.Run("missing start", func(t *testing.T) {
		got := fromAPIEvent(&calendar.Event{Id: "ev3", Summary: "weird"})
		if got.ID != "ev3" || got.Time != "12:00" {
			t.Errorf("event = %+v", got)
		}
	})
}
