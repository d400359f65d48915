package httpapi

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/remivoice/remi/internal/stt"
)

func newTestCapture(t *testing.T) (*sttCapture, *[]string) {
	t.Helper()
	var got []string
	c := newSTTCapture(RouterConfig{}, log.New(io.Discard, "", 0), func(text string) {
		got = append(got, text)
	})
	return c, &got
}

func TestCaptureAccumulatesTranscript(t *testing.T) {
	c, got := newTestCapture(t)

	c.apply(stt.TranscriptResult{Text: "remind me", Final: false})
	c.apply(stt.TranscriptResult{Text: "remind me to call mom", Final: true})
	c.apply(stt.TranscriptResult{Text: "on", Final: false})
	c.apply(stt.TranscriptResult{Text: "on 2024-06-01", Final: true})

	want := []string{
		"remind me",
		"remind me to call mom",
		"remind me to call mom on",
		"remind me to call mom on 2024-06-01",
	}
	if len(*got) != len(want) {
		t.Fatalf("deliveries = %d, want %d: %v", len(*got), len(want), *got)
	}
	for i := range want {
		if (*got)[i] != want[i] {
			t.Errorf("delivery %d = %q, want %q", i, (*got)[i], want[i])
		}
	}
}

func TestCaptureEmptyFinalKeepsText(t *testing.T) {
	c, got := newTestCapture(t)

	c.apply(stt.TranscriptResult{Text: "buy milk", Final: true})
	c.apply(stt.TranscriptResult{Text: "", Final: true})

	last := (*got)[len(*got)-1]
	if last != "buy milk" {
		t.Errorf("last delivery = %q, want %q", last, "buy milk")
	}
}

func TestCaptureReset(t *testing.T) {
	c, _ := newTestCapture(t)

	c.apply(stt.TranscriptResult{Text: "buy milk", Final: true})
	c.Reset()

	c.mu.Lock()
	text := c.textLocked()
	c.mu.Unlock()
	if text != "" {
		t.Errorf("text after reset = %q, want empty", text)
	}
}

func TestCaptureWithoutAPIKey(t *testing.T) {
	c, _ := newTestCapture(t)

	// No Deepgram key: Start succeeds without opening a stream, audio
	// frames are dropped, Stop is a no-op.
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.StreamAudio(context.Background(), []byte{0x00, 0x01})
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
