package stt

import "context"

// TranscriptResult represents a speech-to-text recognition result. The
// consumer keeps only the latest result's text: every result, interim or
// final, fully replaces the transcript.
type TranscriptResult struct {
	Text       string  // The transcribed text
	Confidence float64 // Confidence score (0-1)
	Final      bool    // Whether this segment is final or interim
}

// Client defines the interface for streaming speech-to-text providers.
type Client interface {
	// StreamAudio sends raw audio data to the STT service.
	StreamAudio(ctx context.Context, audio []byte) error

	// Results returns a channel that receives recognition results.
	Results() <-chan TranscriptResult

	// Errors returns a channel that receives errors.
	Errors() <-chan error

	// Close closes the connection to the STT service.
	Close() error
}
