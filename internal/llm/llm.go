package llm

import "context"

// Client defines the interface for AI responder providers: one utterance
// in, one conversational reply out. No streaming.
type Client interface {
	// Query sends the raw transcript text and returns the assistant's reply.
	Query(ctx context.Context, text string) (string, error)
}
