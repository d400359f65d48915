package extract

import (
	"strings"
	"time"
)

// DraftEntry is the structured result of parsing one transcript. It is
// handed straight to a store create call and never persisted itself.
type DraftEntry struct {
	Date string `json:"date"` // literal date token, or YYYY-MM-DD default
	Time string `json:"time"` // literal time token, or "12:00" default
	Text string `json:"text"` // the verbatim, untrimmed transcript
}

// DefaultTime is used when the transcript names no time.
const DefaultTime = "12:00"

// Extractor derives a DraftEntry from free-form transcript text using the
// keyword-anchored policy: the token after "on" is taken as the date, the
// token after "at" as the time. Tokens are passed through as-is with no
// parsing or validation. Now is injectable so results are deterministic
// under test.
type Extractor struct {
	Now func() time.Time
}

func New() *Extractor {
	return &Extractor{Now: time.Now}
}

// Extract is total: it never fails, for any input including the empty
// string, and always returns all three fields.
func (e *Extractor) Extract(text string) DraftEntry {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	draft := DraftEntry{
		Date: now().Format("2006-01-02"),
		Time: DefaultTime,
		Text: text,
	}

	tokens := strings.Fields(text)
	if d, ok := tokenAfter(tokens, "on"); ok {
		draft.Date = d
	}
	if t, ok := tokenAfter(tokens, "at"); ok {
		draft.Time = t
	}
	return draft
}

// tokenAfter returns the token following the first occurrence of keyword.
// A keyword in final position anchors nothing.
func tokenAfter(tokens []string, keyword string) (string, bool) {
	for i, tok := range tokens {
		if tok == keyword && i+1 < len(tokens) {
			return tokens[i+1], true
		}
	}
	return "", false
}
