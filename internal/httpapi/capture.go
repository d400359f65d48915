package httpapi

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/remivoice/remi/internal/stt"
)

// sttCapture bridges browser audio to Deepgram and accumulates recognition
// results into one running transcript. Each delivery to onTranscript
// carries the complete text so far: finalized segments joined in order,
// plus the current interim tail. The consumer replaces wholesale.
type sttCapture struct {
	cfg          RouterConfig
	logger       *log.Logger
	onTranscript func(string)

	mu      sync.Mutex
	client  *stt.DeepgramClient
	finals  []string
	interim string
	wg      sync.WaitGroup
}

func newSTTCapture(cfg RouterConfig, logger *log.Logger, onTranscript func(string)) *sttCapture {
	return &sttCapture{
		cfg:          cfg,
		logger:       logger,
		onTranscript: onTranscript,
	}
}

// Start opens the Deepgram stream. Calling Start while already live is a
// no-op. When no API key is configured the client does its own speech
// recognition and only transcript text arrives; Start still succeeds.
func (c *sttCapture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}
	if c.cfg.DeepgramAPIKey == "" {
		return nil
	}

	sampleRate := c.cfg.STTSampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}
	model := c.cfg.STTModel
	if model == "" {
		model = "nova-3"
	}
	language := c.cfg.STTLanguage
	if language == "" {
		language = "en"
	}

	client, err := stt.NewDeepgramClient(ctx, stt.DeepgramConfig{
		APIKey:     c.cfg.DeepgramAPIKey,
		Language:   language,
		Model:      model,
		SampleRate: sampleRate,
		Encoding:   "linear16",
		Channels:   1,
		Punctuate:  true,
		Interim:    true,
	})
	if err != nil {
		return err
	}

	c.client = client
	c.wg.Add(1)
	go c.consume(client)
	return nil
}

// Stop closes the Deepgram stream. The accumulated transcript is retained
// so a later Start continues the same running text. Safe to call when not
// live.
func (c *sttCapture) Stop() error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	err := client.Close()
	c.wg.Wait()
	return err
}

// Reset clears the accumulated transcript, after a successful submit.
func (c *sttCapture) Reset() {
	c.mu.Lock()
	c.finals = nil
	c.interim = ""
	c.mu.Unlock()
}

// StreamAudio forwards a browser audio frame. Frames arriving while the
// stream is not live are dropped.
func (c *sttCapture) StreamAudio(ctx context.Context, audio []byte) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()

	if client == nil {
		return
	}
	if err := client.StreamAudio(ctx, audio); err != nil {
		c.logger.Printf("capture: failed to stream audio: %v", err)
	}
}

func (c *sttCapture) consume(client *stt.DeepgramClient) {
	defer c.wg.Done()

	results := client.Results()
	errs := client.Errors()
	for results != nil || errs != nil {
		select {
		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			c.apply(res)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.logger.Printf("capture: stt error: %v", err)
		}
	}
}

func (c *sttCapture) apply(res stt.TranscriptResult) {
	c.mu.Lock()
	if res.Final {
		if res.Text != "" {
			c.finals = append(c.finals, res.Text)
		}
		c.interim = ""
	} else {
		c.interim = res.Text
	}
	text := c.textLocked()
	c.mu.Unlock()

	c.onTranscript(text)
}

func (c *sttCapture) textLocked() string {
	parts := c.finals
	if c.interim != "" {
		parts = append(append([]string(nil), c.finals...), c.interim)
	}
	return strings.Join(parts, " ")
}
