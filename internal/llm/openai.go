package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient implements the Client interface using OpenAI's API.
type OpenAIClient struct {
	apiKey       string
	model        string
	systemPrompt string
	baseURL      string
	httpClient   *http.Client
}

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey       string
	Model        string // e.g., "gpt-4o-mini"
	SystemPrompt string // Optional custom system prompt
	BaseURL      string // Optional override, used in tests
	HTTPClient   *http.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = SystemPromptDefault
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openaiAPIURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenAIClient{
		apiKey:       cfg.APIKey,
		model:        model,
		systemPrompt: systemPrompt,
		baseURL:      baseURL,
		httpClient:   httpClient,
	}
}

// SetSystemPrompt sets a custom system prompt for this client.
func (c *OpenAIClient) SetSystemPrompt(prompt string) {
	if prompt != "" {
		c.systemPrompt = prompt
	}
}

// GetSystemPrompt returns the current system prompt.
func (c *OpenAIClient) GetSystemPrompt() string {
	return c.systemPrompt
}

// chatRequest represents an OpenAI chat completion request.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse represents an OpenAI chat completion response.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Query sends the raw transcript and returns a single conversational reply.
func (c *OpenAIClient) Query(ctx context.Context, text string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: text},
		},
		Temperature: 0.5,
		MaxTokens:   120,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("OpenAI API error: %s - %s", resp.Status, string(respBody))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}
