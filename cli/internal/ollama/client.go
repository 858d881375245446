// Package ollama provides an HTTP client for the Ollama API: a health and
// model check via /api/tags and single-shot chat completions via /api/chat.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const _defaultTimeout = 10 * time.Second

// ErrUnreachable indicates the Ollama server could not be reached (connection refused or non-2xx on the tags endpoint).
var ErrUnreachable = errors.New("ollama server unreachable")

// Client calls the Ollama API. Zero value is not valid; use NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// CheckResult is the result of a health/model check.
type CheckResult struct {
	Reachable    bool     // Server responded with 200.
	ModelPresent bool     // Requested model name appears in the tags list.
	ModelNames   []string // All model names from /api/tags (for diagnostics).
}

// NewClient builds an Ollama client. baseURL is the API root (e.g. http://localhost:11434).
// If httpClient is nil, a default client with a 10s timeout is used. Chat calls
// are usually slower than that; callers generating messages should pass a
// client without a timeout and bound the call with a context instead.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: _defaultTimeout}
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Check verifies the server is reachable and whether the given model is present.
// It GETs /api/tags and parses the response. On connection/HTTP error returns ErrUnreachable (via %w).
// A model given without a tag matches its ":latest" entry.
func (c *Client) Check(ctx context.Context, model string) (*CheckResult, error) {
	url := c.baseURL + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ollama tags request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama tags: %w", errors.Join(ErrUnreachable, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama tags: %w: HTTP %d", ErrUnreachable, resp.StatusCode)
	}
	var body tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ollama tags: parse response: %w", err)
	}
	names := make([]string, 0, len(body.Models))
	modelPresent := false
	for _, m := range body.Models {
		names = append(names, m.Name)
		if m.Name == model || (!strings.Contains(model, ":") && m.Name == model+":latest") {
			modelPresent = true
		}
	}
	return &CheckResult{
		Reachable:    true,
		ModelPresent: modelPresent,
		ModelNames:   names,
	}, nil
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are the sampling options sent with a chat request. Unset fields are
// omitted so the server's defaults apply. Temperature is a pointer because 0
// is a meaningful setting.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	NumCtx      int      `json:"num_ctx,omitempty"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

type chatResponse struct {
	Message Message `json:"message"`
	Error   string  `json:"error"`
}

// Chat sends messages to model via POST /api/chat (non-streaming) and returns
// the assistant's reply. A non-2xx response is returned as an error carrying
// the server's error text, so callers can inspect it.
func (c *Client) Chat(ctx context.Context, model string, messages []Message, opts *Options) (string, error) {
	payload, err := json.Marshal(chatRequest{Model: model, Messages: messages, Stream: false, Options: opts})
	if err != nil {
		return "", fmt.Errorf("ollama chat: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("ollama chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("ollama chat: %w", ctxErr)
		}
		return "", fmt.Errorf("ollama chat: %w", errors.Join(ErrUnreachable, err))
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama chat: read response: %w", err)
	}
	var body chatResponse
	decodeErr := json.Unmarshal(data, &body)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(body.Error)
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return "", fmt.Errorf("ollama chat: HTTP %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("ollama chat: parse response: %w", decodeErr)
	}
	if body.Error != "" {
		return "", fmt.Errorf("ollama chat: %s", body.Error)
	}
	return body.Message.Content, nil
}

// ChatModel binds a client to one model and sampling settings. It satisfies
// commitmsg.Model.
type ChatModel struct {
	Client      *Client
	Model       string
	Temperature float64
	ContextSize int // num_ctx; 0 keeps the model's default window
}

// Complete sends a system and a user message and returns the raw reply.
// maxTokens maps to num_predict. Temperature is always sent.
func (m *ChatModel) Complete(ctx context.Context, systemPrompt, userContent string, maxTokens int) (string, error) {
	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userContent},
	}
	temperature := m.Temperature
	return m.Client.Chat(ctx, m.Model, messages, &Options{
		Temperature: &temperature,
		NumPredict:  maxTokens,
		NumCtx:      m.ContextSize,
	})
}
