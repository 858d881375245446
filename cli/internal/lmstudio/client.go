// Package lmstudio provides an HTTP client for LM Studio's OpenAI-compatible
// server: the model list at /v1/models and chat completions at
// /v1/chat/completions.
package lmstudio

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

// ErrUnreachable indicates the LM Studio server could not be reached.
var ErrUnreachable = errors.New("lm studio server unreachable")

// Client calls the LM Studio API. Zero value is not valid; use NewClient.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// CheckResult is the result of a model check.
type CheckResult struct {
	Reachable    bool
	ModelPresent bool
	ModelNames   []string
}

// NewClient builds a client. baseURL is the server root (e.g. http://localhost:1234);
// a trailing "/v1" is accepted and dropped. If httpClient is nil, a client with
// a 10s timeout is used.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: _defaultTimeout}
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1")
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Check GETs /v1/models and reports whether model is listed.
// Connection failures and non-200 responses wrap ErrUnreachable.
func (c *Client) Check(ctx context.Context, model string) (*CheckResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("lmstudio models request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lmstudio models: %w", errors.Join(ErrUnreachable, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lmstudio models: %w: HTTP %d", ErrUnreachable, resp.StatusCode)
	}
	var body modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("lmstudio models: parse response: %w", err)
	}
	res := &CheckResult{Reachable: true, ModelNames: make([]string, 0, len(body.Data))}
	for _, m := range body.Data {
		res.ModelNames = append(res.ModelNames, m.ID)
		if m.ID == model {
			res.ModelPresent = true
		}
	}
	return res, nil
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /v1/chat/completions.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error json.RawMessage `json:"error,omitempty"`
}

// Chat posts a non-streaming chat completion and returns the first choice's
// content. An empty choice list yields "" with no error. Server errors are
// returned with the server's message text.
func (c *Client) Chat(ctx context.Context, body ChatRequest) (string, error) {
	body.Stream = false
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("lmstudio chat: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("lmstudio chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("lmstudio chat: %w", ctxErr)
		}
		return "", fmt.Errorf("lmstudio chat: %w", errors.Join(ErrUnreachable, err))
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("lmstudio chat: read response: %w", err)
	}
	var out chatResponse
	decodeErr := json.Unmarshal(data, &out)
	if resp.StatusCode != http.StatusOK {
		msg := ""
		if decodeErr == nil {
			msg = errorText(out.Error)
		}
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return "", fmt.Errorf("lmstudio chat: HTTP %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("lmstudio chat: parse response: %w", decodeErr)
	}
	if msg := errorText(out.Error); msg != "" {
		return "", fmt.Errorf("lmstudio chat: %s", msg)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

// errorText reads an OpenAI-style error, which is either a string or an
// object with a message field.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Message)
	}
	return ""
}

// ChatModel binds a client to one model and temperature. It satisfies
// commitmsg.Model.
type ChatModel struct {
	Client      *Client
	Model       string
	Temperature float64
}

// Complete sends a system and a user message and returns the raw reply.
func (m *ChatModel) Complete(ctx context.Context, systemPrompt, userContent string, maxTokens int) (string, error) {
	return m.Client.Chat(ctx, ChatRequest{
		Model: m.Model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		MaxTokens:   maxTokens,
		Temperature: m.Temperature,
	})
}
