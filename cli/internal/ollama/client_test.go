package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lmcommit/cli/internal/commitmsg"
)

func TestNewClient_normalizesBaseURL(t *testing.T) {
	t.Parallel()
	c := NewClient("http://localhost:11434/", nil)
	if c.baseURL != "http://localhost:11434" {
		t.Errorf("baseURL = %q, want no trailing slash", c.baseURL)
	}
}

func TestClient_Check(t *testing.T) {
	t.Parallel()

	validWithModel := `{"models":[{"name":"mistral-nemo:12b","modified_at":"2024-01-01T00:00:00Z","size":0,"digest":"","details":{}}]}`
	validWithoutModel := `{"models":[{"name":"other:7b","modified_at":"2024-01-01T00:00:00Z","size":0,"digest":"","details":{}}]}`
	invalidJSON := `{`

	tests := []struct {
		name           string
		status         int
		body           string
		model          string
		wantReachable  bool
		wantPresent    bool
		wantErr        bool
		wantUnreachable bool
	}{
		{
			name:           "200_with_model",
			status:         http.StatusOK,
			body:           validWithModel,
			model:          "mistral-nemo:12b",
			wantReachable:  true,
			wantPresent:    true,
			wantErr:        false,
			wantUnreachable: false,
		},
		{
			name:           "200_without_model",
			status:         http.StatusOK,
			body:           validWithoutModel,
			model:          "mistral-nemo:12b",
			wantReachable:  true,
			wantPresent:    false,
			wantErr:        false,
			wantUnreachable: false,
		},
		{
			name:           "200_empty_models",
			status:         http.StatusOK,
			body:           `{"models":[]}`,
			model:          "any",
			wantReachable:  true,
			wantPresent:    false,
			wantErr:        false,
			wantUnreachable: false,
		},
		{
			name:           "200_invalid_json",
			status:         http.StatusOK,
			body:           invalidJSON,
			model:          "any",
			wantReachable:  false,
			wantPresent:    false,
			wantErr:        true,
			wantUnreachable: false,
		},
		{
			name:           "404",
			status:         http.StatusNotFound,
			body:           "",
			model:          "any",
			wantReachable:  false,
			wantPresent:    false,
			wantErr:        true,
			wantUnreachable: true,
		},
		{
			name:           "500",
			status:         http.StatusInternalServerError,
			body:           "",
			model:          "any",
			wantReachable:  false,
			wantPresent:    false,
			wantErr:        true,
			wantUnreachable: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/tags" {
					t.Errorf("path = %q, want /api/tags", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, srv.Client())
			ctx := context.Background()
			got, err := client.Check(ctx, tt.model)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Check: want error, got nil")
				}
				if tt.wantUnreachable && !errors.Is(err, ErrUnreachable) {
					t.Errorf("error should wrap ErrUnreachable: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if got.Reachable != tt.wantReachable {
				t.Errorf("Reachable = %v, want %v", got.Reachable, tt.wantReachable)
			}
			if got.ModelPresent != tt.wantPresent {
				t.Errorf("ModelPresent = %v, want %v", got.ModelPresent, tt.wantPresent)
			}
		})
	}
}

func TestClient_Check_connectionRefused(t *testing.T) {
	t.Parallel()
	// Bind and release a port so nothing is listening.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	if err := listener.Close(); err != nil {
		t.Fatalf("close listener: %v", err)
	}
	client := NewClient("http://"+addr, nil)
	ctx := context.Background()
	_, err = client.Check(ctx, "any")
	if err == nil {
		t.Fatal("Check: want error on connection refused, got nil")
	}
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("error should wrap ErrUnreachable: %v", err)
	}
}

func TestClient_Check_untaggedModelMatchesLatest(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3:latest"},{"name":"phi3:mini"}]}`))
	}))
	defer srv.Close()
	client := NewClient(srv.URL, srv.Client())
	got, err := client.Check(context.Background(), "llama3")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !got.ModelPresent {
		t.Error("llama3 should match llama3:latest")
	}
	got, err = client.Check(context.Background(), "phi3")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got.ModelPresent {
		t.Error("phi3 should not match phi3:mini")
	}
	if len(got.ModelNames) != 2 {
		t.Errorf("ModelNames = %v, want 2 names", got.ModelNames)
	}
}

func TestClient_Chat_success(t *testing.T) {
	t.Parallel()
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			t.Errorf("got %s %s, want POST /api/chat", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"feat: add login"},"done":true}`))
	}))
	defer srv.Close()

	m := &ChatModel{Client: NewClient(srv.URL, srv.Client()), Model: "mistral-nemo:12b", Temperature: 0.7}
	var _ commitmsg.Model = m
	got, err := m.Complete(context.Background(), "SYSTEM", "DIFF", 100)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "feat: add login" {
		t.Errorf("Complete = %q", got)
	}
	if gotReq.Model != "mistral-nemo:12b" || gotReq.Stream {
		t.Errorf("request model/stream = %q/%v", gotReq.Model, gotReq.Stream)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Content != "DIFF" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if gotReq.Options == nil || gotReq.Options.NumPredict != 100 ||
		gotReq.Options.Temperature == nil || *gotReq.Options.Temperature != 0.7 {
		t.Errorf("options = %+v", gotReq.Options)
	}
	if gotReq.Options != nil && gotReq.Options.NumCtx != 0 {
		t.Errorf("num_ctx = %d, want omitted", gotReq.Options.NumCtx)
	}
}

func TestChatModel_zeroTemperatureAndContextSizeSent(t *testing.T) {
	t.Parallel()
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"ok"},"done":true}`))
	}))
	defer srv.Close()

	m := &ChatModel{Client: NewClient(srv.URL, srv.Client()), Model: "m", Temperature: 0, ContextSize: 8192}
	if _, err := m.Complete(context.Background(), "S", "D", 100); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	opts, _ := raw["options"].(map[string]any)
	temp, ok := opts["temperature"]
	if !ok {
		t.Fatalf("options = %v, want temperature present", opts)
	}
	if temp != float64(0) {
		t.Errorf("temperature = %v, want 0", temp)
	}
	if opts["num_ctx"] != float64(8192) {
		t.Errorf("num_ctx = %v, want 8192", opts["num_ctx"])
	}
}

func TestClient_Chat_serverErrorCarriesMessage(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"input length exceeds the context length"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Chat(context.Background(), "m", nil, nil)
	if err == nil {
		t.Fatal("Chat: want error")
	}
	if !strings.Contains(err.Error(), "exceeds the context length") || !strings.Contains(err.Error(), "400") {
		t.Errorf("error should carry status and server text: %v", err)
	}
	if commitmsg.Classify(err) != commitmsg.ContextOverflow {
		t.Errorf("Classify(%v) should be a context overflow", err)
	}
}

func TestClient_Chat_plainTextError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Chat(context.Background(), "m", nil, nil)
	if err == nil || !strings.Contains(err.Error(), "model crashed") {
		t.Fatalf("Chat error = %v, want server text", err)
	}
	if commitmsg.Classify(err) != commitmsg.OtherFailure {
		t.Errorf("Classify(%v) should be other failure", err)
	}
}

func TestClient_Chat_cancelledContext(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL, srv.Client()).Chat(ctx, "m", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Chat error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrUnreachable) {
		t.Error("cancellation should not be reported as unreachable")
	}
}
