package adapter

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hpn/hpn-symai-bridge/internal/domain"
)

// newProviderServer returns an engine pointed at a test server answering with status and body.
func newProviderServer(t *testing.T, typ domain.EngineType, status int, body string) (*ChatEngine, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	e, err := NewChatEngine(
		domain.EngineSettings{Type: typ, BaseURL: srv.URL + "/", Model: "test-model", APIKey: "sk-test"},
		WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewChatEngine() error = %v", err)
	}
	return e, srv
}

func preparedRequest(e *ChatEngine, prompt string) *domain.Request {
	req := &domain.Request{ProcessedInput: domain.TextPrompt(prompt)}
	e.Prepare(req)
	return req
}

func TestNewChatEngine_Defaults(t *testing.T) {
	e, err := NewChatEngine(domain.EngineSettings{Type: domain.EngineOllama})
	if err != nil {
		t.Fatalf("NewChatEngine() error = %v", err)
	}

	info := e.Info()
	if info.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("BaseURL = %s, want http://localhost:11434/v1", info.BaseURL)
	}
	if info.Model != "deepseek-r1:14b" {
		t.Errorf("Model = %s, want deepseek-r1:14b", info.Model)
	}
	if e.apiKey != "ollama" {
		t.Errorf("apiKey = %s, want ollama", e.apiKey)
	}
	if e.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", e.httpClient.Timeout, DefaultTimeout)
	}
	if e.ID() != "neurosymbolic" {
		t.Errorf("ID() = %s, want neurosymbolic", e.ID())
	}
}

func TestNewChatEngine_UnknownType(t *testing.T) {
	if _, err := NewChatEngine(domain.EngineSettings{Type: "anthropic"}); err == nil {
		t.Error("NewChatEngine() with unknown type: expected error")
	}
}

func TestNewChatEngine_TimeoutKeepsCallerClient(t *testing.T) {
	client := &http.Client{Timeout: 90 * time.Second}

	e, err := NewChatEngine(
		domain.EngineSettings{Type: domain.EngineOllama},
		WithHTTPClient(client),
		WithTimeout(5*time.Second),
	)
	if err != nil {
		t.Fatalf("NewChatEngine() error = %v", err)
	}

	if client.Timeout != 90*time.Second {
		t.Errorf("caller client Timeout = %v, want 90s", client.Timeout)
	}
	if e.httpClient == client {
		t.Error("engine shares the caller's client")
	}
	if e.httpClient.Timeout != 5*time.Second {
		t.Errorf("engine Timeout = %v, want 5s", e.httpClient.Timeout)
	}
}

func TestChatEngine_Forward_UsageExtraFields(t *testing.T) {
	e, _ := newProviderServer(t, domain.EngineOpenAI, http.StatusOK, `{
		"choices": [{"message": {"role": "assistant", "content": "ok"}}],
		"usage": {
			"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12,
			"prompt_tokens_details": {"cached_tokens": 4},
			"completion_tokens_details": {"reasoning_tokens": 1}
		}
	}`)

	result := e.Forward(context.Background(), preparedRequest(e, "Hello"))
	if result.Failed() {
		t.Fatalf("Forward() failed: %s", result.Text)
	}

	usage := result.Metadata.Usage
	if usage == nil || usage.TotalTokens != 12 {
		t.Fatalf("Usage = %+v, want total 12", usage)
	}
	if _, ok := usage.Extra["total_tokens"]; ok {
		t.Error("Extra duplicates total_tokens")
	}

	out, err := json.Marshal(usage)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	details, ok := got["prompt_tokens_details"].(map[string]any)
	if !ok || details["cached_tokens"] != float64(4) {
		t.Errorf("prompt_tokens_details = %v, want cached_tokens 4", got["prompt_tokens_details"])
	}
	if _, ok := got["completion_tokens_details"]; !ok {
		t.Error("completion_tokens_details dropped")
	}
	if got["prompt_tokens"] != float64(10) || got["total_tokens"] != float64(12) {
		t.Errorf("totals = %v", got)
	}
}

func TestChatEngine_Forward_Success(t *testing.T) {
	var gotAuth, gotPath, gotContentType string
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "<think>\nweigh options\n</think>\n\nHallo"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
		}`)
	}))
	defer srv.Close()

	e, err := NewChatEngine(
		domain.EngineSettings{Type: domain.EngineOpenAI, BaseURL: srv.URL, Model: "gpt-4o", APIKey: "sk-live"},
		WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewChatEngine() error = %v", err)
	}

	req := &domain.Request{ProcessedInput: domain.SequencePrompt{
		domain.Message{Role: "system", Content: "Translate to German"},
		domain.Message{Role: "user", Content: "Hello"},
	}}
	result := e.Query(context.Background(), req)

	if result.Failed() {
		t.Fatalf("Query() failed: %s", result.Text)
	}
	if result.Text != "Hallo" {
		t.Errorf("Text = %q, want Hallo", result.Text)
	}
	if got := result.Outputs(); len(got) != 1 || got[0] != "Hallo" {
		t.Errorf("Outputs() = %v, want [Hallo]", got)
	}

	meta := result.Metadata
	if meta.Status != domain.StatusSuccess {
		t.Errorf("Status = %s, want success", meta.Status)
	}
	if meta.Model != "gpt-4o" || meta.BaseURL != srv.URL || meta.Engine != "openai" {
		t.Errorf("Metadata = %+v, want model gpt-4o, base %s, engine openai", meta, srv.URL)
	}
	if meta.Usage == nil || meta.Usage.TotalTokens != 19 || meta.Usage.PromptTokens != 12 {
		t.Errorf("Usage = %+v, want 12/7/19", meta.Usage)
	}
	if !strings.Contains(meta.RawContent, "<think>") {
		t.Errorf("RawContent = %q, want the untouched content", meta.RawContent)
	}
	if meta.Reasoning != "weigh options" {
		t.Errorf("Reasoning = %q, want 'weigh options'", meta.Reasoning)
	}

	if gotPath != "/chat/completions" {
		t.Errorf("path = %s, want /chat/completions", gotPath)
	}
	if gotAuth != "Bearer sk-live" {
		t.Errorf("Authorization = %s, want 'Bearer sk-live'", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", gotContentType)
	}
	if gotPayload["model"] != "gpt-4o" || gotPayload["stream"] != false {
		t.Errorf("payload = %v, want model gpt-4o and stream false", gotPayload)
	}
	if msgs, ok := gotPayload["messages"].([]any); !ok || len(msgs) != 2 {
		t.Errorf("payload messages = %v, want 2 entries", gotPayload["messages"])
	}
}

func TestChatEngine_Forward_Failures(t *testing.T) {
	tests := []struct {
		name         string
		typ          domain.EngineType
		status       int
		body         string
		wantStatus   domain.Status
		wantCode     int
		wantContains string
	}{
		{
			name:         "unauthorized",
			typ:          domain.EngineOpenAI,
			status:       http.StatusUnauthorized,
			body:         `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`,
			wantStatus:   domain.StatusAPIError,
			wantCode:     401,
			wantContains: "authentication failed",
		},
		{
			name:         "server error",
			typ:          domain.EngineOllama,
			status:       http.StatusInternalServerError,
			body:         `model not loaded`,
			wantStatus:   domain.StatusAPIError,
			wantCode:     500,
			wantContains: "status 500: model not loaded",
		},
		{
			name:         "invalid json",
			typ:          domain.EngineOpenAI,
			status:       http.StatusOK,
			body:         `{not json`,
			wantStatus:   domain.StatusInvalidResponse,
			wantContains: "Invalid JSON response",
		},
		{
			name:         "empty choices",
			typ:          domain.EngineOpenAI,
			status:       http.StatusOK,
			body:         `{"choices":[]}`,
			wantStatus:   domain.StatusNoContent,
			wantContains: "No response generated",
		},
		{
			name:         "only reasoning",
			typ:          domain.EngineOllama,
			status:       http.StatusOK,
			body:         `{"choices":[{"message":{"content":"<think>all thought no answer</think>"}}]}`,
			wantStatus:   domain.StatusEmptyResponse,
			wantContains: "no answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newProviderServer(t, tt.typ, tt.status, tt.body)
			result := e.Forward(context.Background(), preparedRequest(e, "Hello"))

			if !result.Failed() {
				t.Fatalf("Forward() succeeded with %q, want failure", result.Text)
			}
			if !strings.HasPrefix(result.Text, "Error: ") {
				t.Errorf("Text = %q, want 'Error: ' prefix", result.Text)
			}
			if !strings.Contains(result.Text, tt.wantContains) {
				t.Errorf("Text = %q, want to contain %q", result.Text, tt.wantContains)
			}
			if result.Metadata.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", result.Metadata.Status, tt.wantStatus)
			}
			if result.Metadata.StatusCode != tt.wantCode {
				t.Errorf("StatusCode = %d, want %d", result.Metadata.StatusCode, tt.wantCode)
			}
			if result.Metadata.Message == "" {
				t.Error("Message is empty")
			}
			if result.Metadata.Model != "test-model" {
				t.Errorf("Model = %s, want test-model", result.Metadata.Model)
			}
		})
	}
}

func TestChatEngine_Forward_EmptyResponseKeepsDiagnostics(t *testing.T) {
	e, _ := newProviderServer(t, domain.EngineOllama, http.StatusOK,
		`{"choices":[{"message":{"content":"<think>`+strings.Repeat("x", 300)+`</think>"}}],"usage":{"total_tokens":5}}`)

	result := e.Forward(context.Background(), preparedRequest(e, "Hello"))

	if result.Metadata.Status != domain.StatusEmptyResponse {
		t.Fatalf("Status = %s, want empty_response", result.Metadata.Status)
	}
	if !strings.HasSuffix(result.Metadata.RawContent, "...") {
		t.Errorf("RawContent = %q, want truncated with ...", result.Metadata.RawContent)
	}
	if n := len([]rune(result.Metadata.RawContent)); n != DiagnosticLimit+3 {
		t.Errorf("len(RawContent) = %d, want %d", n, DiagnosticLimit+3)
	}
	if result.Metadata.Usage == nil || result.Metadata.Usage.TotalTokens != 5 {
		t.Errorf("Usage = %+v, want total 5", result.Metadata.Usage)
	}
}

func TestChatEngine_Forward_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	e, err := NewChatEngine(domain.EngineSettings{Type: domain.EngineOllama, BaseURL: url}, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewChatEngine() error = %v", err)
	}

	result := e.Forward(context.Background(), preparedRequest(e, "Hello"))
	if result.Metadata.Status != domain.StatusConnectionError {
		t.Errorf("Status = %s, want connection_error", result.Metadata.Status)
	}
	if !strings.Contains(result.Text, "Ollama API request failed") {
		t.Errorf("Text = %q, want Ollama in message", result.Text)
	}
}

func TestChatEngine_Forward_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	e, err := NewChatEngine(
		domain.EngineSettings{Type: domain.EngineOpenAI, BaseURL: srv.URL, APIKey: "sk-test"},
		WithHTTPClient(srv.Client()),
		WithTimeout(50*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewChatEngine() error = %v", err)
	}

	result := e.Forward(context.Background(), preparedRequest(e, "Hello"))
	if result.Metadata.Status != domain.StatusConnectionError {
		t.Errorf("Status = %s, want connection_error", result.Metadata.Status)
	}
}

func TestChatEngine_Forward_InternalErrors(t *testing.T) {
	e, _ := newProviderServer(t, domain.EngineOpenAI, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`)

	t.Run("not prepared", func(t *testing.T) {
		result := e.Forward(context.Background(), &domain.Request{})
		if result.Metadata.Status != domain.StatusInternalError {
			t.Errorf("Status = %s, want internal_error", result.Metadata.Status)
		}
	})

	t.Run("nil request", func(t *testing.T) {
		result := e.Forward(context.Background(), nil)
		if !result.Failed() {
			t.Error("Forward(nil) did not fail")
		}
	})

	t.Run("unencodable payload", func(t *testing.T) {
		req := &domain.Request{
			ProcessedInput: domain.TextPrompt("Hello"),
			Options:        domain.Options{OptTemperature: math.NaN()},
		}
		result := e.Query(context.Background(), req)
		if result.Metadata.Status != domain.StatusInternalError {
			t.Errorf("Status = %s, want internal_error", result.Metadata.Status)
		}
		if !strings.HasPrefix(result.Text, "Error: ") {
			t.Errorf("Text = %q, want 'Error: ' prefix", result.Text)
		}
	})
}

func TestProviderMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"openai envelope", 400, `{"error":{"message":"bad model"}}`, "bad model"},
		{"plain body", 502, "upstream down", "upstream down"},
		{"empty body", 503, "", "Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := providerMessage(tt.status, []byte(tt.body)); got != tt.want {
				t.Errorf("providerMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
