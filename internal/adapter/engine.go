package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hpn/hpn-symai-bridge/internal/domain"
)

const (
	// DefaultTimeout is the default HTTP client timeout for completion calls.
	DefaultTimeout = 60 * time.Second

	// DiagnosticLimit caps raw content and reasoning copied into metadata.
	DiagnosticLimit = 200

	maxResponseBytes = 10 << 20
)

// ChatEngine implements Engine for any OpenAI-compatible chat-completion endpoint.
// The variant decides the defaults and how the backend is named in messages.
type ChatEngine struct {
	variant    domain.Variant
	baseURL    string
	model      string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
	stripper   *ReasoningStripper
	logger     *slog.Logger
	verbose    bool
}

// EngineOption is a functional option for configuring ChatEngine.
type EngineOption func(*ChatEngine)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) EngineOption {
	return func(e *ChatEngine) {
		if client != nil {
			e.httpClient = client
		}
	}
}

// WithTimeout sets the HTTP client timeout on a copy of the client,
// so a client passed through WithHTTPClient is left untouched.
func WithTimeout(timeout time.Duration) EngineOption {
	return func(e *ChatEngine) {
		if timeout > 0 {
			c := *e.httpClient
			c.Timeout = timeout
			e.httpClient = &c
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *ChatEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithVerbose enables payload and response debug logging.
func WithVerbose(verbose bool) EngineOption {
	return func(e *ChatEngine) {
		e.verbose = verbose
	}
}

// WithStripper replaces the default <think> stripper.
func WithStripper(s *ReasoningStripper) EngineOption {
	return func(e *ChatEngine) {
		if s != nil {
			e.stripper = s
		}
	}
}

// WithMaxTokens overrides the variant's default max_tokens.
func WithMaxTokens(n int) EngineOption {
	return func(e *ChatEngine) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// NewChatEngine creates an engine from resolved settings.
// Empty fields fall back to the variant defaults.
func NewChatEngine(settings domain.EngineSettings, opts ...EngineOption) (*ChatEngine, error) {
	variant, err := domain.LookupVariant(settings.Type)
	if err != nil {
		return nil, err
	}

	e := &ChatEngine{
		variant:   variant,
		baseURL:   strings.TrimSuffix(firstNonEmpty(settings.BaseURL, variant.DefaultBaseURL), "/"),
		model:     firstNonEmpty(settings.Model, variant.DefaultModel),
		apiKey:    firstNonEmpty(settings.APIKey, variant.DefaultAPIKey),
		maxTokens: variant.DefaultMaxTokens,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		stripper: defaultStripper,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// ID returns the capability name.
func (e *ChatEngine) ID() string {
	return domain.CapabilityName
}

// Info describes the configured backend.
func (e *ChatEngine) Info() EngineInfo {
	return EngineInfo{
		ID:          e.variant.ID,
		Type:        e.variant.Type,
		DisplayName: e.variant.DisplayName,
		Model:       e.model,
		BaseURL:     e.baseURL,
		MaxTokens:   e.maxTokens,
	}
}

// Query prepares the request and forwards it.
func (e *ChatEngine) Query(ctx context.Context, req *domain.Request) domain.Result {
	if req == nil {
		req = &domain.Request{}
	}
	e.Prepare(req)
	return e.Forward(ctx, req)
}

// Forward sends the prepared payload to {base}/chat/completions and extracts the answer.
// Every failure is converted into a Result with Text "Error: <message>" and Error set in the metadata.
func (e *ChatEngine) Forward(ctx context.Context, req *domain.Request) (result domain.Result) {
	meta := domain.Metadata{
		Model:   e.model,
		BaseURL: e.baseURL,
		Engine:  e.variant.ID,
	}

	defer func() {
		if r := recover(); r != nil {
			result = e.failure(meta, fmt.Errorf("%w: %v", errRecovered, r))
		}
	}()

	if req == nil || req.PreparedInput == nil {
		return e.failure(meta, ErrNoPreparedInput)
	}

	completion, err := e.send(ctx, req.PreparedInput)
	if err != nil {
		return e.failure(meta, err)
	}

	if len(completion.Choices) == 0 {
		return e.failure(meta, ErrNoContent)
	}

	raw := completion.Choices[0].Message.Content
	answer, traces := e.stripper.Split(raw)

	meta.Usage = completion.Usage
	meta.RawContent = truncate(raw, DiagnosticLimit)
	if len(traces) > 0 {
		meta.Reasoning = truncate(strings.Join(traces, "\n"), DiagnosticLimit)
	}

	if answer == "" {
		return e.failure(meta, ErrEmptyResponse)
	}

	if e.verbose {
		e.logger.Debug("completion received",
			slog.String("engine", e.variant.ID),
			slog.String("model", e.model),
			slog.Int("answer_len", len(answer)),
			slog.Int("reasoning_blocks", len(traces)),
		)
	}

	meta.Status = domain.StatusSuccess
	return domain.Result{Text: answer, Metadata: meta}
}

// send performs the HTTP exchange and decodes a 2xx body.
func (e *ChatEngine) send(ctx context.Context, payload *domain.ChatRequest) (*chatCompletion, error) {
	// Marshal the request body
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	// Create HTTP request
	url := e.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	// Execute request
	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	// Check for API errors
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: providerMessage(resp.StatusCode, respBody)}
	}

	var completion chatCompletion
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &completion, nil
}

// failure converts err into an error Result, keeping whatever metadata was already collected.
func (e *ChatEngine) failure(meta domain.Metadata, err error) domain.Result {
	meta.Error = true
	meta.Status, meta.StatusCode, meta.Message = e.classify(err)

	e.logger.Warn("forward failed",
		slog.String("engine", e.variant.ID),
		slog.String("status", string(meta.Status)),
		slog.Int("status_code", meta.StatusCode),
		slog.String("error", err.Error()),
	)

	return domain.Result{Text: "Error: " + meta.Message, Metadata: meta}
}

// classify maps an internal error to a status, an HTTP code and a readable message.
func (e *ChatEngine) classify(err error) (domain.Status, int, string) {
	name := e.variant.DisplayName

	var apiErr *APIError
	var decodeErr *DecodeError
	var transportErr *TransportError

	switch {
	case errors.As(err, &apiErr):
		if apiErr.IsAuthentication() {
			return domain.StatusAPIError, apiErr.StatusCode,
				fmt.Sprintf("%s API authentication failed (HTTP 401): %s. Check the configured API key", name, apiErr.Message)
		}
		return domain.StatusAPIError, apiErr.StatusCode,
			fmt.Sprintf("%s API request failed with status %d: %s", name, apiErr.StatusCode, apiErr.Message)
	case errors.As(err, &decodeErr):
		return domain.StatusInvalidResponse, 0,
			fmt.Sprintf("Invalid JSON response from %s API: %v", name, decodeErr.Err)
	case errors.Is(err, ErrNoContent):
		return domain.StatusNoContent, 0, "No response generated"
	case errors.Is(err, ErrEmptyResponse):
		return domain.StatusEmptyResponse, 0,
			fmt.Sprintf("%s returned no answer after removing reasoning blocks", name)
	case errors.As(err, &transportErr):
		return domain.StatusConnectionError, 0,
			fmt.Sprintf("%s API request failed: %v", name, transportErr.Err)
	default:
		return domain.StatusInternalError, 0,
			fmt.Sprintf("Unexpected error in %s engine: %v", name, err)
	}
}

// providerMessage extracts error.message from an OpenAI-style error body,
// falling back to the truncated body or the status text.
func providerMessage(status int, body []byte) string {
	var envelope providerError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return truncate(text, DiagnosticLimit)
	}
	return http.StatusText(status)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
