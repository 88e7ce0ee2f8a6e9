package domain

import "encoding/json"

// Options holds the caller's keyword options (temperature, max_tokens, top_p,
// frequency_penalty, presence_penalty, stop, context). Values are loosely typed.
type Options map[string]any

// Lookup returns an option and whether it was supplied.
func (o Options) Lookup(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o[key]
	return v, ok
}

// Request is the per-query object supplied by the framework.
// The engine reads the input fields and only writes PreparedInput.
type Request struct {
	// PreprocessedInput is the framework's pre-processed prompt. Checked first.
	PreprocessedInput Prompt

	// ProcessedInput is the raw processed input. Checked second.
	ProcessedInput Prompt

	// Instance is the symbol value the operation was invoked on. Checked third.
	Instance any

	// Options are the caller's keyword options.
	Options Options

	// PreparedInput is populated by Engine.Prepare.
	PreparedInput *ChatRequest
}

// ChatMessage is a single message of a prepared payload.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// ChatRequest is the normalized chat-completion payload sent to the provider.
type ChatRequest struct {
	// Model is the model name the engine was configured with.
	Model string `json:"model"`

	// Messages is the ordered conversation for this single query.
	Messages []ChatMessage `json:"messages"`

	// Temperature controls randomness.
	Temperature float64 `json:"temperature"`

	// MaxTokens limits the response length.
	MaxTokens int `json:"max_tokens"`

	// Stream is always false.
	Stream bool `json:"stream"`

	// TopP is nucleus sampling. Only sent when the caller supplied it.
	TopP *float64 `json:"top_p,omitempty"`

	// FrequencyPenalty is only sent when the caller supplied it.
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`

	// PresencePenalty is only sent when the caller supplied it.
	PresencePenalty *float64 `json:"presence_penalty,omitempty"`

	// Stop sequences. Only sent when the caller supplied them.
	Stop []string `json:"stop,omitempty"`
}

// Usage contains token usage statistics reported by the provider.
// Provider-specific fields (prompt_tokens_details, ...) are kept in Extra
// and written back out unchanged.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	Extra map[string]json.RawMessage `json:"-"`
}

var usageTotals = []string{"prompt_tokens", "completion_tokens", "total_tokens"}

// UnmarshalJSON reads the totals and keeps every other field in Extra.
func (u *Usage) UnmarshalJSON(data []byte) error {
	type totals Usage
	var t totals
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, k := range usageTotals {
		delete(fields, k)
	}
	if len(fields) > 0 {
		t.Extra = fields
	}

	*u = Usage(t)
	return nil
}

// MarshalJSON writes the totals alongside the provider-specific fields.
func (u Usage) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(u.Extra)+len(usageTotals))
	for k, v := range u.Extra {
		out[k] = v
	}
	out["prompt_tokens"] = u.PromptTokens
	out["completion_tokens"] = u.CompletionTokens
	out["total_tokens"] = u.TotalTokens
	return json.Marshal(out)
}

// Status classifies the outcome of a forward call.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusAPIError        Status = "api_error"
	StatusInvalidResponse Status = "invalid_response"
	StatusEmptyResponse   Status = "empty_response"
	StatusNoContent       Status = "no_content"
	StatusConnectionError Status = "connection_error"
	StatusInternalError   Status = "internal_error"
)

// Metadata accompanies every Result, successful or not.
type Metadata struct {
	Model   string `json:"model"`
	BaseURL string `json:"base_url"`
	Engine  string `json:"engine"`

	// Usage is copied from the provider response when present.
	Usage *Usage `json:"usage,omitempty"`

	// RawContent is the untouched model output, truncated for diagnostics.
	RawContent string `json:"raw_content,omitempty"`

	// Reasoning is the removed reasoning trace, truncated for diagnostics.
	Reasoning string `json:"reasoning,omitempty"`

	// Error is true on every failure path.
	Error bool `json:"error,omitempty"`

	Status     Status `json:"status"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Result is the (text, metadata) pair returned by the engine.
type Result struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Outputs returns the result in the framework's list-shaped form.
func (r Result) Outputs() []string {
	return []string{r.Text}
}

// Failed reports whether the result carries an error flag.
func (r Result) Failed() bool {
	return r.Metadata.Error
}
