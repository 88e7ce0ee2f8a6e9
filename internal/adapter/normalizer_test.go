package adapter

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/hpn/hpn-symai-bridge/internal/domain"
)

func newTestEngine(t *testing.T, typ domain.EngineType, opts ...EngineOption) *ChatEngine {
	t.Helper()
	e, err := NewChatEngine(domain.EngineSettings{Type: typ, Model: "test-model", APIKey: "sk-test"}, opts...)
	if err != nil {
		t.Fatalf("NewChatEngine() error = %v", err)
	}
	return e
}

type panicStringer struct{ n int }

func (panicStringer) String() string { panic("boom") }

func TestResolvePrompt(t *testing.T) {
	tests := []struct {
		name string
		req  domain.Request
		want domain.Prompt
	}{
		{
			name: "preprocessed wins",
			req: domain.Request{
				PreprocessedInput: domain.TextPrompt("pre"),
				ProcessedInput:    domain.TextPrompt("proc"),
				Instance:          "inst",
			},
			want: domain.TextPrompt("pre"),
		},
		{
			name: "empty preprocessed falls through to processed",
			req: domain.Request{
				PreprocessedInput: domain.TextPrompt(""),
				ProcessedInput:    domain.TextPrompt("proc"),
			},
			want: domain.TextPrompt("proc"),
		},
		{
			name: "empty sequence falls through to instance",
			req: domain.Request{
				ProcessedInput: domain.SequencePrompt{},
				Instance:       42,
			},
			want: domain.TextPrompt("42"),
		},
		{
			name: "instance with context",
			req: domain.Request{
				Instance: "cats are mammals",
				Options:  domain.Options{OptContext: "biology"},
			},
			want: domain.TextPrompt("Data: cats are mammals\nContext: biology\nAnswer:"),
		},
		{
			name: "instance with empty context",
			req: domain.Request{
				Instance: "x",
				Options:  domain.Options{OptContext: ""},
			},
			want: domain.TextPrompt("x"),
		},
		{
			name: "nothing usable",
			req:  domain.Request{Instance: 0},
			want: domain.TextPrompt(DefaultPrompt),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolvePrompt(&tt.req)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ResolvePrompt() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNormalizeMessages(t *testing.T) {
	tests := []struct {
		name  string
		input domain.Prompt
		want  []domain.ChatMessage
	}{
		{
			name:  "text",
			input: domain.TextPrompt("Hello"),
			want:  []domain.ChatMessage{{Role: "user", Content: "Hello"}},
		},
		{
			name: "system and user messages keep order and roles",
			input: domain.SequencePrompt{
				domain.Message{Role: "system", Content: "Translate to German"},
				domain.Message{Role: "user", Content: "Hello"},
			},
			want: []domain.ChatMessage{
				{Role: "system", Content: "Translate to German"},
				{Role: "user", Content: "Hello"},
			},
		},
		{
			name:  "single message without role",
			input: domain.SequencePrompt{domain.Message{Content: "hi"}},
			want:  []domain.ChatMessage{{Role: "user", Content: "hi"}},
		},
		{
			name:  "single plain entry",
			input: domain.SequencePrompt{domain.PlainEntry{Value: 3.5}},
			want:  []domain.ChatMessage{{Role: "user", Content: "3.5"}},
		},
		{
			name: "mixed entries",
			input: domain.SequencePrompt{
				domain.Message{Role: "assistant", Content: "earlier", Name: "bot"},
				domain.PlainEntry{Value: "plain"},
				domain.PlainEntry{Value: map[string]any{"k": "<v>"}},
			},
			want: []domain.ChatMessage{
				{Role: "assistant", Content: "earlier", Name: "bot"},
				{Role: "user", Content: "plain"},
				{Role: "user", Content: `{"k":"<v>"}`},
			},
		},
		{
			name:  "other value",
			input: domain.ValuePrompt{Value: true},
			want:  []domain.ChatMessage{{Role: "user", Content: "true"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeMessages(tt.input)
			if err != nil {
				t.Fatalf("NormalizeMessages() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeMessages() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeMessages_Errors(t *testing.T) {
	if _, err := NormalizeMessages(nil); err != ErrNoPrompt {
		t.Errorf("NormalizeMessages(nil) error = %v, want ErrNoPrompt", err)
	}
	if _, err := NormalizeMessages(domain.SequencePrompt{nil}); err == nil {
		t.Error("NormalizeMessages() with nil entry: expected error")
	}
}

func TestChatEngine_Prepare_Defaults(t *testing.T) {
	tests := []struct {
		typ           domain.EngineType
		wantMaxTokens int
	}{
		{domain.EngineOpenAI, 2000},
		{domain.EngineOllama, 2000},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			e := newTestEngine(t, tt.typ)
			req := &domain.Request{ProcessedInput: domain.TextPrompt("Hello")}
			e.Prepare(req)

			p := req.PreparedInput
			if p == nil {
				t.Fatal("PreparedInput is nil")
			}
			if p.Model != "test-model" {
				t.Errorf("Model = %s, want test-model", p.Model)
			}
			if p.Temperature != DefaultTemperature {
				t.Errorf("Temperature = %v, want %v", p.Temperature, DefaultTemperature)
			}
			if p.MaxTokens != tt.wantMaxTokens {
				t.Errorf("MaxTokens = %d, want %d", p.MaxTokens, tt.wantMaxTokens)
			}
			if p.Stream {
				t.Error("Stream = true, want false")
			}

			raw, err := json.Marshal(p)
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}
			body := string(raw)
			for _, absent := range []string{"top_p", "frequency_penalty", "presence_penalty", "stop"} {
				if strings.Contains(body, `"`+absent+`"`) {
					t.Errorf("payload contains %s although the caller did not supply it: %s", absent, body)
				}
			}
			if !strings.Contains(body, `"stream":false`) {
				t.Errorf("payload missing stream:false: %s", body)
			}
		})
	}
}

func TestChatEngine_Prepare_Options(t *testing.T) {
	e := newTestEngine(t, domain.EngineOpenAI)
	req := &domain.Request{
		ProcessedInput: domain.TextPrompt("Hello"),
		Options: domain.Options{
			OptTemperature:      "0.2",
			OptMaxTokens:        64.0,
			OptTopP:             0.9,
			OptFrequencyPenalty: 1,
			OptPresencePenalty:  nil,
			OptStop:             "END",
		},
	}
	e.Prepare(req)
	p := req.PreparedInput

	if p.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", p.Temperature)
	}
	if p.MaxTokens != 64 {
		t.Errorf("MaxTokens = %d, want 64", p.MaxTokens)
	}
	if p.TopP == nil || *p.TopP != 0.9 {
		t.Errorf("TopP = %v, want 0.9", p.TopP)
	}
	if p.FrequencyPenalty == nil || *p.FrequencyPenalty != 1 {
		t.Errorf("FrequencyPenalty = %v, want 1", p.FrequencyPenalty)
	}
	if p.PresencePenalty != nil {
		t.Errorf("PresencePenalty = %v, want nil for explicit nil option", *p.PresencePenalty)
	}
	if !reflect.DeepEqual(p.Stop, []string{"END"}) {
		t.Errorf("Stop = %v, want [END]", p.Stop)
	}
}

func TestChatEngine_Prepare_StopList(t *testing.T) {
	e := newTestEngine(t, domain.EngineOllama)
	req := &domain.Request{
		ProcessedInput: domain.TextPrompt("Hello"),
		Options:        domain.Options{OptStop: []any{"a", "b"}},
	}
	e.Prepare(req)

	if !reflect.DeepEqual(req.PreparedInput.Stop, []string{"a", "b"}) {
		t.Errorf("Stop = %v, want [a b]", req.PreparedInput.Stop)
	}
}

func TestChatEngine_Prepare_Fallback(t *testing.T) {
	tests := []struct {
		name        string
		req         domain.Request
		wantContent string
	}{
		{
			name: "uncoercible temperature",
			req: domain.Request{
				ProcessedInput: domain.TextPrompt("Hello"),
				Options:        domain.Options{OptTemperature: "hot"},
			},
			wantContent: "Hello",
		},
		{
			name: "nil sequence entry",
			req: domain.Request{
				ProcessedInput: domain.SequencePrompt{domain.Message{Role: "system", Content: "sys"}, nil, domain.PlainEntry{Value: "u"}},
			},
			wantContent: "sys\nu",
		},
		{
			name:        "panicking instance",
			req:         domain.Request{Instance: panicStringer{n: 1}},
			wantContent: DefaultPrompt,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, domain.EngineOllama)
			e.Prepare(&tt.req)

			p := tt.req.PreparedInput
			if p == nil {
				t.Fatal("PreparedInput is nil")
			}
			want := []domain.ChatMessage{{Role: "user", Content: tt.wantContent}}
			if !reflect.DeepEqual(p.Messages, want) {
				t.Errorf("Messages = %+v, want %+v", p.Messages, want)
			}
			if p.Temperature != DefaultTemperature {
				t.Errorf("Temperature = %v, want %v", p.Temperature, DefaultTemperature)
			}
			if p.MaxTokens != 2000 {
				t.Errorf("MaxTokens = %d, want 2000", p.MaxTokens)
			}
		})
	}
}

func TestChatEngine_Prepare_NilRequest(t *testing.T) {
	e := newTestEngine(t, domain.EngineOpenAI)
	e.Prepare(nil)
}

func TestChatEngine_Prepare_LeavesSourceFieldsUntouched(t *testing.T) {
	tests := []struct {
		name  string
		build func() domain.Request
	}{
		{
			name: "text prompt",
			build: func() domain.Request {
				return domain.Request{
					PreprocessedInput: domain.TextPrompt("pre"),
					ProcessedInput:    domain.TextPrompt("proc"),
					Options:           domain.Options{OptTemperature: "0.3", OptStop: []any{"a", "b"}},
				}
			},
		},
		{
			name: "sequence prompt",
			build: func() domain.Request {
				return domain.Request{
					ProcessedInput: domain.SequencePrompt{
						domain.Message{Role: "system", Content: "Translate to German"},
						domain.Message{Content: "no role"},
						domain.PlainEntry{Value: map[string]any{"k": []any{1.0, "v"}}},
					},
					Options: domain.Options{OptMaxTokens: 64.0, OptTopP: 0.9},
				}
			},
		},
		{
			name: "value prompt",
			build: func() domain.Request {
				return domain.Request{ProcessedInput: domain.ValuePrompt{Value: map[string]any{"x": true}}}
			},
		},
		{
			name: "instance with context",
			build: func() domain.Request {
				return domain.Request{
					Instance: map[string]any{"animal": "cat"},
					Options:  domain.Options{OptContext: "biology"},
				}
			},
		},
		{
			name: "fallback",
			build: func() domain.Request {
				return domain.Request{
					ProcessedInput: domain.SequencePrompt{domain.Message{Role: "system", Content: "sys"}, nil},
					Options:        domain.Options{OptTemperature: "hot", OptStop: "END"},
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.build()
			req := tt.build()

			newTestEngine(t, domain.EngineOpenAI).Prepare(&req)

			if req.PreparedInput == nil {
				t.Fatal("PreparedInput is nil")
			}
			if !reflect.DeepEqual(req.PreprocessedInput, before.PreprocessedInput) {
				t.Errorf("PreprocessedInput = %#v, want %#v", req.PreprocessedInput, before.PreprocessedInput)
			}
			if !reflect.DeepEqual(req.ProcessedInput, before.ProcessedInput) {
				t.Errorf("ProcessedInput = %#v, want %#v", req.ProcessedInput, before.ProcessedInput)
			}
			if !reflect.DeepEqual(req.Instance, before.Instance) {
				t.Errorf("Instance = %#v, want %#v", req.Instance, before.Instance)
			}
			if !reflect.DeepEqual(req.Options, before.Options) {
				t.Errorf("Options = %#v, want %#v", req.Options, before.Options)
			}
		})
	}
}

func TestChatEngine_Prepare_PreprocessedTranslation(t *testing.T) {
	e := newTestEngine(t, domain.EngineOpenAI)
	req := &domain.Request{PreprocessedInput: domain.TextPrompt("Translate to German: Hello")}
	e.Prepare(req)

	p := req.PreparedInput
	if p == nil {
		t.Fatal("PreparedInput is nil")
	}
	want := []domain.ChatMessage{{Role: "user", Content: "Translate to German: Hello"}}
	if !reflect.DeepEqual(p.Messages, want) {
		t.Errorf("Messages = %+v, want %+v", p.Messages, want)
	}
	if p.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", p.Temperature)
	}
	if p.MaxTokens != 2000 {
		t.Errorf("MaxTokens = %d, want 2000", p.MaxTokens)
	}
	if p.Model != "test-model" || p.Stream {
		t.Errorf("payload = %+v, want test-model without streaming", p)
	}
}
