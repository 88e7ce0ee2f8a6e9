package adapter

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cast"

	"github.com/hpn/hpn-symai-bridge/internal/domain"
)

const (
	// DefaultPrompt is sent when the request carries no usable prompt source.
	DefaultPrompt = "Please provide a helpful response."

	// DefaultTemperature is used when the caller supplies none.
	DefaultTemperature = 0.7

	roleUser = "user"
)

// Option keys understood by Prepare.
const (
	OptTemperature      = "temperature"
	OptMaxTokens        = "max_tokens"
	OptTopP             = "top_p"
	OptFrequencyPenalty = "frequency_penalty"
	OptPresencePenalty  = "presence_penalty"
	OptStop             = "stop"
	OptContext          = "context"
)

// Prepare resolves the prompt source, normalizes it into chat messages and stores
// the payload in req.PreparedInput. Any failure while building the payload falls
// back to a single user message, so Prepare always leaves a payload behind.
func (e *ChatEngine) Prepare(req *domain.Request) {
	if req == nil {
		return
	}

	var source domain.Prompt
	payload, err := func() (p *domain.ChatRequest, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", errRecovered, r)
			}
		}()
		source = ResolvePrompt(req)
		return e.buildPayload(source, req.Options)
	}()
	if err != nil {
		e.logger.Warn("prepare failed, using fallback payload",
			slog.String("engine", e.variant.ID),
			slog.String("error", err.Error()),
		)
		payload = e.fallbackPayload(source)
	}

	if e.verbose {
		e.logger.Debug("prepared payload",
			slog.String("engine", e.variant.ID),
			slog.String("model", payload.Model),
			slog.Int("messages", len(payload.Messages)),
			slog.Float64("temperature", payload.Temperature),
			slog.Int("max_tokens", payload.MaxTokens),
		)
	}
	req.PreparedInput = payload
}

// ResolvePrompt picks the prompt source in precedence order: pre-processed input,
// processed input, the instance value (combined with a "context" option when set),
// then DefaultPrompt.
func ResolvePrompt(req *domain.Request) domain.Prompt {
	switch {
	case !domain.IsEmptyPrompt(req.PreprocessedInput):
		return req.PreprocessedInput
	case !domain.IsEmptyPrompt(req.ProcessedInput):
		return req.ProcessedInput
	case !domain.IsZeroValue(req.Instance):
		instance := domain.Stringify(req.Instance)
		if v, ok := presentOption(req.Options, OptContext); ok {
			if ctx := domain.Stringify(v); ctx != "" {
				return domain.TextPrompt(fmt.Sprintf("Data: %s\nContext: %s\nAnswer:", instance, ctx))
			}
		}
		return domain.TextPrompt(instance)
	default:
		return domain.TextPrompt(DefaultPrompt)
	}
}

// NormalizeMessages converts a prompt source into chat messages.
// Role-tagged entries keep their role (empty means "user"); anything else
// becomes a user message with its string form as content.
func NormalizeMessages(p domain.Prompt) ([]domain.ChatMessage, error) {
	switch v := p.(type) {
	case nil:
		return nil, ErrNoPrompt
	case domain.TextPrompt:
		return []domain.ChatMessage{{Role: roleUser, Content: string(v)}}, nil
	case domain.ValuePrompt:
		return []domain.ChatMessage{{Role: roleUser, Content: domain.Stringify(v.Value)}}, nil
	case domain.SequencePrompt:
		msgs := make([]domain.ChatMessage, 0, len(v))
		for i, entry := range v {
			msg, err := entryMessage(entry)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			msgs = append(msgs, msg)
		}
		return msgs, nil
	default:
		return nil, fmt.Errorf("unsupported prompt type %T", p)
	}
}

func entryMessage(entry domain.PromptEntry) (domain.ChatMessage, error) {
	switch v := entry.(type) {
	case domain.Message:
		role := v.Role
		if role == "" {
			role = roleUser
		}
		return domain.ChatMessage{Role: role, Content: v.Content, Name: v.Name}, nil
	case domain.PlainEntry:
		return domain.ChatMessage{Role: roleUser, Content: domain.Stringify(v.Value)}, nil
	default:
		return domain.ChatMessage{}, fmt.Errorf("unsupported prompt entry %T", entry)
	}
}

// buildPayload assembles the chat request with caller options applied over the defaults.
func (e *ChatEngine) buildPayload(source domain.Prompt, opts domain.Options) (*domain.ChatRequest, error) {
	msgs, err := NormalizeMessages(source)
	if err != nil {
		return nil, err
	}

	payload := &domain.ChatRequest{
		Model:       e.model,
		Messages:    msgs,
		Temperature: DefaultTemperature,
		MaxTokens:   e.maxTokens,
	}

	if v, ok := presentOption(opts, OptTemperature); ok {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, &OptionError{Key: OptTemperature, Err: err}
		}
		payload.Temperature = f
	}
	if v, ok := presentOption(opts, OptMaxTokens); ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return nil, &OptionError{Key: OptMaxTokens, Err: err}
		}
		payload.MaxTokens = n
	}

	for key, dst := range map[string]**float64{
		OptTopP:             &payload.TopP,
		OptFrequencyPenalty: &payload.FrequencyPenalty,
		OptPresencePenalty:  &payload.PresencePenalty,
	} {
		v, ok := presentOption(opts, key)
		if !ok {
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, &OptionError{Key: key, Err: err}
		}
		*dst = &f
	}

	if v, ok := presentOption(opts, OptStop); ok {
		stop, err := stopSequences(v)
		if err != nil {
			return nil, &OptionError{Key: OptStop, Err: err}
		}
		payload.Stop = stop
	}

	return payload, nil
}

// stopSequences accepts a single string or a list of strings.
func stopSequences(v any) ([]string, error) {
	if s, ok := v.(string); ok {
		return []string{s}, nil
	}
	return cast.ToStringSliceE(v)
}

// presentOption treats an explicit nil the same as an absent key.
func presentOption(opts domain.Options, key string) (any, bool) {
	v, ok := opts.Lookup(key)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// fallbackPayload is the minimal payload used when normal preparation fails.
func (e *ChatEngine) fallbackPayload(source domain.Prompt) *domain.ChatRequest {
	return &domain.ChatRequest{
		Model:       e.model,
		Messages:    []domain.ChatMessage{{Role: roleUser, Content: fallbackText(source)}},
		Temperature: DefaultTemperature,
		MaxTokens:   e.maxTokens,
	}
}

// fallbackText is the best plain-text rendering of a prompt source.
func fallbackText(p domain.Prompt) (text string) {
	defer func() {
		if recover() != nil {
			text = DefaultPrompt
		}
	}()

	switch v := p.(type) {
	case domain.TextPrompt:
		text = string(v)
	case domain.ValuePrompt:
		text = domain.Stringify(v.Value)
	case domain.SequencePrompt:
		parts := make([]string, 0, len(v))
		for _, entry := range v {
			switch x := entry.(type) {
			case domain.Message:
				parts = append(parts, x.Content)
			case domain.PlainEntry:
				parts = append(parts, domain.Stringify(x.Value))
			}
		}
		text = strings.Join(parts, "\n")
	}

	if strings.TrimSpace(text) == "" {
		text = DefaultPrompt
	}
	return text
}
