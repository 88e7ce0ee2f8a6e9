package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Prompt is the prompt source handed over by the framework.
// It is a closed set: TextPrompt, SequencePrompt or ValuePrompt.
type Prompt interface {
	isPrompt()
}

// TextPrompt is a plain string prompt.
type TextPrompt string

func (TextPrompt) isPrompt() {}

// SequencePrompt is an ordered list of prompt entries.
type SequencePrompt []PromptEntry

func (SequencePrompt) isPrompt() {}

// ValuePrompt wraps any other value; it is stringified when used.
type ValuePrompt struct {
	Value any
}

func (ValuePrompt) isPrompt() {}

// PromptEntry is one element of a SequencePrompt: a Message or a PlainEntry.
type PromptEntry interface {
	isPromptEntry()
}

// Message is a role-tagged chat message.
type Message struct {
	// Role is one of "system", "user", "assistant". Empty means "user".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Name is an optional participant name.
	Name string `json:"name,omitempty"`
}

func (Message) isPromptEntry() {}

// PlainEntry is an untagged element, sent as a user message.
type PlainEntry struct {
	Value any
}

func (PlainEntry) isPromptEntry() {}

// IsEmptyPrompt reports whether p carries nothing usable.
func IsEmptyPrompt(p Prompt) bool {
	switch v := p.(type) {
	case nil:
		return true
	case TextPrompt:
		return v == ""
	case SequencePrompt:
		return len(v) == 0
	case ValuePrompt:
		return IsZeroValue(v.Value)
	default:
		return false
	}
}

// IsZeroValue reports whether v is nil, a zero scalar or an empty collection.
func IsZeroValue(v any) bool {
	if v == nil {
		return true
	}
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return err == nil && f == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array, reflect.String, reflect.Chan:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return rv.IsZero()
	}
}

// Stringify renders a loosely typed value the way it should appear in a prompt.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	case []byte:
		return string(x)
	case map[string]any, []any:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(x); err == nil {
			return strings.TrimSpace(buf.String())
		}
	}
	return fmt.Sprint(v)
}

// DecodePrompt maps a JSON document onto the Prompt sum type.
// null yields a nil Prompt; strings become TextPrompt; arrays become SequencePrompt
// whose objects carrying "role" or "content" are Messages; anything else is a ValuePrompt.
func DecodePrompt(raw json.RawMessage) (Prompt, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode text prompt: %w", err)
		}
		return TextPrompt(s), nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode prompt list: %w", err)
		}
		seq := make(SequencePrompt, 0, len(items))
		for i, item := range items {
			entry, err := decodeEntry(item)
			if err != nil {
				return nil, fmt.Errorf("decode prompt list item %d: %w", i, err)
			}
			seq = append(seq, entry)
		}
		return seq, nil
	default:
		v, err := DecodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("decode prompt value: %w", err)
		}
		return ValuePrompt{Value: v}, nil
	}
}

// DecodeValue decodes a loosely typed JSON value. Numbers are kept as json.Number
// so they render with their original literal. Empty input and null yield nil.
func DecodeValue(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func decodeEntry(raw json.RawMessage) (PromptEntry, error) {
	v, err := DecodeValue(raw)
	if err != nil {
		return nil, err
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return PlainEntry{Value: v}, nil
	}
	_, hasRole := obj["role"]
	_, hasContent := obj["content"]
	if !hasRole && !hasContent {
		return PlainEntry{Value: v}, nil
	}

	msg := Message{
		Role:    Stringify(obj["role"]),
		Content: Stringify(obj["content"]),
	}
	if name, ok := obj["name"].(string); ok {
		msg.Name = name
	}
	return msg, nil
}
