// Package security keeps API keys and bearer tokens out of log output and console text.
package security

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces sensitive data.
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns contains regex patterns for credentials that may reach a log line.
var sensitivePatterns = []*regexp.Regexp{
	// Bearer tokens in header dumps; must run before the key patterns consume the token
	regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._~+/-]{8,}=*`),
	// OpenAI-style keys: sk-..., sk-proj-...
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{16,}`),
	// API keys in query params or key=value dumps
	regexp.MustCompile(`(?i)(api_?key|key)=[a-zA-Z0-9_-]{16,}`),
	// Generic long alphanumeric strings that look like keys (40+ chars)
	regexp.MustCompile(`[a-zA-Z0-9_-]{40,}`),
}

// Redact scans a string for sensitive patterns and replaces them.
func Redact(s string) string {
	result := s
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// MaskKey shortens a key for display, keeping only a recognizable prefix and suffix.
// Keys of 12 characters or fewer are fully masked.
func MaskKey(key string) string {
	if key == "" {
		return "(none)"
	}
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// RedactingHandler wraps an slog.Handler and redacts sensitive data from log records.
type RedactingHandler struct {
	inner slog.Handler
}

// NewRedactingHandler creates a handler that redacts sensitive data before passing records on.
func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{inner: inner}
}

// Enabled reports whether the handler handles records at the given level.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle processes a log record, redacting the message and every attribute.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	redacted := slog.NewRecord(r.Time, r.Level, Redact(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, redacted)
}

// WithAttrs returns a new handler with the given attributes added.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(redacted)}
}

// WithGroup returns a new handler with the given group name.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name)}
}

// redactAttr redacts sensitive data from a single attribute, descending into groups.
func redactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(strings.ToLower(a.Key)) {
		return slog.String(a.Key, RedactedPlaceholder)
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, Redact(v.String()))
	case slog.KindGroup:
		group := v.Group()
		redacted := make([]any, len(group))
		for i, ga := range group {
			redacted[i] = redactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	case slog.KindAny:
		if ss, ok := v.Any().([]string); ok {
			out := make([]string, len(ss))
			for i, s := range ss {
				out[i] = Redact(s)
			}
			return slog.Any(a.Key, out)
		}
	}

	return slog.Attr{Key: a.Key, Value: v}
}

// isSensitiveKey checks if an attribute key is known to contain sensitive data.
func isSensitiveKey(key string) bool {
	// Token counts (max_tokens, total_tokens) are not credentials.
	if strings.HasSuffix(key, "tokens") {
		return false
	}

	sensitiveKeys := []string{
		"authorization",
		"api_key",
		"apikey",
		"api-key",
		"secret",
		"password",
		"token",
		"bearer",
		"credential",
	}

	for _, k := range sensitiveKeys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}
