// Package adapter provides the chat-completion engine used by the symbolic framework.
package adapter

import "github.com/hpn/hpn-symai-bridge/internal/domain"

// Wire types for the OpenAI-compatible /chat/completions response.
// Ollama's /v1 endpoint answers in the same shape.

// chatCompletion is the subset of the provider response the engine reads.
type chatCompletion struct {
	ID      string        `json:"id"`
	Model   string        `json:"model"`
	Choices []chatChoice  `json:"choices"`
	Usage   *domain.Usage `json:"usage,omitempty"`
}

// chatChoice is a single completion choice.
type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// chatMessage is the assistant message inside a choice. Content may be null.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// providerError is the error envelope OpenAI-compatible servers return on non-2xx.
type providerError struct {
	Error providerErrorDetail `json:"error"`
}

type providerErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code,omitempty"`
}
