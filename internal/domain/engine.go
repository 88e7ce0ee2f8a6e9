// Package domain contains the core business entities and value objects.
// These structs are framework-agnostic and describe requests, payloads and results
// exchanged between the symbolic framework and a chat-completion backend.
package domain

import "fmt"

// EngineType identifies a backend family (cloud OpenAI-compatible API or local Ollama).
type EngineType string

const (
	EngineOpenAI EngineType = "openai-comp"
	EngineOllama EngineType = "ollama"
)

// CapabilityName is the name the framework resolves the engine by.
const CapabilityName = "neurosymbolic"

// PlaceholderAPIKey is the value shipped in sample config files.
const PlaceholderAPIKey = "<YOUR_OPENAI_API_KEY>"

// Variant holds the per-backend defaults for an engine type.
type Variant struct {
	// Type is the engine type this variant describes.
	Type EngineType

	// ID is reported as the "engine" metadata field.
	ID string

	// DisplayName is used for console output.
	DisplayName string

	// DefaultBaseURL is used when the config file omits a base URL.
	DefaultBaseURL string

	// DefaultModel is used when the config file omits a model.
	DefaultModel string

	// DefaultAPIKey is used when the config file omits a key. Empty means a key is required.
	DefaultAPIKey string

	// DefaultMaxTokens is the max_tokens value when the caller supplies none.
	DefaultMaxTokens int

	// ConfigFile is the default engine settings file name.
	ConfigFile string
}

// RequiresAPIKey reports whether the backend refuses to run without an explicit key.
func (v Variant) RequiresAPIKey() bool {
	return v.DefaultAPIKey == ""
}

var variants = map[EngineType]Variant{
	EngineOpenAI: {
		Type:             EngineOpenAI,
		ID:               "openai",
		DisplayName:      "OpenAI Compatible",
		DefaultBaseURL:   "https://api.openai.com/v1",
		DefaultModel:     "gpt-4",
		DefaultMaxTokens: 2000,
		ConfigFile:       "symai.config.openai.json",
	},
	EngineOllama: {
		Type:             EngineOllama,
		ID:               "ollama",
		DisplayName:      "Ollama",
		DefaultBaseURL:   "http://localhost:11434/v1",
		DefaultModel:     "deepseek-r1:14b",
		DefaultAPIKey:    "ollama",
		DefaultMaxTokens: 2000,
		ConfigFile:       "symai.config.ollama.json",
	},
}

// LookupVariant returns the defaults for an engine type.
func LookupVariant(t EngineType) (Variant, error) {
	v, ok := variants[t]
	if !ok {
		return Variant{}, fmt.Errorf("unknown engine type %q (available: %s, %s)", t, EngineOpenAI, EngineOllama)
	}
	return v, nil
}

// EngineTypes returns the supported engine types in a stable order.
func EngineTypes() []EngineType {
	return []EngineType{EngineOpenAI, EngineOllama}
}

// EngineSettings is the resolved connection configuration for one engine.
type EngineSettings struct {
	Type    EngineType `json:"type" mapstructure:"type"`
	BaseURL string     `json:"base_url" mapstructure:"neurosymbolic_engine_base_url"`
	Model   string     `json:"model" mapstructure:"neurosymbolic_engine_model"`
	APIKey  string     `json:"-" mapstructure:"neurosymbolic_engine_api_key"`
}

// IsValid checks if the settings have all required fields.
func (s *EngineSettings) IsValid() bool {
	return s.Type != "" && s.BaseURL != "" && s.Model != ""
}
