// Package config provides configuration management using the Singleton pattern.
// It loads configuration from environment variables and config.yaml using Viper.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/hpn/hpn-symai-bridge/internal/domain"
)

// Configuration holds all application configuration values.
type Configuration struct {
	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Engine configuration
	Engine EngineConfig `json:"engine" mapstructure:"engine"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Result cache configuration
	Cache CacheConfig `json:"cache" mapstructure:"cache"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	// Host is the server bind address.
	Host string `json:"host" mapstructure:"host"`

	// Port is the server port number.
	Port int `json:"port" mapstructure:"port"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeoutSeconds int `json:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// It must exceed the engine timeout, otherwise slow completions are cut off.
	WriteTimeoutSeconds int `json:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`

	// ShutdownTimeout is the maximum duration to wait for active connections to finish.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" mapstructure:"shutdown_timeout_seconds"`
}

// EngineConfig selects and tunes the chat-completion backend.
type EngineConfig struct {
	// Type is the backend family (openai-comp, ollama).
	Type string `json:"type" mapstructure:"type"`

	// ConfigFile is the engine settings JSON. Empty uses the backend's default file name.
	ConfigFile string `json:"config_file" mapstructure:"config_file"`

	// TimeoutSeconds bounds one completion round trip.
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds"`

	// MaxTokens overrides the backend's default max_tokens when positive.
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`

	// Probe runs a connection test before the engine is handed out.
	Probe bool `json:"probe" mapstructure:"probe"`

	// Verbose logs payloads and responses at debug level.
	Verbose bool `json:"verbose" mapstructure:"verbose"`

	// ReasoningOpenTag and ReasoningCloseTag delimit the reasoning blocks removed from answers.
	ReasoningOpenTag  string `json:"reasoning_open_tag" mapstructure:"reasoning_open_tag"`
	ReasoningCloseTag string `json:"reasoning_close_tag" mapstructure:"reasoning_close_tag"`
}

// Timeout returns the completion timeout as a duration.
func (e EngineConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level" mapstructure:"level"`

	// Format is the log format (json, text).
	Format string `json:"format" mapstructure:"format"`
}

// CacheConfig holds the query result cache configuration.
type CacheConfig struct {
	// Enabled turns on caching of successful query results.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTLSeconds is how long a cached result stays valid.
	TTLSeconds int `json:"ttl_seconds" mapstructure:"ttl_seconds"`
}

// TTL returns the cache lifetime as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// configInstance holds the singleton configuration instance.
var (
	configInstance *Configuration
	configOnce     sync.Once
	configErr      error
)

// GetConfig returns the singleton Configuration instance.
// It initializes the configuration on first call using the default config path.
// Returns an error if configuration loading fails.
func GetConfig() (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig("")
	})
	return configInstance, configErr
}

// GetConfigWithPath returns the singleton Configuration instance with a custom config path.
// This should be used when you need to specify a non-default configuration file path.
// Returns an error if configuration loading fails.
func GetConfigWithPath(configPath string) (*Configuration, error) {
	configOnce.Do(func() {
		configInstance, configErr = loadConfig(configPath)
	})
	return configInstance, configErr
}

// ResetConfig resets the singleton instance.
// This is primarily used for testing purposes.
func ResetConfig() {
	configOnce = sync.Once{}
	configInstance = nil
	configErr = nil
}

// Validate validates the configuration and returns an error if required fields are missing.
func (c *Configuration) Validate() error {
	var validationErrors []string

	// Validate server configuration
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		validationErrors = append(validationErrors, "server.port must be between 1 and 65535")
	}

	// Validate engine configuration
	if c.Engine.Type == "" {
		validationErrors = append(validationErrors, "engine.type is required")
	} else if _, err := domain.LookupVariant(domain.EngineType(c.Engine.Type)); err != nil {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"engine.type '%s' is invalid, must be one of: %s, %s",
			c.Engine.Type, domain.EngineOpenAI, domain.EngineOllama,
		))
	}

	if c.Engine.TimeoutSeconds <= 0 {
		validationErrors = append(validationErrors, "engine.timeout_seconds must be positive")
	}

	if c.Engine.MaxTokens < 0 {
		validationErrors = append(validationErrors, "engine.max_tokens cannot be negative")
	}

	if c.Engine.ReasoningOpenTag == "" || c.Engine.ReasoningCloseTag == "" {
		validationErrors = append(validationErrors, "engine.reasoning_open_tag and engine.reasoning_close_tag are required")
	}

	// Validate cache configuration
	if c.Cache.Enabled && c.Cache.TTLSeconds <= 0 {
		validationErrors = append(validationErrors, "cache.ttl_seconds must be positive when the cache is enabled")
	}

	// Validate logging configuration
	if c.Logging.Level != "" && !isValidLogLevel(c.Logging.Level) {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.level '%s' is invalid, must be one of: debug, info, warn, error",
			c.Logging.Level,
		))
	}

	if c.Logging.Format != "" && c.Logging.Format != "json" && c.Logging.Format != "text" {
		validationErrors = append(validationErrors, fmt.Sprintf(
			"logging.format '%s' is invalid, must be one of: json, text",
			c.Logging.Format,
		))
	}

	if len(validationErrors) > 0 {
		return &ValidationError{Errors: validationErrors}
	}

	return nil
}

// isValidLogLevel checks if the log level is valid.
func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// EngineType returns the configured engine type.
func (c *Configuration) EngineType() domain.EngineType {
	return domain.EngineType(c.Engine.Type)
}
