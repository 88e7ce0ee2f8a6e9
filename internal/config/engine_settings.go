package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/hpn/hpn-symai-bridge/internal/domain"
)

// Keys of the engine settings file. The same names are honored as environment variables.
const (
	KeyBaseURL = "NEUROSYMBOLIC_ENGINE_BASE_URL"
	KeyModel   = "NEUROSYMBOLIC_ENGINE_MODEL"
	KeyAPIKey  = "NEUROSYMBOLIC_ENGINE_API_KEY"
)

// LoadEngineSettings reads the flat JSON settings file of an engine, for example:
//
//	{
//	  "NEUROSYMBOLIC_ENGINE_BASE_URL": "http://localhost:11434/v1",
//	  "NEUROSYMBOLIC_ENGINE_MODEL": "deepseek-r1:14b"
//	}
//
// An empty path uses the backend's default file name. Environment variables win over
// the file, and missing values fall back to the backend defaults.
func LoadEngineSettings(engineType domain.EngineType, path string) (domain.EngineSettings, error) {
	variant, err := domain.LookupVariant(engineType)
	if err != nil {
		return domain.EngineSettings{}, &InvalidValueError{
			Key:           "engine.type",
			Value:         engineType,
			AllowedValues: []string{string(domain.EngineOpenAI), string(domain.EngineOllama)},
		}
	}

	if path == "" {
		path = variant.ConfigFile
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	for _, key := range []string{KeyBaseURL, KeyModel, KeyAPIKey} {
		if err := v.BindEnv(key); err != nil {
			return domain.EngineSettings{}, &ConfigError{Op: "bind_env", Err: err}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return domain.EngineSettings{}, &ConfigError{
			Op:  "read",
			Err: fmt.Errorf("failed to read engine settings %s: %w", path, err),
		}
	}

	var settings domain.EngineSettings
	if err := v.Unmarshal(&settings); err != nil {
		return domain.EngineSettings{}, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal engine settings %s: %w", path, err),
		}
	}

	settings.Type = variant.Type
	if settings.BaseURL == "" {
		settings.BaseURL = variant.DefaultBaseURL
	}
	if settings.Model == "" {
		settings.Model = variant.DefaultModel
	}
	if settings.APIKey == "" {
		settings.APIKey = variant.DefaultAPIKey
	}

	if err := ValidateEngineSettings(settings); err != nil {
		return domain.EngineSettings{}, err
	}
	return settings, nil
}

// ValidateEngineSettings rejects settings the backend cannot run with.
// OpenAI-compatible endpoints need a real key; the sample placeholder does not count.
func ValidateEngineSettings(settings domain.EngineSettings) error {
	variant, err := domain.LookupVariant(settings.Type)
	if err != nil {
		return &InvalidValueError{
			Key:           "engine.type",
			Value:         settings.Type,
			AllowedValues: []string{string(domain.EngineOpenAI), string(domain.EngineOllama)},
		}
	}

	if variant.RequiresAPIKey() && (settings.APIKey == "" || settings.APIKey == domain.PlaceholderAPIKey) {
		return &MissingKeyError{Key: KeyAPIKey}
	}

	if !settings.IsValid() {
		return &ValidationError{Errors: []string{"engine settings need a base URL and a model"}}
	}
	return nil
}
