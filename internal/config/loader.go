package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultConfigName = "config"
	defaultConfigType = "yaml"
	envPrefix         = "SYMAI_BRIDGE"
)

// loadConfig loads the configuration from environment variables and files.
// Priority order (highest to lowest):
// 1. Environment variables (prefixed with SYMAI_BRIDGE_, e.g. SYMAI_BRIDGE_ENGINE_TYPE)
// 2. config.yaml
// 3. Default values
func loadConfig(configPath string) (*Configuration, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure Viper
	v.SetConfigName(defaultConfigName)
	v.SetConfigType(defaultConfigType)

	// Add config search paths
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/symai-bridge")
		v.AddConfigPath("$HOME/.symai-bridge")
	}

	// Enable environment variable override
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Read configuration file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Fprintf(os.Stderr, "[CONFIG] Config file not found, using defaults and environment variables\n")
		} else {
			return nil, &ConfigError{
				Op:  "read",
				Err: fmt.Errorf("failed to read config file: %w", err),
			}
		}
	}

	// Unmarshal configuration
	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{
			Op:  "unmarshal",
			Err: fmt.Errorf("failed to unmarshal config: %w", err),
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 90)
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	// Engine defaults
	v.SetDefault("engine.type", "ollama")
	v.SetDefault("engine.config_file", "")
	v.SetDefault("engine.timeout_seconds", 60)
	v.SetDefault("engine.max_tokens", 0)
	v.SetDefault("engine.probe", true)
	v.SetDefault("engine.verbose", false)
	v.SetDefault("engine.reasoning_open_tag", "<think>")
	v.SetDefault("engine.reasoning_close_tag", "</think>")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_seconds", 300)
}
