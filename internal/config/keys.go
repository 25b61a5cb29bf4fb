// Package config provides API key management utilities.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured for the selected provider.
var ErrNoAPIKey = errors.New("no API key configured")

// envVarForProvider maps a provider name to its conventional environment variable.
func envVarForProvider(name string) string {
	switch name {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return "ANTHROPIC_API_KEY"
	}
}

// GetAPIKey returns the API key for the configured provider.
// It checks in order: environment variable, config file. The bedrock
// backend authenticates through AWS credentials instead and returns "".
func GetAPIKey(cfg *Config) (string, error) {
	if cfg != nil && cfg.Provider.Name == ProviderBedrock {
		return "", nil
	}

	envVar := "ANTHROPIC_API_KEY"
	if cfg != nil {
		envVar = envVarForProvider(cfg.Provider.Name)
	}
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}

	if cfg != nil && cfg.Provider.APIKey != "" {
		// Expand any remaining env var references
		key := os.ExpandEnv(cfg.Provider.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, nil
		}
	}

	return "", fmt.Errorf("%w: set %s or provider.api_key", ErrNoAPIKey, envVar)
}

// ValidateAPIKey performs basic format validation on an API key for the
// given provider. It does not verify the key with the backend.
func ValidateAPIKey(provider, key string) error {
	if key == "" {
		return ErrNoAPIKey
	}

	switch provider {
	case ProviderAnthropic:
		if !strings.HasPrefix(key, "sk-ant-") {
			return errors.New("invalid API key format: expected 'sk-ant-' prefix")
		}
	case ProviderOpenAI:
		if !strings.HasPrefix(key, "sk-") {
			return errors.New("invalid API key format: expected 'sk-' prefix")
		}
	}

	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}

	return nil
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 characters and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceAWS    KeySource = "aws_credentials"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource returns where the API key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	if cfg != nil && cfg.Provider.Name == ProviderBedrock {
		return KeySourceAWS
	}

	envVar := "ANTHROPIC_API_KEY"
	if cfg != nil {
		envVar = envVarForProvider(cfg.Provider.Name)
	}
	if os.Getenv(envVar) != "" {
		return KeySourceEnv
	}

	if cfg != nil && cfg.Provider.APIKey != "" {
		key := os.ExpandEnv(cfg.Provider.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return KeySourceConfig
		}
	}

	return KeySourceNone
}
