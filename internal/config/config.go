// Package config handles configuration loading and management for Quill.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ProviderAnthropic selects the Anthropic API backend.
const ProviderAnthropic = "anthropic"

// ProviderOpenAI selects the OpenAI API backend.
const ProviderOpenAI = "openai"

// ProviderBedrock selects Anthropic models served through AWS Bedrock.
const ProviderBedrock = "bedrock"

// Config holds all configuration for Quill.
type Config struct {
	Provider  ProviderConfig  `mapstructure:"provider"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Output    OutputConfig    `mapstructure:"output"`
	Retry     RetryConfig     `mapstructure:"retry"`
}

// ProviderConfig holds text-generation backend settings.
type ProviderConfig struct {
	// Name selects the backend: anthropic, openai, or bedrock.
	Name string `mapstructure:"name"`
	// Model is the model identifier passed to the backend.
	Model string `mapstructure:"model"`
	// APIKey is the backend API key; ${VAR} references are expanded.
	APIKey string `mapstructure:"api_key"`
	// Temperature is the sampling temperature for generation calls.
	Temperature float64 `mapstructure:"temperature"`
	// MaxTokens caps the output length of a single generation call.
	MaxTokens int64 `mapstructure:"max_tokens"`
	// AWSRegion is the Bedrock region, bedrock backend only.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the shared-config profile, bedrock backend only.
	AWSProfile string `mapstructure:"aws_profile"`
}

// WorkspaceConfig holds the on-disk workspace layout settings.
type WorkspaceConfig struct {
	// Dir is the workspace root; workflows/, papers/, and output/ live under it.
	Dir string `mapstructure:"dir"`
	// Watch enables the papers-directory watcher during manual upload steps.
	Watch bool `mapstructure:"watch"`
}

// OutputConfig holds document export settings.
type OutputConfig struct {
	// Formats lists the export formats; md is always produced.
	Formats []string `mapstructure:"formats"`
}

// RetryConfig holds provider retry settings.
type RetryConfig struct {
	// Attempts is the total number of tries per generation call.
	Attempts int `mapstructure:"attempts"`
	// BaseDelay is the first backoff delay; later tries double it.
	BaseDelay time.Duration `mapstructure:"base_delay"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY, QUILL_*)
// 2. Project config (.quill.yaml in current directory or parent)
// 3. User config (~/.config/quill/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Load user config from XDG path
	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides
	v.SetEnvPrefix("QUILL")
	v.AutomaticEnv()

	v.BindEnv("provider.name", "QUILL_PROVIDER")
	v.BindEnv("provider.model", "QUILL_MODEL")
	v.BindEnv("workspace.dir", "QUILL_WORKSPACE")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Provider.APIKey = os.ExpandEnv(cfg.Provider.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Provider.APIKey = os.ExpandEnv(cfg.Provider.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("provider.name", cfg.Provider.Name)
	v.Set("provider.model", cfg.Provider.Model)
	v.Set("provider.api_key", cfg.Provider.APIKey)
	v.Set("provider.temperature", cfg.Provider.Temperature)
	v.Set("provider.max_tokens", cfg.Provider.MaxTokens)
	v.Set("provider.aws_region", cfg.Provider.AWSRegion)
	v.Set("provider.aws_profile", cfg.Provider.AWSProfile)
	v.Set("workspace.dir", cfg.Workspace.Dir)
	v.Set("workspace.watch", cfg.Workspace.Watch)
	v.Set("output.formats", cfg.Output.Formats)
	v.Set("retry.attempts", cfg.Retry.Attempts)
	v.Set("retry.base_delay", cfg.Retry.BaseDelay.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case ProviderAnthropic, ProviderOpenAI, ProviderBedrock:
	default:
		return fmt.Errorf("unknown provider %q: want anthropic, openai, or bedrock", c.Provider.Name)
	}
	if c.Provider.Model == "" {
		return fmt.Errorf("provider.model must not be empty")
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		return fmt.Errorf("provider.temperature %v out of range [0,2]", c.Provider.Temperature)
	}
	if c.Provider.MaxTokens <= 0 {
		return fmt.Errorf("provider.max_tokens must be positive, got %d", c.Provider.MaxTokens)
	}
	if c.Workspace.Dir == "" {
		return fmt.Errorf("workspace.dir must not be empty")
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	return nil
}

// WorkflowsDir returns the directory holding persisted workflows.
func (c *Config) WorkflowsDir() string {
	return filepath.Join(c.Workspace.Dir, "workflows")
}

// PapersDir returns the directory watched for uploaded papers.
func (c *Config) PapersDir() string {
	return filepath.Join(c.Workspace.Dir, "papers")
}

// OutputDir returns the directory receiving generated documents.
func (c *Config) OutputDir() string {
	return filepath.Join(c.Workspace.Dir, "output")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.name", ProviderAnthropic)
	v.SetDefault("provider.model", "claude-sonnet-4-5")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.temperature", 0.7)
	v.SetDefault("provider.max_tokens", 4096)
	v.SetDefault("provider.aws_region", "")
	v.SetDefault("provider.aws_profile", "")

	v.SetDefault("workspace.dir", "research")
	v.SetDefault("workspace.watch", true)

	v.SetDefault("output.formats", []string{"md", "html", "txt"})

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.base_delay", "2s")
}

// getUserConfigDir returns the XDG config directory for Quill.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "quill")
	}

	// Fall back to ~/.config/quill
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "quill")
	}
	return filepath.Join(home, ".config", "quill")
}

// findProjectConfig searches for .quill.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".quill.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:        ProviderAnthropic,
			Model:       "claude-sonnet-4-5",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Workspace: WorkspaceConfig{
			Dir:   "research",
			Watch: true,
		},
		Output: OutputConfig{
			Formats: []string{"md", "html", "txt"},
		},
		Retry: RetryConfig{
			Attempts:  3,
			BaseDelay: 2 * time.Second,
		},
	}
}
