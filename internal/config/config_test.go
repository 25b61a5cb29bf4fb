package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Provider.Name != ProviderAnthropic {
		t.Errorf("expected default provider 'anthropic', got %q", cfg.Provider.Name)
	}

	if cfg.Provider.Model != "claude-sonnet-4-5" {
		t.Errorf("expected default model 'claude-sonnet-4-5', got %q", cfg.Provider.Model)
	}

	if cfg.Provider.Temperature != 0.7 {
		t.Errorf("expected default temperature 0.7, got %v", cfg.Provider.Temperature)
	}

	if cfg.Provider.MaxTokens != 4096 {
		t.Errorf("expected default max_tokens 4096, got %d", cfg.Provider.MaxTokens)
	}

	if cfg.Workspace.Dir != "research" {
		t.Errorf("expected default workspace dir 'research', got %q", cfg.Workspace.Dir)
	}

	if !cfg.Workspace.Watch {
		t.Error("expected workspace.watch to default to true")
	}

	if len(cfg.Output.Formats) != 3 {
		t.Errorf("expected 3 default output formats, got %v", cfg.Output.Formats)
	}

	if cfg.Retry.Attempts != 3 {
		t.Errorf("expected default retry attempts 3, got %d", cfg.Retry.Attempts)
	}

	if cfg.Retry.BaseDelay != 2*time.Second {
		t.Errorf("expected default retry base delay 2s, got %v", cfg.Retry.BaseDelay)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() should validate cleanly, got %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
provider:
  name: openai
  model: gpt-4o
  api_key: test-key
  temperature: 0.2
  max_tokens: 2048
workspace:
  dir: /tmp/research
  watch: false
output:
  formats: [md, html]
retry:
  attempts: 5
  base_delay: 500ms
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Provider.Name != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.Provider.Name)
	}

	if cfg.Provider.Model != "gpt-4o" {
		t.Errorf("expected model 'gpt-4o', got %q", cfg.Provider.Model)
	}

	if cfg.Provider.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Provider.APIKey)
	}

	if cfg.Provider.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", cfg.Provider.Temperature)
	}

	if cfg.Provider.MaxTokens != 2048 {
		t.Errorf("expected max_tokens 2048, got %d", cfg.Provider.MaxTokens)
	}

	if cfg.Workspace.Dir != "/tmp/research" {
		t.Errorf("expected workspace dir '/tmp/research', got %q", cfg.Workspace.Dir)
	}

	if cfg.Workspace.Watch {
		t.Error("expected workspace.watch to be false")
	}

	if len(cfg.Output.Formats) != 2 {
		t.Errorf("expected 2 output formats, got %v", cfg.Output.Formats)
	}

	if cfg.Retry.Attempts != 5 {
		t.Errorf("expected retry attempts 5, got %d", cfg.Retry.Attempts)
	}

	if cfg.Retry.BaseDelay != 500*time.Millisecond {
		t.Errorf("expected retry base delay 500ms, got %v", cfg.Retry.BaseDelay)
	}
}

func TestLoadFromPath_PartialFileKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
provider:
  model: claude-opus-4-1
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Provider.Model != "claude-opus-4-1" {
		t.Errorf("expected model 'claude-opus-4-1', got %q", cfg.Provider.Model)
	}
	if cfg.Provider.Name != ProviderAnthropic {
		t.Errorf("unset provider name should default to anthropic, got %q", cfg.Provider.Name)
	}
	if cfg.Retry.Attempts != 3 {
		t.Errorf("unset retry attempts should default to 3, got %d", cfg.Retry.Attempts)
	}
}

func TestLoadFromPath_ExpandsEnvInAPIKey(t *testing.T) {
	os.Setenv("TEST_QUILL_KEY", "expanded-value")
	defer os.Unsetenv("TEST_QUILL_KEY")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
provider:
  api_key: ${TEST_QUILL_KEY}
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Provider.APIKey != "expanded-value" {
		t.Errorf("expected expanded api_key, got %q", cfg.Provider.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(c *Config) {}, false},
		{"bedrock passes", func(c *Config) { c.Provider.Name = ProviderBedrock }, false},
		{"unknown provider", func(c *Config) { c.Provider.Name = "gemini" }, true},
		{"empty model", func(c *Config) { c.Provider.Model = "" }, true},
		{"negative temperature", func(c *Config) { c.Provider.Temperature = -0.1 }, true},
		{"temperature too high", func(c *Config) { c.Provider.Temperature = 2.5 }, true},
		{"zero max tokens", func(c *Config) { c.Provider.MaxTokens = 0 }, true},
		{"empty workspace", func(c *Config) { c.Workspace.Dir = "" }, true},
		{"zero attempts", func(c *Config) { c.Retry.Attempts = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWorkspacePaths(t *testing.T) {
	cfg := Default()
	cfg.Workspace.Dir = "/data/research"

	if got := cfg.WorkflowsDir(); got != filepath.Join("/data/research", "workflows") {
		t.Errorf("WorkflowsDir() = %q", got)
	}
	if got := cfg.PapersDir(); got != filepath.Join("/data/research", "papers") {
		t.Errorf("PapersDir() = %q", got)
	}
	if got := cfg.OutputDir(); got != filepath.Join("/data/research", "output") {
		t.Errorf("OutputDir() = %q", got)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	os.Setenv("XDG_CONFIG_HOME", "/custom/config")
	defer os.Unsetenv("XDG_CONFIG_HOME")

	dir := getUserConfigDir()
	expected := "/custom/config/quill"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}
