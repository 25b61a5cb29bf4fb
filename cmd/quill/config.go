package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quillworks/quill/internal/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View or modify Quill configuration.

Configuration is stored at ~/.config/quill/config.yaml (respecting
XDG_CONFIG_HOME). Project overrides go in .quill.yaml in the project
directory. Environment variables win over both: QUILL_PROVIDER,
QUILL_MODEL, QUILL_WORKSPACE, plus the backend key variables
ANTHROPIC_API_KEY and OPENAI_API_KEY.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE:  initConfig,
}

var configShowCmd = &cobra.Command{
	Use:   "show [key]",
	Short: "Show configuration values",
	Args:  cobra.MaximumNArgs(1),
	RunE:  showConfig,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  setConfig,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := config.GetUserConfigPath()
	if _, err := os.Stat(path); err == nil && !configInitForce {
		fmt.Printf("Config already exists at %s. Use --force to overwrite.\n", path)
		return nil
	}

	if err := config.Save(config.Default()); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Wrote default config to %s\n", path)
	fmt.Println("Set your API key via the ANTHROPIC_API_KEY environment variable,")
	fmt.Println("or: quill config set provider.api_key '${ANTHROPIC_API_KEY}'")
	return nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if len(args) == 1 {
		value, err := getConfigValue(cfg, args[0])
		if err != nil {
			return err
		}
		fmt.Println(value)
		return nil
	}

	// Mask API key if set
	apiKeyDisplay := "(not set)"
	if cfg.Provider.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("provider.name: %s\n", cfg.Provider.Name)
	fmt.Printf("provider.model: %s\n", cfg.Provider.Model)
	fmt.Printf("provider.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("provider.temperature: %g\n", cfg.Provider.Temperature)
	fmt.Printf("provider.max_tokens: %d\n", cfg.Provider.MaxTokens)
	fmt.Printf("provider.aws_region: %s\n", cfg.Provider.AWSRegion)
	fmt.Printf("provider.aws_profile: %s\n", cfg.Provider.AWSProfile)
	fmt.Printf("workspace.dir: %s\n", cfg.Workspace.Dir)
	fmt.Printf("workspace.watch: %t\n", cfg.Workspace.Watch)
	fmt.Printf("output.formats: %s\n", strings.Join(cfg.Output.Formats, ","))
	fmt.Printf("retry.attempts: %d\n", cfg.Retry.Attempts)
	fmt.Printf("retry.base_delay: %s\n", cfg.Retry.BaseDelay)

	if project := config.GetProjectConfigPath(); project != "" {
		fmt.Printf("\nProject overrides active: %s\n", project)
	}
	return nil
}

func setConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	key, value := args[0], args[1]
	if err := setConfigValue(cfg, key, value); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "provider.name":
		return cfg.Provider.Name, nil
	case "provider.model":
		return cfg.Provider.Model, nil
	case "provider.api_key":
		if cfg.Provider.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "provider.temperature":
		return strconv.FormatFloat(cfg.Provider.Temperature, 'g', -1, 64), nil
	case "provider.max_tokens":
		return strconv.FormatInt(cfg.Provider.MaxTokens, 10), nil
	case "provider.aws_region":
		return cfg.Provider.AWSRegion, nil
	case "provider.aws_profile":
		return cfg.Provider.AWSProfile, nil
	case "workspace.dir":
		return cfg.Workspace.Dir, nil
	case "workspace.watch":
		return strconv.FormatBool(cfg.Workspace.Watch), nil
	case "output.formats":
		return strings.Join(cfg.Output.Formats, ","), nil
	case "retry.attempts":
		return strconv.Itoa(cfg.Retry.Attempts), nil
	case "retry.base_delay":
		return cfg.Retry.BaseDelay.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "provider.name":
		cfg.Provider.Name = value
	case "provider.model":
		cfg.Provider.Model = value
	case "provider.api_key":
		cfg.Provider.APIKey = value
	case "provider.temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for temperature: %w", err)
		}
		cfg.Provider.Temperature = f
	case "provider.max_tokens":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for max_tokens: %w", err)
		}
		cfg.Provider.MaxTokens = n
	case "provider.aws_region":
		cfg.Provider.AWSRegion = value
	case "provider.aws_profile":
		cfg.Provider.AWSProfile = value
	case "workspace.dir":
		cfg.Workspace.Dir = value
	case "workspace.watch":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for workspace.watch: %w", err)
		}
		cfg.Workspace.Watch = b
	case "output.formats":
		formats := splitList(value)
		if len(formats) == 0 {
			return fmt.Errorf("output.formats must name at least one format")
		}
		cfg.Output.Formats = formats
	case "retry.attempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for retry.attempts: %w", err)
		}
		cfg.Retry.Attempts = n
	case "retry.base_delay":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for retry.base_delay: %w", err)
		}
		cfg.Retry.BaseDelay = d
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
