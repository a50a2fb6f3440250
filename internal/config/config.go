package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/officewatch/officewatch/internal/errors"
	"github.com/officewatch/officewatch/internal/registry"
)

// Config represents the complete officewatch configuration
type Config struct {
	// HTTP API configuration
	API APIConfig `yaml:"api" json:"api"`

	// User registry (document store) configuration
	Registry registry.Config `yaml:"registry" json:"registry"`

	// Scan pipeline configuration
	Scan ScanConfig `yaml:"scan" json:"scan"`

	// Slack integration configuration
	Slack SlackConfig `yaml:"slack" json:"slack"`

	// Scheduled sweep configuration
	Watch WatchConfig `yaml:"watch" json:"watch"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	// Listen address
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// Listen port
	Port int `yaml:"port" json:"port"`

	// Read/write timeouts
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// CORS settings
	CORS CORSConfig `yaml:"cors" json:"cors"`

	// Directory holding static HTML templates (registration form)
	TemplatesDir string `yaml:"templates_dir" json:"templates_dir"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
}

// ScanConfig holds scan pipeline settings
type ScanConfig struct {
	// Path to the arp-scan binary
	ScannerPath string `yaml:"scanner_path" json:"scanner_path"`

	// Run the scanner through sudo (arp-scan needs raw socket access)
	UseSudo bool `yaml:"use_sudo" json:"use_sudo"`

	// Explicit network interface; empty means auto-detect
	Interface string `yaml:"interface" json:"interface"`

	// Cooldown between the two sweeps of a double scan
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`

	// Hard timeout for a single scanner invocation
	ScanTimeout time.Duration `yaml:"scan_timeout" json:"scan_timeout"`

	// Directory for daily raw-output scan logs
	LogDir string `yaml:"log_dir" json:"log_dir"`
}

// SlackConfig holds Slack integration settings. Token and signing secret
// are normally supplied via environment, not the config file.
type SlackConfig struct {
	// Bot token (xoxb-...)
	BotToken string `yaml:"bot_token" json:"-"`

	// Webhook signing secret
	SigningSecret string `yaml:"signing_secret" json:"-"`

	// Substring in a mention that triggers a presence check
	TriggerKeyword string `yaml:"trigger_keyword" json:"trigger_keyword"`

	// Default workspace partition for registry lookups
	WorkspaceID string `yaml:"workspace_id" json:"workspace_id"`
}

// WatchConfig holds scheduled-sweep settings
type WatchConfig struct {
	// Enable the background sweep scheduler
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Cron expression for scheduled sweeps
	Schedule string `yaml:"schedule" json:"schedule"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		API: APIConfig{
			ListenAddr:      "127.0.0.1",
			Port:            3000,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type"},
			},
			TemplatesDir: "web/templates",
		},
		Registry: registry.DefaultConfig(),
		Scan: ScanConfig{
			ScannerPath: "arp-scan",
			UseSudo:     true,
			Interface:   "",
			Cooldown:    60 * time.Second,
			ScanTimeout: 2 * time.Minute,
			LogDir:      "logs",
		},
		Slack: SlackConfig{
			TriggerKeyword: "オフィス",
			WorkspaceID:    "default",
		},
		Watch: WatchConfig{
			Enabled:  false,
			Schedule: "0 */30 9-19 * * *",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	// Start with defaults
	config := Default()

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil // Return defaults if no config file
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ext := filepath.Ext(path)
	switch ext {
	case ".yaml", ".yml", ".json":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		// Default to YAML
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config (assumed YAML): %w", err)
		}
	}

	// Environment overrides for secrets
	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides pulls secrets from the environment. These always win
// over file values so tokens never need to live in the config file.
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		c.Slack.BotToken = v
	}
	if v := os.Getenv("SLACK_SIGNING_SECRET"); v != "" {
		c.Slack.SigningSecret = v
	}
	if v := os.Getenv("REGISTRY_PASSWORD"); v != "" {
		c.Registry.Password = v
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate registry configuration
	if c.Registry.Host == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"registry host is required", "registry.host")
	}
	if c.Registry.Database == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"registry database name is required", "registry.database")
	}
	if c.Registry.Username == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"registry username is required", "registry.username")
	}

	// Validate API configuration
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"API port must be between 1 and 65535", "api.port")
	}
	if c.API.ListenAddr == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"API listen address is required", "api.listen_addr")
	}

	// Validate scan configuration
	if c.Scan.ScannerPath == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"scanner path is required", "scan.scanner_path")
	}
	if c.Scan.Cooldown < 0 {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"scan cooldown must not be negative", "scan.cooldown")
	}
	if c.Scan.ScanTimeout <= 0 {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"scan timeout must be positive", "scan.scan_timeout")
	}

	// Validate watch configuration
	if c.Watch.Enabled && c.Watch.Schedule == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"watch schedule is required when watch mode is enabled", "watch.schedule")
	}

	// Validate slack configuration
	if c.Slack.WorkspaceID == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"slack workspace id is required", "slack.workspace_id")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			fmt.Sprintf("invalid log level: %s", c.Logging.Level), "logging.level")
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			fmt.Sprintf("invalid log format: %s", c.Logging.Format), "logging.format")
	}

	return nil
}

// GetAPIAddress returns the full API address
func (c *Config) GetAPIAddress() string {
	return fmt.Sprintf("%s:%d", c.API.ListenAddr, c.API.Port)
}
