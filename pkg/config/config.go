package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pario-ai/tokmon/pkg/models"
)

// Config holds all tokmon configuration.
type Config struct {
	DBPath   string              `yaml:"db_path"`
	Timezone string              `yaml:"timezone"`
	Sources  SourcesConfig       `yaml:"sources"`
	Pricing  PricingConfig       `yaml:"pricing"`
	Snapshot SnapshotConfig      `yaml:"snapshot"`
	Notify   NotifyConfig        `yaml:"notify"`
	Budget   BudgetConfig        `yaml:"budget"`
	RunLog   models.RunLogConfig `yaml:"runlog"`
	Metrics  MetricsConfig       `yaml:"metrics"`
	Log      LogConfig           `yaml:"log"`
	Daemon   DaemonConfig        `yaml:"daemon"`
}

// SourcesConfig configures the source adapters.
type SourcesConfig struct {
	// Timeout bounds each adapter call.
	Timeout    time.Duration    `yaml:"timeout"`
	ClaudeCode FileSourceConfig `yaml:"claude_code"`
	Moltbot    FileSourceConfig `yaml:"moltbot"`
	Billing    BillingConfig    `yaml:"billing"`
}

// FileSourceConfig configures an adapter that reads a local file.
type FileSourceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// BillingConfig configures the billing API adapter.
type BillingConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// PricingConfig selects the pricing table.
type PricingConfig struct {
	// File overrides the embedded table. Supports .yaml, .yml, .toml and .json.
	File string `yaml:"file"`
}

// SnapshotConfig controls daily snapshot capture.
type SnapshotConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NotifyConfig controls the scheduled report notification job.
type NotifyConfig struct {
	Enabled       bool           `yaml:"enabled"`
	MaxMakeupDays int            `yaml:"max_makeup_days"`
	MinInterval   time.Duration  `yaml:"min_interval"`
	Command       CommandChannel `yaml:"command"`
	Webhook       WebhookChannel `yaml:"webhook"`
	Log           bool           `yaml:"log"`
}

// CommandChannel sends notifications by running an external program.
type CommandChannel struct {
	Enabled bool          `yaml:"enabled"`
	Program string        `yaml:"program"`
	Args    []string      `yaml:"args"`
	Target  string        `yaml:"target"`
	Timeout time.Duration `yaml:"timeout"`
}

// WebhookChannel posts notifications to an HTTP endpoint.
type WebhookChannel struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Secret  string            `yaml:"secret"`
	Headers map[string]string `yaml:"headers"`
	Timeout time.Duration     `yaml:"timeout"`
}

// BudgetConfig holds cost thresholds.
type BudgetConfig struct {
	Thresholds []models.BudgetThreshold `yaml:"thresholds"`
}

// MetricsConfig controls Prometheus metrics export.
type MetricsConfig struct {
	// Textfile is written in the node_exporter textfile format after each run.
	Textfile string `yaml:"textfile"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DaemonConfig controls the background service.
type DaemonConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DBPath: filepath.Join(home, ".tokmon", "history.db"),
		Sources: SourcesConfig{
			Timeout: 15 * time.Second,
			ClaudeCode: FileSourceConfig{
				Enabled: true,
				Path:    filepath.Join(home, ".claude", "stats-cache.json"),
			},
			Moltbot: FileSourceConfig{
				Enabled: true,
				Path:    filepath.Join(home, ".clawdbot", "agents", "main", "sessions", "sessions.json"),
			},
			Billing: BillingConfig{
				URL:     "https://www.dmxapi.cn",
				APIKey:  os.Getenv("DMXAPI_KEY"),
				Timeout: 10 * time.Second,
			},
		},
		Snapshot: SnapshotConfig{Enabled: true},
		Notify: NotifyConfig{
			Enabled:       true,
			MaxMakeupDays: 3,
			MinInterval:   2 * time.Second,
			Command: CommandChannel{
				Program: "moltbot",
				Args:    []string{"message", "send", "--channel", "imessage"},
				Target:  os.Getenv("NOTIFY_PHONE"),
				Timeout: 30 * time.Second,
			},
			Webhook: WebhookChannel{Timeout: 30 * time.Second},
			Log:     true,
		},
		RunLog: models.RunLogConfig{
			Enabled:       true,
			RetentionDays: 90,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Daemon: DaemonConfig{Interval: time.Hour},
	}
}

// Load reads a YAML config file and expands environment variables.
// A .env file next to the config, or in the working directory, is loaded first.
func Load(path string) (*Config, error) {
	loadDotEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it is set, and falls back to defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		loadDotEnv("")
		return Default(), nil
	}
	return Load(path)
}

// loadDotEnv never overrides variables that are already set.
func loadDotEnv(configPath string) {
	if configPath != "" {
		_ = godotenv.Load(filepath.Join(filepath.Dir(configPath), ".env"))
	}
	_ = godotenv.Load()
}

// Validate checks the config for values that would break a run.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("config: db_path is required")
	}
	if c.Notify.MaxMakeupDays < 0 {
		return fmt.Errorf("config: notify.max_makeup_days must be >= 0, got %d", c.Notify.MaxMakeupDays)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
		}
	}
	for _, t := range c.Budget.Thresholds {
		if t.MaxCost < 0 {
			return fmt.Errorf("config: budget threshold %q has negative max_cost", t.Name)
		}
	}
	return nil
}

// Location returns the configured time zone, or time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
