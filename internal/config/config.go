// Package config handles configuration file parsing, environment overrides
// and hot-reloading.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/johan-st/simplequery/internal/database"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SIMPLEQUERY_"

// Config represents the application configuration.
type Config struct {
	// Default connection parameters. The password is never read from the
	// file; use SIMPLEQUERY_PASSWORD or the prompt.
	Connection database.ConnectionParameters `yaml:"connection"`

	UI        UIConfig        `yaml:"ui"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Log       LogConfig       `yaml:"log"`

	// Per-statement timeout, e.g. "30s". Empty or "0" disables it.
	StatementTimeout string `yaml:"statement_timeout"`

	// Internal: path to the config file
	path string

	mu sync.RWMutex
}

// UIConfig contains presentation settings.
type UIConfig struct {
	ColumnWidth int   `yaml:"column_width"`
	Theme       Theme `yaml:"theme"`
}

// Theme holds the colors of the terminal UI as hex strings.
type Theme struct {
	Primary    string `yaml:"primary"`
	Success    string `yaml:"success"`
	Accent     string `yaml:"accent"`
	Error      string `yaml:"error"`
	Muted      string `yaml:"muted"`
	Text       string `yaml:"text"`
	Background string `yaml:"background"`
}

// ReconnectConfig configures reopening a session after its connection
// breaks.
type ReconnectConfig struct {
	Enabled         bool   `yaml:"enabled"`
	MaxTries        uint   `yaml:"max_tries"`
	InitialInterval string `yaml:"initial_interval"`
	MaxInterval     string `yaml:"max_interval"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultTheme returns the built-in dark theme.
func DefaultTheme() Theme {
	return Theme{
		Primary:    "#7C3AED",
		Success:    "#10B981",
		Accent:     "#F59E0B",
		Error:      "#EF4444",
		Muted:      "#6B7280",
		Text:       "#F3F4F6",
		Background: "#1F2937",
	}
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Connection: database.ConnectionParameters{
			Driver: database.DefaultDriver,
			Host:   "localhost",
			Port:   "5432",
		},
		UI: UIConfig{
			ColumnWidth: 20,
			Theme:       DefaultTheme(),
		},
		Reconnect: ReconnectConfig{
			Enabled:         true,
			MaxTries:        3,
			InitialInterval: "200ms",
			MaxInterval:     "2s",
		},
		Log: LogConfig{
			Level: "info",
		},
		StatementTimeout: "0",
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "simplequery", "config.yaml")
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.path = absPath
	return cfg, nil
}

// LoadOrDefault loads path when given. Without a path it loads the default
// location if a file exists there, and falls back to DefaultConfig.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	def := DefaultPath()
	if def == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(def); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return Load(def)
}

// Path returns the path to the config file.
func (c *Config) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// Reload reloads the configuration from disk. Connection parameters given
// on the command line or in the environment are kept; only the settings
// that can change while running are replaced.
func (c *Config) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	newCfg := DefaultConfig()
	if err := yaml.Unmarshal(data, newCfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// Update fields
	c.UI = newCfg.UI
	c.Reconnect = newCfg.Reconnect
	c.StatementTimeout = newCfg.StatementTimeout
	return nil
}

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides connection parameters from SIMPLEQUERY_* variables
// looked up with lookup (os.LookupEnv in production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fields := map[string]*string{
		"DRIVER":   &c.Connection.Driver,
		"DBNAME":   &c.Connection.DBName,
		"HOST":     &c.Connection.Host,
		"USER":     &c.Connection.User,
		"PORT":     &c.Connection.Port,
		"PASSWORD": &c.Connection.Password,
		"SSLMODE":  &c.Connection.SSLMode,
	}
	for name, dst := range fields {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
}

// ConnectionParams returns the configured connection parameters.
func (c *Config) ConnectionParams() database.ConnectionParameters {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Connection
}

// GetUI returns the presentation settings.
func (c *Config) GetUI() UIConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.UI
}

// ReconnectPolicy builds the session reconnect policy.
func (c *Config) ReconnectPolicy() database.ReconnectPolicy {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.Reconnect.Enabled {
		return database.NoReconnect()
	}
	def := database.DefaultReconnectPolicy()
	policy := database.ReconnectPolicy{
		Enabled:         true,
		MaxTries:        c.Reconnect.MaxTries,
		InitialInterval: parseDuration(c.Reconnect.InitialInterval, def.InitialInterval),
		MaxInterval:     parseDuration(c.Reconnect.MaxInterval, def.MaxInterval),
	}
	if policy.MaxTries == 0 {
		policy.MaxTries = def.MaxTries
	}
	return policy
}

// GetStatementTimeout parses and returns the per-statement timeout.
func (c *Config) GetStatementTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.StatementTimeout, 0)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
