// Package config loads ds160fill configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/ds160fill/fill"
)

// Config is the top-level configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Delays  DelayConfig   `yaml:"delays"`
	Fill    FillConfig    `yaml:"fill"`
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
}

// BrowserConfig controls Chrome and the application tab.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Stealth          string        `yaml:"stealth"` // headless | headful
	XvfbDisplay      string        `yaml:"xvfb_display"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	StartURL         string        `yaml:"start_url"`
	PageMatch        string        `yaml:"page_match"`
	NavTimeout       time.Duration `yaml:"nav_timeout"`
}

// DelayConfig sets the pause per operation kind.
type DelayConfig struct {
	BeforeFill     time.Duration `yaml:"before_fill"`
	FieldRetry     time.Duration `yaml:"field_retry"`
	DependentField time.Duration `yaml:"dependent_field"`
	RowExpand      time.Duration `yaml:"row_expand"`
	CheckboxRetry  time.Duration `yaml:"checkbox_retry"`
	ArraySettle    time.Duration `yaml:"array_settle"`
}

// FillConfig tunes the filler.
type FillConfig struct {
	CheckboxAttempts int `yaml:"checkbox_attempts"`
}

// ServerConfig controls the HTTP trigger.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// TokenHash is a bcrypt hash of the bearer token. Empty disables auth.
	TokenHash string `yaml:"token_hash"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level      string `yaml:"level"` // debug | info | warn | error
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Load reads a YAML configuration file. An empty path or a missing file
// yields the defaults. Environment overrides apply last.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headful"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.StartURL == "" {
		c.Browser.StartURL = "https://ceac.state.gov/GenNIV/Default.aspx"
	}
	if c.Browser.PageMatch == "" {
		c.Browser.PageMatch = "ceac.state.gov"
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 30 * time.Second
	}

	d := fill.DefaultDelays()
	setDefault(&c.Delays.BeforeFill, d[fill.OpBeforeFill])
	setDefault(&c.Delays.FieldRetry, d[fill.OpFieldRetry])
	setDefault(&c.Delays.DependentField, d[fill.OpDependentField])
	setDefault(&c.Delays.RowExpand, d[fill.OpRowExpand])
	setDefault(&c.Delays.CheckboxRetry, d[fill.OpCheckboxRetry])
	setDefault(&c.Delays.ArraySettle, d[fill.OpArraySettle])

	if c.Fill.CheckboxAttempts <= 0 {
		c.Fill.CheckboxAttempts = 3
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8765"
	}
	if c.Store.Path == "" {
		c.Store.Path = "data/ds160fill.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 28
	}
}

func setDefault(d *time.Duration, v time.Duration) {
	if *d <= 0 {
		*d = v
	}
}

func (c *Config) applyEnv() {
	c.Server.Addr = env("DS160_ADDR", c.Server.Addr)
	c.Store.Path = env("DS160_DB", c.Store.Path)
	c.Log.Level = env("LOG_LEVEL", c.Log.Level)
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// DelayPolicy converts the delay section for the fill engine.
func (c *Config) DelayPolicy() fill.DelayPolicy {
	return fill.DelayPolicy{
		fill.OpBeforeFill:     c.Delays.BeforeFill,
		fill.OpFieldRetry:     c.Delays.FieldRetry,
		fill.OpDependentField: c.Delays.DependentField,
		fill.OpRowExpand:      c.Delays.RowExpand,
		fill.OpCheckboxRetry:  c.Delays.CheckboxRetry,
		fill.OpArraySettle:    c.Delays.ArraySettle,
	}
}
