// Package config loads the papersync configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pevans/papersync/fetch"
	"github.com/pevans/papersync/journals"
	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadConfigFile.
const (
	EnvConfigPath = "PAPERSYNC_CONFIG"
	EnvDatabase   = "PAPERSYNC_DB"
	EnvLogLevel   = "PAPERSYNC_LOG_LEVEL"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// HTTPConfig configures static page fetches.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// BrowserConfig configures the headless browser session.
type BrowserConfig struct {
	Headless   bool          `yaml:"headless"`
	CookieWait time.Duration `yaml:"cookie_wait"`
}

// AbstractsConfig paces per-article page requests.
type AbstractsConfig struct {
	Rate float64 `yaml:"rate"` // requests per second
}

// LogConfig configures diagnostics on stderr.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SourceConfig is one journal listing to sync.
type SourceConfig struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	URL     string `yaml:"url"`
	Mode    string `yaml:"mode"`
	Enabled *bool  `yaml:"enabled"` // nil means enabled
}

// IsEnabled reports whether the source takes part in a sync.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// FileConfig represents the structure of ~/.papersync/config.yaml.
type FileConfig struct {
	Database  string          `yaml:"database"`
	HTTP      HTTPConfig      `yaml:"http"`
	Browser   BrowserConfig   `yaml:"browser"`
	Abstracts AbstractsConfig `yaml:"abstracts"`
	Log       LogConfig       `yaml:"log"`
	Sources   []SourceConfig  `yaml:"sources"`
}

// DefaultSources are the journals synced when the file lists none.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name: "Journal of Portfolio Management",
			Kind: string(journals.KindJPM),
			URL:  "https://www.pm-research.com/content/iijpormgmt?implicit-login=true",
			Mode: string(fetch.ModeBrowser),
		},
		{
			Name: "Journal of Finance",
			Kind: string(journals.KindJOF),
			URL:  "https://link.springer.com/journal/10203/articles",
			Mode: string(fetch.ModeBrowser),
		},
		{
			Name: "Journal of Data Science",
			Kind: string(journals.KindJDS),
			URL:  "https://jds-online.org/journal/JDS/to-appear",
			Mode: string(fetch.ModeStatic),
		},
	}
}

// Default returns the configuration used when no file exists.
func Default() *FileConfig {
	opts := fetch.DefaultOptions()
	return &FileConfig{
		Database: "articles.db",
		HTTP: HTTPConfig{
			Timeout:   opts.Timeout,
			UserAgent: opts.UserAgent,
		},
		Browser: BrowserConfig{
			Headless:   opts.Headless,
			CookieWait: opts.CookieWait,
		},
		Abstracts: AbstractsConfig{Rate: journals.DefaultAbstractRate},
		Log:       LogConfig{Level: "info"},
		Sources:   DefaultSources(),
	}
}

// ConfigPath returns $PAPERSYNC_CONFIG, or ~/.papersync/config.yaml.
func ConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".papersync", "config.yaml"), nil
}

// LoadConfigFile loads the configuration from ConfigPath and applies the
// environment overrides. A missing file is not an error: the defaults are
// used. A file that exists but cannot be parsed or fails Validate is.
func LoadConfigFile() (*FileConfig, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads one YAML file over the defaults. Keys absent from the file keep
// their default; a sources list in the file replaces the default list.
func Load(configPath string) (*FileConfig, error) {
	cfg := Default()

	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

func (c *FileConfig) applyEnv() {
	if db := os.Getenv(EnvDatabase); db != "" {
		c.Database = db
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
}

// Validate checks that every source can be built and that names are unique,
// since the name is both the journal stored on records and the status key.
func (c *FileConfig) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("%w: database path is empty", ErrInvalidConfig)
	}
	if c.Abstracts.Rate < 0 {
		return fmt.Errorf("%w: abstracts.rate must not be negative", ErrInvalidConfig)
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	seen := make(map[string]bool)
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("%w: source %d has no name", ErrInvalidConfig, i)
		}
		if seen[src.Name] {
			return fmt.Errorf("%w: duplicate source %q", ErrInvalidConfig, src.Name)
		}
		seen[src.Name] = true

		if src.URL == "" {
			return fmt.Errorf("%w: source %q has no url", ErrInvalidConfig, src.Name)
		}
		if _, err := journals.ParseKind(src.Kind); err != nil {
			return fmt.Errorf("%w: source %q: %v", ErrInvalidConfig, src.Name, err)
		}
		if _, err := fetch.ParseMode(src.Mode); err != nil {
			return fmt.Errorf("%w: source %q: %v", ErrInvalidConfig, src.Name, err)
		}
	}

	return nil
}

// LogLevel parses log.level ("debug", "info", "warn", "error").
func (c *FileConfig) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("failed to parse log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// FetchOptions converts the http and browser sections for fetch.NewPool.
func (c *FileConfig) FetchOptions(logger *slog.Logger) fetch.Options {
	return fetch.Options{
		Timeout:    c.HTTP.Timeout,
		UserAgent:  c.HTTP.UserAgent,
		Headless:   c.Browser.Headless,
		CookieWait: c.Browser.CookieWait,
		Logger:     logger,
	}
}
