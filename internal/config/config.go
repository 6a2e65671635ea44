// Package config holds the persistent pipeline configuration. All state
// the orchestrator needs — source list, retention window, enrichment
// settings — is carried here and passed in explicitly; there are no
// process-wide singletons.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SourceType selects the adapter implementation for a configured source.
const (
	TypeSecurityWeek = "securityweek"
	TypeHackerNews   = "hackernews"
	TypeRSS          = "rss"
)

// Config is the persistent application configuration.
type Config struct {
	DBPath        string         `json:"db_path"`
	LogLevel      string         `json:"log_level"`
	RetentionDays int            `json:"retention_days"`
	Sources       []SourceConfig `json:"sources"`
	Gemini        GeminiConfig   `json:"gemini"`
	Enrichment    EnrichConfig   `json:"enrichment"`
	FetchTimeout  int            `json:"fetch_timeout_seconds"`
}

// SourceConfig describes one configured news source.
type SourceConfig struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url,omitempty"` // required for rss sources

	// ReconcileDates enables the yesterday-to-today correction pass for
	// sources that report relative offsets inconsistently.
	ReconcileDates bool `json:"reconcile_dates,omitempty"`
}

// GeminiConfig holds the enrichment provider settings.
type GeminiConfig struct {
	APIKey string `json:"api_key,omitempty"`
	Model  string `json:"model,omitempty"`
}

// EnrichConfig bounds the enrichment stage.
type EnrichConfig struct {
	Workers   int `json:"workers"` // concurrent enrichment calls
	MaxTokens int `json:"max_tokens"`
}

// Default returns sensible defaults: the two built-in sources, a 90-day
// retention window, and date reconciliation enabled for the
// relative-offset source.
func Default() *Config {
	return &Config{
		DBPath:        "security_news.db",
		LogLevel:      "info",
		RetentionDays: 90,
		Sources: []SourceConfig{
			{Name: "Security Week", Type: TypeSecurityWeek},
			{Name: "The Hacker News", Type: TypeHackerNews, ReconcileDates: true},
		},
		Gemini: GeminiConfig{
			Model: "gemini-3-flash-preview",
		},
		Enrichment: EnrichConfig{
			Workers:   4,
			MaxTokens: 1024,
		},
		FetchTimeout: 30,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".threatfeed", "config.json")
}

// Load reads config from the given path, falling back to defaults when
// the file does not exist. An empty path uses DefaultPath. Environment
// variables are applied on top of the file in either case.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.fillDefaults()
	return cfg, nil
}

// Save writes config to disk, creating the directory if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	// Restrictive permissions: the file may hold an API key.
	return os.WriteFile(path, data, 0600)
}

// applyEnv fills in the API key from environment variables.
func (c *Config) applyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		c.Gemini.APIKey = key
	}
}

// fillDefaults backfills zero values a hand-edited config may omit.
func (c *Config) fillDefaults() {
	d := Default()
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = d.RetentionDays
	}
	if c.Enrichment.Workers <= 0 {
		c.Enrichment.Workers = d.Enrichment.Workers
	}
	if c.Enrichment.MaxTokens <= 0 {
		c.Enrichment.MaxTokens = d.Enrichment.MaxTokens
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = d.Gemini.Model
	}
	if len(c.Sources) == 0 {
		c.Sources = d.Sources
	}
}
