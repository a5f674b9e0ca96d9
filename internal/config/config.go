// Package config loads and validates the pageforge.yaml site configuration.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/pageforge/internal/pferrors"
)

// DefaultFile is the configuration file name looked up in the project root.
const DefaultFile = "pageforge.yaml"

// Config represents the site configuration.
type Config struct {
	Title     string     `yaml:"title"`
	Author    string     `yaml:"author,omitempty"`
	BaseURL   string     `yaml:"base_url,omitempty"`
	Output    string     `yaml:"output,omitempty"`
	Posts     string     `yaml:"posts_dir,omitempty"`
	Pages     string     `yaml:"pages_dir,omitempty"`
	Templates string     `yaml:"templates_dir,omitempty"`
	Assets    string     `yaml:"assets_dir,omitempty"`
	Port      int        `yaml:"port,omitempty"`
	Feed      FeedConfig `yaml:"feed,omitempty"`
}

// FeedConfig controls RSS generation.
type FeedConfig struct {
	Enabled  *bool `yaml:"enabled,omitempty"`
	Truncate int   `yaml:"truncate,omitempty"` // max bytes of entry HTML; 0 = full content
}

// FeedEnabled reports whether the RSS feed should be generated (default true).
func (c *Config) FeedEnabled() bool {
	return c.Feed.Enabled == nil || *c.Feed.Enabled
}

// Load loads configuration from the specified file.
//
// Environment variables from .env / .env.local are loaded first (without
// overriding the process environment); PAGEFORGE_* variables override
// individual config values after parsing.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, pferrors.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, pferrors.Wrap(err, pferrors.CategoryConfig, pferrors.SeverityFatal, "failed to read config file").
			WithContext("path", configPath)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, pferrors.Wrap(err, pferrors.CategoryConfig, pferrors.SeverityFatal, "failed to parse config file").
			WithContext("path", configPath)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Title == "" {
		cfg.Title = "PageForge Site"
	}
	if cfg.Output == "" {
		cfg.Output = "dist"
	}
	if cfg.Posts == "" {
		cfg.Posts = "posts"
	}
	if cfg.Pages == "" {
		cfg.Pages = "pages"
	}
	if cfg.Templates == "" {
		cfg.Templates = "templates"
	}
	if cfg.Assets == "" {
		cfg.Assets = "assets"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PAGEFORGE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("PAGEFORGE_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("PAGEFORGE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return pferrors.ConfigInvalid("port", "must be between 1 and 65535")
	}
	if cfg.Feed.Truncate < 0 {
		return pferrors.ConfigInvalid("feed.truncate", "must not be negative")
	}
	return nil
}

// loadEnvFile loads environment variables from .env files when present.
// Existing process environment always wins.
func loadEnvFile() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
		}
	}
}
