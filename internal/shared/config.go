package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Conversion  ConversionConfig  `toml:"conversion"`
	Logging     LoggingConfig     `toml:"logging"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// YouTubeConfig contains Google OAuth client settings and the read-only Data API key.
type YouTubeConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	APIKey       string `toml:"api_key"`
}

// DatabaseConfig contains database connection settings for the token store.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ConversionConfig tunes track matching and request pacing.
type ConversionConfig struct {
	Strategy        string   `toml:"strategy"`
	MinScore        int      `toml:"min_score"`
	SearchLimit     int      `toml:"search_limit"`
	RequestInterval Duration `toml:"request_interval"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Duration is a [time.Duration] that decodes from TOML strings such as "150ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvFiles loads .env style files into the process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadEnvFiles(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// ApplyEnv overrides configuration values with environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&c.Credentials.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	set(&c.Credentials.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	set(&c.Credentials.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI")
	set(&c.Credentials.YouTube.ClientID, "YOUTUBE_CLIENT_ID")
	set(&c.Credentials.YouTube.ClientSecret, "YOUTUBE_CLIENT_SECRET")
	set(&c.Credentials.YouTube.RedirectURI, "YOUTUBE_REDIRECT_URI")
	set(&c.Credentials.YouTube.APIKey, "YOUTUBE_API_KEY")
	set(&c.Database.Path, "PLX_DATABASE_PATH")
	set(&c.Logging.Level, "PLX_LOG_LEVEL")
}

// Validate checks the conversion settings.
func (c *Config) Validate() error {
	switch c.Conversion.Strategy {
	case "", "first", "score":
	default:
		return fmt.Errorf("%w: conversion.strategy must be \"first\" or \"score\", got %q", ErrInvalidConfig, c.Conversion.Strategy)
	}
	if c.Conversion.MinScore < 0 || c.Conversion.MinScore > 100 {
		return fmt.Errorf("%w: conversion.min_score must be between 0 and 100", ErrInvalidConfig)
	}
	if c.Conversion.SearchLimit < 1 || c.Conversion.SearchLimit > 50 {
		return fmt.Errorf("%w: conversion.search_limit must be between 1 and 50", ErrInvalidConfig)
	}
	if c.Conversion.RequestInterval.Duration < 0 {
		return fmt.Errorf("%w: conversion.request_interval must not be negative", ErrInvalidConfig)
	}
	return nil
}
