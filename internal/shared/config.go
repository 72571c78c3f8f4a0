package shared

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Defaults    DefaultsConfig    `toml:"defaults"`
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

// YouTubeConfig contains the YouTube Data API key used by smart search.
type YouTubeConfig struct {
	APIKey string `toml:"api_key"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// DefaultsConfig holds values used when the matching download flag is not set.
type DefaultsConfig struct {
	Out          string  `toml:"out"`
	Bitrate      int     `toml:"bitrate"`
	Workers      int     `toml:"workers"`
	SkipExisting bool    `toml:"skip_existing"`
	FFmpegPath   string  `toml:"ffmpeg_path"`
	Verbose      bool    `toml:"verbose"`
	LogFile      string  `toml:"log_file"`
	SmartSearch  bool    `toml:"smart_search"`
	RateLimit    float64 `toml:"rate_limit"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
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

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides credentials with SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET, SPOTIFY_REDIRECT_URI and YOUTUBE_API_KEY when set.
//
// The Spotify pair is only taken from the environment when both halves are present.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}

	id, secret := getenv("SPOTIFY_CLIENT_ID"), getenv("SPOTIFY_CLIENT_SECRET")
	if id != "" && secret != "" {
		c.Credentials.Spotify.ClientID = id
		c.Credentials.Spotify.ClientSecret = secret
		if redirect := getenv("SPOTIFY_REDIRECT_URI"); redirect != "" {
			c.Credentials.Spotify.RedirectURI = redirect
		}
	}

	if key := getenv("YOUTUBE_API_KEY"); key != "" {
		c.Credentials.YouTube.APIKey = key
	}
}

// legacyCredentials mirrors the credentials.json layout.
type legacyCredentials struct {
	ClientID      string `json:"client_id"`
	ClientSecret  string `json:"client_secret"`
	RedirectURI   string `json:"redirect_uri"`
	YouTubeAPIKey string `json:"youtube_api_key"`
}

// ApplyCredentialsFile fills missing credentials from a credentials.json file.
//
// A missing file is not an error.
func (c *Config) ApplyCredentialsFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds legacyCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidCredentials, path, err)
	}

	if !c.HasSpotifyCredentials() && creds.ClientID != "" && creds.ClientSecret != "" {
		c.Credentials.Spotify.ClientID = creds.ClientID
		c.Credentials.Spotify.ClientSecret = creds.ClientSecret
		if creds.RedirectURI != "" {
			c.Credentials.Spotify.RedirectURI = creds.RedirectURI
		}
	}
	if c.YouTubeAPIKey() == "" && creds.YouTubeAPIKey != "" {
		c.Credentials.YouTube.APIKey = creds.YouTubeAPIKey
	}
	return nil
}

// HasSpotifyCredentials reports whether both the client id and secret are usable.
//
// The placeholder values shipped in the example config do not count.
func (c *Config) HasSpotifyCredentials() bool {
	s := c.Credentials.Spotify
	if s.ClientID == "" || s.ClientSecret == "" {
		return false
	}
	return s.ClientID != placeholderClientID && s.ClientSecret != placeholderClientSecret
}

// YouTubeAPIKey returns the configured Data API key, ignoring the template placeholder.
func (c *Config) YouTubeAPIKey() string {
	if c.Credentials.YouTube.APIKey == placeholderAPIKey {
		return ""
	}
	return c.Credentials.YouTube.APIKey
}

const (
	placeholderClientID     = "your_spotify_client_id"
	placeholderClientSecret = "your_spotify_client_secret"
	placeholderAPIKey       = "your_youtube_api_key"
)
