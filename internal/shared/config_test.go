package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./tapedeck.db" {
			t.Errorf("expected database path ./tapedeck.db, got %s", config.Database.Path)
		}
		if config.Defaults.Out != "downloads" {
			t.Errorf("expected out downloads, got %s", config.Defaults.Out)
		}
		if config.Defaults.Bitrate != 192 {
			t.Errorf("expected bitrate 192, got %d", config.Defaults.Bitrate)
		}
		if config.Defaults.Workers != 2 {
			t.Errorf("expected 2 workers, got %d", config.Defaults.Workers)
		}
		if config.Defaults.RateLimit != 10 {
			t.Errorf("expected rate limit 10, got %v", config.Defaults.RateLimit)
		}
		if config.HasSpotifyCredentials() {
			t.Error("placeholder credentials should not count as configured")
		}
		if config.YouTubeAPIKey() != "" {
			t.Errorf("expected placeholder api key to be ignored, got %q", config.YouTubeAPIKey())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Run("partial file keeps defaults", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			content := "[defaults]\nworkers = 6\n\n[credentials.spotify]\nclient_id = \"abc\"\nclient_secret = \"def\"\n"
			if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}

			config, err := LoadConfig(configPath)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.Defaults.Workers != 6 {
				t.Errorf("expected 6 workers, got %d", config.Defaults.Workers)
			}
			if config.Defaults.Bitrate != 192 {
				t.Errorf("expected default bitrate to survive, got %d", config.Defaults.Bitrate)
			}
			if !config.HasSpotifyCredentials() {
				t.Error("expected spotify credentials to be set")
			}
		})

		t.Run("missing file", func(t *testing.T) {
			if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
				t.Error("expected error for missing file")
			}
		})

		t.Run("invalid toml", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(configPath, []byte("[defaults\nworkers = "), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := LoadConfig(configPath)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		env := map[string]string{
			"SPOTIFY_CLIENT_ID":     "env-id",
			"SPOTIFY_CLIENT_SECRET": "env-secret",
			"YOUTUBE_API_KEY":       "env-key",
		}
		getenv := func(k string) string { return env[k] }

		config := DefaultConfig()
		config.ApplyEnv(getenv)

		if config.Credentials.Spotify.ClientID != "env-id" {
			t.Errorf("expected env client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.RedirectURI != "http://localhost:8080/callback" {
			t.Errorf("expected redirect uri from file, got %s", config.Credentials.Spotify.RedirectURI)
		}
		if config.YouTubeAPIKey() != "env-key" {
			t.Errorf("expected env api key, got %s", config.YouTubeAPIKey())
		}

		t.Run("half a spotify pair is ignored", func(t *testing.T) {
			config := DefaultConfig()
			config.ApplyEnv(func(k string) string {
				if k == "SPOTIFY_CLIENT_ID" {
					return "only-id"
				}
				return ""
			})
			if config.Credentials.Spotify.ClientID == "only-id" {
				t.Error("expected client id to require a secret")
			}
		})
	})

	t.Run("ApplyCredentialsFile", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "credentials.json")
		content := `{"client_id":"json-id","client_secret":"json-secret","youtube_api_key":"json-key"}`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		config := DefaultConfig()
		if err := config.ApplyCredentialsFile(path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if config.Credentials.Spotify.ClientID != "json-id" {
			t.Errorf("expected json client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.YouTubeAPIKey() != "json-key" {
			t.Errorf("expected json api key, got %s", config.YouTubeAPIKey())
		}

		t.Run("does not override existing credentials", func(t *testing.T) {
			config := DefaultConfig()
			config.Credentials.Spotify.ClientID = "file-id"
			config.Credentials.Spotify.ClientSecret = "file-secret"
			if err := config.ApplyCredentialsFile(path); err != nil {
				t.Fatal(err)
			}
			if config.Credentials.Spotify.ClientID != "file-id" {
				t.Errorf("expected file id to win, got %s", config.Credentials.Spotify.ClientID)
			}
		})

		t.Run("missing file is ignored", func(t *testing.T) {
			config := DefaultConfig()
			if err := config.ApplyCredentialsFile(filepath.Join(dir, "missing.json")); err != nil {
				t.Errorf("expected nil, got %v", err)
			}
		})

		t.Run("malformed file", func(t *testing.T) {
			bad := filepath.Join(dir, "bad.json")
			if err := os.WriteFile(bad, []byte("{"), 0644); err != nil {
				t.Fatal(err)
			}
			config := DefaultConfig()
			if err := config.ApplyCredentialsFile(bad); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	})
}
