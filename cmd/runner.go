package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/services"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/desertthunder/tapedeck/internal/tagger"
	"github.com/urfave/cli/v3"
)

const (
	defaultConfigPath      = "config.toml"
	defaultCredentialsPath = "credentials.json"
	coverCacheSize         = 64
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services left nil in [RunnerOpts] are built from the loaded configuration when a command needs them.
type Runner struct {
	config          *shared.Config
	credentialsPath string
	getenv          func(string) string
	lookPath        func(string) (string, error)
	httpClient      *http.Client
	logger          *log.Logger
	output          io.Writer
	provider        services.PlaylistProvider
	primary         services.Searcher
	index           services.Searcher
	downloader      services.Downloader
	tagger          tagger.Tagger
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config          *shared.Config
	CredentialsPath string
	Getenv          func(string) string
	LookPath        func(string) (string, error)
	HTTPClient      *http.Client
	Logger          *log.Logger
	Output          io.Writer
	Provider        services.PlaylistProvider
	Primary         services.Searcher
	Index           services.Searcher
	Downloader      services.Downloader
	Tagger          tagger.Tagger
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	if opts.CredentialsPath == "" {
		opts.CredentialsPath = defaultCredentialsPath
	}

	return &Runner{
		config:          opts.Config,
		credentialsPath: opts.CredentialsPath,
		getenv:          opts.Getenv,
		lookPath:        opts.LookPath,
		httpClient:      opts.HTTPClient,
		logger:          opts.Logger,
		output:          opts.Output,
		provider:        opts.Provider,
		primary:         opts.Primary,
		index:           opts.Index,
		downloader:      opts.Downloader,
		tagger:          opts.Tagger,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		downloadCommand, tracksCommand, historyCommand, cacheCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig returns the effective configuration: file values (or defaults when the file is missing),
// then environment overrides, then credentials.json for whatever Spotify credentials are still missing.
func (r *Runner) loadConfig(path string) (*shared.Config, error) {
	config := r.config
	if config == nil {
		config = shared.DefaultConfig()
		if _, err := os.Stat(path); err == nil {
			loaded, err := shared.LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		} else {
			r.logger.Debug("config file not found, using defaults", "path", path)
		}
	}

	config.ApplyEnv(r.getenv)
	if !config.HasSpotifyCredentials() {
		if err := config.ApplyCredentialsFile(r.credentialsPath); err != nil {
			return nil, err
		}
	}
	return config, nil
}

// playlistProvider returns the injected provider or a Spotify client built from config.
func (r *Runner) playlistProvider(ctx context.Context, config *shared.Config, logger *log.Logger) (services.PlaylistProvider, error) {
	if r.provider != nil {
		return r.provider, nil
	}
	if !config.HasSpotifyCredentials() {
		return nil, fmt.Errorf("%w: set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET or [credentials.spotify] in config.toml", shared.ErrMissingCredentials)
	}

	creds := map[string]string{
		"client_id":     config.Credentials.Spotify.ClientID,
		"client_secret": config.Credentials.Spotify.ClientSecret,
	}
	return services.NewSpotifyService(ctx, creds, config.Defaults.RateLimit, logger)
}

// openDatabase opens the configured database and applies pending migrations.
func (r *Runner) openDatabase(config *shared.Config) (*sql.DB, error) {
	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", config.Database.Path, err)
	}
	return db, nil
}

// ffmpegLocation prefers an explicit path, then ffmpeg on PATH; empty lets yt-dlp search itself.
func (r *Runner) ffmpegLocation(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if path, err := r.lookPath("ffmpeg"); err == nil {
		return path
	}
	return ""
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
