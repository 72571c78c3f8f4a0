package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/tapedeck/internal/services"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// installYtdlp is swapped in tests to avoid downloading binaries.
var installYtdlp = services.InstallYtdlp

// Setup creates the config file when missing, initializes the database and optionally installs yt-dlp.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePlain("✓ Created %s\n", configPath)
	}

	config, err := r.loadConfig(configPath)
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)
	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()
	r.writePlain("✓ Database ready at %s\n", config.Database.Path)

	if cmd.Bool("install-ytdlp") {
		r.logger.Info("installing yt-dlp")
		path, err := installYtdlp(ctx)
		if err != nil {
			return fmt.Errorf("failed to install yt-dlp: %w", err)
		}
		r.writePlain("✓ yt-dlp installed at %s\n", path)
	}

	if path := r.ffmpegLocation(config.Defaults.FFmpegPath); path != "" {
		r.writePlain("✓ ffmpeg found at %s\n", path)
	} else {
		r.writePlain("! ffmpeg not found; install it or set defaults.ffmpeg_path\n")
	}

	if !config.HasSpotifyCredentials() {
		r.writePlainln("Next steps:")
		r.writePlain("1. Set [credentials.spotify] client_id and client_secret in %s\n", configPath)
		r.writePlain("2. Run 'tapedeck download <playlist URL>'\n")
	}
	return nil
}
