package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tapedeck/internal/formatter"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// Tracks prints the normalized track list of a playlist as text, JSON or CSV.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	playlistID := shared.ParsePlaylistID(cmd.StringArg("playlist"))
	if playlistID == "" {
		return fmt.Errorf("%w: playlist URL or ID is required", shared.ErrMissingArgument)
	}

	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	provider, err := r.playlistProvider(ctx, config, r.logger)
	if err != nil {
		return err
	}

	r.logger.Debug("fetching tracks", "playlist", playlistID, "provider", provider.Name())
	tracks, err := provider.FetchTracks(ctx, playlistID)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return fmt.Errorf("%w: %s", shared.ErrEmptyPlaylist, playlistID)
	}

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	case cmd.Bool("csv"):
		data, err := formatter.ExportToCSV(tracks)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	}

	r.writePlainHeader(fmt.Sprintf("Playlist %s (%d tracks)", playlistID, len(tracks)))
	return r.writeBytes(formatter.ExportToText(tracks))
}
