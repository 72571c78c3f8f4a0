// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   defaultConfigPath,
	}
}

// downloadCommand downloads a playlist into a directory of tagged MP3s
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "download",
		Aliases:   []string{"dl"},
		Usage:     "Download a Spotify playlist as tagged MP3 files",
		ArgsUsage: "<playlist URL, URI or ID>",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "playlist",
			},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output directory; files go to <out>/<playlist id>",
				Value:   "downloads",
			},
			&cli.IntFlag{
				Name:    "bitrate",
				Aliases: []string{"b"},
				Usage:   "MP3 bitrate in kbps",
				Value:   192,
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Number of tracks processed concurrently",
				Value:   2,
			},
			&cli.BoolFlag{
				Name:  "skip-existing",
				Usage: "Skip tracks whose file already exists",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
			&cli.StringFlag{
				Name:  "ffmpeg",
				Usage: "Path to the ffmpeg binary or its directory",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also append logs to this file",
			},
			&cli.BoolFlag{
				Name:  "smart-search",
				Usage: "Resolve tracks with scored YouTube search before falling back to plain search",
			},
			&cli.StringFlag{
				Name:  "youtube-api-key",
				Usage: "YouTube Data API key used by --smart-search",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show an interactive progress display",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Do not read or write the resolution cache and run history",
			},
		},
		Action: r.Download,
	}
}

// tracksCommand prints a playlist's normalized track list
func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tracks",
		Usage:     "List the tracks of a Spotify playlist without downloading",
		ArgsUsage: "<playlist URL, URI or ID>",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "playlist",
			},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "Output CSV",
			},
		},
		Action: r.Tracks,
	}
}

// historyCommand lists recorded download runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List previous download runs",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Only show runs for this playlist",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.History,
	}
}

// cacheCommand manages the resolution cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the track resolution cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cached resolutions by source",
				Flags:  []cli.Flag{configFlag()},
				Action: r.CacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached resolution",
				Flags:  []cli.Flag{configFlag()},
				Action: r.CacheClear,
			},
		},
	}
}

// setupCommand creates the config file and database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml from the template and initialize the database",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "install-ytdlp",
				Usage: "Download a managed yt-dlp binary",
			},
		},
		Action: r.Setup,
	}
}
