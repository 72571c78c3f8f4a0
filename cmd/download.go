package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/repositories"
	"github.com/desertthunder/tapedeck/internal/services"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/desertthunder/tapedeck/internal/tagger"
	"github.com/desertthunder/tapedeck/internal/tasks"
	"github.com/desertthunder/tapedeck/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// downloadSettings is the effective download configuration after merging flags over config defaults.
type downloadSettings struct {
	playlistID   string
	out          string
	bitrate      int
	workers      int
	skipExisting bool
	verbose      bool
	ffmpeg       string
	logFile      string
	smartSearch  bool
	apiKey       string
	tui          bool
	noCache      bool
}

// resolveSettings takes each value from its flag when set, else from the config defaults, else from
// the flag default.
func resolveSettings(cmd *cli.Command, config *shared.Config) downloadSettings {
	d := config.Defaults
	s := downloadSettings{
		playlistID:   shared.ParsePlaylistID(cmd.StringArg("playlist")),
		out:          cmd.String("out"),
		bitrate:      cmd.Int("bitrate"),
		workers:      cmd.Int("workers"),
		skipExisting: cmd.Bool("skip-existing") || d.SkipExisting,
		verbose:      cmd.Bool("verbose") || d.Verbose,
		ffmpeg:       cmd.String("ffmpeg"),
		logFile:      cmd.String("log-file"),
		smartSearch:  cmd.Bool("smart-search") || d.SmartSearch,
		apiKey:       cmd.String("youtube-api-key"),
		tui:          cmd.Bool("tui"),
		noCache:      cmd.Bool("no-cache"),
	}

	if !cmd.IsSet("out") && d.Out != "" {
		s.out = d.Out
	}
	if !cmd.IsSet("bitrate") && d.Bitrate > 0 {
		s.bitrate = d.Bitrate
	}
	if !cmd.IsSet("workers") && d.Workers > 0 {
		s.workers = d.Workers
	}
	if s.ffmpeg == "" {
		s.ffmpeg = d.FFmpegPath
	}
	if s.logFile == "" {
		s.logFile = d.LogFile
	}
	if s.apiKey == "" {
		s.apiKey = config.YouTubeAPIKey()
	}
	return s
}

func (s downloadSettings) validate() error {
	switch {
	case s.playlistID == "":
		return fmt.Errorf("%w: playlist URL or ID is required", shared.ErrMissingArgument)
	case s.bitrate <= 0:
		return fmt.Errorf("%w: --bitrate must be positive, got %d", shared.ErrInvalidFlag, s.bitrate)
	case s.workers < 1:
		return fmt.Errorf("%w: --workers must be at least 1, got %d", shared.ErrInvalidFlag, s.workers)
	}
	return nil
}

// runLogger builds the logger for one download. The TUI owns the terminal, so its logs only go to the
// log file.
func (r *Runner) runLogger(s downloadSettings) (*log.Logger, io.Closer, error) {
	logger := r.logger
	var closer io.Closer

	switch {
	case s.logFile != "" && s.tui:
		l, c, err := shared.NewFileLogger(io.Discard, s.logFile)
		if err != nil {
			return nil, nil, err
		}
		logger, closer = l, c
	case s.logFile != "":
		l, c, err := shared.NewFileLogger(nil, s.logFile)
		if err != nil {
			return nil, nil, err
		}
		logger, closer = l, c
	case s.tui:
		logger = shared.NewLogger(io.Discard)
	}

	if s.verbose {
		shared.SetLogLevel(logger, log.DebugLevel)
	} else {
		shared.SetLogLevel(logger, log.InfoLevel)
	}
	return logger, closer, nil
}

// Download resolves, downloads, tags and reports every track of a playlist.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	s := resolveSettings(cmd, config)
	if err := s.validate(); err != nil {
		return err
	}

	logger, closer, err := r.runLogger(s)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	provider, err := r.playlistProvider(ctx, config, logger)
	if err != nil {
		return err
	}

	opts, err := r.engineOpts(ctx, s, provider, logger)
	if err != nil {
		return err
	}

	var runs *repositories.RunRepository
	if !s.noCache {
		if db, err := r.openDatabase(config); err != nil {
			logger.Warn("resolution cache unavailable", "error", err)
		} else {
			defer db.Close()
			opts.Cache = repositories.NewResolutionRepository(db)
			runs = repositories.NewRunRepository(db)
		}
	}

	engine, err := tasks.NewEngine(opts)
	if err != nil {
		return err
	}

	startedAt := time.Now()
	var result *tasks.RunResult
	var runErr error
	if s.tui {
		result, runErr = r.downloadWithUI(ctx, engine, s.playlistID)
	} else {
		result, runErr = r.downloadPlain(ctx, engine, s.playlistID)
	}
	if result == nil {
		return runErr
	}

	if runs != nil {
		r.recordRun(runs, result, startedAt, logger)
	}

	r.writePlainln("Done: %d ok, %d failed", result.Succeeded, result.Failed)
	if result.Skipped > 0 {
		r.writePlain("Skipped %d existing files\n", result.Skipped)
	}
	r.writePlain("%s\n", ui.Hint("Playlist: "+result.M3UPath))
	r.writePlain("%s\n", ui.Hint("Report:   "+result.ReportPath))

	if result.Cancelled {
		return fmt.Errorf("%w: %d tracks not downloaded", shared.ErrCancelled, result.Failed)
	}
	return runErr
}

// engineOpts builds the engine collaborators, reusing any injected into the runner.
func (r *Runner) engineOpts(ctx context.Context, s downloadSettings, provider services.PlaylistProvider, logger *log.Logger) (tasks.EngineOpts, error) {
	opts := tasks.EngineOpts{
		Provider:     provider,
		Primary:      r.primary,
		Index:        r.index,
		Downloader:   r.downloader,
		Tagger:       r.tagger,
		Logger:       logger,
		OutDir:       s.out,
		Bitrate:      s.bitrate,
		Workers:      s.workers,
		SkipExisting: s.skipExisting,
		SmartSearch:  s.smartSearch,
		FFmpegPath:   r.ffmpegLocation(s.ffmpeg),
	}

	if opts.Index == nil || opts.Downloader == nil {
		ytdlp := services.NewYtdlpService()
		if opts.Index == nil {
			opts.Index = ytdlp
		}
		if opts.Downloader == nil {
			opts.Downloader = ytdlp
		}
	}

	if opts.Primary == nil && s.smartSearch && s.apiKey != "" {
		yt, err := services.NewYouTubeService(ctx, s.apiKey)
		if err != nil {
			return opts, err
		}
		opts.Primary = yt
	} else if s.smartSearch && opts.Primary == nil {
		logger.Info("no YouTube API key configured, smart search uses yt-dlp search only")
	}

	if opts.Tagger == nil {
		covers, err := tagger.NewCoverFetcher(r.httpClient, coverCacheSize)
		if err != nil {
			return opts, err
		}
		opts.Tagger = tagger.NewID3Tagger(covers, logger)
	}

	if opts.FFmpegPath == "" {
		logger.Warn("ffmpeg not found on PATH, relying on yt-dlp to locate it")
	}
	return opts, nil
}

// downloadPlain prints progress lines while the engine runs.
func (r *Runner) downloadPlain(ctx context.Context, engine *tasks.Engine, playlistID string) (*tasks.RunResult, error) {
	progress := make(chan tasks.ProgressUpdate, 64)

	var result *tasks.RunResult
	var runErr error

	g := new(errgroup.Group)
	g.Go(func() error {
		for update := range progress {
			r.printProgress(update)
		}
		return nil
	})
	g.Go(func() error {
		defer close(progress)
		result, runErr = engine.Download(ctx, playlistID, progress)
		return nil
	})
	_ = g.Wait()

	return result, runErr
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.FetchPlaylist, tasks.TrackDone, tasks.WriteReports:
		r.writePlain("%s\n", update.Message)
	}
}

func (r *Runner) recordRun(runs *repositories.RunRepository, result *tasks.RunResult, startedAt time.Time, logger *log.Logger) {
	run := models.NewRun(result.PlaylistID, result.TargetDir, len(result.Tracks))
	run.SetStartedAt(startedAt)
	run.Complete(result.Outcomes, result.Cancelled, time.Now())

	if err := runs.Create(run); err != nil {
		logger.Warn("failed to record run", "error", err)
		return
	}
	logger.Debug("run recorded", "sequence", run.Sequence())
}
