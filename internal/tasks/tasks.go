package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/formatter"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/services"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/desertthunder/tapedeck/internal/tagger"
)

// RunResult contains everything produced by one [Engine.Download] call.
type RunResult struct {
	PlaylistID  string
	TargetDir   string
	Tracks      []models.Track
	Outcomes    []models.Outcome // one per track, sorted by index
	M3UPath     string
	ReportPath  string
	MetricsPath string
	Succeeded   int
	Failed      int
	Skipped     int
	Cancelled   bool
}

// EngineOpts holds the collaborators and settings of an [Engine].
//
// Provider, Index and Downloader are required. Primary, Tagger and Cache are optional.
type EngineOpts struct {
	Provider   services.PlaylistProvider
	Primary    services.Searcher // scored search, used when set and SmartSearch is on
	Index      services.Searcher // duration-closest fallback search
	Downloader services.Downloader
	Tagger     tagger.Tagger
	Cache      ResolutionCache
	Logger     *log.Logger

	OutDir       string
	Bitrate      int
	Workers      int
	SkipExisting bool
	SmartSearch  bool
	FFmpegPath   string

	// Policy overrides the fetch retry policy.
	Policy func(attempts int) shared.Policy
}

// Engine downloads playlists.
type Engine struct {
	opts   EngineOpts
	logger *log.Logger
}

// NewEngine validates opts and applies defaults (2 workers, 192 kbps, "downloads").
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("%w: playlist provider not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Downloader == nil {
		return nil, fmt.Errorf("%w: downloader not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Index == nil && opts.Primary == nil && opts.SmartSearch {
		return nil, fmt.Errorf("%w: smart search needs a searcher", shared.ErrServiceUnavailable)
	}

	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	if opts.Bitrate <= 0 {
		opts.Bitrate = 192
	}
	if opts.OutDir == "" {
		opts.OutDir = "downloads"
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{opts: opts, logger: logger}, nil
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// deliverProgress waits for the reader to take update, giving up only when ctx is done.
// Used for updates a display must not lose (finished tracks, reports).
func deliverProgress(ctx context.Context, progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	case <-ctx.Done():
	}
}

// Tracks fetches the normalized track list of a playlist without downloading anything.
func (e *Engine) Tracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	tracks, err := e.opts.Provider.FetchTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrEmptyPlaylist, playlistID)
	}
	return tracks, nil
}

// Download fetches the playlist, runs the pipeline into <OutDir>/<playlist id> and writes the
// playlist, report and metrics files.
//
// Artifacts are written even when ctx is cancelled mid-run; the cancellation error is then returned
// alongside the result. Errors before processing starts return a nil result.
func (e *Engine) Download(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (*RunResult, error) {
	sendProgress(progress, fetchingPlaylistUpdate(playlistID))

	tracks, err := e.Tracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	targetDir := filepath.Join(e.opts.OutDir, shared.SafeFilename(playlistID))
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	sendProgress(progress, foundPlaylistUpdate(len(tracks), targetDir))
	e.logger.Info("starting download", "playlist", playlistID, "tracks", len(tracks), "workers", e.opts.Workers)

	metrics := NewMetrics()
	pipeline := e.pipeline(metrics)
	outcomes, runErr := pipeline.Run(ctx, tracks, targetDir, progress)

	result := &RunResult{
		PlaylistID: playlistID,
		TargetDir:  targetDir,
		Tracks:     tracks,
		Outcomes:   outcomes,
		Cancelled:  runErr != nil,
	}
	for _, o := range outcomes {
		switch {
		case o.OK():
			result.Succeeded++
			if o.Skipped {
				result.Skipped++
			}
		default:
			result.Failed++
		}
	}

	deliverProgress(ctx, progress, writingReportsUpdate(targetDir))
	if err := e.writeArtifacts(result, metrics); err != nil {
		return result, errors.Join(runErr, err)
	}

	e.logger.Info("download finished", "ok", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped)
	return result, runErr
}

func (e *Engine) pipeline(metrics *Metrics) *Pipeline {
	logger := e.logger

	var resolver *Resolver
	if e.opts.SmartSearch {
		resolver = NewResolver(e.opts.Primary, e.opts.Index, e.opts.Cache, metrics, logger)
	}

	fetcher := NewFetcher(e.opts.Downloader, e.opts.FFmpegPath, metrics, logger)
	if e.opts.Policy != nil {
		fetcher.Policy = e.opts.Policy
	}

	finalizer := NewFinalizer(e.opts.Tagger, metrics, logger)
	popts := PipelineOpts{
		Workers:      e.opts.Workers,
		Bitrate:      e.opts.Bitrate,
		SkipExisting: e.opts.SkipExisting,
		SmartSearch:  e.opts.SmartSearch,
	}
	return NewPipeline(popts, resolver, fetcher, finalizer, metrics, logger)
}

func (e *Engine) writeArtifacts(result *RunResult, metrics *Metrics) error {
	m3u, err := formatter.WriteM3U(result.TargetDir, result.Outcomes)
	if err != nil {
		return err
	}
	result.M3UPath = m3u

	report, err := formatter.WriteReport(result.TargetDir, result.Outcomes)
	if err != nil {
		return err
	}
	result.ReportPath = report

	path, err := metrics.WriteFile(result.TargetDir)
	if err != nil {
		e.logger.Warn("failed to write metrics", "error", err)
		return nil
	}
	result.MetricsPath = path
	return nil
}
