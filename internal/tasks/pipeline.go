package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/services"
	"github.com/desertthunder/tapedeck/internal/shared"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 2

// PipelineOpts configures a [Pipeline].
type PipelineOpts struct {
	Workers      int
	Bitrate      int
	SkipExisting bool
	SmartSearch  bool // resolve through the two-stage resolver before falling back to raw queries
}

// Pipeline runs the per-track state machine over a bounded pool of workers.
type Pipeline struct {
	opts      PipelineOpts
	resolver  *Resolver
	fetcher   *Fetcher
	finalizer *Finalizer
	metrics   *Metrics
	logger    *log.Logger
}

// NewPipeline wires the stages together. Workers below 1 are raised to 1.
func NewPipeline(opts PipelineOpts, resolver *Resolver, fetcher *Fetcher, finalizer *Finalizer, metrics *Metrics, logger *log.Logger) *Pipeline {
	opts.Workers = max(opts.Workers, 1)
	return &Pipeline{
		opts:      opts,
		resolver:  resolver,
		fetcher:   fetcher,
		finalizer: finalizer,
		metrics:   metrics,
		logger:    logger,
	}
}

type trackJob struct {
	index int
	track models.Track
}

// Run processes every track into targetDir and returns exactly one outcome per track, sorted by index.
//
// Tracks are dispatched in playlist order. On cancellation dispatch stops, tracks that were never
// started are recorded as cancelled and ctx.Err() is returned with the outcomes.
func (p *Pipeline) Run(ctx context.Context, tracks []models.Track, targetDir string, progress chan<- ProgressUpdate) ([]models.Outcome, error) {
	total := len(tracks)
	jobs := make(chan trackJob)
	results := make(chan models.Outcome, total)

	var wg sync.WaitGroup
	for range min(p.opts.Workers, max(total, 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- p.runTrack(ctx, job, targetDir, total, progress)
			}
		}()
	}

	dispatched := 0
dispatch:
	for i, track := range tracks {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- trackJob{index: i + 1, track: track}:
			dispatched++
		}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]models.Outcome, 0, total)
	for o := range results {
		outcomes = append(outcomes, o)
		p.metrics.CountOutcome(o)
		deliverProgress(ctx, progress, trackDoneUpdate(len(outcomes), total, o))
	}

	for i := dispatched; i < total; i++ {
		o := models.Fail(i+1, tracks[i], models.ReasonCancelled)
		outcomes = append(outcomes, o)
		p.metrics.CountOutcome(o)
	}

	models.SortOutcomes(outcomes)
	return outcomes, ctx.Err()
}

// runTrack converts a panic inside the per-track chain into a failed outcome.
func (p *Pipeline) runTrack(ctx context.Context, job trackJob, targetDir string, total int, progress chan<- ProgressUpdate) (outcome models.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("track crashed", "index", job.index, "track", job.track.String(), "panic", r)
			outcome = models.Fail(job.index, job.track, fmt.Sprintf("%s%v", models.ReasonCrashPrefix, r))
		}
	}()

	if ctx.Err() != nil {
		return models.Fail(job.index, job.track, models.ReasonCancelled)
	}
	sendProgress(progress, trackStageUpdate(StartTrack, job.index, total, job.track))
	return p.processTrack(ctx, job, targetDir, total, progress)
}

func (p *Pipeline) processTrack(ctx context.Context, job trackJob, targetDir string, total int, progress chan<- ProgressUpdate) models.Outcome {
	index, track := job.index, job.track
	logger := shared.WithLogger(p.logger, "index", index)

	final := CanonicalPath(targetDir, index, track)
	if p.opts.SkipExisting {
		if _, err := os.Stat(final); err == nil {
			logger.Debug("file exists, skipping", "file", final)
			return models.Succeed(index, track, final, true)
		}
	}

	stem := strings.TrimSuffix(shared.TrackFilename(index, track.ArtistString(), track.Title), ".mp3")
	template := services.OutputTemplate(targetDir, stem)

	var working string
	if p.opts.SmartSearch && p.resolver != nil {
		sendProgress(progress, trackStageUpdate(ResolveTrack, index, total, track))
		res := p.resolver.Resolve(ctx, track)
		if res.Resolved() {
			logger.Debug("resolved", "source", res.Source, "score", res.Score, "locator", res.Locator)
			sendProgress(progress, trackStageUpdate(FetchTrack, index, total, track))

			path, err := p.fetcher.FetchLocator(ctx, res.Locator, template, p.opts.Bitrate)
			if isCancelled(err) {
				return models.Fail(index, track, models.ReasonCancelled)
			} else if err != nil {
				logger.Warn("locator download failed, trying search", "error", err)
			}
			working = path
		}
	}

	if working == "" {
		sendProgress(progress, trackStageUpdate(FetchTrack, index, total, track))
		for _, query := range Queries(track) {
			path, err := p.fetcher.FetchQuery(ctx, query, template, p.opts.Bitrate)
			if isCancelled(err) {
				return models.Fail(index, track, models.ReasonCancelled)
			} else if err != nil {
				logger.Debug("query download failed", "query", query, "error", err)
				continue
			}
			working = path
			break
		}
	}

	if working == "" {
		if ctx.Err() != nil {
			return models.Fail(index, track, models.ReasonCancelled)
		}
		logger.Warn("no match found", "track", track.String())
		return models.Fail(index, track, models.ReasonNotFound)
	}

	sendProgress(progress, trackStageUpdate(FinalizeTrack, index, total, track))
	return p.finalizer.Finalize(ctx, working, track, index)
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
