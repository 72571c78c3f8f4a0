package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/services"
	"github.com/desertthunder/tapedeck/internal/shared"
)

const (
	locatorAttempts = 2
	queryAttempts   = 3
)

// Fetcher downloads and transcodes one target with retries.
type Fetcher struct {
	downloader services.Downloader
	ffmpeg     string
	metrics    *Metrics
	logger     *log.Logger

	// Policy builds the retry policy for an attempt count.
	Policy func(attempts int) shared.Policy
}

// NewFetcher creates a fetcher using the given downloader and optional ffmpeg location.
func NewFetcher(downloader services.Downloader, ffmpegPath string, metrics *Metrics, logger *log.Logger) *Fetcher {
	return &Fetcher{downloader: downloader, ffmpeg: ffmpegPath, metrics: metrics, logger: logger, Policy: shared.NewPolicy}
}

// FetchLocator downloads a resolved locator (2 attempts).
func (f *Fetcher) FetchLocator(ctx context.Context, locator, template string, bitrate int) (string, error) {
	return f.fetch(ctx, locator, template, bitrate, locatorAttempts, fetchPathLocator)
}

// FetchQuery hands a raw search query to the downloader (3 attempts).
func (f *Fetcher) FetchQuery(ctx context.Context, query, template string, bitrate int) (string, error) {
	return f.fetch(ctx, query, template, bitrate, queryAttempts, fetchPathQuery)
}

// fetch returns the working file path, the context error when cancelled, or an [shared.ErrDownload]
// wrapping the last failure.
func (f *Fetcher) fetch(ctx context.Context, target, template string, bitrate, attempts int, kind string) (string, error) {
	defer f.metrics.ObserveStage(stageFetch, time.Now())

	opts := services.DownloadOptions{Template: template, Bitrate: bitrate, FFmpegPath: f.ffmpeg}

	var path string
	err := f.Policy(attempts).Do(ctx, func(ctx context.Context, attempt int) error {
		f.metrics.CountAttempt(kind)

		p, err := f.downloader.Download(ctx, target, opts)
		if err != nil {
			f.logger.Debug("download attempt failed", "target", target, "attempt", attempt, "of", attempts, "error", err)
			return err
		}
		path = p
		return nil
	})

	switch {
	case err == nil:
		return path, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "", err
	case errors.Is(err, shared.ErrDownload):
		return "", err
	default:
		return "", fmt.Errorf("%w: %v", shared.ErrDownload, err)
	}
}
