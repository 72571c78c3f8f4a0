package tasks

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/desertthunder/tapedeck/internal/tagger"
)

// Finalizer moves a downloaded file to its canonical name and tags it.
type Finalizer struct {
	tagger  tagger.Tagger
	metrics *Metrics
	logger  *log.Logger

	rename func(oldpath, newpath string) error
}

// NewFinalizer creates a finalizer; a nil tagger skips tagging.
func NewFinalizer(t tagger.Tagger, metrics *Metrics, logger *log.Logger) *Finalizer {
	return &Finalizer{tagger: t, metrics: metrics, logger: logger, rename: os.Rename}
}

// CanonicalPath returns the final location of track in dir.
func CanonicalPath(dir string, index int, track models.Track) string {
	return filepath.Join(dir, shared.TrackFilename(index, track.ArtistString(), track.Title))
}

// Finalize renames working to the canonical path next to it and embeds tags.
//
// A rename failure fails the track without tagging. Tagging errors are only logged.
func (f *Finalizer) Finalize(ctx context.Context, working string, track models.Track, index int) models.Outcome {
	defer f.metrics.ObserveStage(stageFinalize, time.Now())

	final := CanonicalPath(filepath.Dir(working), index, track)
	if working != final {
		if err := f.rename(working, final); err != nil {
			return models.Fail(index, track, models.ReasonFinalizePrefix+err.Error())
		}
	}

	if f.tagger != nil {
		if err := f.tagger.Tag(ctx, final, track, index); err != nil {
			f.logger.Warn("failed to tag file", "file", filepath.Base(final), "error", err)
		}
	}
	return models.Succeed(index, track, final, false)
}
