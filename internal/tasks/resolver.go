package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/matching"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/services"
)

// ResolutionCache remembers locators between runs.
//
// Implemented by repositories.ResolutionRepository.
type ResolutionCache interface {
	Lookup(ctx context.Context, trackID string) (string, bool, error)
	Store(ctx context.Context, res models.Resolution) error
}

// Queries returns the search queries tried for a track, most specific first.
func Queries(track models.Track) []string {
	artists := track.ArtistString()
	return []string{
		fmt.Sprintf("%s - %s official audio", artists, track.Title),
		fmt.Sprintf("%s %s audio", track.Title, artists),
		fmt.Sprintf("%s %s lyrics", track.Title, artists),
	}
}

// Resolver maps a track to a remote locator.
//
// The primary searcher is scored with [matching.Best]; the index searcher is the fallback and picks the
// entry with the closest duration. Either searcher may be nil.
type Resolver struct {
	primary services.Searcher
	index   services.Searcher
	cache   ResolutionCache
	metrics *Metrics
	logger  *log.Logger
}

// NewResolver creates a resolver. primary, cache and metrics are optional.
func NewResolver(primary, index services.Searcher, cache ResolutionCache, metrics *Metrics, logger *log.Logger) *Resolver {
	return &Resolver{primary: primary, index: index, cache: cache, metrics: metrics, logger: logger}
}

// Resolve returns the first locator produced by any query, or an unresolved [models.Resolution].
//
// Search errors never fail resolution: primary errors fall back to the index and index errors move on
// to the next query.
func (r *Resolver) Resolve(ctx context.Context, track models.Track) models.Resolution {
	defer r.metrics.ObserveStage(stageResolve, time.Now())

	if res, ok := r.fromCache(ctx, track); ok {
		return res
	}

	for _, query := range Queries(track) {
		if ctx.Err() != nil {
			break
		}

		res := r.resolveQuery(ctx, track, query)
		if !res.Resolved() {
			continue
		}

		if r.cache != nil {
			if err := r.cache.Store(ctx, res); err != nil {
				r.logger.Warn("failed to cache resolution", "track", track.ID, "error", err)
			}
		}
		return res
	}
	return models.Resolution{Track: track}
}

func (r *Resolver) fromCache(ctx context.Context, track models.Track) (models.Resolution, bool) {
	if r.cache == nil || track.ID == "" {
		return models.Resolution{}, false
	}

	locator, ok, err := r.cache.Lookup(ctx, track.ID)
	if err != nil {
		r.logger.Warn("resolution cache lookup failed", "track", track.ID, "error", err)
		return models.Resolution{}, false
	}
	if !ok || locator == "" {
		return models.Resolution{}, false
	}

	r.logger.Debug("resolution cache hit", "track", track.ID)
	return models.Resolution{Track: track, Locator: locator, Source: models.SourceCache}, true
}

func (r *Resolver) resolveQuery(ctx context.Context, track models.Track, query string) models.Resolution {
	if r.primary != nil {
		candidates, err := r.primary.Search(ctx, query)
		if err != nil {
			r.logger.Debug("primary search failed, falling back", "searcher", r.primary.Name(), "query", query, "error", err)
		} else if best, ok := matching.Best(candidates, track.Title, track.PrimaryArtist(), track.DurationSeconds()); ok {
			return models.Resolution{
				Track:   track,
				Locator: best.Candidate.Locator,
				Source:  models.SourceAPI,
				Score:   best.Score,
				Query:   query,
			}
		}
	}

	if r.index == nil {
		return models.Resolution{Track: track}
	}

	candidates, err := r.index.Search(ctx, query)
	if err != nil {
		r.logger.Debug("index search failed", "searcher", r.index.Name(), "query", query, "error", err)
		return models.Resolution{Track: track}
	}

	closest, ok := matching.Closest(candidates, track.DurationSeconds())
	if !ok || closest.Locator == "" {
		return models.Resolution{Track: track}
	}
	return models.Resolution{Track: track, Locator: closest.Locator, Source: models.SourceIndex, Query: query}
}
