// YouTube Data API v3 implementation of [Searcher]
//
// A search.list call finds video ids, a videos.list call fills in durations.
package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	youtubeWatchURL   = "https://www.youtube.com/watch?v="
	youtubeMaxResults = 10
)

var isoDurationPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// YouTubeService implements [Searcher] on top of the YouTube Data API.
type YouTubeService struct {
	svc     *youtube.Service
	limiter *rate.Limiter
}

// NewYouTubeService creates a searcher authenticated with an API key.
//
// Extra client options are appended after the key (tests point the client at a local endpoint).
func NewYouTubeService(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing youtube api key", shared.ErrMissingCredentials)
	}

	svc, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}

	return &YouTubeService{svc: svc, limiter: rate.NewLimiter(rate.Limit(5), 1)}, nil
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Data API"
}

// Search returns up to ten video candidates for query with titles, channels and durations.
func (y *YouTubeService) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := y.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(youtubeMaxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: youtube search: %v", shared.ErrAPIRequest, err)
	}

	items := lo.Filter(res.Items, func(it *youtube.SearchResult, _ int) bool {
		return it != nil && it.Id != nil && it.Id.VideoId != ""
	})
	if len(items) == 0 {
		return []models.Candidate{}, nil
	}

	ids := lo.Map(items, func(it *youtube.SearchResult, _ int) string { return it.Id.VideoId })
	durations, err := y.durations(ctx, ids)
	if err != nil {
		return nil, err
	}

	return lo.Map(items, func(it *youtube.SearchResult, _ int) models.Candidate {
		c := models.Candidate{
			Duration: durations[it.Id.VideoId],
			Locator:  youtubeWatchURL + it.Id.VideoId,
		}
		if it.Snippet != nil {
			c.Title = it.Snippet.Title
			c.Channel = it.Snippet.ChannelTitle
		}
		return c
	}), nil
}

// durations maps video ids to their length in seconds; unknown lengths are omitted.
func (y *YouTubeService) durations(ctx context.Context, ids []string) (map[string]int, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := y.svc.Videos.List([]string{"contentDetails", "snippet"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: youtube videos: %v", shared.ErrAPIRequest, err)
	}

	out := make(map[string]int, len(res.Items))
	for _, v := range res.Items {
		if v == nil || v.ContentDetails == nil {
			continue
		}
		if secs := ParseISODuration(v.ContentDetails.Duration); secs > 0 {
			out[v.Id] = secs
		}
	}
	return out, nil
}

// ParseISODuration converts an ISO-8601 video duration such as "PT1H2M3S" to seconds.
//
// Unparseable input yields 0.
func ParseISODuration(s string) int {
	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	total := 0
	for i, unit := range []int{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total
}
