// Spotify API implementation of [PlaylistProvider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/samber/lo"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	playlistPageSize = 100
	artistBatchSize  = 50
	spotifyAttempts  = 3
	playlistFields   = "next,total,items(track(id,name,duration_ms,artists(id,name),album(name,images,release_date,total_tracks)))"
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents the album fields requested for playlist items.
type SpotifyAlbum struct {
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	TotalTracks int            `json:"total_tracks"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
}

// SpotifyPlaylistItem is one entry of a playlist; Track is nil for removed or local items.
type SpotifyPlaylistItem struct {
	Track *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistPage represents a paginated response of playlist items.
type SpotifyPlaylistPage struct {
	Items []SpotifyPlaylistItem `json:"items"`
	Total int                   `json:"total"`
	Next  *string               `json:"next"`
}

// SpotifyService implements [PlaylistProvider] with the client credentials flow.
//
// Playlist pages are requested directly so the fields filter can keep album total_tracks;
// artist genre lookups go through [spotify.Client]. Every request waits on a shared [rate.Limiter]
// and transient failures (network errors, 429 and 5xx) are retried up to three times.
type SpotifyService struct {
	httpClient *http.Client
	client     *spotify.Client
	limiter    *rate.Limiter
	retry      shared.Policy
	baseURL    string
	logger     *log.Logger
}

// NewSpotifyService creates a Spotify service from "client_id" and "client_secret" credentials.
//
// requestsPerSecond <= 0 defaults to 10.
func NewSpotifyService(ctx context.Context, credentials map[string]string, requestsPerSecond float64, logger *log.Logger) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyTokenURL,
	}

	return newSpotifyService(config.Client(ctx), spotifyBaseURL, requestsPerSecond, logger), nil
}

func newSpotifyService(httpClient *http.Client, baseURL string, requestsPerSecond float64, logger *log.Logger) *SpotifyService {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	retry := shared.NewPolicy(spotifyAttempts)
	retry.Retryable = transientSpotifyError

	return &SpotifyService{
		httpClient: httpClient,
		client:     spotify.New(httpClient, spotify.WithBaseURL(baseURL+"/")),
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		retry:      retry,
		baseURL:    baseURL,
		logger:     logger,
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// transientSpotifyError reports whether err is worth another attempt.
// Auth failures and missing playlists are permanent.
func transientSpotifyError(err error) bool {
	if errors.Is(err, shared.ErrAuthFailed) || errors.Is(err, shared.ErrPlaylistNotFound) {
		return false
	}
	return errors.Is(err, shared.ErrAPIRequest)
}

// doRequest performs an authenticated GET against the Spotify API and decodes the JSON body into result,
// retrying transient failures.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	return s.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		err := s.get(ctx, endpoint, result)
		if err != nil && transientSpotifyError(err) {
			s.logger.Debug("spotify request failed", "endpoint", endpoint, "attempt", attempt, "error", err)
		}
		return err
	})
}

func (s *SpotifyService) get(ctx context.Context, endpoint string, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return shared.ErrPlaylistNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", shared.ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// PlaylistPage retrieves one page of playlist items starting at offset.
func (s *SpotifyService) PlaylistPage(ctx context.Context, playlistID string, offset int) (*SpotifyPlaylistPage, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(playlistPageSize))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("fields", playlistFields)

	endpoint := fmt.Sprintf("/playlists/%s/tracks?%s", url.PathEscape(playlistID), params.Encode())

	var page SpotifyPlaylistPage
	if err := s.doRequest(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchTracks pages through the playlist, skips items without a track and enriches every track with the
// sorted union of its artists' genres. A failed genre lookup is logged and leaves genres empty.
func (s *SpotifyService) FetchTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var (
		tracks    []models.Track
		artistIDs [][]string
	)

	for offset := 0; ; {
		page, err := s.PlaylistPage(ctx, playlistID, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch playlist %s: %w", playlistID, err)
		}

		for _, item := range page.Items {
			if item.Track == nil {
				continue
			}
			tracks = append(tracks, convertSpotifyTrack(item.Track))
			artistIDs = append(artistIDs, lo.FilterMap(item.Track.Artists, func(a SpotifyArtist, _ int) (string, bool) {
				return a.ID, a.ID != ""
			}))
		}

		offset += len(page.Items)
		if page.Next == nil || len(page.Items) == 0 {
			break
		}
	}

	genres, err := s.artistGenres(ctx, lo.Uniq(lo.Flatten(artistIDs)))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("genre lookup failed", "playlist", playlistID, "error", err)
		return tracks, nil
	}

	for i, track := range tracks {
		set := lo.Uniq(lo.FlatMap(artistIDs[i], func(id string, _ int) []string { return genres[id] }))
		slices.Sort(set)
		tracks[i] = track.WithGenres(set)
	}
	return tracks, nil
}

// artistGenres resolves artist ids to genres in batches of 50.
func (s *SpotifyService) artistGenres(ctx context.Context, ids []string) (map[string][]string, error) {
	genres := make(map[string][]string, len(ids))
	for _, batch := range lo.Chunk(ids, artistBatchSize) {
		batchIDs := lo.Map(batch, func(id string, _ int) spotify.ID { return spotify.ID(id) })

		var artists []*spotify.FullArtist
		err := s.retry.Do(ctx, func(ctx context.Context, attempt int) error {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			found, err := s.client.GetArtists(ctx, batchIDs...)
			if err != nil {
				return fmt.Errorf("%w: artists: %v", shared.ErrAPIRequest, err)
			}
			artists = found
			return nil
		})
		if err != nil {
			return nil, err
		}
		for _, a := range artists {
			if a != nil {
				genres[string(a.ID)] = a.Genres
			}
		}
	}
	return genres, nil
}

// convertSpotifyTrack maps the API representation onto [models.Track].
func convertSpotifyTrack(t *SpotifyTrack) models.Track {
	artists := lo.FilterMap(t.Artists, func(a SpotifyArtist, _ int) (string, bool) {
		return a.Name, a.Name != ""
	})

	var cover string
	if len(t.Album.Images) > 0 {
		cover = t.Album.Images[0].URL
	}

	year, _, _ := strings.Cut(t.Album.ReleaseDate, "-")

	return models.NewTrack(t.ID, t.Name, artists, t.Album.Name, t.DurationMS, cover, year, t.Album.TotalTracks, nil)
}
