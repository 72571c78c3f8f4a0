package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/tapedeck/internal/shared"
)

func spotifyTrackJSON(id, name string, artists [][2]string, durationMS int) map[string]any {
	as := make([]map[string]any, 0, len(artists))
	for _, a := range artists {
		as = append(as, map[string]any{"id": a[0], "name": a[1]})
	}
	return map[string]any{
		"id":          id,
		"name":        name,
		"duration_ms": durationMS,
		"artists":     as,
		"album": map[string]any{
			"name":         "Album " + id,
			"release_date": "2019-04-01",
			"total_tracks": 12,
			"images":       []map[string]any{{"url": "https://img/" + id, "height": 640, "width": 640}},
		},
	}
}

func newSpotifyTestServer(t *testing.T, pages []map[string]any, artists map[string][]string, artistCalls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/playlists/missing/"):
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"status":404,"message":"Not found"}}`))
		case strings.HasPrefix(r.URL.Path, "/playlists/"):
			if r.URL.Query().Get("fields") == "" {
				t.Errorf("expected fields filter on playlist request")
			}
			if r.URL.Query().Get("limit") != "100" {
				t.Errorf("expected limit=100, got %s", r.URL.Query().Get("limit"))
			}
			page := 0
			if r.URL.Query().Get("offset") != "0" {
				page = 1
			}
			json.NewEncoder(w).Encode(pages[page])
		case r.URL.Path == "/artists":
			if artistCalls != nil {
				atomic.AddInt32(artistCalls, 1)
			}
			ids := strings.Split(r.URL.Query().Get("ids"), ",")
			if len(ids) > 50 {
				t.Errorf("expected at most 50 ids per batch, got %d", len(ids))
			}
			out := make([]map[string]any, 0, len(ids))
			for _, id := range ids {
				out = append(out, map[string]any{"id": id, "name": id, "genres": artists[id]})
			}
			json.NewEncoder(w).Encode(map[string]any{"artists": out})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// noBackoff replaces the retry clock so failed attempts retry immediately.
func noBackoff(svc *SpotifyService) *SpotifyService {
	svc.retry.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return svc
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(context.Background(), map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			}, 0, nil)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
			if srv.limiter.Limit() != 10 {
				t.Errorf("expected default rate limit 10, got %v", srv.limiter.Limit())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(context.Background(), map[string]string{"client_secret": "s"}, 0, nil)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(context.Background(), map[string]string{"client_id": "id"}, 0, nil)
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("FetchTracks", func(t *testing.T) {
		next := "next-page"
		pages := []map[string]any{
			{
				"total": 3,
				"next":  next,
				"items": []map[string]any{
					{"track": spotifyTrackJSON("t1", "Song A", [][2]string{{"a1", "Band X"}, {"a2", "Guest"}}, 200000)},
					{"track": nil},
				},
			},
			{
				"total": 3,
				"next":  nil,
				"items": []map[string]any{
					{"track": spotifyTrackJSON("t2", "Song B", [][2]string{{"a1", "Band X"}}, 180500)},
				},
			},
		}
		artists := map[string][]string{
			"a1": {"rock", "indie"},
			"a2": {"pop", "indie"},
		}

		var artistCalls int32
		server := newSpotifyTestServer(t, pages, artists, &artistCalls)
		defer server.Close()

		svc := newSpotifyService(server.Client(), server.URL, 1000, nil)
		tracks, err := svc.FetchTracks(context.Background(), "pl")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks (null item skipped), got %d", len(tracks))
		}

		first := tracks[0]
		if first.Title != "Song A" || first.ArtistString() != "Band X, Guest" {
			t.Errorf("unexpected first track: %+v", first)
		}
		if first.Year != "2019" || first.TotalTracks != 12 || first.CoverURL != "https://img/t1" {
			t.Errorf("unexpected album fields: %+v", first)
		}
		if strings.Join(first.Genres, ",") != "indie,pop,rock" {
			t.Errorf("expected sorted genre union, got %v", first.Genres)
		}
		if strings.Join(tracks[1].Genres, ",") != "indie,rock" {
			t.Errorf("expected genres of a1, got %v", tracks[1].Genres)
		}
		if tracks[1].DurationMS != 180500 {
			t.Errorf("expected duration 180500, got %d", tracks[1].DurationMS)
		}
		if atomic.LoadInt32(&artistCalls) != 1 {
			t.Errorf("expected a single artist batch, got %d", artistCalls)
		}
	})

	t.Run("FetchTracks batches artists by 50", func(t *testing.T) {
		items := make([]map[string]any, 0, 120)
		for i := range 120 {
			id := "t" + strings.Repeat("x", i%3) + string(rune('A'+i%26)) + string(rune('a'+i/26))
			artistID := "artist" + id
			items = append(items, map[string]any{"track": spotifyTrackJSON(id, "Song", [][2]string{{artistID, "Name"}}, 1000)})
		}
		pages := []map[string]any{{"total": 120, "next": nil, "items": items}}

		var artistCalls int32
		server := newSpotifyTestServer(t, pages, nil, &artistCalls)
		defer server.Close()

		svc := newSpotifyService(server.Client(), server.URL, 1000, nil)
		tracks, err := svc.FetchTracks(context.Background(), "pl")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 120 {
			t.Fatalf("expected 120 tracks, got %d", len(tracks))
		}
		if got := atomic.LoadInt32(&artistCalls); got != 3 {
			t.Errorf("expected 3 artist batches, got %d", got)
		}
	})

	t.Run("FetchTracks playlist not found", func(t *testing.T) {
		server := newSpotifyTestServer(t, nil, nil, nil)
		defer server.Close()

		svc := newSpotifyService(server.Client(), server.URL, 1000, nil)
		_, err := svc.FetchTracks(context.Background(), "missing")
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("FetchTracks respects cancellation", func(t *testing.T) {
		server := newSpotifyTestServer(t, nil, nil, nil)
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		svc := newSpotifyService(server.Client(), server.URL, 1000, nil)
		if _, err := svc.FetchTracks(ctx, "pl"); err == nil {
			t.Error("expected error for cancelled context")
		}
	})

	t.Run("FetchTracks retries a rate limited page", func(t *testing.T) {
		var playlistCalls, artistCalls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch {
			case strings.HasPrefix(r.URL.Path, "/playlists/"):
				if atomic.AddInt32(&playlistCalls, 1) == 1 {
					w.Header().Set("Retry-After", "0")
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				json.NewEncoder(w).Encode(map[string]any{
					"items": []map[string]any{{"track": spotifyTrackJSON("t1", "Song A", [][2]string{{"a1", "Band X"}}, 200000)}},
					"total": 1,
					"next":  nil,
				})
			case r.URL.Path == "/artists":
				if atomic.AddInt32(&artistCalls, 1) == 1 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				json.NewEncoder(w).Encode(map[string]any{"artists": []map[string]any{{"id": "a1", "name": "Band X", "genres": []string{"rock"}}}})
			}
		}))
		defer server.Close()

		svc := noBackoff(newSpotifyService(server.Client(), server.URL, 1000, nil))
		tracks, err := svc.FetchTracks(context.Background(), "pl")
		if err != nil {
			t.Fatalf("expected success after retry, got %v", err)
		}
		if len(tracks) != 1 || tracks[0].Title != "Song A" {
			t.Fatalf("unexpected tracks %+v", tracks)
		}
		if got := atomic.LoadInt32(&playlistCalls); got != 2 {
			t.Errorf("expected 2 playlist requests, got %d", got)
		}
		if got := atomic.LoadInt32(&artistCalls); got != 2 {
			t.Errorf("expected 2 artist requests, got %d", got)
		}
		if len(tracks[0].Genres) != 1 || tracks[0].Genres[0] != "rock" {
			t.Errorf("expected genres after artist retry, got %v", tracks[0].Genres)
		}
	})

	t.Run("FetchTracks gives up after three attempts", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		svc := noBackoff(newSpotifyService(server.Client(), server.URL, 1000, nil))
		_, err := svc.FetchTracks(context.Background(), "pl")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if got := atomic.LoadInt32(&calls); got != 3 {
			t.Errorf("expected 3 attempts, got %d", got)
		}
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		tests := []struct {
			name   string
			status int
			want   error
		}{
			{"not found", http.StatusNotFound, shared.ErrPlaylistNotFound},
			{"unauthorized", http.StatusUnauthorized, shared.ErrAuthFailed},
			{"forbidden", http.StatusForbidden, shared.ErrAuthFailed},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var calls int32
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					atomic.AddInt32(&calls, 1)
					w.WriteHeader(tt.status)
				}))
				defer server.Close()

				svc := noBackoff(newSpotifyService(server.Client(), server.URL, 1000, nil))
				_, err := svc.FetchTracks(context.Background(), "pl")
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
				if got := atomic.LoadInt32(&calls); got != 1 {
					t.Errorf("expected 1 request, got %d", got)
				}
			})
		}
	})
}
