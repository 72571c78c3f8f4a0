// package services defines the external collaborators of the downloader
//
// Spotify (playlist metadata), YouTube Data API (search), yt-dlp (search, download and transcode)
package services

import (
	"context"

	"github.com/desertthunder/tapedeck/internal/models"
)

// PlaylistProvider returns the tracks of a playlist in playlist order.
//
// Implementations page through the upstream API transparently and fill in genres.
type PlaylistProvider interface {
	FetchTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// Searcher looks a free-text query up in a remote media index.
type Searcher interface {
	// Search returns at most a handful of candidates; an empty slice is not an error.
	Search(ctx context.Context, query string) ([]models.Candidate, error)

	Name() string
}

// DownloadOptions configures a single download and transcode.
type DownloadOptions struct {
	Template   string // output template, e.g. dir/stem.%(ext)s
	Bitrate    int    // target mp3 bitrate in kbps
	FFmpegPath string // optional ffmpeg binary or directory
}

// Downloader fetches a locator (or raw search query) and transcodes it to mp3.
type Downloader interface {
	// Download performs one attempt and returns the path of the produced file.
	Download(ctx context.Context, target string, opts DownloadOptions) (string, error)
}
