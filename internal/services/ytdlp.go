// yt-dlp implementation of [Searcher] and [Downloader]
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/shared"
	"github.com/lrstanley/go-ytdlp"
	"github.com/tidwall/gjson"
)

const (
	audioFormatSelector = "bestaudio[ext=webm]/bestaudio[ext=m4a]/bestaudio/best"
	searchPrefix        = "ytsearch10:"
	defaultSearch       = "ytsearch1"
	extTemplate         = ".%(ext)s"
)

// YtdlpService drives the yt-dlp executable for flat searches and audio downloads.
type YtdlpService struct{}

// NewYtdlpService returns a yt-dlp backed searcher and downloader.
func NewYtdlpService() *YtdlpService {
	return &YtdlpService{}
}

// Name returns the service name.
func (y *YtdlpService) Name() string {
	return "yt-dlp"
}

// Search runs a flat "ytsearch10:" lookup and returns the entries in index order.
func (y *YtdlpService) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	res, err := ytdlp.New().
		FlatPlaylist().
		DumpSingleJSON().
		NoWarnings().
		Quiet().
		Run(ctx, searchPrefix+query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: yt-dlp search: %v", shared.ErrAPIRequest, err)
	}
	return ParseSearchEntries(res.Stdout), nil
}

// ParseSearchEntries decodes the entries of a flat playlist dump.
//
// Entries without any usable locator are dropped. Missing durations are 0.
func ParseSearchEntries(dump string) []models.Candidate {
	candidates := []models.Candidate{}
	if !gjson.Valid(dump) {
		return candidates
	}

	gjson.Get(dump, "entries").ForEach(func(_, entry gjson.Result) bool {
		locator := entryLocator(entry)
		if locator == "" {
			return true
		}

		channel := entry.Get("channel").String()
		if channel == "" {
			channel = entry.Get("uploader").String()
		}

		candidates = append(candidates, models.Candidate{
			Title:    entry.Get("title").String(),
			Channel:  channel,
			Duration: int(entry.Get("duration").Float()),
			Locator:  locator,
		})
		return true
	})
	return candidates
}

func entryLocator(entry gjson.Result) string {
	for _, key := range []string{"url", "webpage_url"} {
		if u := entry.Get(key).String(); strings.HasPrefix(u, "http") {
			return u
		}
	}
	if id := entry.Get("id").String(); id != "" {
		return youtubeWatchURL + id
	}
	return ""
}

// Download fetches target (a watch URL or a raw query searched with ytsearch1) and
// transcodes it to mp3 at the requested bitrate. The returned path is the produced file.
func (y *YtdlpService) Download(ctx context.Context, target string, opts DownloadOptions) (string, error) {
	if opts.Template == "" {
		return "", fmt.Errorf("%w: output template", shared.ErrMissingArgument)
	}

	bitrate := opts.Bitrate
	if bitrate <= 0 {
		bitrate = 192
	}

	dl := ytdlp.New().
		Format(audioFormatSelector).
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality(strconv.Itoa(bitrate) + "K").
		EmbedMetadata().
		NoPlaylist().
		DefaultSearch(defaultSearch).
		Output(opts.Template).
		NoProgress().
		Quiet().
		NoWarnings()
	if opts.FFmpegPath != "" {
		dl = dl.FFmpegLocation(opts.FFmpegPath)
	}

	if _, err := dl.Run(ctx, target); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", shared.ErrDownload, err)
	}

	path, ok := FindOutput(opts.Template)
	if !ok {
		return "", fmt.Errorf("%w: no mp3 produced for %q", shared.ErrDownload, target)
	}
	return path, nil
}

// OutputTemplate builds the yt-dlp output template dir/stem.%(ext)s, escaping literal percent signs.
func OutputTemplate(dir, stem string) string {
	return filepath.Join(dir, strings.ReplaceAll(stem, "%", "%%")) + extTemplate
}

// FindOutput locates the mp3 written for an output template of the form dir/stem.%(ext)s.
//
// The exact dir/stem.mp3 wins; otherwise the most recently modified dir/stem*.mp3 is returned.
func FindOutput(template string) (string, bool) {
	stem := strings.ReplaceAll(strings.TrimSuffix(template, extTemplate), "%%", "%")
	exact := stem + ".mp3"
	if info, err := os.Stat(exact); err == nil && !info.IsDir() {
		return exact, true
	}

	dir, base := filepath.Split(stem)
	if dir == "" {
		dir = "."
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	var (
		newest  string
		newestT time.Time
	)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, base) || !strings.HasSuffix(name, ".mp3") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestT) {
			newest, newestT = filepath.Join(dir, name), info.ModTime()
		}
	}
	return newest, newest != ""
}

// InstallYtdlp makes sure a yt-dlp executable is available, downloading one into the
// user cache when none is found on PATH.
func InstallYtdlp(ctx context.Context) (string, error) {
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	if resolved == nil {
		return "", errors.New("yt-dlp install returned no executable")
	}
	return resolved.Executable, nil
}
