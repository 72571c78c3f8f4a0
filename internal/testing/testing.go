// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/tapedeck/internal/models"
	"github.com/desertthunder/tapedeck/internal/services"
)

// MockProvider is a test double for [services.PlaylistProvider]
type MockProvider struct {
	Tracks []models.Track
	Err    error
	Calls  int
}

func (m *MockProvider) FetchTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tracks, nil
}

func (m *MockProvider) Name() string { return "mock" }

// MockSearcher is a test double for [services.Searcher] returning canned results per query.
//
// Queries without an entry in Results return an empty slice.
type MockSearcher struct {
	Results map[string][]models.Candidate
	Err     error

	mu      sync.Mutex
	queries []string
}

func (m *MockSearcher) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results[query], nil
}

func (m *MockSearcher) Name() string { return "mock-searcher" }

// Queries returns the queries searched so far, in call order.
func (m *MockSearcher) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// MockDownloader is a test double for [services.Downloader].
//
// The first Failures calls return Err (or a generic error). Later calls write a small file at the
// template's mp3 path, unless DownloadFunc is set, in which case it handles every call.
type MockDownloader struct {
	Failures     int
	Err          error
	DownloadFunc func(ctx context.Context, target string, opts services.DownloadOptions) (string, error)

	mu      sync.Mutex
	targets []string
}

func (m *MockDownloader) Download(ctx context.Context, target string, opts services.DownloadOptions) (string, error) {
	m.mu.Lock()
	m.targets = append(m.targets, target)
	n := len(m.targets)
	m.mu.Unlock()

	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, target, opts)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if n <= m.Failures {
		if m.Err != nil {
			return "", m.Err
		}
		return "", errors.New("transient failure")
	}
	return WriteOutput(opts.Template)
}

// Targets returns every target passed to Download, in call order.
func (m *MockDownloader) Targets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.targets...)
}

// WriteOutput creates the mp3 a downloader would produce for an output template.
func WriteOutput(template string) (string, error) {
	path := strings.ReplaceAll(strings.TrimSuffix(template, ".%(ext)s"), "%%", "%") + ".mp3"
	if err := os.WriteFile(path, make([]byte, 32), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// MockTagger is a test double for tagger.Tagger recording tagged paths.
type MockTagger struct {
	Err error

	mu    sync.Mutex
	paths []string
}

func (m *MockTagger) Tag(ctx context.Context, path string, track models.Track, index int) error {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()
	return m.Err
}

// Paths returns the files passed to Tag.
func (m *MockTagger) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

// MockCache is an in-memory resolution cache.
type MockCache struct {
	LookupErr error

	mu      sync.Mutex
	entries map[string]string
}

func (m *MockCache) Lookup(ctx context.Context, trackID string) (string, bool, error) {
	if m.LookupErr != nil {
		return "", false, m.LookupErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.entries[trackID]
	return loc, ok, nil
}

func (m *MockCache) Store(ctx context.Context, res models.Resolution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]string)
	}
	m.entries[res.Track.ID] = res.Locator
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
