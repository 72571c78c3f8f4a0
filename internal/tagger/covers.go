package tagger

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCoverCacheSize = 64
	maxCoverBytes         = 10 << 20
)

// CoverFetcher downloads cover art and keeps recently used images in memory.
//
// Safe for concurrent use; playlists usually share a handful of album covers.
type CoverFetcher struct {
	client *http.Client
	cache  *lru.Cache[string, []byte]
}

// NewCoverFetcher creates a fetcher holding up to size images. A nil client gets a 30s timeout client.
func NewCoverFetcher(client *http.Client, size int) (*CoverFetcher, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if size <= 0 {
		size = defaultCoverCacheSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cover cache: %w", err)
	}
	return &CoverFetcher{client: client, cache: cache}, nil
}

// Fetch returns the image at url, from cache when possible.
func (c *CoverFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if data, ok := c.cache.Get(url); ok {
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	c.cache.Add(url, data)
	return data, nil
}

// Len returns the number of cached images.
func (c *CoverFetcher) Len() int {
	return c.cache.Len()
}
