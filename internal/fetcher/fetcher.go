// Package fetcher handles feed downloading and parsing into candidate items.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	maxFeedBytes    = 5 * 1024 * 1024
	maxSummaryRunes = 500
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RawItem is a single feed entry before filtering and ranking.
type RawItem struct {
	Title       string
	URL         string
	Summary     string
	Source      string
	PublishedAt time.Time
}

// Fetcher downloads and parses syndication feeds.
type Fetcher struct {
	client HTTPClient
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads a feed and returns up to limit entries.
// Entries older than maxAge (measured against their published time) are
// dropped; entries without a published time are kept and stamped later by
// the caller.
func (f *Fetcher) Fetch(ctx context.Context, url string, limit int, maxAge time.Duration) ([]RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "itnews-collector/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	source := feed.Title
	if source == "" {
		source = url
	}

	cutoff := time.Now().Add(-maxAge)
	items := make([]RawItem, 0, limit)
	for _, entry := range feed.Items {
		if len(items) >= limit {
			break
		}
		if entry.Link == "" {
			continue
		}
		var published time.Time
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
			if maxAge > 0 && published.Before(cutoff) {
				continue
			}
		}
		summary := entry.Description
		if runes := []rune(summary); len(runes) > maxSummaryRunes {
			summary = string(runes[:maxSummaryRunes])
		}
		items = append(items, RawItem{
			Title:       entry.Title,
			URL:         entry.Link,
			Summary:     summary,
			Source:      source,
			PublishedAt: published,
		})
	}

	return items, nil
}
