// Package feed fetches and normalizes RSS/Atom feeds.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

const defaultFetchTimeout = 30 * time.Second

// userAgent identifies the crawler to feed servers.
const userAgent = "cardpress-crawler/1.0"

// Entry is one normalized feed entry.
type Entry struct {
	GUID        string
	Title       string
	Link        string
	Summary     string
	Author      string
	PublishedAt *time.Time
}

// Feed is a fetched and parsed feed.
type Feed struct {
	Title   string
	Entries []Entry
}

// Reader fetches a feed by URL.
type Reader interface {
	Fetch(ctx context.Context, feedURL string) (*Feed, error)
}

// HTTPReader fetches feeds over HTTP and parses them with gofeed.
type HTTPReader struct {
	client *http.Client
	parser *gofeed.Parser
	logger logger.Logger
}

// NewHTTPReader creates a reader with the given fetch timeout. A zero
// timeout falls back to the default.
func NewHTTPReader(timeout time.Duration, log logger.Logger) *HTTPReader {
	if timeout == 0 {
		timeout = defaultFetchTimeout
	}
	return &HTTPReader{
		client: &http.Client{Timeout: timeout},
		parser: gofeed.NewParser(),
		logger: log,
	}
}

// Fetch retrieves and parses the feed at feedURL. Transport failures and
// non-2xx responses surface as ErrFeedUnreachable; parse failures as
// ErrFeedUnparseable.
func (r *HTTPReader) Fetch(ctx context.Context, feedURL string) (*Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidFeed, feedURL)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFeedUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status %d", models.ErrFeedUnreachable, resp.StatusCode)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFeedUnparseable, err)
	}

	feed := &Feed{
		Title:   parsed.Title,
		Entries: make([]Entry, 0, len(parsed.Items)),
	}
	for _, item := range parsed.Items {
		feed.Entries = append(feed.Entries, normalizeItem(item))
	}

	r.logger.Debug("fetched feed",
		logger.String("url", feedURL),
		logger.Int("entries", len(feed.Entries)))

	return feed, nil
}

func normalizeItem(item *gofeed.Item) Entry {
	entry := Entry{
		GUID:    item.GUID,
		Title:   strings.TrimSpace(item.Title),
		Link:    strings.TrimSpace(item.Link),
		Summary: strings.TrimSpace(item.Description),
	}
	if entry.Summary == "" && item.Content != "" {
		entry.Summary = strings.TrimSpace(item.Content)
	}
	if item.Author != nil {
		entry.Author = item.Author.Name
	}
	if item.PublishedParsed != nil {
		entry.PublishedAt = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		entry.PublishedAt = item.UpdatedParsed
	}
	return entry
}
