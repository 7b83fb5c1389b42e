package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/cardpress/internal/feed"
	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
	"github.com/jonesrussell/cardpress/internal/scrape"
)

type fakeItemStore struct {
	seen     map[string]bool
	inserted []*models.Item
	err      error
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{seen: make(map[string]bool)}
}

func (f *fakeItemStore) InsertIfAbsent(_ context.Context, item *models.Item) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	composite := item.DedupScope + "|" + item.DedupKey
	if f.seen[composite] {
		return false, nil
	}
	f.seen[composite] = true
	item.ID = "item-" + composite
	f.inserted = append(f.inserted, item)
	return true, nil
}

type fakeScraper struct {
	page *scrape.Page
	err  error
}

func (f *fakeScraper) FetchPage(context.Context, string) (*scrape.Page, error) {
	return f.page, f.err
}

func TestIngestEntryDedupes(t *testing.T) {
	store := newFakeItemStore()
	svc := NewService(store, &fakeScraper{}, logger.NewNopLogger())
	source := &models.Source{ID: "source-1", Name: "Example Blog"}

	entry := feed.Entry{
		Title:   "Post",
		Link:    "https://www.example.com/posts/1?utm_source=rss",
		Summary: "body",
	}

	_, inserted, err := svc.IngestEntry(context.Background(), source, entry)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same content behind different query params is the same entry.
	entry.Link = "https://example.com/posts/1"
	_, inserted, err = svc.IngestEntry(context.Background(), source, entry)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestIngestEntryScopedPerSource(t *testing.T) {
	store := newFakeItemStore()
	svc := NewService(store, &fakeScraper{}, logger.NewNopLogger())
	entry := feed.Entry{Title: "Post", Link: "https://example.com/posts/1"}

	_, inserted, err := svc.IngestEntry(context.Background(), &models.Source{ID: "a"}, entry)
	require.NoError(t, err)
	assert.True(t, inserted)

	_, inserted, err = svc.IngestEntry(context.Background(), &models.Source{ID: "b"}, entry)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestIngestEntryGUIDFallback(t *testing.T) {
	store := newFakeItemStore()
	svc := NewService(store, &fakeScraper{}, logger.NewNopLogger())
	source := &models.Source{ID: "source-1"}

	item, inserted, err := svc.IngestEntry(context.Background(), source, feed.Entry{
		GUID: "tag:example.com,2026:post-1", Title: "No Link",
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "guid:tag:example.com,2026:post-1", item.DedupKey)

	_, _, err = svc.IngestEntry(context.Background(), source, feed.Entry{Title: "Nothing"})
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

func TestSubmitText(t *testing.T) {
	store := newFakeItemStore()
	svc := NewService(store, &fakeScraper{}, logger.NewNopLogger())

	item, err := svc.SubmitText(context.Background(), models.ItemCreate{
		Origin:  models.OriginManualText,
		Content: "A first line that becomes the title.\nAnd the rest of the body.",
	})
	require.NoError(t, err)
	assert.Equal(t, models.OriginManualText, item.Origin)
	assert.Equal(t, models.ManualScope, item.DedupScope)
	assert.Equal(t, "A first line that becomes the title.", item.Title)

	_, err = svc.SubmitText(context.Background(), models.ItemCreate{
		Origin:  models.OriginManualText,
		Content: "A first line that becomes the title.\nAnd the rest of the body.",
	})
	assert.True(t, errors.Is(err, models.ErrDuplicate))
}

func TestSubmitTextEmpty(t *testing.T) {
	svc := NewService(newFakeItemStore(), &fakeScraper{}, logger.NewNopLogger())
	_, err := svc.SubmitText(context.Background(), models.ItemCreate{Content: "   "})
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

func TestSubmitURL(t *testing.T) {
	store := newFakeItemStore()
	scraper := &fakeScraper{page: &scrape.Page{
		Title: "Scraped Title",
		Text:  "Long enough readable content from the page.",
	}}
	svc := NewService(store, scraper, logger.NewNopLogger())

	item, err := svc.SubmitURL(context.Background(), "https://www.example.com/article/", "")
	require.NoError(t, err)
	assert.Equal(t, models.OriginManualURL, item.Origin)
	assert.Equal(t, "https://example.com/article", item.DedupKey)
	assert.Equal(t, "Scraped Title", item.Title)

	_, err = svc.SubmitURL(context.Background(), "https://example.com/article?ref=x", "")
	assert.True(t, errors.Is(err, models.ErrDuplicate))
}

func TestSubmitURLEmptyPage(t *testing.T) {
	scraper := &fakeScraper{page: &scrape.Page{Title: "Empty", Text: "  "}}
	svc := NewService(newFakeItemStore(), scraper, logger.NewNopLogger())

	_, err := svc.SubmitURL(context.Background(), "https://example.com/empty", "")
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}
