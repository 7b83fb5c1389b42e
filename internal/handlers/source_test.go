package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/cardpress/internal/feed"
	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSourceStore struct {
	sources     map[string]*models.Source
	softDeleted []string
	hardDeleted []string
}

func newFakeSourceStore(sources ...*models.Source) *fakeSourceStore {
	store := &fakeSourceStore{sources: make(map[string]*models.Source)}
	for _, s := range sources {
		store.sources[s.ID] = s
	}
	return store
}

func (f *fakeSourceStore) Create(_ context.Context, source *models.Source) error {
	source.ID = "source-new"
	source.CreatedAt = time.Now()
	f.sources[source.ID] = source
	return nil
}

func (f *fakeSourceStore) GetByID(_ context.Context, id string) (*models.Source, error) {
	source, ok := f.sources[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *source
	return &copied, nil
}

func (f *fakeSourceStore) List(context.Context) ([]models.Source, error) {
	out := make([]models.Source, 0, len(f.sources))
	for _, s := range f.sources {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSourceStore) Update(_ context.Context, source *models.Source) error {
	if _, ok := f.sources[source.ID]; !ok {
		return models.ErrNotFound
	}
	copied := *source
	f.sources[source.ID] = &copied
	return nil
}

func (f *fakeSourceStore) SoftDelete(_ context.Context, id string) error {
	f.softDeleted = append(f.softDeleted, id)
	return nil
}

func (f *fakeSourceStore) HardDelete(_ context.Context, id string) error {
	f.hardDeleted = append(f.hardDeleted, id)
	return nil
}

type fakeItemCounter struct{ count int }

func (f *fakeItemCounter) CountBySource(context.Context, string) (int, error) {
	return f.count, nil
}

type fakeCrawlTrigger struct {
	log *models.CrawlLog
	err error
}

func (f *fakeCrawlTrigger) Trigger(context.Context, string) (*models.CrawlLog, error) {
	return f.log, f.err
}

type fakeCrawlLogStore struct{ logs []models.CrawlLog }

func (f *fakeCrawlLogStore) ListBySource(context.Context, string, int) ([]models.CrawlLog, error) {
	return f.logs, nil
}

func (f *fakeCrawlLogStore) ListRecent(context.Context, int) ([]models.CrawlLog, error) {
	return f.logs, nil
}

type fakeFeedReader struct {
	feed *feed.Feed
	err  error
}

func (f *fakeFeedReader) Fetch(context.Context, string) (*feed.Feed, error) {
	return f.feed, f.err
}

func validFeed() *feed.Feed {
	return &feed.Feed{
		Title:   "Blog",
		Entries: []feed.Entry{{Title: "Post", Link: "https://example.com/p1"}},
	}
}

func newSourceRouter(h *SourceHandler) *gin.Engine {
	router := gin.New()
	router.POST("/sources", h.Create)
	router.POST("/sources/validate-feed", h.ValidateFeed)
	router.GET("/sources/:id", h.GetByID)
	router.PUT("/sources/:id", h.Update)
	router.DELETE("/sources/:id", h.Delete)
	router.POST("/sources/:id/crawl", h.Crawl)
	return router
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSourceCreate(t *testing.T) {
	store := newFakeSourceStore()
	handler := NewSourceHandler(store, &fakeItemCounter{}, &fakeCrawlTrigger{}, &fakeCrawlLogStore{},
		&fakeFeedReader{feed: validFeed()}, logger.NewNopLogger())
	router := newSourceRouter(handler)

	w := performJSON(t, router, http.MethodPost, "/sources", gin.H{
		"name":     "Example",
		"feed_url": "https://example.com/feed.xml",
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Source
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.DefaultCrawlInterval, created.CrawlInterval)
	assert.Equal(t, models.SourceActive, created.Status)
	assert.NotNil(t, created.NextCrawlAt)
}

func TestSourceCreateInvalidFeed(t *testing.T) {
	handler := NewSourceHandler(newFakeSourceStore(), &fakeItemCounter{}, &fakeCrawlTrigger{},
		&fakeCrawlLogStore{}, &fakeFeedReader{err: models.ErrFeedUnreachable}, logger.NewNopLogger())
	router := newSourceRouter(handler)

	w := performJSON(t, router, http.MethodPost, "/sources", gin.H{
		"name":     "Dead",
		"feed_url": "https://dead.example.com/feed.xml",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSourceCreateEmptyFeedRejected(t *testing.T) {
	store := newFakeSourceStore()
	// Reachable and parseable, but no title and no entries.
	handler := NewSourceHandler(store, &fakeItemCounter{}, &fakeCrawlTrigger{},
		&fakeCrawlLogStore{}, &fakeFeedReader{feed: &feed.Feed{}}, logger.NewNopLogger())
	router := newSourceRouter(handler)

	w := performJSON(t, router, http.MethodPost, "/sources", gin.H{
		"name":     "Empty",
		"feed_url": "https://example.com/empty.xml",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.sources)
}

func TestSourceValidateFeed(t *testing.T) {
	handler := NewSourceHandler(newFakeSourceStore(), &fakeItemCounter{}, &fakeCrawlTrigger{},
		&fakeCrawlLogStore{}, &fakeFeedReader{feed: validFeed()}, logger.NewNopLogger())
	router := newSourceRouter(handler)

	w := performJSON(t, router, http.MethodPost, "/sources/validate-feed", gin.H{
		"feed_url": "https://example.com/feed.xml",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "Blog", body["feed_title"])
	assert.Equal(t, float64(1), body["entries_found"])
}

func TestSourceValidateFeedUntitled(t *testing.T) {
	untitled := &feed.Feed{Entries: []feed.Entry{{Title: "Post", Link: "https://example.com/p1"}}}
	handler := NewSourceHandler(newFakeSourceStore(), &fakeItemCounter{}, &fakeCrawlTrigger{},
		&fakeCrawlLogStore{}, &fakeFeedReader{feed: untitled}, logger.NewNopLogger())
	router := newSourceRouter(handler)

	w := performJSON(t, router, http.MethodPost, "/sources/validate-feed", gin.H{
		"feed_url": "https://example.com/feed.xml",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSourceCreateMissingFields(t *testing.T) {
	handler := NewSourceHandler(newFakeSourceStore(), &fakeItemCounter{}, &fakeCrawlTrigger{},
		&fakeCrawlLogStore{}, &fakeFeedReader{}, logger.NewNopLogger())
	router := newSourceRouter(handler)

	w := performJSON(t, router, http.MethodPost, "/sources", gin.H{"name": "No feed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSourceGetNotFound(t *testing.T) {
	handler := NewSourceHandler(newFakeSourceStore(), &fakeItemCounter{}, &fakeCrawlTrigger{},
		&fakeCrawlLogStore{}, &fakeFeedReader{}, logger.NewNopLogger())
	router := newSourceRouter(handler)

	w := performJSON(t, router, http.MethodGet, "/sources/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSourceDeleteSoftWhenReferenced(t *testing.T) {
	store := newFakeSourceStore(&models.Source{ID: "s1"})
	handler := NewSourceHandler(store, &fakeItemCounter{count: 3}, &fakeCrawlTrigger{},
		&fakeCrawlLogStore{}, &fakeFeedReader{}, logger.NewNopLogger())
	router := newSourceRouter(handler)

	w := performJSON(t, router, http.MethodDelete, "/sources/s1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"s1"}, store.softDeleted)
	assert.Empty(t, store.hardDeleted)
}

func TestSourceDeleteHardWhenUnreferenced(t *testing.T) {
	store := newFakeSourceStore(&models.Source{ID: "s1"})
	handler := NewSourceHandler(store, &fakeItemCounter{count: 0}, &fakeCrawlTrigger{},
		&fakeCrawlLogStore{}, &fakeFeedReader{}, logger.NewNopLogger())
	router := newSourceRouter(handler)

	w := performJSON(t, router, http.MethodDelete, "/sources/s1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"s1"}, store.hardDeleted)
	assert.Empty(t, store.softDeleted)
}

func TestSourceCrawlBusy(t *testing.T) {
	handler := NewSourceHandler(newFakeSourceStore(), &fakeItemCounter{},
		&fakeCrawlTrigger{err: models.ErrAlreadyInProgress},
		&fakeCrawlLogStore{}, &fakeFeedReader{}, logger.NewNopLogger())
	router := newSourceRouter(handler)

	w := performJSON(t, router, http.MethodPost, "/sources/s1/crawl", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSourceUpdatePatch(t *testing.T) {
	store := newFakeSourceStore(&models.Source{
		ID: "s1", Name: "Old", FeedURL: "https://example.com/feed.xml",
		CrawlInterval: 30, Status: models.SourceActive,
	})
	handler := NewSourceHandler(store, &fakeItemCounter{}, &fakeCrawlTrigger{},
		&fakeCrawlLogStore{}, &fakeFeedReader{feed: validFeed()}, logger.NewNopLogger())
	router := newSourceRouter(handler)

	w := performJSON(t, router, http.MethodPut, "/sources/s1", gin.H{
		"name":           "New Name",
		"crawl_interval": 60,
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "New Name", store.sources["s1"].Name)
	assert.Equal(t, 60, store.sources["s1"].CrawlInterval)
	// Untouched fields survive the patch.
	assert.Equal(t, "https://example.com/feed.xml", store.sources["s1"].FeedURL)
}
