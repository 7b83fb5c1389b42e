package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/cardpress/internal/library"
	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

type fakeLibrary struct {
	page      *library.FeedPage
	err       error
	lastQuery library.Query
}

func (f *fakeLibrary) Feed(_ context.Context, query library.Query) (*library.FeedPage, error) {
	f.lastQuery = query
	return f.page, f.err
}

func TestLibraryFeed(t *testing.T) {
	svc := &fakeLibrary{page: &library.FeedPage{
		Total: 1, Page: 1, PageSize: 20,
		Items: []library.FeedItem{{IsNew: true, HasCardnews: false}},
	}}
	router := gin.New()
	router.GET("/library", NewLibraryHandler(svc, logger.NewNopLogger()).Feed)

	w := performJSON(t, router, http.MethodGet,
		"/library?page=2&page_size=10&source_id=s1&keyword=go&month=2026-05&has_cardnews=true", nil)

	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 2, svc.lastQuery.Page)
	assert.Equal(t, 10, svc.lastQuery.PageSize)
	assert.Equal(t, "s1", svc.lastQuery.SourceID)
	assert.Equal(t, "go", svc.lastQuery.Keyword)
	assert.Equal(t, "2026-05", svc.lastQuery.Month)
	require.NotNil(t, svc.lastQuery.HasArtifact)
	assert.True(t, *svc.lastQuery.HasArtifact)

	var page library.FeedPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
}

func TestLibraryFeedBadMonth(t *testing.T) {
	svc := &fakeLibrary{err: models.ErrInvalidInput}
	router := gin.New()
	router.GET("/library", NewLibraryHandler(svc, logger.NewNopLogger()).Feed)

	w := performJSON(t, router, http.MethodGet, "/library?month=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
