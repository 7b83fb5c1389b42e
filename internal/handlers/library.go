package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/cardpress/internal/library"
	"github.com/jonesrussell/cardpress/internal/logger"
)

// LibraryService reads the merged item feed.
type LibraryService interface {
	Feed(ctx context.Context, query library.Query) (*library.FeedPage, error)
}

// LibraryHandler serves the paginated library feed.
type LibraryHandler struct {
	service LibraryService
	logger  logger.Logger
}

func NewLibraryHandler(service LibraryService, log logger.Logger) *LibraryHandler {
	return &LibraryHandler{
		service: service,
		logger:  log,
	}
}

// Feed returns one page of the merged feed with optional filters.
func (h *LibraryHandler) Feed(c *gin.Context) {
	query := library.Query{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 0),
		SourceID: c.Query("source_id"),
		Keyword:  c.Query("keyword"),
		Month:    c.Query("month"),
	}
	if raw := c.Query("has_cardnews"); raw != "" {
		hasArtifact := raw == "true" || raw == "1"
		query.HasArtifact = &hasArtifact
	}

	page, err := h.service.Feed(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
