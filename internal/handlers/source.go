package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/cardpress/internal/feed"
	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

const defaultLogLimit = 20

// SourceStore is the source persistence surface the handler needs.
type SourceStore interface {
	Create(ctx context.Context, source *models.Source) error
	GetByID(ctx context.Context, id string) (*models.Source, error)
	List(ctx context.Context) ([]models.Source, error)
	Update(ctx context.Context, source *models.Source) error
	SoftDelete(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
}

// ItemCounter reports how many items reference a source.
type ItemCounter interface {
	CountBySource(ctx context.Context, sourceID string) (int, error)
}

// CrawlTrigger starts an on-demand crawl.
type CrawlTrigger interface {
	Trigger(ctx context.Context, sourceID string) (*models.CrawlLog, error)
}

// CrawlLogStore reads crawl history.
type CrawlLogStore interface {
	ListBySource(ctx context.Context, sourceID string, limit int) ([]models.CrawlLog, error)
	ListRecent(ctx context.Context, limit int) ([]models.CrawlLog, error)
}

// SourceHandler serves source registration, crawl triggers and crawl logs.
type SourceHandler struct {
	sources SourceStore
	items   ItemCounter
	crawler CrawlTrigger
	logs    CrawlLogStore
	reader  feed.Reader
	logger  logger.Logger
}

func NewSourceHandler(
	sources SourceStore,
	items ItemCounter,
	crawler CrawlTrigger,
	logs CrawlLogStore,
	reader feed.Reader,
	log logger.Logger,
) *SourceHandler {
	return &SourceHandler{
		sources: sources,
		items:   items,
		crawler: crawler,
		logs:    logs,
		reader:  reader,
		logger:  log,
	}
}

// Create registers a source. The feed address is fetched once up front so a
// dead or unparseable feed is rejected at registration.
func (h *SourceHandler) Create(c *gin.Context) {
	var create models.SourceCreate
	if err := c.ShouldBindJSON(&create); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if create.CrawlInterval <= 0 {
		create.CrawlInterval = models.DefaultCrawlInterval
	}
	if create.Status == "" {
		create.Status = models.SourceActive
	}
	if !create.Status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	if _, err := h.validateFeed(c.Request.Context(), create.FeedURL); err != nil {
		h.logger.Debug("feed validation failed",
			logger.String("feed_url", create.FeedURL),
			logger.Error(err))
		respondError(c, err)
		return
	}

	now := time.Now()
	source := &models.Source{
		Name:          create.Name,
		URL:           create.URL,
		FeedURL:       create.FeedURL,
		CrawlInterval: create.CrawlInterval,
		Status:        create.Status,
		NextCrawlAt:   &now,
	}
	if err := h.sources.Create(c.Request.Context(), source); err != nil {
		h.logger.Error("Failed to create source",
			logger.String("source_name", source.Name),
			logger.Error(err))
		respondError(c, err)
		return
	}

	h.logger.Info("Source created",
		logger.String("source_id", source.ID),
		logger.String("source_name", source.Name))

	c.JSON(http.StatusCreated, source)
}

func (h *SourceHandler) List(c *gin.Context) {
	sources, err := h.sources.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list sources", logger.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"count":   len(sources),
	})
}

func (h *SourceHandler) GetByID(c *gin.Context) {
	source, err := h.sources.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, source)
}

// Update applies a partial update. A changed feed address is re-validated.
func (h *SourceHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var patch models.SourcePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	source, err := h.sources.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if patch.Name != nil {
		source.Name = *patch.Name
	}
	if patch.URL != nil {
		source.URL = *patch.URL
	}
	if patch.CrawlInterval != nil {
		if *patch.CrawlInterval <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "crawl_interval must be positive"})
			return
		}
		source.CrawlInterval = *patch.CrawlInterval
	}
	if patch.Status != nil {
		if !patch.Status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		source.Status = *patch.Status
	}
	if patch.FeedURL != nil && *patch.FeedURL != source.FeedURL {
		if _, err := h.validateFeed(c.Request.Context(), *patch.FeedURL); err != nil {
			respondError(c, err)
			return
		}
		source.FeedURL = *patch.FeedURL
	}

	if err := h.sources.Update(c.Request.Context(), source); err != nil {
		h.logger.Error("Failed to update source",
			logger.String("source_id", id),
			logger.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, source)
}

// Delete removes a source. Sources still referenced by items are
// soft-deleted so their items keep a resolvable origin; unreferenced ones
// are removed outright.
func (h *SourceHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	count, err := h.items.CountBySource(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if count > 0 {
		err = h.sources.SoftDelete(c.Request.Context(), id)
	} else {
		err = h.sources.HardDelete(c.Request.Context(), id)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Source deleted",
		logger.String("source_id", id),
		logger.Bool("soft", count > 0))

	c.JSON(http.StatusNoContent, nil)
}

// Crawl triggers an on-demand crawl and returns its log.
func (h *SourceHandler) Crawl(c *gin.Context) {
	id := c.Param("id")

	crawlLog, err := h.crawler.Trigger(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, crawlLog)
}

// Logs lists recent crawl logs for one source.
func (h *SourceHandler) Logs(c *gin.Context) {
	limit := queryInt(c, "limit", defaultLogLimit)

	logs, err := h.logs.ListBySource(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}

// RecentLogs lists recent crawl logs across all sources.
func (h *SourceHandler) RecentLogs(c *gin.Context) {
	limit := queryInt(c, "limit", defaultLogLimit)

	logs, err := h.logs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}

// ValidateFeed checks a feed address without registering anything.
func (h *SourceHandler) ValidateFeed(c *gin.Context) {
	var body struct {
		FeedURL string `binding:"required" json:"feed_url"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	parsed, err := h.validateFeed(c.Request.Context(), body.FeedURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":         true,
		"feed_title":    parsed.Title,
		"entries_found": len(parsed.Entries),
	})
}

// validateFeed fetches the feed once and requires a title and at least one
// parseable entry, so a reachable but empty or untitled feed is rejected
// like a malformed one.
func (h *SourceHandler) validateFeed(ctx context.Context, feedURL string) (*feed.Feed, error) {
	parsed, err := h.reader.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	if parsed.Title == "" || len(parsed.Entries) == 0 {
		return nil, fmt.Errorf("feed %s has no title or entries: %w", feedURL, models.ErrInvalidFeed)
	}
	return parsed, nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
