package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

// Ingestor accepts manual content submissions.
type Ingestor interface {
	SubmitText(ctx context.Context, create models.ItemCreate) (*models.Item, error)
	SubmitURL(ctx context.Context, pageURL, model string) (*models.Item, error)
}

// Lifecycle drives items through generation.
type Lifecycle interface {
	Get(ctx context.Context, itemID string) (*models.Item, []models.Section, error)
	Summarize(ctx context.Context, itemID string) (*models.Item, error)
	GenerateSections(ctx context.Context, itemID string, count int) (*models.Item, []models.Section, error)
	ReplaceSections(ctx context.Context, itemID string, expectedVersion int, sections []models.Section) ([]models.Section, int, error)
	Save(ctx context.Context, itemID string) (*models.Item, error)
	Retry(ctx context.Context, itemID string) (*models.Item, error)
	Delete(ctx context.Context, itemID string) error
}

// SnapshotForgetter drops per-item chat state.
type SnapshotForgetter interface {
	Forget(itemID string)
}

// ItemHandler serves item submission and lifecycle operations.
type ItemHandler struct {
	ingestor  Ingestor
	lifecycle Lifecycle
	snapshots SnapshotForgetter
	logger    logger.Logger
}

func NewItemHandler(ingestor Ingestor, lifecycle Lifecycle, snapshots SnapshotForgetter, log logger.Logger) *ItemHandler {
	return &ItemHandler{
		ingestor:  ingestor,
		lifecycle: lifecycle,
		snapshots: snapshots,
		logger:    log,
	}
}

// Submit accepts manual content, either raw text or a URL to scrape.
func (h *ItemHandler) Submit(c *gin.Context) {
	var create models.ItemCreate
	if err := c.ShouldBindJSON(&create); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var item *models.Item
	var err error
	switch create.Origin {
	case models.OriginManualText:
		item, err = h.ingestor.SubmitText(c.Request.Context(), create)
	case models.OriginManualURL:
		item, err = h.ingestor.SubmitURL(c.Request.Context(), create.Content, create.Model)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin must be manual_text or manual_url"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("Item submitted",
		logger.String("item_id", item.ID),
		logger.String("origin", string(item.Origin)))

	c.JSON(http.StatusCreated, item)
}

// Get returns an item with its section batch.
func (h *ItemHandler) Get(c *gin.Context) {
	item, sections, err := h.lifecycle.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "sections": sections})
}

// Summarize runs the summarization step.
func (h *ItemHandler) Summarize(c *gin.Context) {
	item, err := h.lifecycle.Summarize(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type generateRequest struct {
	Count int `json:"count"`
}

// Generate produces the section batch.
func (h *ItemHandler) Generate(c *gin.Context) {
	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
	}

	item, sections, err := h.lifecycle.GenerateSections(c.Request.Context(), c.Param("id"), req.Count)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item, "sections": sections})
}

type replaceSectionsRequest struct {
	Version  int              `json:"version"`
	Sections []models.Section `binding:"required" json:"sections"`
}

// ReplaceSections swaps the section batch wholesale using the version the
// caller last read.
func (h *ItemHandler) ReplaceSections(c *gin.Context) {
	var req replaceSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	sections, version, err := h.lifecycle.ReplaceSections(c.Request.Context(), c.Param("id"), req.Version, req.Sections)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sections": sections, "version": version})
}

// Save marks a generated item completed.
func (h *ItemHandler) Save(c *gin.Context) {
	item, err := h.lifecycle.Save(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Retry moves a failed item back to discovered.
func (h *ItemHandler) Retry(c *gin.Context) {
	item, err := h.lifecycle.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Delete removes an item and its sections, and drops any chat state held
// for it so a later item cannot inherit a stale undo snapshot.
func (h *ItemHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.lifecycle.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	h.snapshots.Forget(id)

	h.logger.Info("Item deleted", logger.String("item_id", id))
	c.JSON(http.StatusNoContent, nil)
}
