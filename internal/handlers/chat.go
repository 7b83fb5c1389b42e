package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/cardpress/internal/chat"
	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

// ChatEngine applies conversational edits to an item's sections.
type ChatEngine interface {
	Apply(ctx context.Context, itemID, message string) (*chat.Response, error)
	Undo(ctx context.Context, itemID string) ([]models.Section, error)
}

// ChatHandler serves chat mutations and undo.
type ChatHandler struct {
	engine ChatEngine
	logger logger.Logger
}

func NewChatHandler(engine ChatEngine, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		engine: engine,
		logger: log,
	}
}

type chatRequest struct {
	Message string `binding:"required" json:"message"`
}

// Apply runs one chat instruction against an item.
func (h *ChatHandler) Apply(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	response, err := h.engine.Apply(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Undo restores the section batch from before the last chat edit.
func (h *ChatHandler) Undo(c *gin.Context) {
	sections, err := h.engine.Undo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sections": sections})
}
