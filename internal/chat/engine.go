// Package chat applies conversational edit instructions to an item's
// section batch, with a single level of undo per item.
package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonesrussell/cardpress/internal/generation"
	"github.com/jonesrussell/cardpress/internal/inflight"
	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

// maxHistoryTurns bounds how many prior messages go into each chat prompt.
const maxHistoryTurns = 10

// ItemStore is the item persistence surface the engine needs.
type ItemStore interface {
	GetByID(ctx context.Context, id string) (*models.Item, error)
}

// SectionStore persists section batches.
type SectionStore interface {
	ListByItem(ctx context.Context, itemID string) ([]models.Section, error)
	Replace(ctx context.Context, itemID string, expectedVersion int, sections []models.Section) (int, error)
}

// Response is the outcome of one chat instruction.
type Response struct {
	Reply       string           `json:"ai_response"`
	ActionTaken string           `json:"action_taken"`
	Sections    []models.Section `json:"updated_sections,omitempty"`
	Changed     bool             `json:"changed"`
}

// Engine runs chat mutations. Snapshots and history live in memory: one
// pre-turn snapshot per item (overwritten on every turn, consumed by undo)
// and a short rolling conversation history.
type Engine struct {
	items     ItemStore
	sections  SectionStore
	generator generation.Generator
	guard     *inflight.Guard
	logger    logger.Logger

	mu        sync.Mutex
	snapshots map[string][]models.Section
	histories map[string][]generation.ChatTurn
}

func NewEngine(items ItemStore, sections SectionStore, generator generation.Generator, log logger.Logger) *Engine {
	return &Engine{
		items:     items,
		sections:  sections,
		generator: generator,
		guard:     inflight.NewGuard(),
		logger:    log,
		snapshots: make(map[string][]models.Section),
		histories: make(map[string][]generation.ChatTurn),
	}
}

// Apply runs one instruction against an item's sections. A second request
// for the same item while one is running is rejected, not queued.
func (e *Engine) Apply(ctx context.Context, itemID, message string) (*Response, error) {
	if !e.guard.TryAcquire(itemID) {
		return nil, fmt.Errorf("item %s: %w", itemID, models.ErrAlreadyInProgress)
	}
	defer e.guard.Release(itemID)

	item, err := e.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.Status.Editable() {
		return nil, fmt.Errorf("%w: item in status %s is not editable", models.ErrInvalidInput, item.Status)
	}

	current, err := e.sections.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	// Snapshot before every turn, not just mutating ones. A reply-only turn
	// must leave the last accepted edit as the undo target, so its snapshot
	// is the current batch itself.
	e.storeSnapshot(itemID, current)

	result, err := e.generator.Chat(ctx, generation.ChatRequest{
		Instruction: message,
		Sections:    current,
		History:     e.history(itemID),
	})
	if err != nil {
		return nil, err
	}

	response := &Response{
		Reply:       result.Reply,
		ActionTaken: result.ActionTaken,
	}

	if len(result.Sections) > 0 {
		updated := draftsToSections(itemID, result.Sections, current)
		if _, err := e.sections.Replace(ctx, itemID, item.Version, updated); err != nil {
			return nil, err
		}
		response.Sections = updated
		response.Changed = true

		e.logger.Info("chat edit applied",
			logger.String("item_id", itemID),
			logger.String("action", result.ActionTaken))
	}

	e.appendHistory(itemID, message, result.Reply)
	return response, nil
}

// Undo restores the batch captured before the last mutating edit. The
// snapshot is consumed: a second consecutive undo has nothing to restore.
func (e *Engine) Undo(ctx context.Context, itemID string) ([]models.Section, error) {
	if !e.guard.TryAcquire(itemID) {
		return nil, fmt.Errorf("item %s: %w", itemID, models.ErrAlreadyInProgress)
	}
	defer e.guard.Release(itemID)

	e.mu.Lock()
	snapshot, ok := e.snapshots[itemID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("item %s: %w", itemID, models.ErrNothingToUndo)
	}

	item, err := e.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	restored := models.CloneSections(snapshot)
	if _, err := e.sections.Replace(ctx, itemID, item.Version, restored); err != nil {
		return nil, err
	}

	e.mu.Lock()
	delete(e.snapshots, itemID)
	e.mu.Unlock()

	e.logger.Info("chat edit undone", logger.String("item_id", itemID))
	return restored, nil
}

// Forget drops snapshot and history for an item, e.g. after deletion.
func (e *Engine) Forget(itemID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.snapshots, itemID)
	delete(e.histories, itemID)
}

func (e *Engine) storeSnapshot(itemID string, sections []models.Section) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshots[itemID] = models.CloneSections(sections)
}

func (e *Engine) history(itemID string) []generation.ChatTurn {
	e.mu.Lock()
	defer e.mu.Unlock()
	history := e.histories[itemID]
	out := make([]generation.ChatTurn, len(history))
	copy(out, history)
	return out
}

func (e *Engine) appendHistory(itemID, message, reply string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	history := append(e.histories[itemID],
		generation.ChatTurn{Role: "user", Content: message},
		generation.ChatTurn{Role: "assistant", Content: reply},
	)
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	e.histories[itemID] = history
}

// draftsToSections converts chat output to persistable sections, reusing
// the style of the section previously at each position so edits do not
// reset user-visible styling.
func draftsToSections(itemID string, drafts []generation.SectionDraft, previous []models.Section) []models.Section {
	sections := make([]models.Section, 0, len(drafts))
	for i, draft := range drafts {
		style := models.DefaultStyle(draft.Kind)
		if i < len(previous) && previous[i].Kind == draft.Kind {
			style = previous[i].Style
		}
		sections = append(sections, models.Section{
			ItemID:   itemID,
			Position: i,
			Kind:     draft.Kind,
			Title:    draft.Title,
			Body:     draft.Body,
			Style:    style,
		})
	}
	return sections
}
