// Package lifecycle drives items through summarization, section generation,
// saving and retry.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/jonesrussell/cardpress/internal/events"
	"github.com/jonesrussell/cardpress/internal/generation"
	"github.com/jonesrussell/cardpress/internal/inflight"
	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

// ItemStore is the item persistence surface the lifecycle needs.
type ItemStore interface {
	GetByID(ctx context.Context, id string) (*models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id string) error
}

// SectionStore persists section batches.
type SectionStore interface {
	ListByItem(ctx context.Context, itemID string) ([]models.Section, error)
	Replace(ctx context.Context, itemID string, expectedVersion int, sections []models.Section) (int, error)
}

// Service owns item status transitions. Only one lifecycle operation runs
// per item at a time.
type Service struct {
	items     ItemStore
	sections  SectionStore
	generator generation.Generator
	publisher *events.Publisher
	guard     *inflight.Guard
	logger    logger.Logger
}

func NewService(
	items ItemStore,
	sections SectionStore,
	generator generation.Generator,
	publisher *events.Publisher,
	log logger.Logger,
) *Service {
	return &Service{
		items:     items,
		sections:  sections,
		generator: generator,
		publisher: publisher,
		guard:     inflight.NewGuard(),
		logger:    log,
	}
}

// Get returns an item with its current section batch.
func (s *Service) Get(ctx context.Context, itemID string) (*models.Item, []models.Section, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	sections, err := s.sections.ListByItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	return item, sections, nil
}

// Summarize runs the summarization step for a discovered item.
func (s *Service) Summarize(ctx context.Context, itemID string) (*models.Item, error) {
	if !s.guard.TryAcquire(itemID) {
		return nil, fmt.Errorf("item %s: %w", itemID, models.ErrAlreadyInProgress)
	}
	defer s.guard.Release(itemID)

	return s.summarizeLocked(ctx, itemID)
}

func (s *Service) summarizeLocked(ctx context.Context, itemID string) (*models.Item, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.Status.CanTransitionTo(models.ItemSummarized) {
		return nil, fmt.Errorf("%w: cannot summarize item in status %s", models.ErrInvalidInput, item.Status)
	}

	result, err := s.generator.Summarize(ctx, item.Title, item.Content)
	if err != nil {
		s.recordFailure(ctx, item, err)
		return nil, err
	}

	item.Summary = result.Summary
	item.Keywords = result.Keywords
	item.RecommendedCount = result.RecommendedCount
	item.Model = result.Model
	item.Status = models.ItemSummarized
	item.LastError = nil
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	s.publisher.PublishAsync(events.Event{
		EventType: events.EventItemSummarized,
		ItemID:    item.ID,
	})

	s.logger.Info("item summarized",
		logger.String("item_id", item.ID),
		logger.Int("recommended_count", item.RecommendedCount))

	return item, nil
}

// GenerateSections produces the section batch for a summarized item. A
// non-positive count falls back to the recommended count from
// summarization.
func (s *Service) GenerateSections(ctx context.Context, itemID string, count int) (*models.Item, []models.Section, error) {
	if !s.guard.TryAcquire(itemID) {
		return nil, nil, fmt.Errorf("item %s: %w", itemID, models.ErrAlreadyInProgress)
	}
	defer s.guard.Release(itemID)

	return s.generateSectionsLocked(ctx, itemID, count)
}

func (s *Service) generateSectionsLocked(ctx context.Context, itemID string, count int) (*models.Item, []models.Section, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if !item.Status.CanTransitionTo(models.ItemGenerated) {
		return nil, nil, fmt.Errorf("%w: cannot generate sections for item in status %s", models.ErrInvalidInput, item.Status)
	}
	if count <= 0 {
		count = item.RecommendedCount
	}

	drafts, err := s.generator.GenerateSections(ctx, item.Title, item.Summary, count)
	if err != nil {
		s.recordFailure(ctx, item, err)
		return nil, nil, err
	}

	sections := DraftsToSections(item.ID, drafts)
	newVersion, err := s.sections.Replace(ctx, item.ID, item.Version, sections)
	if err != nil {
		return nil, nil, err
	}
	item.Version = newVersion
	item.Status = models.ItemGenerated
	item.LastError = nil
	if err := s.items.Update(ctx, item); err != nil {
		return nil, nil, err
	}

	s.publisher.PublishAsync(events.Event{
		EventType: events.EventItemGenerated,
		ItemID:    item.ID,
		Payload:   map[string]any{"sections": len(sections)},
	})

	s.logger.Info("sections generated",
		logger.String("item_id", item.ID),
		logger.Int("count", len(sections)))

	return item, sections, nil
}

// GenerateArtifact runs summarize and section generation back to back. Used
// for auto-generation during crawls.
func (s *Service) GenerateArtifact(ctx context.Context, itemID string) error {
	if !s.guard.TryAcquire(itemID) {
		return fmt.Errorf("item %s: %w", itemID, models.ErrAlreadyInProgress)
	}
	defer s.guard.Release(itemID)

	if _, err := s.summarizeLocked(ctx, itemID); err != nil {
		return err
	}
	_, _, err := s.generateSectionsLocked(ctx, itemID, 0)
	return err
}

// ReplaceSections swaps an item's section batch directly, using the version
// the caller read. A stale version surfaces as ErrStaleWrite so the caller
// re-fetches instead of silently overwriting. Permitted only while the item
// is editable; status is not changed.
func (s *Service) ReplaceSections(ctx context.Context, itemID string, expectedVersion int, sections []models.Section) ([]models.Section, int, error) {
	if !s.guard.TryAcquire(itemID) {
		return nil, 0, fmt.Errorf("item %s: %w", itemID, models.ErrAlreadyInProgress)
	}
	defer s.guard.Release(itemID)

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, 0, err
	}
	if !item.Status.Editable() {
		return nil, 0, fmt.Errorf("%w: item in status %s is not editable", models.ErrInvalidInput, item.Status)
	}

	for i := range sections {
		sections[i].ItemID = itemID
		sections[i].Position = i
		if !sections[i].Kind.IsValid() {
			return nil, 0, fmt.Errorf("%w: unknown section kind %q", models.ErrInvalidInput, sections[i].Kind)
		}
		if sections[i].Style == (models.SectionStyle{}) {
			sections[i].Style = models.DefaultStyle(sections[i].Kind)
		}
	}

	newVersion, err := s.sections.Replace(ctx, itemID, expectedVersion, sections)
	if err != nil {
		return nil, 0, err
	}

	s.logger.Info("sections replaced",
		logger.String("item_id", itemID),
		logger.Int("count", len(sections)),
		logger.Int("version", newVersion))

	return sections, newVersion, nil
}

// Save marks a generated item completed. Saving an already completed item
// is a no-op so repeated saves never bump the version.
func (s *Service) Save(ctx context.Context, itemID string) (*models.Item, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == models.ItemCompleted {
		return item, nil
	}
	if !item.Status.CanTransitionTo(models.ItemCompleted) {
		return nil, fmt.Errorf("%w: cannot save item in status %s", models.ErrInvalidInput, item.Status)
	}

	item.Status = models.ItemCompleted
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	s.publisher.PublishAsync(events.Event{
		EventType: events.EventItemCompleted,
		ItemID:    item.ID,
	})

	return item, nil
}

// Retry moves a failed item back to discovered so generation can run again.
func (s *Service) Retry(ctx context.Context, itemID string) (*models.Item, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.Status.CanTransitionTo(models.ItemDiscovered) {
		return nil, fmt.Errorf("%w: cannot retry item in status %s", models.ErrInvalidInput, item.Status)
	}

	item.Status = models.ItemDiscovered
	item.LastError = nil
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes an item and its sections.
func (s *Service) Delete(ctx context.Context, itemID string) error {
	return s.items.Delete(ctx, itemID)
}

// recordFailure stores a collaborator error on the item without touching
// its status: a failed summarize leaves the item discovered, a failed
// generate leaves it summarized, so the same request can simply be retried.
// The update error, if any, is logged and swallowed so the original failure
// stays the caller's error.
func (s *Service) recordFailure(ctx context.Context, item *models.Item, cause error) {
	msg := cause.Error()
	item.LastError = &msg
	if err := s.items.Update(ctx, item); err != nil {
		s.logger.Error("failed to record generation error",
			logger.String("item_id", item.ID),
			logger.Error(err))
	}

	s.publisher.PublishAsync(events.Event{
		EventType: events.EventItemFailed,
		ItemID:    item.ID,
		Payload:   map[string]any{"error": msg},
	})
}

// DraftsToSections assigns positions and default styles to generated drafts.
func DraftsToSections(itemID string, drafts []generation.SectionDraft) []models.Section {
	sections := make([]models.Section, 0, len(drafts))
	for i, draft := range drafts {
		sections = append(sections, models.Section{
			ItemID:   itemID,
			Position: i,
			Kind:     draft.Kind,
			Title:    draft.Title,
			Body:     draft.Body,
			Style:    models.DefaultStyle(draft.Kind),
		})
	}
	return sections
}
