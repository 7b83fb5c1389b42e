package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonesrussell/cardpress/internal/feed"
	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
	"github.com/jonesrussell/cardpress/internal/scrape"
)

// ItemStore is the persistence surface ingestion needs.
type ItemStore interface {
	InsertIfAbsent(ctx context.Context, item *models.Item) (bool, error)
}

// Service deduplicates and persists incoming content.
type Service struct {
	items   ItemStore
	scraper scrape.Scraper
	logger  logger.Logger
}

func NewService(items ItemStore, scraper scrape.Scraper, log logger.Logger) *Service {
	return &Service{
		items:   items,
		scraper: scraper,
		logger:  log,
	}
}

// IngestEntry stores one feed entry for a source. Returns the item and
// whether it was new; known entries come back with inserted=false and no
// error.
func (s *Service) IngestEntry(ctx context.Context, source *models.Source, entry feed.Entry) (*models.Item, bool, error) {
	key, err := entryKey(entry)
	if err != nil {
		return nil, false, err
	}

	item := &models.Item{
		Origin:      models.OriginFeed,
		SourceID:    &source.ID,
		SourceName:  &source.Name,
		DedupScope:  source.ID,
		DedupKey:    key,
		Title:       entry.Title,
		URL:         entry.Link,
		Content:     entry.Summary,
		PublishedAt: entry.PublishedAt,
	}

	inserted, err := s.items.InsertIfAbsent(ctx, item)
	if err != nil {
		return nil, false, fmt.Errorf("ingest entry: %w", err)
	}
	return item, inserted, nil
}

// SubmitText stores a manual raw-text submission. Identical text submitted
// twice is rejected as a duplicate.
func (s *Service) SubmitText(ctx context.Context, create models.ItemCreate) (*models.Item, error) {
	if strings.TrimSpace(create.Content) == "" {
		return nil, fmt.Errorf("%w: empty content", models.ErrInvalidInput)
	}

	item := &models.Item{
		Origin:     models.OriginManualText,
		DedupScope: models.ManualScope,
		DedupKey:   TextKey(create.Content),
		Title:      create.Title,
		Content:    create.Content,
		Model:      create.Model,
	}
	if item.Title == "" {
		item.Title = firstLine(create.Content)
	}

	inserted, err := s.items.InsertIfAbsent(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("submit text: %w", err)
	}
	if !inserted {
		return nil, fmt.Errorf("submission: %w", models.ErrDuplicate)
	}

	s.logger.Info("manual text submitted", logger.String("item_id", item.ID))
	return item, nil
}

// SubmitURL fetches a page and stores its readable content as a manual item.
func (s *Service) SubmitURL(ctx context.Context, pageURL, model string) (*models.Item, error) {
	key, err := CanonicalKey(pageURL)
	if err != nil {
		return nil, err
	}

	page, err := s.scraper.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(page.Text) == "" {
		return nil, fmt.Errorf("%w: page has no readable content", models.ErrInvalidInput)
	}

	item := &models.Item{
		Origin:      models.OriginManualURL,
		DedupScope:  models.ManualScope,
		DedupKey:    key,
		Title:       page.Title,
		URL:         pageURL,
		Content:     page.Text,
		Model:       model,
		PublishedAt: page.PublishedAt,
	}
	if item.Title == "" {
		item.Title = pageURL
	}

	inserted, err := s.items.InsertIfAbsent(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("submit url: %w", err)
	}
	if !inserted {
		return nil, fmt.Errorf("submission %s: %w", pageURL, models.ErrDuplicate)
	}

	s.logger.Info("manual url submitted",
		logger.String("item_id", item.ID),
		logger.String("url", pageURL))
	return item, nil
}

// entryKey canonicalizes an entry's link, falling back to its GUID for feeds
// that publish no usable link.
func entryKey(entry feed.Entry) (string, error) {
	if entry.Link != "" {
		if key, err := CanonicalKey(entry.Link); err == nil {
			return key, nil
		}
	}
	if entry.GUID != "" {
		return "guid:" + entry.GUID, nil
	}
	return "", fmt.Errorf("%w: entry has neither link nor guid", models.ErrInvalidInput)
}

const maxDerivedTitle = 80

func firstLine(content string) string {
	line := strings.TrimSpace(content)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	runes := []rune(line)
	if len(runes) > maxDerivedTitle {
		line = string(runes[:maxDerivedTitle])
	}
	return line
}
