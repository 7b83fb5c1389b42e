// Package library serves the merged, filterable feed of all items.
package library

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
	"github.com/jonesrussell/cardpress/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// newItemWindow marks items discovered within this window as new.
	newItemWindow = 24 * time.Hour
)

// ItemStore is the item listing surface the library needs.
type ItemStore interface {
	List(ctx context.Context, filter repository.ItemFilter) ([]models.Item, error)
	Count(ctx context.Context, filter repository.ItemFilter) (int, error)
}

// Query selects and pages the library feed.
type Query struct {
	Page        int
	PageSize    int
	SourceID    string
	Keyword     string
	Month       string // YYYY-MM
	HasArtifact *bool
}

// FeedItem is one library entry with its derived display flags.
type FeedItem struct {
	models.Item
	IsNew       bool `json:"is_new"`
	HasCardnews bool `json:"has_cardnews"`
}

// FeedPage is one page of the merged feed.
type FeedPage struct {
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Items    []FeedItem `json:"items"`
}

// Service reads the merged item feed.
type Service struct {
	items  ItemStore
	now    func() time.Time
	logger logger.Logger
}

func NewService(items ItemStore, log logger.Logger) *Service {
	return &Service{
		items:  items,
		now:    time.Now,
		logger: log,
	}
}

// Feed returns one page of items matching the query, newest first.
func (s *Service) Feed(ctx context.Context, query Query) (*FeedPage, error) {
	query = normalize(query)
	if query.Month != "" {
		if _, err := time.Parse("2006-01", query.Month); err != nil {
			return nil, fmt.Errorf("%w: month must be YYYY-MM", models.ErrInvalidInput)
		}
	}

	filter := repository.ItemFilter{
		SourceID:    query.SourceID,
		Keyword:     query.Keyword,
		Month:       query.Month,
		HasArtifact: query.HasArtifact,
		Limit:       query.PageSize,
		Offset:      (query.Page - 1) * query.PageSize,
	}

	total, err := s.items.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items, err := s.items.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-newItemWindow)
	feedItems := make([]FeedItem, 0, len(items))
	for _, item := range items {
		feedItems = append(feedItems, FeedItem{
			Item:        item,
			IsNew:       item.CreatedAt.After(cutoff),
			HasCardnews: item.HasArtifact(),
		})
	}

	return &FeedPage{
		Total:    total,
		Page:     query.Page,
		PageSize: query.PageSize,
		Items:    feedItems,
	}, nil
}

func normalize(query Query) Query {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = defaultPageSize
	}
	if query.PageSize > maxPageSize {
		query.PageSize = maxPageSize
	}
	return query
}
