// Package repository implements PostgreSQL persistence for the service.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

const sourceColumns = `id, name, url, feed_url, crawl_interval, status,
	last_crawled_at, next_crawl_at, total_crawls, success_count, error_count,
	total_posts_found, artifacts_created, last_error, deleted_at, created_at, updated_at`

// SourceRepository persists crawl sources.
type SourceRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSourceRepository(db *sql.DB, log logger.Logger) *SourceRepository {
	return &SourceRepository{
		db:     db,
		logger: log,
	}
}

func (r *SourceRepository) Create(ctx context.Context, source *models.Source) error {
	source.ID = uuid.New().String()
	source.CreatedAt = time.Now()
	source.UpdatedAt = source.CreatedAt

	query := `
		INSERT INTO sources (
			id, name, url, feed_url, crawl_interval, status,
			next_crawl_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		source.ID,
		source.Name,
		source.URL,
		source.FeedURL,
		source.CrawlInterval,
		source.Status,
		source.NextCrawlAt,
		source.CreatedAt,
		source.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}

	return nil
}

func (r *SourceRepository) GetByID(ctx context.Context, id string) (*models.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1 AND deleted_at IS NULL`

	source, err := scanSource(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("source %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query source: %w", err)
	}
	return source, nil
}

func (r *SourceRepository) List(ctx context.Context) ([]models.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE deleted_at IS NULL ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	return scanSourceRows(rows)
}

// ListDue returns crawlable sources whose next crawl time has passed or was
// never set.
func (r *SourceRepository) ListDue(ctx context.Context, now time.Time) ([]models.Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE deleted_at IS NULL
		  AND status IN ($1, $2)
		  AND (next_crawl_at IS NULL OR next_crawl_at <= $3)
		ORDER BY next_crawl_at NULLS FIRST
	`

	rows, err := r.db.QueryContext(ctx, query, models.SourceActive, models.SourceError, now)
	if err != nil {
		return nil, fmt.Errorf("query due sources: %w", err)
	}
	defer rows.Close()

	return scanSourceRows(rows)
}

// Update persists all mutable columns of a source.
func (r *SourceRepository) Update(ctx context.Context, source *models.Source) error {
	source.UpdatedAt = time.Now()

	query := `
		UPDATE sources
		SET name = $2, url = $3, feed_url = $4, crawl_interval = $5, status = $6,
		    last_crawled_at = $7, next_crawl_at = $8, total_crawls = $9,
		    success_count = $10, error_count = $11, total_posts_found = $12,
		    artifacts_created = $13, last_error = $14, updated_at = $15
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx,
		query,
		source.ID,
		source.Name,
		source.URL,
		source.FeedURL,
		source.CrawlInterval,
		source.Status,
		source.LastCrawledAt,
		source.NextCrawlAt,
		source.TotalCrawls,
		source.SuccessCount,
		source.ErrorCount,
		source.TotalPostsFound,
		source.ArtifactsCreated,
		source.LastError,
		source.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("source %s: %w", source.ID, models.ErrNotFound)
	}

	return nil
}

// SoftDelete marks a source deleted but keeps the row for items that
// reference it.
func (r *SourceRepository) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE sources SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("soft delete source: %w", err)
	}
	return requireAffected(result, id)
}

// HardDelete removes a source row entirely.
func (r *SourceRepository) HardDelete(ctx context.Context, id string) error {
	query := `DELETE FROM sources WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return requireAffected(result, id)
}

func requireAffected(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("source %s: %w", id, models.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*models.Source, error) {
	var source models.Source
	err := row.Scan(
		&source.ID,
		&source.Name,
		&source.URL,
		&source.FeedURL,
		&source.CrawlInterval,
		&source.Status,
		&source.LastCrawledAt,
		&source.NextCrawlAt,
		&source.TotalCrawls,
		&source.SuccessCount,
		&source.ErrorCount,
		&source.TotalPostsFound,
		&source.ArtifactsCreated,
		&source.LastError,
		&source.DeletedAt,
		&source.CreatedAt,
		&source.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &source, nil
}

func scanSourceRows(rows *sql.Rows) ([]models.Source, error) {
	sources := make([]models.Source, 0)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, *source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return sources, nil
}
