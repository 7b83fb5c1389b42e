package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

const itemColumns = `id, origin, source_id, source_name, dedup_scope, dedup_key,
	title, url, content, summary, keywords, recommended_count, model,
	status, version, last_error, published_at, created_at, updated_at`

// ItemRepository persists content items.
type ItemRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewItemRepository(db *sql.DB, log logger.Logger) *ItemRepository {
	return &ItemRepository{
		db:     db,
		logger: log,
	}
}

// InsertIfAbsent inserts the item unless another row already claims its
// dedup scope and key. Returns true when the row was inserted. The conflict
// check and the insert are a single statement so concurrent ingesters cannot
// both win.
func (r *ItemRepository) InsertIfAbsent(ctx context.Context, item *models.Item) (bool, error) {
	item.ID = uuid.New().String()
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	if item.Status == "" {
		item.Status = models.ItemDiscovered
	}

	query := `
		INSERT INTO items (
			id, origin, source_id, source_name, dedup_scope, dedup_key,
			title, url, content, summary, keywords, recommended_count, model,
			status, version, last_error, published_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (dedup_scope, dedup_key) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx,
		query,
		item.ID,
		item.Origin,
		item.SourceID,
		item.SourceName,
		item.DedupScope,
		item.DedupKey,
		item.Title,
		item.URL,
		item.Content,
		item.Summary,
		item.Keywords,
		item.RecommendedCount,
		item.Model,
		item.Status,
		item.Version,
		item.LastError,
		item.PublishedAt,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

func (r *ItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

// Update persists all mutable columns of an item.
func (r *ItemRepository) Update(ctx context.Context, item *models.Item) error {
	item.UpdatedAt = time.Now()

	query := `
		UPDATE items
		SET title = $2, content = $3, summary = $4, keywords = $5,
		    recommended_count = $6, model = $7, status = $8, last_error = $9,
		    updated_at = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx,
		query,
		item.ID,
		item.Title,
		item.Content,
		item.Summary,
		item.Keywords,
		item.RecommendedCount,
		item.Model,
		item.Status,
		item.LastError,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("item %s: %w", item.ID, models.ErrNotFound)
	}

	return nil
}

// Delete removes an item; its sections go with it via cascade.
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("item %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// CountBySource counts items that reference a source.
func (r *ItemRepository) CountBySource(ctx context.Context, sourceID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE source_id = $1`, sourceID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items by source: %w", err)
	}
	return count, nil
}

// ItemFilter holds pagination and filter params for listing items.
type ItemFilter struct {
	SourceID    string
	Keyword     string // ILIKE on title, summary or keywords
	Month       string // YYYY-MM on published_at falling back to created_at
	HasArtifact *bool
	Limit       int
	Offset      int
}

// Count returns the number of items matching the filter.
func (r *ItemRepository) Count(ctx context.Context, filter ItemFilter) (int, error) {
	whereClause, args := buildItemWhere(filter)
	query := `SELECT COUNT(*) FROM items WHERE 1=1` + whereClause

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// List returns items matching the filter, newest first by effective
// publication time.
func (r *ItemRepository) List(ctx context.Context, filter ItemFilter) ([]models.Item, error) {
	whereClause, args := buildItemWhere(filter)
	limitPos := len(args) + 1
	offsetPos := len(args) + 2

	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE 1=1` + whereClause + `
		ORDER BY COALESCE(published_at, created_at) DESC
		LIMIT $` + fmt.Sprint(limitPos) + ` OFFSET $` + fmt.Sprint(offsetPos)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	return scanItemRows(rows)
}

// artifactStatuses are the statuses for which a generation artifact exists.
var artifactStatuses = []models.ItemStatus{
	models.ItemSummarized, models.ItemGenerated, models.ItemCompleted,
}

func buildItemWhere(filter ItemFilter) (whereClause string, args []any) {
	var clauses []string
	args = make([]any, 0)
	pos := 1

	if filter.SourceID != "" {
		clauses = append(clauses, fmt.Sprintf("source_id = $%d", pos))
		args = append(args, filter.SourceID)
		pos++
	}
	if filter.Keyword != "" {
		clauses = append(clauses,
			fmt.Sprintf("(title ILIKE $%d OR summary ILIKE $%d OR keywords::text ILIKE $%d)", pos, pos, pos))
		args = append(args, "%"+filter.Keyword+"%")
		pos++
	}
	if filter.Month != "" {
		clauses = append(clauses,
			fmt.Sprintf("to_char(COALESCE(published_at, created_at), 'YYYY-MM') = $%d", pos))
		args = append(args, filter.Month)
		pos++
	}
	if filter.HasArtifact != nil {
		placeholders := make([]string, 0, len(artifactStatuses))
		for _, status := range artifactStatuses {
			placeholders = append(placeholders, fmt.Sprintf("$%d", pos))
			args = append(args, status)
			pos++
		}
		op := "IN"
		if !*filter.HasArtifact {
			op = "NOT IN"
		}
		clauses = append(clauses, fmt.Sprintf("status %s (%s)", op, strings.Join(placeholders, ", ")))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	err := row.Scan(
		&item.ID,
		&item.Origin,
		&item.SourceID,
		&item.SourceName,
		&item.DedupScope,
		&item.DedupKey,
		&item.Title,
		&item.URL,
		&item.Content,
		&item.Summary,
		&item.Keywords,
		&item.RecommendedCount,
		&item.Model,
		&item.Status,
		&item.Version,
		&item.LastError,
		&item.PublishedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func scanItemRows(rows *sql.Rows) ([]models.Item, error) {
	items := make([]models.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}
