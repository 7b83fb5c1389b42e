package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

// CrawlLogRepository persists crawl attempt records.
type CrawlLogRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewCrawlLogRepository(db *sql.DB, log logger.Logger) *CrawlLogRepository {
	return &CrawlLogRepository{
		db:     db,
		logger: log,
	}
}

// Open creates a running log for a crawl that just started.
func (r *CrawlLogRepository) Open(ctx context.Context, sourceID, sourceName string) (*models.CrawlLog, error) {
	log := &models.CrawlLog{
		ID:         uuid.New().String(),
		SourceID:   sourceID,
		SourceName: sourceName,
		Status:     models.CrawlRunning,
		StartedAt:  time.Now(),
		PostTitles: []string{},
	}

	query := `
		INSERT INTO crawl_logs (id, source_id, source_name, status, started_at, post_titles)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	titlesJSON, err := json.Marshal(log.PostTitles)
	if err != nil {
		return nil, fmt.Errorf("marshal post titles: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		query,
		log.ID,
		log.SourceID,
		log.SourceName,
		log.Status,
		log.StartedAt,
		titlesJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("insert crawl log: %w", err)
	}

	return log, nil
}

// Finalize moves a running log to its terminal status. Finalizing twice is
// rejected by the running-status predicate.
func (r *CrawlLogRepository) Finalize(ctx context.Context, log *models.CrawlLog) error {
	now := time.Now()
	duration := now.Sub(log.StartedAt).Seconds()
	log.CompletedAt = &now
	log.DurationSeconds = &duration
	log.PostTitles = models.TruncateTitles(log.PostTitles)

	titlesJSON, err := json.Marshal(log.PostTitles)
	if err != nil {
		return fmt.Errorf("marshal post titles: %w", err)
	}

	query := `
		UPDATE crawl_logs
		SET status = $2, entries_found = $3, new_posts = $4, projects_created = $5,
		    error_message = $6, completed_at = $7, duration_seconds = $8, post_titles = $9
		WHERE id = $1 AND status = $10
	`

	result, err := r.db.ExecContext(ctx,
		query,
		log.ID,
		log.Status,
		log.EntriesFound,
		log.NewPosts,
		log.ProjectsCreated,
		log.ErrorMessage,
		log.CompletedAt,
		log.DurationSeconds,
		titlesJSON,
		models.CrawlRunning,
	)
	if err != nil {
		return fmt.Errorf("finalize crawl log: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("crawl log %s not running: %w", log.ID, models.ErrNotFound)
	}

	return nil
}

const crawlLogColumns = `id, source_id, source_name, status, entries_found,
	new_posts, projects_created, error_message, started_at, completed_at,
	duration_seconds, post_titles`

func (r *CrawlLogRepository) GetByID(ctx context.Context, id string) (*models.CrawlLog, error) {
	query := `SELECT ` + crawlLogColumns + ` FROM crawl_logs WHERE id = $1`

	log, err := scanCrawlLog(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("crawl log %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query crawl log: %w", err)
	}
	return log, nil
}

// ListBySource returns the most recent logs for a source, newest first.
func (r *CrawlLogRepository) ListBySource(ctx context.Context, sourceID string, limit int) ([]models.CrawlLog, error) {
	query := `
		SELECT ` + crawlLogColumns + `
		FROM crawl_logs
		WHERE source_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query crawl logs: %w", err)
	}
	defer rows.Close()

	return scanCrawlLogRows(rows)
}

// ListRecent returns the most recent logs across all sources, newest first.
func (r *CrawlLogRepository) ListRecent(ctx context.Context, limit int) ([]models.CrawlLog, error) {
	query := `
		SELECT ` + crawlLogColumns + `
		FROM crawl_logs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query crawl logs: %w", err)
	}
	defer rows.Close()

	return scanCrawlLogRows(rows)
}

func scanCrawlLog(row rowScanner) (*models.CrawlLog, error) {
	var log models.CrawlLog
	var titlesJSON []byte
	err := row.Scan(
		&log.ID,
		&log.SourceID,
		&log.SourceName,
		&log.Status,
		&log.EntriesFound,
		&log.NewPosts,
		&log.ProjectsCreated,
		&log.ErrorMessage,
		&log.StartedAt,
		&log.CompletedAt,
		&log.DurationSeconds,
		&titlesJSON,
	)
	if err != nil {
		return nil, err
	}
	if unmarshalErr := json.Unmarshal(titlesJSON, &log.PostTitles); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal post titles: %w", unmarshalErr)
	}
	return &log, nil
}

func scanCrawlLogRows(rows *sql.Rows) ([]models.CrawlLog, error) {
	logs := make([]models.CrawlLog, 0)
	for rows.Next() {
		log, err := scanCrawlLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan crawl log: %w", err)
		}
		logs = append(logs, *log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate crawl logs: %w", err)
	}
	return logs, nil
}
