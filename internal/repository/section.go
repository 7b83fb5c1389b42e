package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

// SectionRepository persists generated sections. Replacement is guarded by
// the parent item's version so concurrent editors cannot silently clobber
// each other.
type SectionRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSectionRepository(db *sql.DB, log logger.Logger) *SectionRepository {
	return &SectionRepository{
		db:     db,
		logger: log,
	}
}

// ListByItem returns an item's sections ordered by position.
func (r *SectionRepository) ListByItem(ctx context.Context, itemID string) ([]models.Section, error) {
	query := `
		SELECT id, item_id, position, kind, title, body, style
		FROM sections
		WHERE item_id = $1
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("query sections: %w", err)
	}
	defer rows.Close()

	sections := make([]models.Section, 0)
	for rows.Next() {
		var s models.Section
		if scanErr := rows.Scan(&s.ID, &s.ItemID, &s.Position, &s.Kind, &s.Title, &s.Body, &s.Style); scanErr != nil {
			return nil, fmt.Errorf("scan section: %w", scanErr)
		}
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return sections, nil
}

// Replace swaps an item's section batch in one transaction. The item's
// version must still equal expectedVersion or ErrStaleWrite comes back and
// nothing changes. Returns the item's new version.
func (r *SectionRepository) Replace(
	ctx context.Context,
	itemID string,
	expectedVersion int,
	sections []models.Section,
) (newVersion int, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("failed to rollback transaction", logger.Error(rbErr))
			}
		}
	}()

	err = tx.QueryRowContext(ctx,
		`UPDATE items SET version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2
		 RETURNING version`,
		itemID, expectedVersion,
	).Scan(&newVersion)
	if errors.Is(err, sql.ErrNoRows) {
		err = r.classifyVersionMiss(ctx, tx, itemID)
		return 0, err
	}
	if err != nil {
		err = fmt.Errorf("bump item version: %w", err)
		return 0, err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM sections WHERE item_id = $1`, itemID); err != nil {
		err = fmt.Errorf("delete sections: %w", err)
		return 0, err
	}

	for i := range sections {
		sections[i].ID = uuid.New().String()
		sections[i].ItemID = itemID
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO sections (id, item_id, position, kind, title, body, style)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sections[i].ID,
			sections[i].ItemID,
			sections[i].Position,
			sections[i].Kind,
			sections[i].Title,
			sections[i].Body,
			sections[i].Style,
		); err != nil {
			err = fmt.Errorf("insert section: %w", err)
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit transaction: %w", err)
		return 0, err
	}
	return newVersion, nil
}

// classifyVersionMiss distinguishes a missing item from a stale version.
func (r *SectionRepository) classifyVersionMiss(ctx context.Context, tx *sql.Tx, itemID string) error {
	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM items WHERE id = $1)`, itemID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check item existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("item %s: %w", itemID, models.ErrNotFound)
	}
	return fmt.Errorf("item %s: %w", itemID, models.ErrStaleWrite)
}
