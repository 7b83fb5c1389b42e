package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// ItemStatus represents the lifecycle state of a content item.
type ItemStatus string

const (
	// ItemDiscovered items hold raw content but no generated output yet.
	ItemDiscovered ItemStatus = "discovered"
	// ItemSummarized items carry a summary, keywords and a recommended
	// section count.
	ItemSummarized ItemStatus = "summarized"
	// ItemGenerated items have a section batch and are editable via chat.
	ItemGenerated ItemStatus = "generated"
	// ItemCompleted items were explicitly saved by the user.
	ItemCompleted ItemStatus = "completed"
	// ItemFailed items hit an unrecoverable generation error and need an
	// explicit retry.
	ItemFailed ItemStatus = "failed"
)

// itemTransitions is the closed transition table for the item lifecycle.
// Status only moves forward along discovered→summarized→generated→completed,
// or to failed, with failed→discovered allowed via explicit retry.
var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemDiscovered: {ItemSummarized, ItemFailed},
	ItemSummarized: {ItemGenerated, ItemFailed},
	ItemGenerated:  {ItemCompleted},
	ItemCompleted:  {},
	ItemFailed:     {ItemDiscovered},
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	for _, allowed := range itemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValid reports whether s is a recognised item status.
func (s ItemStatus) IsValid() bool {
	_, ok := itemTransitions[s]
	return ok
}

// Editable reports whether chat mutation is permitted for this status.
// Mutation never changes the status itself.
func (s ItemStatus) Editable() bool {
	return s == ItemGenerated || s == ItemCompleted
}

// ItemOrigin describes how an item entered the system.
type ItemOrigin string

const (
	// OriginManualText items were submitted as raw text.
	OriginManualText ItemOrigin = "manual_text"
	// OriginManualURL items were submitted as one or more links.
	OriginManualURL ItemOrigin = "manual_url"
	// OriginFeed items were discovered by a source crawl.
	OriginFeed ItemOrigin = "feed"
)

// ManualScope is the dedup scope shared by all manually submitted items.
// Feed items are scoped to their source ID instead.
const ManualScope = "manual"

// Item is a unit of content tracked through the generation lifecycle.
type Item struct {
	ID         string     `db:"id"          json:"id"`
	Origin     ItemOrigin `db:"origin"      json:"origin"`
	SourceID   *string    `db:"source_id"   json:"source_id,omitempty"`
	SourceName *string    `db:"source_name" json:"source_name,omitempty"`

	// DedupScope plus DedupKey uniquely identify an item: the scope is the
	// parent source ID for feed items and ManualScope for manual ones.
	DedupScope string `db:"dedup_scope" json:"-"`
	DedupKey   string `db:"dedup_key"   json:"dedup_key"`

	Title   string `db:"title"   json:"title"`
	URL     string `db:"url"     json:"url,omitempty"`
	Content string `db:"content" json:"content"`

	Summary          string      `db:"summary"           json:"summary,omitempty"`
	Keywords         StringArray `db:"keywords"          json:"keywords"`
	RecommendedCount int         `db:"recommended_count" json:"recommended_count,omitempty"`
	Model            string      `db:"model"             json:"model"`

	Status    ItemStatus `db:"status"     json:"status"`
	Version   int        `db:"version"    json:"version"`
	LastError *string    `db:"last_error" json:"last_error,omitempty"`

	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"   json:"updated_at"`
}

// HasArtifact reports whether a generation artifact exists for the item,
// i.e. its status moved beyond discovered.
func (i *Item) HasArtifact() bool {
	return i.Status != ItemDiscovered && i.Status != ItemFailed
}

// ItemCreate is the payload for manual content submission.
type ItemCreate struct {
	Origin  ItemOrigin `binding:"required" json:"origin"`
	Content string     `binding:"required" json:"content"`
	Title   string     `json:"title"`
	Model   string     `json:"model"`
}

// StringArray stores a list of strings as a JSONB column.
type StringArray []string

// ErrUnsupportedScan is returned when a database value cannot be decoded
// into a StringArray.
var ErrUnsupportedScan = errors.New("unsupported scan type for StringArray")

// Value implements driver.Valuer for database storage.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner for database retrieval.
func (a *StringArray) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return ErrUnsupportedScan
	}
	return json.Unmarshal(bytes, a)
}
