// Package models contains the core data model for the cardpress orchestrator.
package models

import (
	"time"
)

// SourceStatus represents the activation state of a crawl source.
type SourceStatus string

const (
	// SourceActive sources are eligible for scheduled crawling.
	SourceActive SourceStatus = "active"
	// SourceInactive sources are registered but not crawled.
	SourceInactive SourceStatus = "inactive"
	// SourceError sources failed their last crawl. They remain eligible for
	// manual or scheduled retry.
	SourceError SourceStatus = "error"
)

// validSourceStatuses maps every recognised SourceStatus value to true for O(1) lookup.
var validSourceStatuses = map[SourceStatus]bool{
	SourceActive:   true,
	SourceInactive: true,
	SourceError:    true,
}

// IsValid reports whether s is a recognised source status.
func (s SourceStatus) IsValid() bool {
	return validSourceStatuses[s]
}

// Source represents a registered feed endpoint subject to periodic crawling.
type Source struct {
	ID            string       `db:"id"             json:"id"`
	Name          string       `db:"name"           json:"name"`
	URL           string       `db:"url"            json:"url"`
	FeedURL       string       `db:"feed_url"       json:"feed_url"`
	CrawlInterval int          `db:"crawl_interval" json:"crawl_interval"` // minutes
	Status        SourceStatus `db:"status"         json:"status"`

	LastCrawledAt    *time.Time `db:"last_crawled_at"   json:"last_crawled_at,omitempty"`
	NextCrawlAt      *time.Time `db:"next_crawl_at"     json:"next_crawl_at,omitempty"`
	TotalCrawls      int        `db:"total_crawls"      json:"total_crawls"`
	SuccessCount     int        `db:"success_count"     json:"success_count"`
	ErrorCount       int        `db:"error_count"       json:"error_count"`
	TotalPostsFound  int        `db:"total_posts_found" json:"total_posts_found"`
	ArtifactsCreated int        `db:"artifacts_created" json:"artifacts_created"`
	LastError        *string    `db:"last_error"        json:"last_error,omitempty"`

	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// DefaultCrawlInterval is applied when a registration omits the interval (minutes).
const DefaultCrawlInterval = 30

// SourceCreate is the payload for registering a new source.
type SourceCreate struct {
	Name          string       `binding:"required" json:"name"`
	URL           string       `json:"url"`
	FeedURL       string       `binding:"required" json:"feed_url"`
	CrawlInterval int          `json:"crawl_interval"`
	Status        SourceStatus `json:"status"`
}

// SourcePatch is a partial update for an existing source. Nil fields are
// left untouched.
type SourcePatch struct {
	Name          *string       `json:"name,omitempty"`
	URL           *string       `json:"url,omitempty"`
	FeedURL       *string       `json:"feed_url,omitempty"`
	CrawlInterval *int          `json:"crawl_interval,omitempty"`
	Status        *SourceStatus `json:"status,omitempty"`
}

// Interval returns the crawl interval as a duration.
func (s *Source) Interval() time.Duration {
	return time.Duration(s.CrawlInterval) * time.Minute
}

// Crawlable reports whether the source should be considered by the scheduler.
// Sources in error state stay crawlable so the next due cycle can retry them.
func (s *Source) Crawlable() bool {
	return s.DeletedAt == nil && (s.Status == SourceActive || s.Status == SourceError)
}

// Due reports whether a crawl is due at the given instant.
func (s *Source) Due(now time.Time) bool {
	if !s.Crawlable() {
		return false
	}
	return s.NextCrawlAt == nil || !s.NextCrawlAt.After(now)
}
