package models

import "time"

// CrawlStatus represents the outcome of a single crawl attempt.
type CrawlStatus string

const (
	// CrawlRunning marks a crawl that has started but not yet finished.
	CrawlRunning CrawlStatus = "running"
	// CrawlSuccess marks a crawl that completed normally.
	CrawlSuccess CrawlStatus = "success"
	// CrawlFailed marks a crawl that ended with an error.
	CrawlFailed CrawlStatus = "failed"
)

// maxLoggedTitles caps the number of discovered titles kept on a crawl log.
const maxLoggedTitles = 10

// CrawlLog records one crawl attempt for a source. A log is opened when the
// crawl starts and finalized exactly once when it ends; finalized logs are
// never mutated again.
type CrawlLog struct {
	ID         string `db:"id"          json:"id"`
	SourceID   string `db:"source_id"   json:"source_id"`
	SourceName string `db:"source_name" json:"source_name"`

	Status          CrawlStatus `db:"status"           json:"status"`
	EntriesFound    int         `db:"entries_found"    json:"entries_found"`
	NewPosts        int         `db:"new_posts"        json:"new_posts"`
	ProjectsCreated int         `db:"projects_created" json:"projects_created"`
	ErrorMessage    *string     `db:"error_message"    json:"error_message,omitempty"`

	StartedAt       time.Time  `db:"started_at"       json:"started_at"`
	CompletedAt     *time.Time `db:"completed_at"     json:"completed_at,omitempty"`
	DurationSeconds *float64   `db:"duration_seconds" json:"duration_seconds,omitempty"`

	PostTitles []string `db:"post_titles" json:"post_titles"`
}

// Finalized reports whether the log has reached a terminal status.
func (l *CrawlLog) Finalized() bool {
	return l.Status == CrawlSuccess || l.Status == CrawlFailed
}

// TruncateTitles limits titles to the logged maximum.
func TruncateTitles(titles []string) []string {
	if len(titles) <= maxLoggedTitles {
		return titles
	}
	return titles[:maxLoggedTitles]
}
