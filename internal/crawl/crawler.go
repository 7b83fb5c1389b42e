// Package crawl runs feed crawls against registered sources and schedules
// them on their configured cadence.
package crawl

import (
	"context"
	"fmt"
	"time"

	"github.com/jonesrussell/cardpress/internal/config"
	"github.com/jonesrussell/cardpress/internal/events"
	"github.com/jonesrussell/cardpress/internal/feed"
	"github.com/jonesrussell/cardpress/internal/inflight"
	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/models"
)

// Clock abstracts time for deterministic scheduler tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// SourceStore is the source persistence surface the crawler needs.
type SourceStore interface {
	GetByID(ctx context.Context, id string) (*models.Source, error)
	ListDue(ctx context.Context, now time.Time) ([]models.Source, error)
	Update(ctx context.Context, source *models.Source) error
}

// LogStore opens and finalizes crawl logs.
type LogStore interface {
	Open(ctx context.Context, sourceID, sourceName string) (*models.CrawlLog, error)
	Finalize(ctx context.Context, log *models.CrawlLog) error
}

// Ingester stores feed entries as deduplicated items.
type Ingester interface {
	IngestEntry(ctx context.Context, source *models.Source, entry feed.Entry) (*models.Item, bool, error)
}

// ArtifactGenerator runs the full generation pipeline for an item. Used for
// optional in-crawl auto-generation.
type ArtifactGenerator interface {
	GenerateArtifact(ctx context.Context, itemID string) error
}

// Crawler executes single crawl cycles. At most one crawl runs per source at
// a time; manual triggers on a busy source are rejected, scheduled ones skip.
type Crawler struct {
	sources   SourceStore
	logs      LogStore
	reader    feed.Reader
	ingester  Ingester
	generator ArtifactGenerator
	publisher *events.Publisher
	guard     *inflight.Guard
	clock     Clock
	cfg       config.CrawlConfig
	logger    logger.Logger
}

func NewCrawler(
	sources SourceStore,
	logs LogStore,
	reader feed.Reader,
	ingester Ingester,
	generator ArtifactGenerator,
	publisher *events.Publisher,
	clock Clock,
	cfg config.CrawlConfig,
	log logger.Logger,
) *Crawler {
	return &Crawler{
		sources:   sources,
		logs:      logs,
		reader:    reader,
		ingester:  ingester,
		generator: generator,
		publisher: publisher,
		guard:     inflight.NewGuard(),
		clock:     clock,
		cfg:       cfg,
		logger:    log,
	}
}

// Trigger runs a crawl for a source on demand. A crawl already in progress
// for the same source is a rejection, not a queue.
func (c *Crawler) Trigger(ctx context.Context, sourceID string) (*models.CrawlLog, error) {
	if !c.guard.TryAcquire(sourceID) {
		return nil, fmt.Errorf("source %s: %w", sourceID, models.ErrAlreadyInProgress)
	}
	defer c.guard.Release(sourceID)

	return c.crawl(ctx, sourceID)
}

// crawlIfFree is the scheduled entry point: a busy source is skipped
// silently and picked up on a later tick.
func (c *Crawler) crawlIfFree(ctx context.Context, sourceID string) {
	if !c.guard.TryAcquire(sourceID) {
		c.logger.Debug("crawl already running, skipping", logger.String("source_id", sourceID))
		return
	}
	defer c.guard.Release(sourceID)

	if _, err := c.crawl(ctx, sourceID); err != nil {
		c.logger.Error("scheduled crawl failed",
			logger.String("source_id", sourceID),
			logger.Error(err))
	}
}

// crawl runs one full cycle: open a log, fetch the feed, ingest entries,
// finalize the log and fold the outcome back into the source's stats and
// schedule. The caller holds the source's guard.
func (c *Crawler) crawl(ctx context.Context, sourceID string) (*models.CrawlLog, error) {
	source, err := c.sources.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	start := c.clock.Now()
	crawlLog, err := c.logs.Open(ctx, source.ID, source.Name)
	if err != nil {
		return nil, err
	}
	firstCrawl := source.LastCrawledAt == nil

	parsed, err := c.reader.Fetch(ctx, source.FeedURL)
	if err != nil {
		c.finalizeFailure(ctx, source, crawlLog, err)
		return crawlLog, nil
	}

	result := c.ingestEntries(ctx, source, parsed.Entries, firstCrawl)

	crawlLog.Status = models.CrawlSuccess
	crawlLog.EntriesFound = len(parsed.Entries)
	crawlLog.NewPosts = result.newPosts
	crawlLog.ProjectsCreated = result.artifacts
	crawlLog.PostTitles = result.titles
	if err := c.logs.Finalize(ctx, crawlLog); err != nil {
		c.logger.Error("failed to finalize crawl log", logger.Error(err))
	}

	c.recordSuccess(ctx, source, start, result)

	c.publisher.PublishAsync(events.Event{
		EventType: events.EventCrawlCompleted,
		SourceID:  source.ID,
		Payload: map[string]any{
			"entries_found":    crawlLog.EntriesFound,
			"new_posts":        crawlLog.NewPosts,
			"projects_created": crawlLog.ProjectsCreated,
		},
	})

	c.logger.Info("crawl completed",
		logger.String("source_id", source.ID),
		logger.Int("entries_found", crawlLog.EntriesFound),
		logger.Int("new_posts", crawlLog.NewPosts))

	return crawlLog, nil
}

type ingestResult struct {
	newPosts  int
	artifacts int
	titles    []string
}

func (c *Crawler) ingestEntries(ctx context.Context, source *models.Source, entries []feed.Entry, firstCrawl bool) ingestResult {
	var result ingestResult

	// A source's very first crawl sees its whole backlog; only the newest
	// few entries are ingested so the library is not flooded.
	if firstCrawl && len(entries) > c.cfg.FirstCrawlNewLimit {
		entries = entries[:c.cfg.FirstCrawlNewLimit]
	}

	for _, entry := range entries {
		item, inserted, err := c.ingester.IngestEntry(ctx, source, entry)
		if err != nil {
			c.logger.Warn("failed to ingest entry",
				logger.String("source_id", source.ID),
				logger.String("link", entry.Link),
				logger.Error(err))
			continue
		}
		if !inserted {
			continue
		}

		result.newPosts++
		result.titles = append(result.titles, item.Title)
		c.publisher.PublishAsync(events.Event{
			EventType: events.EventItemDiscovered,
			SourceID:  source.ID,
			ItemID:    item.ID,
		})

		if c.cfg.AutoGenerate && result.artifacts < c.cfg.MaxAutoGenerate {
			if genErr := c.generator.GenerateArtifact(ctx, item.ID); genErr != nil {
				c.logger.Warn("auto-generation failed",
					logger.String("item_id", item.ID),
					logger.Error(genErr))
				continue
			}
			result.artifacts++
		}
	}

	return result
}

// recordSuccess updates source stats after a successful cycle. The next
// crawl is anchored to the cycle's start so cadence does not drift with
// crawl duration.
func (c *Crawler) recordSuccess(ctx context.Context, source *models.Source, start time.Time, result ingestResult) {
	next := start.Add(source.Interval())
	source.LastCrawledAt = &start
	source.NextCrawlAt = &next
	source.TotalCrawls++
	source.SuccessCount++
	source.TotalPostsFound += result.newPosts
	source.ArtifactsCreated += result.artifacts
	source.LastError = nil
	if source.Status == models.SourceError {
		source.Status = models.SourceActive
	}

	if err := c.sources.Update(ctx, source); err != nil {
		c.logger.Error("failed to update source after crawl", logger.Error(err))
	}
}

func (c *Crawler) finalizeFailure(ctx context.Context, source *models.Source, crawlLog *models.CrawlLog, cause error) {
	msg := cause.Error()
	crawlLog.Status = models.CrawlFailed
	crawlLog.ErrorMessage = &msg
	if err := c.logs.Finalize(ctx, crawlLog); err != nil {
		c.logger.Error("failed to finalize crawl log", logger.Error(err))
	}

	// Error status is retryable: the source stays eligible for the next due
	// cycle or a manual trigger, and a success recovers it. ErrorCount is a
	// lifetime failure tally, never reset.
	next := c.clock.Now().Add(source.Interval())
	source.NextCrawlAt = &next
	source.TotalCrawls++
	source.ErrorCount++
	source.LastError = &msg
	source.Status = models.SourceError

	if err := c.sources.Update(ctx, source); err != nil {
		c.logger.Error("failed to update source after crawl", logger.Error(err))
	}

	c.publisher.PublishAsync(events.Event{
		EventType: events.EventCrawlFailed,
		SourceID:  source.ID,
		Payload:   map[string]any{"error": msg},
	})

	c.logger.Warn("crawl failed",
		logger.String("source_id", source.ID),
		logger.Error(cause))
}
