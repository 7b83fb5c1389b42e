package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/jonesrussell/cardpress/internal/logger"
)

// Scheduler evaluates due sources on a fixed tick and launches their crawls.
type Scheduler struct {
	crawler  *Crawler
	sources  SourceStore
	clock    Clock
	interval time.Duration
	logger   logger.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewScheduler(crawler *Crawler, sources SourceStore, clock Clock, interval time.Duration, log logger.Logger) *Scheduler {
	return &Scheduler{
		crawler:  crawler,
		sources:  sources,
		clock:    clock,
		interval: interval,
		logger:   log,
		stop:     make(chan struct{}),
	}
}

// Start runs the tick loop until Stop is called or ctx is cancelled. One
// evaluation runs immediately so a restart does not wait a full tick.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.logger.Info("crawl scheduler started",
			logger.Duration("tick_interval", s.interval))

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.tick(ctx)
		for {
			select {
			case <-ticker.C:
				s.tick(ctx)
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop and waits for in-flight crawls launched by it.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
	s.logger.Info("crawl scheduler stopped")
}

// tick launches a crawl for every due source. Each source crawls in its own
// goroutine; the per-source guard keeps overlapping ticks from doubling up.
func (s *Scheduler) tick(ctx context.Context) {
	due, err := s.sources.ListDue(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("failed to list due sources", logger.Error(err))
		return
	}
	if len(due) == 0 {
		return
	}

	s.logger.Debug("due sources found", logger.Int("count", len(due)))

	for _, source := range due {
		s.wg.Add(1)
		go func(id string) {
			defer s.wg.Done()
			s.crawler.crawlIfFree(ctx, id)
		}(source.ID)
	}
}
