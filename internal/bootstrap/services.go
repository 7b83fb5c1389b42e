package bootstrap

import (
	"github.com/jonesrussell/cardpress/internal/api"
	"github.com/jonesrussell/cardpress/internal/chat"
	"github.com/jonesrussell/cardpress/internal/config"
	"github.com/jonesrussell/cardpress/internal/crawl"
	"github.com/jonesrussell/cardpress/internal/database"
	"github.com/jonesrussell/cardpress/internal/events"
	"github.com/jonesrussell/cardpress/internal/feed"
	"github.com/jonesrussell/cardpress/internal/generation"
	"github.com/jonesrussell/cardpress/internal/handlers"
	"github.com/jonesrussell/cardpress/internal/ingest"
	"github.com/jonesrussell/cardpress/internal/library"
	"github.com/jonesrussell/cardpress/internal/lifecycle"
	"github.com/jonesrussell/cardpress/internal/logger"
	"github.com/jonesrussell/cardpress/internal/repository"
	"github.com/jonesrussell/cardpress/internal/scrape"
)

// Application holds the assembled service graph.
type Application struct {
	Handlers  api.Handlers
	Scheduler *crawl.Scheduler
}

// BuildApplication wires repositories, services and handlers together.
func BuildApplication(cfg *config.Config, db *database.Database, publisher *events.Publisher, log logger.Logger) *Application {
	sourceRepo := repository.NewSourceRepository(db.DB(), log)
	itemRepo := repository.NewItemRepository(db.DB(), log)
	sectionRepo := repository.NewSectionRepository(db.DB(), log)
	logRepo := repository.NewCrawlLogRepository(db.DB(), log)

	reader := feed.NewHTTPReader(cfg.Crawl.FetchTimeout, log)
	scraper := scrape.NewHTTPScraper(cfg.Crawl.FetchTimeout, log)
	generator := generation.NewAnthropicGenerator(&cfg.Generation, log)

	ingestSvc := ingest.NewService(itemRepo, scraper, log)
	lifecycleSvc := lifecycle.NewService(itemRepo, sectionRepo, generator, publisher, log)
	chatEngine := chat.NewEngine(itemRepo, sectionRepo, generator, log)
	librarySvc := library.NewService(itemRepo, log)

	clock := crawl.SystemClock{}
	crawler := crawl.NewCrawler(
		sourceRepo, logRepo, reader, ingestSvc, lifecycleSvc,
		publisher, clock, cfg.Crawl, log,
	)
	scheduler := crawl.NewScheduler(crawler, sourceRepo, clock, cfg.Crawl.TickInterval, log)

	return &Application{
		Handlers: api.Handlers{
			Sources: handlers.NewSourceHandler(sourceRepo, itemRepo, crawler, logRepo, reader, log),
			Items:   handlers.NewItemHandler(ingestSvc, lifecycleSvc, chatEngine, log),
			Chat:    handlers.NewChatHandler(chatEngine, log),
			Library: handlers.NewLibraryHandler(librarySvc, log),
		},
		Scheduler: scheduler,
	}
}
