package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/handlers"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/services/crawler"
	"github.com/ternarybob/venator/internal/services/maintenance"
	badgerstore "github.com/ternarybob/venator/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger
	Rules  *common.FilterRules

	// Storage
	DB          *badgerstore.BadgerDB
	JobStorage  interfaces.JobStorage
	PageStorage interfaces.PageStorage

	// Crawler service
	CrawlerService *crawler.Service

	// Background maintenance
	Scheduler *maintenance.Scheduler

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	JobHandler    *handlers.JobHandler
	StatusHandler *handlers.StatusHandler
}

// New creates the application with all services wired
func New(config *common.Config) (*App, error) {
	logger := common.GetLogger()

	rules, err := common.LoadFilterRules(config.Rules.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load filter rules: %w", err)
	}

	db, err := badgerstore.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	jobStorage := badgerstore.NewJobStorage(db, logger)
	pageStorage := badgerstore.NewPageStorage(db, logger)

	crawlerService := crawler.NewService(config, rules, jobStorage, pageStorage, logger)

	scheduler := maintenance.NewScheduler(config, db, jobStorage, logger)
	if err := scheduler.Start(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to start maintenance scheduler: %w", err)
	}

	app := &App{
		Config:         config,
		Logger:         logger,
		Rules:          rules,
		DB:             db,
		JobStorage:     jobStorage,
		PageStorage:    pageStorage,
		CrawlerService: crawlerService,
		Scheduler:      scheduler,
		APIHandler:     handlers.NewAPIHandler(),
		JobHandler:     handlers.NewJobHandler(crawlerService, jobStorage, pageStorage),
		StatusHandler:  handlers.NewStatusHandler(crawlerService),
	}

	logger.Info().
		Str("environment", config.Environment).
		Str("storage", config.Storage.Badger.Path).
		Msg("Application initialized")

	return app, nil
}

// Close shuts down services in reverse dependency order
func (a *App) Close() error {
	a.Scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.CrawlerService.Stop(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Crawler did not stop cleanly")
	}

	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
