// Package bootstrap assembles the ROP components from configuration. Both
// the HTTP server and ropctl build through it.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/andresuchdata/rop-engine/internal/cache"
	"github.com/andresuchdata/rop-engine/internal/config"
	"github.com/andresuchdata/rop-engine/internal/forecast"
	"github.com/andresuchdata/rop-engine/internal/pipeline"
	"github.com/andresuchdata/rop-engine/internal/pipeline/rop"
	"github.com/andresuchdata/rop-engine/internal/repository/postgres"
	"github.com/andresuchdata/rop-engine/internal/service"
	"github.com/andresuchdata/rop-engine/internal/storage"
	"github.com/rs/zerolog/log"
)

type Components struct {
	ROP          *service.ROPService
	Orchestrator *pipeline.Orchestrator
	Reports      *service.ReportService
	Seed         *postgres.SeedRepository
	Cache        cache.SuggestionCache
}

// Build wires every component against db. Optional integrations (redis,
// forecast service, object storage) degrade to their local variants when
// not configured.
func Build(cfg *config.Config, db *postgres.DB) (*Components, error) {
	if err := cfg.ROP.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rop configuration: %w", err)
	}

	estimator, err := NewEstimator(cfg.Forecast)
	if err != nil {
		return nil, err
	}

	suggestionCache, err := cache.NewSuggestionCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("suggestion cache unavailable, continuing without cache")
		suggestionCache = cache.NewNoopSuggestionCache()
	}

	objects, err := NewObjectStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	inventory := postgres.NewInventoryRepository(db)
	ropRepo := postgres.NewROPRepository(db)
	runRepo := postgres.NewRunRepository(db)

	ropService := service.NewROPService(cfg.ROP, service.Stores{
		ROP:       ropRepo,
		Runs:      runRepo,
		Inventory: inventory,
		History:   inventory,
		Orders:    inventory,
	}, estimator, suggestionCache)

	return &Components{
		ROP:          ropService,
		Orchestrator: pipeline.NewOrchestrator(ropRepo, runRepo, ropService, pipeline.BatchConfigFrom(cfg.ROP)),
		Reports:      service.NewReportService(ropService, cfg.App.ExportDir, objects),
		Seed:         postgres.NewSeedRepository(db),
		Cache:        suggestionCache,
	}, nil
}

// NewEstimator picks the HTTP forecast provider when a URL is configured and
// the linear fallback otherwise.
func NewEstimator(cfg config.ForecastConfig) (*rop.StockoutEstimator, error) {
	if cfg.URL == "" {
		return rop.NewStockoutEstimator(forecast.None{}), nil
	}

	provider, err := forecast.NewHTTPProvider(forecast.HTTPConfig{
		BaseURL: cfg.URL,
		Token:   cfg.Token,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("forecast provider: %w", err)
	}
	log.Info().Str("url", cfg.URL).Msg("using external forecast provider")
	return rop.NewStockoutEstimator(provider), nil
}

// NewObjectStorage returns nil when uploads are not configured.
func NewObjectStorage(cfg config.StorageConfig) (storage.ObjectStorage, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	client, err := storage.NewMinioClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	return client, nil
}
