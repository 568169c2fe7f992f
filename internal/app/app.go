// Package app wires the pipeline together: database, redis, adapters,
// breakers and the three entry-point services. All binaries build their
// dependency graph through here.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/breaker"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/cache"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/config"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/database"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/ingest"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/marketplace"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/rates"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/recommend"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/signals"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/store"
)

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *gorm.DB
	Store     *store.Store
	Breakers  *breaker.Registry
	Adapters  *marketplace.Registry
	Ingest    *ingest.Service
	Signals   *signals.Service
	Recommend *recommend.Service
}

// New builds the full pipeline. mode selects the upsert behavior for
// scheduled ingestion runs.
func New(cfg *config.Config, logger *zap.Logger, mode ingest.UpsertMode) (*App, error) {
	db, err := database.Initialize(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	st := store.New(db)

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	snapCache := cache.NewSnapshotCache(rdb, logger)

	breakers := breaker.NewRegistry(breaker.DefaultSettings(), logger)
	fx := rates.NewProvider(cfg.FXRatesBaseURL, breakers, logger)

	adapters := marketplace.NewRegistry(
		marketplace.NewScryfallAdapter(marketplace.Config{
			BaseURL:           cfg.ScryfallBaseURL,
			RateLimitInterval: 100 * time.Millisecond,
			MaxRetries:        2,
			Timeout:           15 * time.Second,
		}, logger),
		marketplace.NewTCGPlayerAdapter(marketplace.Config{
			BaseURL:           cfg.TCGPlayerBaseURL,
			APIKey:            cfg.TCGPlayerAPIKey,
			RateLimitInterval: 500 * time.Millisecond,
			MaxRetries:        2,
			Timeout:           15 * time.Second,
		}, logger),
		marketplace.NewCardKingdomAdapter(marketplace.Config{
			BaseURL:           cfg.CardKingdomBaseURL,
			RateLimitInterval: time.Second,
			MaxRetries:        2,
			Timeout:           20 * time.Second,
		}, logger),
	)

	engine := ingest.NewBulkUpsertEngine(st, cfg.UpsertBatchSize, logger)
	ingestSvc := ingest.NewService(st, snapCache, adapters, breakers, engine, cfg.CacheTTL, mode, logger)

	signalSvc := signals.NewService(logger,
		signals.NewArbitrageGenerator(st, fx, logger),
		signals.NewSupplyGenerator(st, logger),
		signals.NewMetaGenerator(st, logger),
	)

	recEngine := recommend.NewEngine(recommend.Thresholds{
		MinROI:        cfg.MinROI,
		MinConfidence: cfg.MinConfidence,
	})
	recommendSvc := recommend.NewService(st, recEngine, logger)

	a := &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Store:     st,
		Breakers:  breakers,
		Adapters:  adapters,
		Ingest:    ingestSvc,
		Signals:   signalSvc,
		Recommend: recommendSvc,
	}
	if err := a.seedMarketplaces(context.Background()); err != nil {
		return nil, fmt.Errorf("marketplace seed failed: %w", err)
	}
	return a, nil
}

// seedMarketplaces makes sure a row exists for every registered adapter so a
// fresh database can ingest immediately.
func (a *App) seedMarketplaces(ctx context.Context) error {
	names := map[string]string{
		marketplace.ScryfallCode:    "Scryfall",
		marketplace.TCGPlayerCode:   "TCGplayer",
		marketplace.CardKingdomCode: "Card Kingdom",
	}
	for _, adapter := range a.Adapters.All() {
		name := names[adapter.Code()]
		if name == "" {
			name = adapter.Code()
		}
		if err := a.Store.EnsureMarketplace(ctx, adapter.Code(), name); err != nil {
			return err
		}
	}
	return nil
}
