// Package ingest implements the fetch-and-persist half of the pipeline: it
// walks (card, marketplace) pairs, skips recently refreshed ones via the
// snapshot cache, fetches the rest through circuit-breaker-wrapped adapters
// and bulk-upserts the results.
package ingest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/breaker"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/marketplace"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/models"
)

// Stats is what a run reports back to the scheduler. Adapter and cache
// failures are absorbed into Errors; only store failures in all-or-nothing
// mode surface as a run-level error.
type Stats struct {
	Processed int `json:"processed"`
	Fetched   int `json:"fetched"`
	Errors    int `json:"errors"`
}

type catalogStore interface {
	ActiveCards(ctx context.Context, ids []uint) ([]models.Card, error)
	ActiveMarketplaces(ctx context.Context) ([]models.Marketplace, error)
}

type dedupCache interface {
	GetRecentlyUpdated(ctx context.Context, marketplaceID uint, cardIDs []uint) map[uint]struct{}
	MarkUpdated(ctx context.Context, marketplaceID uint, cardIDs []uint, ttl time.Duration)
}

type Service struct {
	store    catalogStore
	cache    dedupCache
	adapters *marketplace.Registry
	breakers *breaker.Registry
	engine   *BulkUpsertEngine
	cacheTTL time.Duration
	mode     UpsertMode
	logger   *zap.Logger
}

func NewService(
	store catalogStore,
	cache dedupCache,
	adapters *marketplace.Registry,
	breakers *breaker.Registry,
	engine *BulkUpsertEngine,
	cacheTTL time.Duration,
	mode UpsertMode,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:    store,
		cache:    cache,
		adapters: adapters,
		breakers: breakers,
		engine:   engine,
		cacheTTL: cacheTTL,
		mode:     mode,
		logger:   logger,
	}
}

// Ingest refreshes prices for the given cards (all active cards when empty)
// across every active marketplace with a registered adapter.
func (s *Service) Ingest(ctx context.Context, cardIDs []uint) (Stats, error) {
	var stats Stats

	cards, err := s.store.ActiveCards(ctx, cardIDs)
	if err != nil {
		return stats, err
	}
	marketplaces, err := s.store.ActiveMarketplaces(ctx)
	if err != nil {
		return stats, err
	}

	allIDs := make([]uint, len(cards))
	cardByID := make(map[uint]models.Card, len(cards))
	for i, c := range cards {
		allIDs[i] = c.ID
		cardByID[c.ID] = c
	}

	for _, mp := range marketplaces {
		adapter, aerr := s.adapters.Get(mp.Code)
		if aerr != nil {
			s.logger.Debug("no adapter for marketplace, skipping", zap.String("code", mp.Code))
			continue
		}

		mpStats, merr := s.ingestMarketplace(ctx, mp, adapter, allIDs, cardByID)
		stats.Processed += mpStats.Processed
		stats.Fetched += mpStats.Fetched
		stats.Errors += mpStats.Errors
		if merr != nil {
			return stats, merr
		}
	}

	s.logger.Info("ingestion run complete",
		zap.Int("processed", stats.Processed),
		zap.Int("fetched", stats.Fetched),
		zap.Int("errors", stats.Errors))
	return stats, nil
}

func (s *Service) ingestMarketplace(
	ctx context.Context,
	mp models.Marketplace,
	adapter marketplace.Adapter,
	cardIDs []uint,
	cardByID map[uint]models.Card,
) (Stats, error) {
	var stats Stats

	recent := s.cache.GetRecentlyUpdated(ctx, mp.ID, cardIDs)

	var records []models.PriceSnapshot
	var fetchedIDs []uint

	for _, id := range cardIDs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if _, skip := recent[id]; skip {
			continue
		}
		card := cardByID[id]
		stats.Processed++

		res, err := breaker.Do(s.breakers, adapter.Code(), func() (marketplace.FetchResult, error) {
			return adapter.FetchPrice(ctx, marketplace.CardRef{
				Name:            card.Name,
				SetCode:         card.SetCode,
				CollectorNumber: card.CollectorNumber,
				CanonicalID:     card.ScryfallID,
			})
		})
		if errors.Is(err, breaker.ErrCircuitOpen) {
			// Source unhealthy, skip the rest of it for this run. The next
			// scheduled run retries after the recovery timeout.
			s.logger.Warn("circuit open, skipping marketplace",
				zap.String("marketplace", mp.Code))
			stats.Errors++
			break
		}
		if err != nil {
			stats.Errors++
			s.logger.Warn("price fetch failed",
				zap.String("marketplace", mp.Code),
				zap.Uint("card_id", id),
				zap.Error(err))
			continue
		}
		if !res.Found {
			s.logger.Debug("card not listed on marketplace",
				zap.String("marketplace", mp.Code),
				zap.Uint("card_id", id))
			continue
		}

		snap, ok := s.toSnapshot(mp, card, res.Observation)
		if !ok {
			stats.Errors++
			continue
		}
		records = append(records, snap)
		fetchedIDs = append(fetchedIDs, id)
		stats.Fetched++
	}

	upsertStats, err := s.engine.Run(ctx, records, s.mode)
	stats.Errors += upsertStats.Errors
	if err != nil {
		return stats, err
	}

	// Only suppress refetching for pairs that actually landed in the store.
	if upsertStats.Errors == 0 {
		s.cache.MarkUpdated(ctx, mp.ID, fetchedIDs, s.cacheTTL)
	}
	return stats, nil
}

// toSnapshot validates one observation and shapes it into a snapshot row.
// Malformed observations are dropped individually; the batch proceeds.
func (s *Service) toSnapshot(mp models.Marketplace, card models.Card, obs *marketplace.PriceObservation) (models.PriceSnapshot, bool) {
	if obs == nil || !obs.Price.IsPositive() {
		s.logger.Warn("dropping malformed observation",
			zap.String("marketplace", mp.Code),
			zap.Uint("card_id", card.ID))
		return models.PriceSnapshot{}, false
	}

	condition := obs.Condition
	if !models.ValidCondition(condition) {
		condition = marketplace.NormalizeCondition(condition)
	}
	language := obs.Language
	if !models.ValidLanguage(language) {
		language = marketplace.NormalizeLanguage(language)
	}
	currency := obs.Currency
	if len(currency) != 3 {
		currency = mp.BaseCurrency
	}

	snap := models.PriceSnapshot{
		BucketTime:    models.SnapshotBucket(obs.ObservedAt),
		CardID:        card.ID,
		MarketplaceID: mp.ID,
		Condition:     condition,
		IsFoil:        obs.IsFoil,
		Language:      language,
		Price:         obs.Price.Round(2),
		Currency:      currency,
		NumListings:   obs.NumListings,
		TotalQuantity: obs.TotalQuantity,
		Source:        mp.Code,
	}
	snap.PriceLow = toNullDecimal(obs.PriceLow)
	snap.PriceMid = toNullDecimal(obs.PriceMid)
	snap.PriceHigh = toNullDecimal(obs.PriceHigh)
	snap.PriceMarket = toNullDecimal(obs.PriceMarket)
	return snap, true
}
