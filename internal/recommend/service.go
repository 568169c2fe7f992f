package recommend

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/models"
)

// Stats is what a Recommend run reports to the scheduler.
type Stats struct {
	CardsEvaluated         int `json:"cards_evaluated"`
	RecommendationsWritten int `json:"recommendations_written"`
}

type recommendStore interface {
	SignalsForDate(ctx context.Context, date time.Time) ([]models.Signal, error)
	SnapshotsInWindow(ctx context.Context, from, to time.Time) ([]models.PriceSnapshot, error)
	ReplaceActiveRecommendation(ctx context.Context, rec *models.Recommendation) error
	ExpireRecommendations(ctx context.Context, now time.Time) (int64, error)
}

type Service struct {
	store  recommendStore
	engine *Engine
	logger *zap.Logger
}

func NewService(store recommendStore, engine *Engine, logger *zap.Logger) *Service {
	return &Service{store: store, engine: engine, logger: logger}
}

// Recommend evaluates every card that has signals dated asOf and writes one
// recommendation per card that clears the thresholds. Prior active
// recommendations for the card are superseded; expired ones are swept first.
func (s *Service) Recommend(ctx context.Context, asOf time.Time) (Stats, error) {
	var stats Stats

	if expired, err := s.store.ExpireRecommendations(ctx, asOf); err != nil {
		s.logger.Warn("recommendation expiry sweep failed", zap.Error(err))
	} else if expired > 0 {
		s.logger.Info("expired stale recommendations", zap.Int64("count", expired))
	}

	date := dateOf(asOf)
	sigs, err := s.store.SignalsForDate(ctx, date)
	if err != nil {
		return stats, err
	}
	if len(sigs) == 0 {
		return stats, nil
	}

	byCard := make(map[uint][]models.Signal)
	for _, sig := range sigs {
		byCard[sig.CardID] = append(byCard[sig.CardID], sig)
	}

	snaps, err := s.store.SnapshotsInWindow(ctx, asOf.Add(-30*24*time.Hour), asOf)
	if err != nil {
		return stats, err
	}
	metricsByCard := computeMetrics(snaps, asOf)

	for cardID, cardSigs := range byCard {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.CardsEvaluated++

		metrics, ok := metricsByCard[cardID]
		if !ok {
			metrics = CardMetrics{CardID: cardID}
		}

		draft, emit := s.engine.Evaluate(metrics, cardSigs)
		if !emit {
			continue
		}

		validUntil := asOf.Add(time.Duration(draft.HorizonDays) * 24 * time.Hour)
		rec := &models.Recommendation{
			CardID:             cardID,
			MarketplaceID:      draft.MarketplaceID,
			Action:             draft.Action,
			Confidence:         draft.Confidence,
			HorizonDays:        draft.HorizonDays,
			TargetPrice:        draft.TargetPrice,
			CurrentPrice:       metrics.CurrentPrice,
			PotentialProfitPct: draft.PotentialProfitPct,
			Rationale:          draft.Rationale,
			ValidUntil:         &validUntil,
			IsActive:           true,
		}
		if err := s.store.ReplaceActiveRecommendation(ctx, rec); err != nil {
			s.logger.Error("recommendation write failed",
				zap.Uint("card_id", cardID), zap.Error(err))
			continue
		}
		stats.RecommendationsWritten++
	}

	s.logger.Info("recommendation run complete",
		zap.Int("cards_evaluated", stats.CardsEvaluated),
		zap.Int("recommendations_written", stats.RecommendationsWritten))
	return stats, nil
}

func dateOf(asOf time.Time) time.Time {
	y, m, d := asOf.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type pricePoint struct {
	bucket        time.Time
	marketplaceID uint
	price         float64
}

// computeMetrics derives per-card price metrics from a 30-day snapshot
// window. Foil rows are excluded; spread uses each marketplace's freshest
// price.
func computeMetrics(snaps []models.PriceSnapshot, asOf time.Time) map[uint]CardMetrics {
	points := make(map[uint][]pricePoint)
	for _, snap := range snaps {
		if snap.IsFoil {
			continue
		}
		price, _ := snap.Price.Float64()
		points[snap.CardID] = append(points[snap.CardID], pricePoint{
			bucket:        snap.BucketTime,
			marketplaceID: snap.MarketplaceID,
			price:         price,
		})
	}

	out := make(map[uint]CardMetrics, len(points))
	weekAgo := asOf.Add(-7 * 24 * time.Hour)

	for cardID, pts := range points {
		// Window queries return ascending bucket order; keep it defensive
		// for fakes that don't.
		latestByMarketplace := make(map[uint]pricePoint)
		var latest pricePoint
		var oldest pricePoint
		var weekRef pricePoint
		high := 0.0
		sum := 0.0

		for i, p := range pts {
			sum += p.price
			if p.price > high {
				high = p.price
			}
			if i == 0 || p.bucket.Before(oldest.bucket) {
				oldest = p
			}
			if i == 0 || p.bucket.After(latest.bucket) {
				latest = p
			}
			if !p.bucket.After(weekAgo) && (weekRef.bucket.IsZero() || p.bucket.After(weekRef.bucket)) {
				weekRef = p
			}
			if cur, ok := latestByMarketplace[p.marketplaceID]; !ok || p.bucket.After(cur.bucket) {
				latestByMarketplace[p.marketplaceID] = p
			}
		}

		metrics := CardMetrics{
			CardID:       cardID,
			CurrentPrice: decimal.NewFromFloat(latest.price).Round(2),
			High30d:      decimal.NewFromFloat(high).Round(2),
		}
		if weekRef.price > 0 {
			metrics.Change7dPct = (latest.price - weekRef.price) / weekRef.price * 100
		}
		if oldest.price > 0 {
			metrics.Change30dPct = (latest.price - oldest.price) / oldest.price * 100
		}

		minLatest, maxLatest := 0.0, 0.0
		for _, p := range latestByMarketplace {
			if minLatest == 0 || p.price < minLatest {
				minLatest = p.price
			}
			if p.price > maxLatest {
				maxLatest = p.price
			}
		}
		if minLatest > 0 {
			metrics.SpreadPct = (maxLatest - minLatest) / minLatest * 100
		}

		mean := sum / float64(len(pts))
		if mean > 0 && len(pts) > 1 {
			variance := 0.0
			for _, p := range pts {
				variance += math.Pow(p.price-mean, 2)
			}
			variance /= float64(len(pts))
			metrics.Volatility = math.Sqrt(variance) / mean * 100
		}

		out[cardID] = metrics
	}
	return out
}
