package signals

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/models"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/store"
)

const (
	supplyLowMaxListings   = 5    // strict: fires only below this
	supplyLowMinAvgPrice   = 5.0  // ignore cheap cards with thin supply
	supplyVelocityMinMove  = 0.30 // relative change vs baseline, either direction
	supplyBaselineMinCount = 10   // baseline listings required to trust the ratio
	supplyWindow           = 24 * time.Hour
	supplyBaselineWindow   = 30 * 24 * time.Hour
)

type supplyStore interface {
	SnapshotsInWindow(ctx context.Context, from, to time.Time) ([]models.PriceSnapshot, error)
	SupplyBaseline(ctx context.Context, from, to time.Time) ([]store.SupplyBaselineRow, error)
	UpsertSignal(ctx context.Context, sig *models.Signal) error
}

// SupplyGenerator watches listing counts. SUPPLY_LOW fires on thin absolute
// supply of non-cheap cards; SUPPLY_VELOCITY fires when the
// per-snapshot-normalized listing count moves sharply against the 30-day
// baseline.
type SupplyGenerator struct {
	store  supplyStore
	logger *zap.Logger
}

func NewSupplyGenerator(store supplyStore, logger *zap.Logger) *SupplyGenerator {
	return &SupplyGenerator{store: store, logger: logger}
}

func (g *SupplyGenerator) Type() string { return models.SignalSupplyLow }

type supplyWindowAgg struct {
	totalListings     int
	snapshotCount     int
	priceSum          decimal.Decimal
	priceCount        int
	liveByMarketplace map[uint]liveListings
}

// liveListings is the listing count from the freshest bucket seen for one
// marketplace.
type liveListings struct {
	bucket   time.Time
	listings int
}

// liveListingTotal sums each marketplace's freshest listing count. Summing
// the whole window instead would multiply constant supply by the polling
// frequency.
func (a *supplyWindowAgg) liveListingTotal() int {
	total := 0
	for _, l := range a.liveByMarketplace {
		total += l.listings
	}
	return total
}

func (g *SupplyGenerator) Generate(ctx context.Context, asOf time.Time) (Stats, error) {
	var stats Stats

	snaps, err := g.store.SnapshotsInWindow(ctx, asOf.Add(-supplyWindow), asOf)
	if err != nil {
		return stats, err
	}

	current := make(map[uint]*supplyWindowAgg)
	for _, snap := range snaps {
		agg, ok := current[snap.CardID]
		if !ok {
			agg = &supplyWindowAgg{liveByMarketplace: make(map[uint]liveListings)}
			current[snap.CardID] = agg
		}
		agg.snapshotCount++
		if snap.NumListings != nil {
			agg.totalListings += *snap.NumListings
			cur, seen := agg.liveByMarketplace[snap.MarketplaceID]
			switch {
			case !seen || snap.BucketTime.After(cur.bucket):
				agg.liveByMarketplace[snap.MarketplaceID] = liveListings{
					bucket:   snap.BucketTime,
					listings: *snap.NumListings,
				}
			case snap.BucketTime.Equal(cur.bucket):
				cur.listings += *snap.NumListings
				agg.liveByMarketplace[snap.MarketplaceID] = cur
			}
		}
		agg.priceSum = agg.priceSum.Add(snap.Price)
		agg.priceCount++
	}

	baselineRows, err := g.store.SupplyBaseline(ctx, asOf.Add(-supplyBaselineWindow), asOf.Add(-supplyWindow))
	if err != nil {
		return stats, err
	}
	baseline := make(map[uint]store.SupplyBaselineRow, len(baselineRows))
	for _, row := range baselineRows {
		baseline[row.CardID] = row
	}

	date := signalDate(asOf)
	for cardID, agg := range current {
		stats.Analyzed++

		avgPrice := 0.0
		if agg.priceCount > 0 {
			avgPrice, _ = agg.priceSum.Div(decimal.NewFromInt(int64(agg.priceCount))).Float64()
		}

		written, errs := g.emitSupplyLow(ctx, cardID, date, agg.liveListingTotal(), avgPrice)
		stats.SignalsWritten += written
		stats.Errors += errs

		written, errs = g.emitSupplyVelocity(ctx, cardID, date, agg, baseline[cardID])
		stats.SignalsWritten += written
		stats.Errors += errs
	}

	return stats, nil
}

// emitSupplyLow fires when the live listing total (each marketplace's
// freshest count, summed) is strictly below the threshold and the card is not
// bargain-bin material. Confidence scales with how far below the threshold
// supply sits.
func (g *SupplyGenerator) emitSupplyLow(ctx context.Context, cardID uint, date time.Time, liveListings int, avgPrice float64) (int, int) {
	if liveListings >= supplyLowMaxListings || avgPrice < supplyLowMinAvgPrice {
		return 0, 0
	}

	scarcity := float64(supplyLowMaxListings-liveListings) / float64(supplyLowMaxListings)
	sig := &models.Signal{
		CardID:     cardID,
		Date:       date,
		SignalType: models.SignalSupplyLow,
		Value:      float64(liveListings),
		Confidence: math.Min(0.95, 0.5+scarcity*0.45),
	}
	if err := sig.SetDetails(map[string]interface{}{
		"total_listings": liveListings,
		"avg_price":      avgPrice,
		"threshold":      supplyLowMaxListings,
	}); err != nil {
		return 0, 1
	}
	if err := g.store.UpsertSignal(ctx, sig); err != nil {
		g.logger.Error("supply_low upsert failed", zap.Uint("card_id", cardID), zap.Error(err))
		return 0, 1
	}
	return 1, 0
}

// emitSupplyVelocity compares listings-per-snapshot in the current window
// against the trailing 30-day average. Normalizing by snapshot count keeps
// uneven polling frequency from masquerading as a supply move.
func (g *SupplyGenerator) emitSupplyVelocity(ctx context.Context, cardID uint, date time.Time, agg *supplyWindowAgg, base store.SupplyBaselineRow) (int, int) {
	if base.SnapshotCount == 0 || base.TotalListings < supplyBaselineMinCount || agg.snapshotCount == 0 {
		return 0, 0
	}

	currentPerSnap := float64(agg.totalListings) / float64(agg.snapshotCount)
	basePerSnap := float64(base.TotalListings) / float64(base.SnapshotCount)
	if basePerSnap == 0 {
		return 0, 0
	}

	change := (currentPerSnap - basePerSnap) / basePerSnap
	if math.Abs(change) < supplyVelocityMinMove {
		return 0, 0
	}

	direction := "increasing"
	if change < 0 {
		direction = "decreasing"
	}
	sig := &models.Signal{
		CardID:     cardID,
		Date:       date,
		SignalType: models.SignalSupplyVelocity,
		Value:      change,
		Confidence: math.Min(0.95, 0.5+math.Abs(change)*0.5),
	}
	if err := sig.SetDetails(map[string]interface{}{
		"direction":         direction,
		"current_per_snap":  currentPerSnap,
		"baseline_per_snap": basePerSnap,
		"relative_change":   change,
	}); err != nil {
		return 0, 1
	}
	if err := g.store.UpsertSignal(ctx, sig); err != nil {
		g.logger.Error("supply_velocity upsert failed", zap.Uint("card_id", cardID), zap.Error(err))
		return 0, 1
	}
	return 1, 0
}
