package signals

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/models"
)

// Arbitrage thresholds. Values mirror the production tuning and are
// deliberately constants: a spread has to clear fees and still be worth the
// shipping/handling friction.
var (
	arbMinPrice     = decimal.NewFromInt(5) // ignore prices below this
	arbMinNetProfit = decimal.NewFromInt(1) // absolute profit floor per unit
)

const (
	arbMinProfitPct  = 0.15 // net profit relative to buy cost
	defaultFeePct    = 0.10 // per-side marketplace fee when not configured
	arbMaxConfidence = 0.95
)

type arbitrageStore interface {
	ActiveMarketplaces(ctx context.Context) ([]models.Marketplace, error)
	SnapshotsInWindow(ctx context.Context, from, to time.Time) ([]models.PriceSnapshot, error)
	UpsertSignal(ctx context.Context, sig *models.Signal) error
}

type currencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// ArbitrageGenerator finds cards whose live prices on two marketplaces
// diverge enough to profit after fees on both sides. Only the single best
// (buy-here, sell-there) pair per card is emitted.
type ArbitrageGenerator struct {
	store  arbitrageStore
	rates  currencyConverter
	logger *zap.Logger
}

func NewArbitrageGenerator(store arbitrageStore, rates currencyConverter, logger *zap.Logger) *ArbitrageGenerator {
	return &ArbitrageGenerator{store: store, rates: rates, logger: logger}
}

func (g *ArbitrageGenerator) Type() string { return models.SignalArbitrage }

// livePrice is the freshest usable price for a (card, marketplace) pair,
// converted to USD.
type livePrice struct {
	marketplaceID uint
	price         decimal.Decimal
	feePct        decimal.Decimal
	bucketTime    time.Time
	condition     string
}

func (g *ArbitrageGenerator) Generate(ctx context.Context, asOf time.Time) (Stats, error) {
	var stats Stats

	marketplaces, err := g.store.ActiveMarketplaces(ctx)
	if err != nil {
		return stats, err
	}
	feeByMarketplace := make(map[uint]decimal.Decimal, len(marketplaces))
	for _, mp := range marketplaces {
		fee := mp.FeePct
		if fee.IsZero() {
			fee = decimal.NewFromFloat(defaultFeePct)
		}
		feeByMarketplace[mp.ID] = fee
	}

	snaps, err := g.store.SnapshotsInWindow(ctx, asOf.Add(-24*time.Hour), asOf)
	if err != nil {
		return stats, err
	}

	prices, convErrors := g.collectLivePrices(ctx, snaps, feeByMarketplace)
	stats.Errors += convErrors

	date := signalDate(asOf)
	for cardID, byMarketplace := range prices {
		if len(byMarketplace) < 2 {
			continue
		}
		stats.Analyzed++

		best, found := bestArbitragePair(byMarketplace)
		if !found {
			continue
		}

		sig := &models.Signal{
			CardID:     cardID,
			Date:       date,
			SignalType: models.SignalArbitrage,
			Value:      best.netProfit.InexactFloat64(),
			Confidence: math.Min(arbMaxConfidence, 0.5+best.profitPct),
		}
		if err := sig.SetDetails(map[string]interface{}{
			"buy_marketplace_id":  best.buy.marketplaceID,
			"sell_marketplace_id": best.sell.marketplaceID,
			"buy_price":           best.buy.price.InexactFloat64(),
			"sell_price":          best.sell.price.InexactFloat64(),
			"net_profit":          best.netProfit.InexactFloat64(),
			"profit_pct":          best.profitPct,
			"condition":           best.buy.condition,
		}); err != nil {
			stats.Errors++
			continue
		}
		if err := g.store.UpsertSignal(ctx, sig); err != nil {
			stats.Errors++
			g.logger.Error("arbitrage signal upsert failed",
				zap.Uint("card_id", cardID), zap.Error(err))
			continue
		}
		stats.SignalsWritten++
	}

	return stats, nil
}

// collectLivePrices reduces the snapshot window to the freshest USD price per
// (card, marketplace), preferring near-mint non-foil rows inside the same
// bucket and discarding prices below the arbitrage floor.
func (g *ArbitrageGenerator) collectLivePrices(
	ctx context.Context,
	snaps []models.PriceSnapshot,
	feeByMarketplace map[uint]decimal.Decimal,
) (map[uint]map[uint]livePrice, int) {
	prices := make(map[uint]map[uint]livePrice)
	errors := 0

	for _, snap := range snaps {
		if snap.IsFoil {
			continue
		}

		usd := snap.Price
		if snap.Currency != "" && snap.Currency != "USD" {
			converted, err := g.rates.Convert(ctx, snap.Price, snap.Currency, "USD")
			if err != nil {
				errors++
				g.logger.Warn("currency conversion failed, skipping price",
					zap.Uint("card_id", snap.CardID),
					zap.String("currency", snap.Currency),
					zap.Error(err))
				continue
			}
			usd = converted
		}
		if usd.LessThan(arbMinPrice) {
			continue
		}

		fee, ok := feeByMarketplace[snap.MarketplaceID]
		if !ok {
			fee = decimal.NewFromFloat(defaultFeePct)
		}
		candidate := livePrice{
			marketplaceID: snap.MarketplaceID,
			price:         usd,
			feePct:        fee,
			bucketTime:    snap.BucketTime,
			condition:     snap.Condition,
		}

		byMarketplace, ok := prices[snap.CardID]
		if !ok {
			byMarketplace = make(map[uint]livePrice)
			prices[snap.CardID] = byMarketplace
		}
		current, exists := byMarketplace[snap.MarketplaceID]
		if !exists || candidate.bucketTime.After(current.bucketTime) ||
			(candidate.bucketTime.Equal(current.bucketTime) &&
				candidate.condition == models.ConditionNearMint &&
				current.condition != models.ConditionNearMint) {
			byMarketplace[snap.MarketplaceID] = candidate
		}
	}

	return prices, errors
}

type arbitragePair struct {
	buy, sell livePrice
	netProfit decimal.Decimal
	profitPct float64
}

// bestArbitragePair evaluates every ordered marketplace pair as
// (buy-here, sell-there):
//
//	net = sell*(1-fee_sell) - buy*(1+fee_buy)
//
// and keeps the max-profit pair that clears both the absolute and relative
// thresholds.
func bestArbitragePair(byMarketplace map[uint]livePrice) (arbitragePair, bool) {
	one := decimal.NewFromInt(1)
	var best arbitragePair
	found := false

	for _, buy := range byMarketplace {
		buyCost := buy.price.Mul(one.Add(buy.feePct))
		for _, sell := range byMarketplace {
			if buy.marketplaceID == sell.marketplaceID {
				continue
			}
			proceeds := sell.price.Mul(one.Sub(sell.feePct))
			net := proceeds.Sub(buyCost)
			if net.LessThan(arbMinNetProfit) {
				continue
			}
			profitPct, _ := net.Div(buyCost).Float64()
			if profitPct < arbMinProfitPct {
				continue
			}
			if !found || net.GreaterThan(best.netProfit) {
				best = arbitragePair{buy: buy, sell: sell, netProfit: net, profitPct: profitPct}
				found = true
			}
		}
	}
	return best, found
}
