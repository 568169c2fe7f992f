package signals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/models"
)

// identityConverter treats every currency as already USD.
type identityConverter struct{}

func (identityConverter) Convert(_ context.Context, amount decimal.Decimal, _, _ string) (decimal.Decimal, error) {
	return amount, nil
}

type failingConverter struct{}

func (failingConverter) Convert(context.Context, decimal.Decimal, string, string) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("fx provider unavailable")
}

func arbSnapshot(cardID, mpID uint, price float64, bucket time.Time) models.PriceSnapshot {
	return models.PriceSnapshot{
		CardID:        cardID,
		MarketplaceID: mpID,
		BucketTime:    bucket,
		Condition:     models.ConditionNearMint,
		Language:      models.LangEnglish,
		Price:         decimal.NewFromFloat(price),
		Currency:      "USD",
	}
}

func twoMarketplaces() []models.Marketplace {
	fee := decimal.NewFromFloat(0.10)
	return []models.Marketplace{
		{ID: 1, Code: "tcgplayer", FeePct: fee},
		{ID: 2, Code: "cardkingdom", FeePct: fee},
	}
}

func TestArbitrageEmitsProfitablePair(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	bucket := asOf.Add(-time.Hour)

	st := &fakeSignalStore{
		marketplaces: twoMarketplaces(),
		snapshots: []models.PriceSnapshot{
			arbSnapshot(1, 1, 10.00, bucket),
			arbSnapshot(1, 2, 15.00, bucket),
		},
	}
	gen := NewArbitrageGenerator(st, identityConverter{}, zap.NewNop())

	stats, err := gen.Generate(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Analyzed)
	assert.Equal(t, 1, stats.SignalsWritten)

	sigs := st.byType(models.SignalArbitrage)
	require.Len(t, sigs, 1)
	sig := sigs[0]

	// net = 15*0.90 - 10*1.10 = 2.50, profit pct = 2.50/11.00
	assert.InDelta(t, 2.50, sig.Value, 1e-9)
	assert.InDelta(t, 0.5+2.5/11.0, sig.Confidence, 1e-9)
	assert.Equal(t, signalDate(asOf), sig.Date)

	details := sig.DetailsMap()
	assert.EqualValues(t, 1, details["buy_marketplace_id"])
	assert.EqualValues(t, 2, details["sell_marketplace_id"])
	assert.InDelta(t, 2.5/11.0, details["profit_pct"].(float64), 1e-9)
}

func TestArbitrageIgnoresSpreadBelowThresholds(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	bucket := asOf.Add(-time.Hour)

	// 10.00 vs 10.50: fees eat the spread entirely.
	st := &fakeSignalStore{
		marketplaces: twoMarketplaces(),
		snapshots: []models.PriceSnapshot{
			arbSnapshot(1, 1, 10.00, bucket),
			arbSnapshot(1, 2, 10.50, bucket),
		},
	}
	gen := NewArbitrageGenerator(st, identityConverter{}, zap.NewNop())

	stats, err := gen.Generate(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Analyzed)
	assert.Zero(t, stats.SignalsWritten)
	assert.Empty(t, st.signals)
}

func TestArbitrageIgnoresPricesBelowFloor(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	bucket := asOf.Add(-time.Hour)

	// The $4 side is below the $5 floor, leaving only one usable price.
	st := &fakeSignalStore{
		marketplaces: twoMarketplaces(),
		snapshots: []models.PriceSnapshot{
			arbSnapshot(1, 1, 4.00, bucket),
			arbSnapshot(1, 2, 15.00, bucket),
		},
	}
	gen := NewArbitrageGenerator(st, identityConverter{}, zap.NewNop())

	stats, err := gen.Generate(context.Background(), asOf)
	require.NoError(t, err)
	assert.Empty(t, st.signals)
	assert.Zero(t, stats.Analyzed)
}

func TestArbitrageSkipsFoilRows(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	bucket := asOf.Add(-time.Hour)

	buy := arbSnapshot(1, 1, 10.00, bucket)
	sell := arbSnapshot(1, 2, 25.00, bucket)
	buy.IsFoil = true
	sell.IsFoil = true

	st := &fakeSignalStore{
		marketplaces: twoMarketplaces(),
		snapshots:    []models.PriceSnapshot{buy, sell},
	}
	gen := NewArbitrageGenerator(st, identityConverter{}, zap.NewNop())

	_, err := gen.Generate(context.Background(), asOf)
	require.NoError(t, err)
	assert.Empty(t, st.signals)
}

func TestArbitrageUsesFreshestPricePerMarketplace(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	st := &fakeSignalStore{
		marketplaces: twoMarketplaces(),
		snapshots: []models.PriceSnapshot{
			arbSnapshot(1, 1, 10.00, asOf.Add(-5*time.Hour)),
			arbSnapshot(1, 1, 6.00, asOf.Add(-time.Hour)), // fresher, replaces the 10.00
			arbSnapshot(1, 2, 15.00, asOf.Add(-time.Hour)),
		},
	}
	gen := NewArbitrageGenerator(st, identityConverter{}, zap.NewNop())

	_, err := gen.Generate(context.Background(), asOf)
	require.NoError(t, err)

	sigs := st.byType(models.SignalArbitrage)
	require.Len(t, sigs, 1)
	// net = 15*0.90 - 6*1.10 = 6.90
	assert.InDelta(t, 6.90, sigs[0].Value, 1e-9)
	assert.InDelta(t, 0.95, sigs[0].Confidence, 1e-9) // capped
}

func TestArbitrageCountsConversionFailures(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	bucket := asOf.Add(-time.Hour)

	eur := arbSnapshot(1, 2, 15.00, bucket)
	eur.Currency = "EUR"

	st := &fakeSignalStore{
		marketplaces: twoMarketplaces(),
		snapshots: []models.PriceSnapshot{
			arbSnapshot(1, 1, 10.00, bucket),
			eur,
		},
	}
	gen := NewArbitrageGenerator(st, failingConverter{}, zap.NewNop())

	stats, err := gen.Generate(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Empty(t, st.signals)
}
