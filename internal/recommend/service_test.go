package recommend

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

// fakeRecStore keeps recommendations in memory with real supersession and
// expiry semantics.
type fakeRecStore struct {
	signals    []models.Signal
	snapshots  []models.PriceSnapshot
	recs       []*models.Recommendation
	nextID     uint
	replaceErr error
}

func (f *fakeRecStore) SignalsForDate(context.Context, time.Time) ([]models.Signal, error) {
	return f.signals, nil
}

func (f *fakeRecStore) SnapshotsInWindow(context.Context, time.Time, time.Time) ([]models.PriceSnapshot, error) {
	return f.snapshots, nil
}

// ReplaceActiveRecommendation mirrors the store's transactional semantics: a
// failure changes nothing, success deactivates priors and inserts atomically.
func (f *fakeRecStore) ReplaceActiveRecommendation(_ context.Context, rec *models.Recommendation) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	for _, prior := range f.recs {
		if prior.CardID == rec.CardID {
			prior.IsActive = false
		}
	}
	f.nextID++
	rec.ID = f.nextID
	stored := *rec
	f.recs = append(f.recs, &stored)
	return nil
}

func (f *fakeRecStore) ExpireRecommendations(_ context.Context, now time.Time) (int64, error) {
	var count int64
	for _, rec := range f.recs {
		if rec.IsActive && rec.ValidUntil != nil && rec.ValidUntil.Before(now) {
			rec.IsActive = false
			count++
		}
	}
	return count, nil
}

func (f *fakeRecStore) seed(rec models.Recommendation) {
	f.nextID++
	rec.ID = f.nextID
	f.recs = append(f.recs, &rec)
}

func (f *fakeRecStore) activeFor(cardID uint) []*models.Recommendation {
	var out []*models.Recommendation
	for _, rec := range f.recs {
		if rec.CardID == cardID && rec.IsActive {
			out = append(out, rec)
		}
	}
	return out
}

func recSnapshot(cardID, mpID uint, price float64, bucket time.Time) models.PriceSnapshot {
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

func daySignal(cardID uint, signalType string, confidence float64, date time.Time, details map[string]interface{}) models.Signal {
	sig := models.Signal{CardID: cardID, SignalType: signalType, Confidence: confidence, Date: date}
	if details != nil {
		if err := sig.SetDetails(details); err != nil {
			panic(err)
		}
	}
	return sig
}

func newTestService(st *fakeRecStore) *Service {
	engine := NewEngine(Thresholds{MinROI: 0.10, MinConfidence: 0.60})
	return NewService(st, engine, zap.NewNop())
}

func TestRecommendEmitsBuyFromConfluentSignals(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	date := dateOf(asOf)

	st := &fakeRecStore{
		signals: []models.Signal{
			daySignal(42, models.SignalArbitrage, 0.7, date, map[string]interface{}{
				"profit_pct":         0.25,
				"buy_marketplace_id": float64(1),
			}),
			daySignal(42, models.SignalSupplyVelocity, 0.6, date, map[string]interface{}{
				"direction": "decreasing",
			}),
		},
		snapshots: []models.PriceSnapshot{
			recSnapshot(42, 1, 9.00, asOf.Add(-29*24*time.Hour)),
			recSnapshot(42, 1, 8.50, asOf.Add(-10*24*time.Hour)),
			recSnapshot(42, 1, 8.00, asOf.Add(-time.Hour)),
		},
	}

	stats, err := newTestService(st).Recommend(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CardsEvaluated)
	assert.Equal(t, 1, stats.RecommendationsWritten)

	active := st.activeFor(42)
	require.Len(t, active, 1)
	rec := active[0]
	assert.Equal(t, models.ActionBuy, rec.Action)
	assert.GreaterOrEqual(t, rec.Confidence, 0.60)
	assert.True(t, rec.CurrentPrice.Equal(decimal.NewFromInt(8)))
	assert.Contains(t, rec.Rationale, "arbitrage spread")
	assert.Contains(t, rec.Rationale, "supply tightening")
	require.NotNil(t, rec.ValidUntil)
	assert.Equal(t, asOf.Add(14*24*time.Hour), *rec.ValidUntil)
	require.NotNil(t, rec.MarketplaceID)
	assert.Equal(t, uint(1), *rec.MarketplaceID)
}

func TestRecommendSupersedesPriorActive(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	date := dateOf(asOf)
	future := asOf.Add(10 * 24 * time.Hour)

	st := &fakeRecStore{
		signals: []models.Signal{
			daySignal(42, models.SignalMetaSpike, 0.8, date, nil),
		},
	}
	st.seed(models.Recommendation{
		CardID: 42, Action: models.ActionHold, IsActive: true, ValidUntil: &future,
	})

	stats, err := newTestService(st).Recommend(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RecommendationsWritten)

	// Exactly one active recommendation remains, and it is the new one.
	active := st.activeFor(42)
	require.Len(t, active, 1)
	assert.Equal(t, models.ActionBuy, active[0].Action)
	assert.Len(t, st.recs, 2)
}

func TestRecommendWriteFailureKeepsPriorActive(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	date := dateOf(asOf)
	future := asOf.Add(10 * 24 * time.Hour)

	st := &fakeRecStore{
		signals: []models.Signal{
			daySignal(42, models.SignalMetaSpike, 0.8, date, nil),
		},
		replaceErr: errors.New("deadlock found when trying to get lock"),
	}
	st.seed(models.Recommendation{
		CardID: 42, Action: models.ActionHold, IsActive: true, ValidUntil: &future,
	})

	stats, err := newTestService(st).Recommend(context.Background(), asOf)
	require.NoError(t, err)
	assert.Zero(t, stats.RecommendationsWritten)

	// The failed write must not have superseded anything.
	active := st.activeFor(42)
	require.Len(t, active, 1)
	assert.Equal(t, models.ActionHold, active[0].Action)
}

func TestRecommendSweepsExpiredBeforeEvaluating(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	past := asOf.Add(-24 * time.Hour)

	st := &fakeRecStore{}
	st.seed(models.Recommendation{
		CardID: 9, Action: models.ActionBuy, IsActive: true, ValidUntil: &past,
	})

	stats, err := newTestService(st).Recommend(context.Background(), asOf)
	require.NoError(t, err)
	assert.Zero(t, stats.CardsEvaluated)
	assert.Empty(t, st.activeFor(9))
}

func TestRecommendNoSignalsNoWrites(t *testing.T) {
	st := &fakeRecStore{}
	stats, err := newTestService(st).Recommend(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, stats.CardsEvaluated)
	assert.Zero(t, stats.RecommendationsWritten)
	assert.Empty(t, st.recs)
}

func TestComputeMetrics(t *testing.T) {
	asOf := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)

	snaps := []models.PriceSnapshot{
		recSnapshot(1, 1, 10.00, asOf.Add(-29*24*time.Hour)),
		recSnapshot(1, 1, 12.00, asOf.Add(-8*24*time.Hour)),
		recSnapshot(1, 1, 15.00, asOf.Add(-time.Hour)),
		recSnapshot(1, 2, 12.00, asOf.Add(-2*time.Hour)),
	}
	foil := recSnapshot(1, 1, 99.00, asOf.Add(-time.Hour))
	foil.IsFoil = true
	snaps = append(snaps, foil)

	metrics := computeMetrics(snaps, asOf)
	m, ok := metrics[1]
	require.True(t, ok)

	assert.True(t, m.CurrentPrice.Equal(decimal.NewFromInt(15)))
	assert.True(t, m.High30d.Equal(decimal.NewFromInt(15)))
	// 7d reference is the $12 point 8 days back.
	assert.InDelta(t, 25.0, m.Change7dPct, 1e-9)
	assert.InDelta(t, 50.0, m.Change30dPct, 1e-9)
	// Freshest prices per marketplace: 15 vs 12.
	assert.InDelta(t, 25.0, m.SpreadPct, 1e-9)
	assert.Greater(t, m.Volatility, 0.0)
}
