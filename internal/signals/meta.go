package signals

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/models"
)

const (
	metaShortWindow      = 7 * 24 * time.Hour
	metaLongWindow       = 30 * 24 * time.Hour
	metaMinMove          = 0.20 // relative inclusion-rate change, either direction
	top8MinMove          = 0.15 // relative top-8 rate increase
	top8MinShortRate     = 0.10 // short-window top-8 rate floor
	metaNearZeroBaseline = 0.01 // below this, fall back to absolute difference
)

type metaStore interface {
	TournamentStatsInWindow(ctx context.Context, from, to time.Time) ([]models.TournamentStat, error)
	UpsertSignal(ctx context.Context, sig *models.Signal) error
}

// MetaGenerator compares a card's tournament-deck inclusion over a short
// window against a long window per format, flagging demand shifts before
// they fully price in.
type MetaGenerator struct {
	store  metaStore
	logger *zap.Logger
}

func NewMetaGenerator(store metaStore, logger *zap.Logger) *MetaGenerator {
	return &MetaGenerator{store: store, logger: logger}
}

func (g *MetaGenerator) Type() string { return models.SignalMetaSpike }

type metaAgg struct {
	decksWith, totalDecks int
	top8With, totalTop8   int
}

func (a *metaAgg) inclusionRate() float64 {
	if a.totalDecks == 0 {
		return 0
	}
	return float64(a.decksWith) / float64(a.totalDecks)
}

func (a *metaAgg) top8Rate() float64 {
	if a.totalTop8 == 0 {
		return 0
	}
	return float64(a.top8With) / float64(a.totalTop8)
}

type formatKey struct {
	cardID uint
	format string
}

// metaMove holds the strongest detected move for one card and signal type.
type metaMove struct {
	format    string
	change    float64
	shortRate float64
	longRate  float64
	absolute  bool // change is an absolute difference (near-zero baseline)
}

func (g *MetaGenerator) Generate(ctx context.Context, asOf time.Time) (Stats, error) {
	var stats Stats

	long, err := g.store.TournamentStatsInWindow(ctx, asOf.Add(-metaLongWindow), asOf)
	if err != nil {
		return stats, err
	}

	shortStart := asOf.Add(-metaShortWindow)
	shortAgg := make(map[formatKey]*metaAgg)
	longAgg := make(map[formatKey]*metaAgg)
	for _, st := range long {
		key := formatKey{cardID: st.CardID, format: st.Format}
		accumulate(longAgg, key, st)
		if !st.Date.Before(shortStart) {
			accumulate(shortAgg, key, st)
		}
	}

	// Strongest move per card wins; the format rides along in details.
	spikes := make(map[uint]metaMove)
	drops := make(map[uint]metaMove)
	top8s := make(map[uint]metaMove)
	analyzed := make(map[uint]struct{})

	for key, short := range shortAgg {
		base, ok := longAgg[key]
		if !ok || base.totalDecks == 0 || short.totalDecks == 0 {
			continue
		}
		analyzed[key.cardID] = struct{}{}

		change, absolute := relativeChange(short.inclusionRate(), base.inclusionRate())
		move := metaMove{
			format:    key.format,
			change:    change,
			shortRate: short.inclusionRate(),
			longRate:  base.inclusionRate(),
			absolute:  absolute,
		}
		if change >= metaMinMove {
			keepStronger(spikes, key.cardID, move)
		} else if change <= -metaMinMove {
			keepStronger(drops, key.cardID, move)
		}

		top8Change, top8Absolute := relativeChange(short.top8Rate(), base.top8Rate())
		if top8Change >= top8MinMove && short.top8Rate() >= top8MinShortRate {
			keepStronger(top8s, key.cardID, metaMove{
				format:    key.format,
				change:    top8Change,
				shortRate: short.top8Rate(),
				longRate:  base.top8Rate(),
				absolute:  top8Absolute,
			})
		}
	}

	stats.Analyzed = len(analyzed)
	date := signalDate(asOf)

	stats.add(g.writeMoves(ctx, models.SignalMetaSpike, spikes, date))
	stats.add(g.writeMoves(ctx, models.SignalMetaDrop, drops, date))
	stats.add(g.writeMoves(ctx, models.SignalTop8Spike, top8s, date))

	return stats, nil
}

func accumulate(aggs map[formatKey]*metaAgg, key formatKey, st models.TournamentStat) {
	agg, ok := aggs[key]
	if !ok {
		agg = &metaAgg{}
		aggs[key] = agg
	}
	agg.decksWith += st.DecksWithCard
	agg.totalDecks += st.TotalDecks
	agg.top8With += st.Top8WithCard
	agg.totalTop8 += st.TotalTop8
}

// relativeChange computes (short-long)/long, falling back to the absolute
// difference when the long-window baseline is near zero.
func relativeChange(short, long float64) (change float64, absolute bool) {
	if long < metaNearZeroBaseline {
		return short - long, true
	}
	return (short - long) / long, false
}

func keepStronger(moves map[uint]metaMove, cardID uint, move metaMove) {
	if existing, ok := moves[cardID]; ok && math.Abs(existing.change) >= math.Abs(move.change) {
		return
	}
	moves[cardID] = move
}

func (g *MetaGenerator) writeMoves(ctx context.Context, signalType string, moves map[uint]metaMove, date time.Time) Stats {
	var stats Stats
	for cardID, move := range moves {
		sig := &models.Signal{
			CardID:     cardID,
			Date:       date,
			SignalType: signalType,
			Value:      move.change,
			Confidence: math.Min(0.95, 0.5+math.Abs(move.change)),
		}
		if err := sig.SetDetails(map[string]interface{}{
			"format":            move.format,
			"short_window_rate": move.shortRate,
			"long_window_rate":  move.longRate,
			"change":            move.change,
			"absolute_fallback": move.absolute,
		}); err != nil {
			stats.Errors++
			continue
		}
		if err := g.store.UpsertSignal(ctx, sig); err != nil {
			stats.Errors++
			g.logger.Error("meta signal upsert failed",
				zap.String("type", signalType),
				zap.Uint("card_id", cardID),
				zap.Error(err))
			continue
		}
		stats.SignalsWritten++
	}
	return stats
}
