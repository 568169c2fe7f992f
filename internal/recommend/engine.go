// Package recommend synthesizes BUY/SELL/HOLD recommendations from price
// metrics and the day's signals. The policy is threshold-based and every
// emitted rationale is assembled from the exact signals and metrics that
// triggered the decision.
package recommend

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/models"
)

// Thresholds gate whether any recommendation is emitted at all.
type Thresholds struct {
	MinROI        float64
	MinConfidence float64
}

// CardMetrics are the snapshot-derived inputs for one card.
type CardMetrics struct {
	CardID       uint
	CurrentPrice decimal.Decimal
	Change7dPct  float64
	Change30dPct float64
	SpreadPct    float64 // (max-min)/min across marketplaces, latest bucket
	Volatility   float64 // coefficient of variation over 30 days, percent
	High30d      decimal.Decimal
}

// Draft is an evaluated recommendation before persistence.
type Draft struct {
	Action             string
	Confidence         float64
	HorizonDays        int
	TargetPrice        decimal.NullDecimal
	PotentialProfitPct float64
	Rationale          string
	MarketplaceID      *uint // set when a specific marketplace drove the call
}

// Expected move and horizon per signal type when the signal payload does not
// carry its own projection.
var signalProfiles = map[string]struct {
	bullish bool
	move    float64
	horizon int
}{
	models.SignalArbitrage:      {bullish: true, move: 0.15, horizon: 7},
	models.SignalSupplyLow:      {bullish: true, move: 0.15, horizon: 14},
	models.SignalSupplyVelocity: {bullish: true, move: 0.10, horizon: 14}, // direction may flip it bearish
	models.SignalMetaSpike:      {bullish: true, move: 0.20, horizon: 30},
	models.SignalTop8Spike:      {bullish: true, move: 0.15, horizon: 30},
	models.SignalMetaDrop:       {bullish: false, move: 0.20, horizon: 30},
}

type contribution struct {
	bullish       bool
	confidence    float64
	move          float64
	horizon       int
	reason        string
	marketplaceID *uint
}

type Engine struct {
	thresholds Thresholds
}

func NewEngine(thresholds Thresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

// Evaluate decides an action for one card. It returns false when no
// recommendation should be emitted (no usable signals, or confidence below
// the floor).
func (e *Engine) Evaluate(metrics CardMetrics, sigs []models.Signal) (Draft, bool) {
	contributions := e.collect(metrics, sigs)
	if len(contributions) == 0 {
		return Draft{}, false
	}

	var bulls, bears []contribution
	for _, c := range contributions {
		if c.bullish {
			bulls = append(bulls, c)
		} else {
			bears = append(bears, c)
		}
	}

	bullScore := scoreSum(bulls)
	bearScore := scoreSum(bears)

	switch {
	case bullScore > bearScore:
		return e.directional(models.ActionBuy, metrics, bulls)
	case bearScore > bullScore:
		return e.directional(models.ActionSell, metrics, bears)
	default:
		return e.hold(contributions, "mixed indicators: ")
	}
}

func (e *Engine) collect(metrics CardMetrics, sigs []models.Signal) []contribution {
	var out []contribution

	for _, sig := range sigs {
		profile, known := signalProfiles[sig.SignalType]
		if !known {
			continue
		}
		c := contribution{
			bullish:    profile.bullish,
			confidence: sig.Confidence,
			move:       profile.move,
			horizon:    profile.horizon,
		}
		details := sig.DetailsMap()

		switch sig.SignalType {
		case models.SignalArbitrage:
			if pct, ok := details["profit_pct"].(float64); ok && pct > 0 {
				c.move = pct
			}
			if id, ok := details["buy_marketplace_id"].(float64); ok && id > 0 {
				mpID := uint(id)
				c.marketplaceID = &mpID
			}
			c.reason = fmt.Sprintf("arbitrage spread of %.1f%% across marketplaces", c.move*100)
		case models.SignalSupplyLow:
			c.reason = fmt.Sprintf("only %.0f listings remaining", sig.Value)
		case models.SignalSupplyVelocity:
			direction, _ := details["direction"].(string)
			if direction == "increasing" {
				c.bullish = false
				c.reason = "supply increasing (sellers listing into the market)"
			} else {
				c.reason = "supply tightening (listings decreasing)"
			}
		case models.SignalMetaSpike:
			c.reason = fmt.Sprintf("tournament play up %.0f%% over the past week", sig.Value*100)
		case models.SignalMetaDrop:
			c.reason = fmt.Sprintf("tournament play down %.0f%% over the past week", -sig.Value*100)
		case models.SignalTop8Spike:
			c.reason = fmt.Sprintf("top-8 conversion up %.0f%%", sig.Value*100)
		}
		out = append(out, c)
	}

	// Price sitting at its 30-day high with momentum behind it leans SELL.
	if !metrics.High30d.IsZero() && !metrics.CurrentPrice.IsZero() &&
		metrics.CurrentPrice.GreaterThanOrEqual(metrics.High30d) && metrics.Change30dPct > 0 {
		out = append(out, contribution{
			bullish:    false,
			confidence: 0.55,
			move:       0.10,
			horizon:    14,
			reason:     fmt.Sprintf("price at its 30-day high after a %.1f%% run-up", metrics.Change30dPct),
		})
	}

	return out
}

func (e *Engine) directional(action string, metrics CardMetrics, side []contribution) (Draft, bool) {
	confidence := meanConfidence(side)
	if confidence < e.thresholds.MinConfidence {
		return Draft{}, false
	}

	roi := 0.0
	horizon := 0
	var marketplaceID *uint
	reasons := make([]string, 0, len(side))
	for _, c := range side {
		if c.move > roi {
			roi = c.move
		}
		if c.horizon > horizon {
			horizon = c.horizon
		}
		if c.marketplaceID != nil && marketplaceID == nil {
			marketplaceID = c.marketplaceID
		}
		reasons = append(reasons, c.reason)
	}
	if roi < e.thresholds.MinROI {
		return e.hold(side, "insufficient projected return: ")
	}

	draft := Draft{
		Action:             action,
		Confidence:         confidence,
		HorizonDays:        horizon,
		PotentialProfitPct: roi * 100,
		Rationale:          strings.Join(reasons, "; "),
		MarketplaceID:      marketplaceID,
	}
	if !metrics.CurrentPrice.IsZero() {
		factor := decimal.NewFromFloat(1 + roi)
		if action == models.ActionSell {
			factor = decimal.NewFromFloat(1 - roi)
		}
		draft.TargetPrice = decimal.NullDecimal{
			Decimal: metrics.CurrentPrice.Mul(factor).Round(2),
			Valid:   true,
		}
	}
	return draft, true
}

// hold covers evidence not worth acting on: still recorded, but only when
// the combined confidence clears the floor. The prefix names why the call is
// a hold rather than directional.
func (e *Engine) hold(contributions []contribution, prefix string) (Draft, bool) {
	confidence := meanConfidence(contributions)
	if confidence < e.thresholds.MinConfidence {
		return Draft{}, false
	}

	reasons := make([]string, 0, len(contributions))
	horizon := 0
	for _, c := range contributions {
		reasons = append(reasons, c.reason)
		if c.horizon > horizon {
			horizon = c.horizon
		}
	}
	return Draft{
		Action:      models.ActionHold,
		Confidence:  confidence,
		HorizonDays: horizon,
		Rationale:   prefix + strings.Join(reasons, "; "),
	}, true
}

func scoreSum(contributions []contribution) float64 {
	sum := 0.0
	for _, c := range contributions {
		sum += c.confidence
	}
	return sum
}

func meanConfidence(contributions []contribution) float64 {
	if len(contributions) == 0 {
		return 0
	}
	return scoreSum(contributions) / float64(len(contributions))
}
