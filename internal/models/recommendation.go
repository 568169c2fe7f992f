package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recommendation actions.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// Recommendation is a synthesized trading action for a card. A newer
// recommendation for the same card supersedes older active ones, which are
// flipped to is_active=false rather than deleted.
type Recommendation struct {
	ID                 uint                `json:"id" gorm:"primaryKey"`
	CardID             uint                `json:"card_id" gorm:"index;not null"`
	MarketplaceID      *uint               `json:"marketplace_id"`
	Action             string              `json:"action" gorm:"size:8;not null"`
	Confidence         float64             `json:"confidence"`
	HorizonDays        int                 `json:"horizon_days"`
	TargetPrice        decimal.NullDecimal `json:"target_price" gorm:"type:decimal(10,2)"`
	CurrentPrice       decimal.Decimal     `json:"current_price" gorm:"type:decimal(10,2)"`
	PotentialProfitPct float64             `json:"potential_profit_pct"`
	Rationale          string              `json:"rationale" gorm:"type:text"`
	ValidUntil         *time.Time          `json:"valid_until"`
	IsActive           bool                `json:"is_active" gorm:"index;default:true"`
	CreatedAt          time.Time           `json:"created_at" gorm:"index"`
	UpdatedAt          time.Time           `json:"updated_at"`
}
