package models

import (
	"encoding/json"
	"time"
)

// Signal types.
const (
	SignalArbitrage      = "arbitrage"
	SignalSupplyLow      = "supply_low"
	SignalSupplyVelocity = "supply_velocity"
	SignalMetaSpike      = "meta_spike"
	SignalMetaDrop       = "meta_drop"
	SignalTop8Spike      = "top8_spike"
)

// Signal is a dated, typed indicator derived from snapshots or tournament
// data. Exactly one row exists per (card, date, type); regenerating for the
// same day overwrites in place.
type Signal struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CardID     uint      `json:"card_id" gorm:"uniqueIndex:idx_signal_key;index;not null"`
	Date       time.Time `json:"date" gorm:"uniqueIndex:idx_signal_key;type:date;not null"`
	SignalType string    `json:"signal_type" gorm:"uniqueIndex:idx_signal_key;size:32;not null"`
	Value      float64   `json:"value"`
	Confidence float64   `json:"confidence"`
	Details    string    `json:"details" gorm:"type:text"` // JSON payload, shape depends on signal type
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SignalMutableColumns are overwritten when a signal for the same
// (card, date, type) is regenerated.
var SignalMutableColumns = []string{"value", "confidence", "details", "updated_at"}

// SetDetails marshals a type-specific payload into the details column.
func (s *Signal) SetDetails(payload map[string]interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.Details = string(b)
	return nil
}

// DetailsMap unmarshals the details column. An empty or invalid payload
// yields an empty map.
func (s *Signal) DetailsMap() map[string]interface{} {
	out := map[string]interface{}{}
	if s.Details == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s.Details), &out)
	return out
}
