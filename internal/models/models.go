package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Card represents a single printing of a trading card.
type Card struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	Name            string         `json:"name" gorm:"index;not null"`
	SetCode         string         `json:"set_code" gorm:"index;not null"`
	CollectorNumber string         `json:"collector_number"`
	ScryfallID      string         `json:"scryfall_id" gorm:"uniqueIndex"`
	Rarity          string         `json:"rarity"`
	IsActive        bool           `json:"is_active" gorm:"default:true"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

// Marketplace represents an external price source.
type Marketplace struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	Code         string          `json:"code" gorm:"uniqueIndex;not null"` // scryfall, tcgplayer, cardkingdom
	Name         string          `json:"name" gorm:"not null"`
	BaseCurrency string          `json:"base_currency" gorm:"type:char(3);default:'USD'"`
	FeePct       decimal.Decimal `json:"fee_pct" gorm:"type:decimal(5,4);default:0.1000"` // per-side fee used by arbitrage math
	IsActive     bool            `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TournamentStat stores one day of tournament play data for a card in a
// format. Inclusion and top-8 rates are derived from the counts at read time.
type TournamentStat struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	CardID        uint      `json:"card_id" gorm:"uniqueIndex:idx_tstat_key;not null"`
	Format        string    `json:"format" gorm:"uniqueIndex:idx_tstat_key;size:32;not null"`
	Date          time.Time `json:"date" gorm:"uniqueIndex:idx_tstat_key;type:date;not null"`
	DecksWithCard int       `json:"decks_with_card"`
	TotalDecks    int       `json:"total_decks"`
	Top8WithCard  int       `json:"top8_with_card"`
	TotalTop8     int       `json:"total_top8"`
	CreatedAt     time.Time `json:"created_at"`
}
