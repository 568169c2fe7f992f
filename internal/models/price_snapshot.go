package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSnapshot is one persisted price observation, bucketed by hour. The
// composite unique index is the natural key: re-observing the same
// card/marketplace/condition/foil/language inside a bucket updates the row in
// place instead of duplicating it.
type PriceSnapshot struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	BucketTime    time.Time       `json:"bucket_time" gorm:"uniqueIndex:idx_snapshot_key;index;not null"`
	CardID        uint            `json:"card_id" gorm:"uniqueIndex:idx_snapshot_key;index;not null"`
	MarketplaceID uint            `json:"marketplace_id" gorm:"uniqueIndex:idx_snapshot_key;not null"`
	Condition     string          `json:"condition" gorm:"uniqueIndex:idx_snapshot_key;size:24;not null"`
	IsFoil        bool            `json:"is_foil" gorm:"uniqueIndex:idx_snapshot_key;not null"`
	Language      string          `json:"language" gorm:"uniqueIndex:idx_snapshot_key;size:8;not null"`
	Price         decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	PriceLow      decimal.NullDecimal `json:"price_low" gorm:"type:decimal(10,2)"`
	PriceMid      decimal.NullDecimal `json:"price_mid" gorm:"type:decimal(10,2)"`
	PriceHigh     decimal.NullDecimal `json:"price_high" gorm:"type:decimal(10,2)"`
	PriceMarket   decimal.NullDecimal `json:"price_market" gorm:"type:decimal(10,2)"`
	Currency      string          `json:"currency" gorm:"type:char(3);default:'USD'"`
	NumListings   *int            `json:"num_listings"`
	TotalQuantity *int            `json:"total_quantity"`
	Source        string          `json:"source" gorm:"size:32"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// SnapshotBucket truncates an observation timestamp to its hourly bucket.
func SnapshotBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// SnapshotMutableColumns are the measurement columns overwritten on a
// natural-key conflict. Key columns are never touched.
var SnapshotMutableColumns = []string{
	"price", "price_low", "price_mid", "price_high", "price_market",
	"currency", "num_listings", "total_quantity", "source", "updated_at",
}
