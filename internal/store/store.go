// Package store holds the gorm repositories for every table the pipeline
// reads or writes. Consumers depend on narrow interfaces declared on their
// side; Store satisfies all of them.
package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ActiveCards returns active cards, restricted to ids when non-empty.
func (s *Store) ActiveCards(ctx context.Context, ids []uint) ([]models.Card, error) {
	q := s.db.WithContext(ctx).Where("is_active = ?", true)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	var cards []models.Card
	if err := q.Order("id asc").Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

// ActiveMarketplaces returns marketplaces eligible for ingestion and
// analysis.
func (s *Store) ActiveMarketplaces(ctx context.Context) ([]models.Marketplace, error) {
	var mps []models.Marketplace
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Order("id asc").Find(&mps).Error; err != nil {
		return nil, err
	}
	return mps, nil
}

// UpsertSnapshots writes one batch of snapshots with insert-or-update
// semantics on the natural key. Only the mutable measurement columns are
// overwritten on conflict.
func (s *Store) UpsertSnapshots(ctx context.Context, batch []models.PriceSnapshot) error {
	if len(batch) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "bucket_time"}, {Name: "card_id"}, {Name: "marketplace_id"},
			{Name: "condition"}, {Name: "is_foil"}, {Name: "language"},
		},
		DoUpdates: clause.AssignmentColumns(models.SnapshotMutableColumns),
	}).Create(&batch).Error
}

// SnapshotsInWindow returns every snapshot with bucket_time in [from, to),
// oldest first.
func (s *Store) SnapshotsInWindow(ctx context.Context, from, to time.Time) ([]models.PriceSnapshot, error) {
	var snaps []models.PriceSnapshot
	err := s.db.WithContext(ctx).
		Where("bucket_time >= ? AND bucket_time < ?", from, to).
		Order("bucket_time asc").
		Find(&snaps).Error
	if err != nil {
		return nil, err
	}
	return snaps, nil
}

// SupplyBaselineRow aggregates listing counts for one card over a baseline
// window.
type SupplyBaselineRow struct {
	CardID        uint
	TotalListings int
	SnapshotCount int
}

// SupplyBaseline aggregates per-card listing totals over [from, to).
func (s *Store) SupplyBaseline(ctx context.Context, from, to time.Time) ([]SupplyBaselineRow, error) {
	var rows []SupplyBaselineRow
	err := s.db.WithContext(ctx).
		Model(&models.PriceSnapshot{}).
		Select("card_id, COALESCE(SUM(num_listings),0) AS total_listings, COUNT(*) AS snapshot_count").
		Where("bucket_time >= ? AND bucket_time < ?", from, to).
		Group("card_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TournamentStatsInWindow returns tournament stats with date in [from, to).
func (s *Store) TournamentStatsInWindow(ctx context.Context, from, to time.Time) ([]models.TournamentStat, error) {
	var stats []models.TournamentStat
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date < ?", from, to).
		Order("date asc").
		Find(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// UpsertSignal writes a signal, overwriting any existing row for the same
// (card, date, type).
func (s *Store) UpsertSignal(ctx context.Context, sig *models.Signal) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "card_id"}, {Name: "date"}, {Name: "signal_type"},
		},
		DoUpdates: clause.AssignmentColumns(models.SignalMutableColumns),
	}).Create(sig).Error
}

// SignalsForDate returns all signals generated for a given analysis date.
func (s *Store) SignalsForDate(ctx context.Context, date time.Time) ([]models.Signal, error) {
	var sigs []models.Signal
	err := s.db.WithContext(ctx).
		Where("date = ?", date.Format("2006-01-02")).
		Find(&sigs).Error
	if err != nil {
		return nil, err
	}
	return sigs, nil
}

// ReplaceActiveRecommendation deactivates a card's active recommendations and
// inserts the new one in a single transaction, so a failure or crash between
// the two steps can never leave two active rows for the same card.
func (s *Store) ReplaceActiveRecommendation(ctx context.Context, rec *models.Recommendation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Recommendation{}).
			Where("card_id = ? AND is_active = ?", rec.CardID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
}

// ExpireRecommendations sweeps active recommendations whose validity window
// has elapsed.
func (s *Store) ExpireRecommendations(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Recommendation{}).
		Where("is_active = ? AND valid_until IS NOT NULL AND valid_until < ?", true, now).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// EnsureMarketplace creates a marketplace row for code if none exists.
func (s *Store) EnsureMarketplace(ctx context.Context, code, name string) error {
	return s.db.WithContext(ctx).
		Where(models.Marketplace{Code: code}).
		Attrs(models.Marketplace{Name: name, BaseCurrency: "USD", IsActive: true}).
		FirstOrCreate(&models.Marketplace{}).Error
}

// MarketplaceByCode returns the marketplace with the given code, or nil.
func (s *Store) MarketplaceByCode(ctx context.Context, code string) (*models.Marketplace, error) {
	var mp models.Marketplace
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&mp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mp, nil
}
