package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/models"
)

// UpsertMode selects how the engine reacts to a failing batch.
type UpsertMode int

const (
	// ModeBestEffort skips a failing batch, counts its records as errors
	// and continues. Scheduled runs use this.
	ModeBestEffort UpsertMode = iota
	// ModeAllOrNothing aborts the whole run on the first failing batch.
	// Manual backfills use this when partial ingestion is unacceptable.
	ModeAllOrNothing
)

// SnapshotWriter persists one batch of snapshots with natural-key upsert
// semantics.
type SnapshotWriter interface {
	UpsertSnapshots(ctx context.Context, batch []models.PriceSnapshot) error
}

// UpsertStats summarizes one engine run.
type UpsertStats struct {
	Written int
	Errors  int
	Batches int
}

// BulkUpsertEngine converts prepared snapshot records into idempotent
// fixed-size batch writes. Re-running the same records any number of times
// yields the same rows.
type BulkUpsertEngine struct {
	writer    SnapshotWriter
	batchSize int
	logger    *zap.Logger
}

const defaultBatchSize = 500

func NewBulkUpsertEngine(writer SnapshotWriter, batchSize int, logger *zap.Logger) *BulkUpsertEngine {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &BulkUpsertEngine{
		writer:    writer,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run writes records in batches. In ModeAllOrNothing the first batch failure
// aborts and surfaces the error; in ModeBestEffort it is counted and the run
// continues. Cancellation stops between batches; committed batches stay
// committed.
func (e *BulkUpsertEngine) Run(ctx context.Context, records []models.PriceSnapshot, mode UpsertMode) (UpsertStats, error) {
	var stats UpsertStats

	for start := 0; start < len(records); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		end := start + e.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]
		stats.Batches++

		if err := e.writer.UpsertSnapshots(ctx, batch); err != nil {
			if mode == ModeAllOrNothing {
				return stats, fmt.Errorf("snapshot batch %d failed: %w", stats.Batches, err)
			}
			stats.Errors += len(batch)
			e.logger.Error("snapshot batch failed, continuing",
				zap.Int("batch", stats.Batches),
				zap.Int("records", len(batch)),
				zap.Error(err))
			continue
		}
		stats.Written += len(batch)
	}

	return stats, nil
}
