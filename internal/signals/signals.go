// Package signals derives dated, typed, confidence-scored indicators from
// persisted snapshots and tournament data. Generators only read snapshot
// data no newer than the analysis date and own their Signal rows exclusively.
package signals

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Stats summarizes one generator (or one full Analyze) run.
type Stats struct {
	Analyzed       int `json:"analyzed"`
	SignalsWritten int `json:"signals_written"`
	Errors         int `json:"errors"`
}

func (s *Stats) add(other Stats) {
	s.Analyzed += other.Analyzed
	s.SignalsWritten += other.SignalsWritten
	s.Errors += other.Errors
}

// Generator is the common contract: compute signals as of a date and upsert
// one row per (card, date, type), overwriting prior rows for the same key.
type Generator interface {
	Type() string
	Generate(ctx context.Context, asOf time.Time) (Stats, error)
}

// signalDate normalizes the analysis timestamp to its calendar date.
func signalDate(asOf time.Time) time.Time {
	y, m, d := asOf.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Service runs every registered generator for an analysis date.
type Service struct {
	generators []Generator
	logger     *zap.Logger
}

func NewService(logger *zap.Logger, generators ...Generator) *Service {
	return &Service{generators: generators, logger: logger}
}

// Analyze runs all generators against data as of date. Generator-level
// failures are absorbed into the error count; the remaining generators still
// run.
func (s *Service) Analyze(ctx context.Context, asOf time.Time) (Stats, error) {
	var total Stats
	for _, g := range s.generators {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		stats, err := g.Generate(ctx, asOf)
		total.add(stats)
		if err != nil {
			total.Errors++
			s.logger.Error("signal generator failed",
				zap.String("type", g.Type()),
				zap.Error(err))
		}
	}
	s.logger.Info("analysis run complete",
		zap.Time("as_of", asOf),
		zap.Int("analyzed", total.Analyzed),
		zap.Int("signals_written", total.SignalsWritten),
		zap.Int("errors", total.Errors))
	return total, nil
}
