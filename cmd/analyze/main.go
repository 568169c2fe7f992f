package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/app"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/config"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/ingest"
)

var (
	dateArg       = flag.String("date", "", "analysis date YYYY-MM-DD (empty = today)")
	skipRecommend = flag.Bool("skip-recommend", false, "generate signals only")
	timeout       = flag.Duration("timeout", time.Hour, "run timeout")
)

// One-shot signal generation and recommendation for a date. Reprocessing a
// date overwrites that date's signals and supersedes prior recommendations,
// so reruns are safe.
func main() {
	flag.Parse()
	cfg := config.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	a, err := app.New(cfg, logger, ingest.ModeBestEffort)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}

	asOf := time.Now().UTC()
	if *dateArg != "" {
		d, perr := time.Parse("2006-01-02", *dateArg)
		if perr != nil {
			logger.Fatal("invalid -date, expected YYYY-MM-DD", zap.String("date", *dateArg))
		}
		asOf = d.Add(24*time.Hour - time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	stats, err := a.Signals.Analyze(ctx, asOf)
	if err != nil {
		logger.Fatal("analysis failed", zap.Error(err))
	}
	logger.Info("analysis finished",
		zap.Int("analyzed", stats.Analyzed),
		zap.Int("signals_written", stats.SignalsWritten),
		zap.Int("errors", stats.Errors))

	if *skipRecommend {
		return
	}

	recStats, err := a.Recommend.Recommend(ctx, asOf)
	if err != nil {
		logger.Fatal("recommendation run failed", zap.Error(err))
	}
	logger.Info("recommendations finished",
		zap.Int("cards_evaluated", recStats.CardsEvaluated),
		zap.Int("recommendations_written", recStats.RecommendationsWritten))
}
