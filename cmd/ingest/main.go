package main

import (
	"context"
	"flag"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/app"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/config"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/ingest"
)

var (
	cardIDList   = flag.String("cards", "", "comma-separated card IDs (empty = all active cards)")
	allOrNothing = flag.Bool("all-or-nothing", false, "abort the whole run on the first failing batch")
	timeout      = flag.Duration("timeout", 2*time.Hour, "run timeout")
)

// One-shot ingestion, for manual backfills. Unlike the daemon this defaults
// to interactive semantics: pick your cards, pick your failure mode.
func main() {
	flag.Parse()
	cfg := config.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	mode := ingest.ModeBestEffort
	if *allOrNothing {
		mode = ingest.ModeAllOrNothing
	}

	a, err := app.New(cfg, logger, mode)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	stats, err := a.Ingest.Ingest(ctx, parseCardIDs(*cardIDList))
	if err != nil {
		logger.Fatal("ingestion failed",
			zap.Int("processed", stats.Processed),
			zap.Int("fetched", stats.Fetched),
			zap.Int("errors", stats.Errors),
			zap.Error(err))
	}
	logger.Info("ingestion finished",
		zap.Int("processed", stats.Processed),
		zap.Int("fetched", stats.Fetched),
		zap.Int("errors", stats.Errors))
}

func parseCardIDs(raw string) []uint {
	if raw == "" {
		return nil
	}
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}
