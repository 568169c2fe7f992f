package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/app"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/config"
	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/ingest"
)

// The daemon is the external scheduler for the pipeline: it runs Ingest on
// one ticker and Analyze+Recommend on another, and exposes manual trigger
// endpoints for operators.
func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	a, err := app.New(cfg, logger, ingest.ModeBestEffort)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runIngestLoop(ctx, a)
	go runAnalyzeLoop(ctx, a)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(a),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("daemon listening", zap.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("http server failed", zap.Error(err))
	}
	logger.Info("daemon stopped")
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func runIngestLoop(ctx context.Context, a *app.App) {
	ticker := time.NewTicker(a.Config.IngestInterval)
	defer ticker.Stop()

	for {
		runCtx, cancel := context.WithTimeout(ctx, a.Config.IngestInterval)
		if _, err := a.Ingest.Ingest(runCtx, nil); err != nil && ctx.Err() == nil {
			a.Logger.Error("scheduled ingestion failed", zap.Error(err))
		}
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runAnalyzeLoop(ctx context.Context, a *app.App) {
	ticker := time.NewTicker(a.Config.AnalyzeInterval)
	defer ticker.Stop()

	for {
		runCtx, cancel := context.WithTimeout(ctx, a.Config.AnalyzeInterval)
		asOf := time.Now().UTC()
		if _, err := a.Signals.Analyze(runCtx, asOf); err != nil && ctx.Err() == nil {
			a.Logger.Error("scheduled analysis failed", zap.Error(err))
		}
		if _, err := a.Recommend.Recommend(runCtx, asOf); err != nil && ctx.Err() == nil {
			a.Logger.Error("scheduled recommendation run failed", zap.Error(err))
		}
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func newRouter(a *app.App) *gin.Engine {
	if a.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/breakers", func(c *gin.Context) {
		states := gin.H{}
		for _, adapter := range a.Adapters.All() {
			states[adapter.Code()] = a.Breakers.State(adapter.Code()).String()
		}
		c.JSON(http.StatusOK, states)
	})

	r.POST("/run/ingest", func(c *gin.Context) {
		var req struct {
			CardIDs []uint `json:"card_ids"`
		}
		_ = c.ShouldBindJSON(&req)
		stats, err := a.Ingest.Ingest(c.Request.Context(), req.CardIDs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "stats": stats})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	r.POST("/run/analyze", func(c *gin.Context) {
		asOf, perr := parseAsOf(c.Query("date"))
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error()})
			return
		}
		stats, err := a.Signals.Analyze(c.Request.Context(), asOf)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "stats": stats})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	r.POST("/run/recommend", func(c *gin.Context) {
		asOf, perr := parseAsOf(c.Query("date"))
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error()})
			return
		}
		stats, err := a.Recommend.Recommend(c.Request.Context(), asOf)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "stats": stats})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	return r
}

// parseAsOf interprets an optional YYYY-MM-DD query value as end-of-day so
// analysis covers the whole date; empty means "now". A malformed value is an
// error, never silently today.
func parseAsOf(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return d.Add(24*time.Hour - time.Second), nil
}
