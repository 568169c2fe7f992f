package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseDSN string
	RedisAddr   string
	RedisDB     int
	Port        string
	Environment string

	// Ingestion
	CacheTTL        time.Duration // re-check window for (marketplace, card) pairs
	UpsertBatchSize int
	IngestInterval  time.Duration
	AnalyzeInterval time.Duration

	// Recommendation thresholds
	MinROI        float64
	MinConfidence float64

	// Adapter credentials / endpoints
	ScryfallBaseURL    string
	TCGPlayerBaseURL   string
	TCGPlayerAPIKey    string
	CardKingdomBaseURL string
	FXRatesBaseURL     string
}

// Load reads .env if present and falls back to environment variables.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DatabaseDSN: getEnv("DATABASE_DSN", "root:root@tcp(127.0.0.1:3306)/mtg_intel?charset=utf8mb4&parseTime=True&loc=UTC"),
		RedisAddr:   getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		CacheTTL:        getEnvDuration("SNAPSHOT_CACHE_TTL", 2*time.Hour),
		UpsertBatchSize: getEnvInt("UPSERT_BATCH_SIZE", 500),
		IngestInterval:  getEnvDuration("INGEST_INTERVAL", 2*time.Hour),
		AnalyzeInterval: getEnvDuration("ANALYZE_INTERVAL", 6*time.Hour),

		MinROI:        getEnvFloat("MIN_ROI", 0.10),
		MinConfidence: getEnvFloat("MIN_CONFIDENCE", 0.60),

		ScryfallBaseURL:    getEnv("SCRYFALL_BASE_URL", "https://api.scryfall.com"),
		TCGPlayerBaseURL:   getEnv("TCGPLAYER_BASE_URL", "https://api.tcgplayer.com"),
		TCGPlayerAPIKey:    getEnv("TCGPLAYER_API_KEY", ""),
		CardKingdomBaseURL: getEnv("CARDKINGDOM_BASE_URL", "https://api.cardkingdom.com"),
		FXRatesBaseURL:     getEnv("FX_RATES_BASE_URL", "https://open.er-api.com/v6"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
