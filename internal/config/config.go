package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL   string
	Port          string
	LogLevel      string
	StorageDir    string
	PublicBaseURL string

	// Upload pipeline
	MaxUploadBytes int64
	QueryTimeout   time.Duration

	// Orphan reconciliation
	SweepInterval  time.Duration
	SweepGrace     time.Duration
	SweepBatchSize int
}

func Load() Config {
	return Config{
		DatabaseURL:    getEnvRequired("DATABASE_URL"),
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		StorageDir:     getEnv("STORAGE_DIR", "./data/blobs"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080/files"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),
		QueryTimeout:   getEnvDuration("QUERY_TIMEOUT", 5*time.Second),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", 15*time.Minute),
		SweepGrace:     getEnvDuration("SWEEP_GRACE", time.Hour),
		SweepBatchSize: getEnvInt("SWEEP_BATCH_SIZE", 500),
	}
}

func getEnvRequired(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic("required environment variable " + key + " is not set")
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return n
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return n
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return d
	}
	return fallback
}
