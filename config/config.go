package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port               string
	DBConnectionString string
	CORSAllowOrigins   string
	JWTSecret          string

	// Global HTTP rate limiter
	RateLimitPerSecond int
	RateLimitBurst     int
	RateLimitWindowMin int

	// Blast (bulk dispatch) knobs
	BlastBatchSize         int
	BlastBatchDelay        time.Duration
	BlastMaxContacts       int
	BlastProgressRetention time.Duration

	// Connection lifecycle knobs
	PairingTimeout         time.Duration
	ReconnectDelay         time.Duration
	ReconnectCooldown      time.Duration
	PairRequestMinInterval time.Duration

	// Prefix 0 di nomor telepon diganti country code ini (misal "62").
	DefaultCountryCode string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "2121"),
		DBConnectionString: getEnv("DATABASE_URL", ""),
		CORSAllowOrigins:   getEnv("CORS_ALLOW_ORIGINS", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),

		RateLimitPerSecond: GetEnvAsInt("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:     GetEnvAsInt("RATE_LIMIT_BURST", 10),
		RateLimitWindowMin: GetEnvAsInt("RATE_LIMIT_WINDOW_MINUTES", 3),

		BlastBatchSize:         GetEnvAsInt("BLAST_BATCH_SIZE", 5),
		BlastBatchDelay:        time.Duration(GetEnvAsInt("BLAST_BATCH_DELAY_SECONDS", 1)) * time.Second,
		BlastMaxContacts:       GetEnvAsInt("BLAST_MAX_CONTACTS", 500),
		BlastProgressRetention: time.Duration(GetEnvAsInt("BLAST_PROGRESS_RETENTION_MINUTES", 5)) * time.Minute,

		PairingTimeout:         time.Duration(GetEnvAsInt("PAIRING_TIMEOUT_SECONDS", 60)) * time.Second,
		ReconnectDelay:         time.Duration(GetEnvAsInt("RECONNECT_DELAY_SECONDS", 5)) * time.Second,
		ReconnectCooldown:      time.Duration(GetEnvAsInt("RECONNECT_COOLDOWN_SECONDS", 10)) * time.Second,
		PairRequestMinInterval: time.Duration(GetEnvAsInt("PAIR_REQUEST_MIN_INTERVAL_SECONDS", 15)) * time.Second,

		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvAsInt membaca env var integer, fallback kalau kosong atau tidak valid.
func GetEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
