// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds every tunable named in SPEC_FULL.md §6.
type Config struct {
	Env     string
	Port    string
	LogLevel string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	RedisURL string

	JWTHS256Secret string
	JWTDevMode     bool
	JWTIssuer      string
	JWTJWKSURL     string
	JWTAudience    string

	EmbeddingDim int

	RecEmbeddingWeight float64
	RecKeywordWeight   float64
	RecTemporalWeight  float64
	RecMinScore        float64
	RecMaxCandidates   int
	RecDefaultK        int

	SyncBatchMaxItems int
	SyncBatchMaxBytes int

	ReportClusterSeed int64

	RateLimitWindowSeconds int
	RateLimitMaxRequests   int
	RateLimitBurst         int
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Load reads a .env file if present (dev convenience only; missing file is
// not an error) and then builds a Config from the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	isDev := env("ENV", "") == "dev"

	return Config{
		Env:      env("ENV", ""),
		Port:     env("PORT", "8080"),
		LogLevel: env("LOG_LEVEL", "info"),

		DatabaseURL: env("DATABASE_URL", ""),
		DBMaxConns:  int32(envInt("DB_MAX_CONNS", 20)),
		DBMinConns:  int32(envInt("DB_MIN_CONNS", 2)),

		RedisURL: env("REDIS_URL", ""),

		JWTHS256Secret: env("JWT_HS256_SECRET", "dev-secret-change-in-production"),
		JWTDevMode:     isDev || envBool("JWT_DEV_MODE", false),
		JWTIssuer:      env("JWT_ISSUER", ""),
		JWTJWKSURL:     env("JWT_JWKS_URL", ""),
		JWTAudience:    env("JWT_AUDIENCE", ""),

		EmbeddingDim: envInt("EMBEDDING_DIM", 1024),

		RecEmbeddingWeight: envFloat("REC_EMBEDDING_WEIGHT", 0.6),
		RecKeywordWeight:   envFloat("REC_KEYWORD_WEIGHT", 0.3),
		RecTemporalWeight:  envFloat("REC_TEMPORAL_WEIGHT", 0.1),
		RecMinScore:        envFloat("REC_MIN_SCORE", 0.3),
		RecMaxCandidates:   envInt("REC_MAX_CANDIDATES", 50),
		RecDefaultK:        envInt("REC_DEFAULT_K", 10),

		SyncBatchMaxItems: envInt("SYNC_BATCH_MAX_ITEMS", 100),
		SyncBatchMaxBytes: envInt("SYNC_BATCH_MAX_BYTES", 1048576),

		ReportClusterSeed: int64(envInt("REPORT_CLUSTER_SEED", 42)),

		RateLimitWindowSeconds: envInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitMaxRequests:   envInt("RATE_LIMIT_MAX_REQUESTS", 600),
		RateLimitBurst:         envInt("RATE_LIMIT_BURST", 120),
	}
}
