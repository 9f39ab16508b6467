// Package app wires the composition root shared by cmd/server and
// cmd/synapsectl's serve subcommand: config, the entity store, the
// derivation pipeline, and the three domain engines (SPEC_FULL.md §9 -
// "process-wide singletons ... handed to request handlers by the
// composition root, not as ambient globals").
package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/synapse-sync/core/internal/auth"
	"github.com/synapse-sync/core/internal/config"
	"github.com/synapse-sync/core/internal/db"
	"github.com/synapse-sync/core/internal/derive"
	"github.com/synapse-sync/core/internal/embedding"
	"github.com/synapse-sync/core/internal/httpapi"
	"github.com/synapse-sync/core/internal/keyword"
	"github.com/synapse-sync/core/internal/metrics"
	"github.com/synapse-sync/core/internal/recommend"
	"github.com/synapse-sync/core/internal/report"
	"github.com/synapse-sync/core/internal/store"
	"github.com/synapse-sync/core/internal/syncengine"
	"github.com/synapse-sync/core/internal/telemetry"
)

// ConfigureLogging applies cfg's log level and dev-mode console writer.
func ConfigureLogging(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.With().Str("service", "synapse-core").Logger()
	if cfg.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}

// OpenStore connects to Postgres and applies the schema migration.
func OpenStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	pool, err := db.Open(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, err
	}
	st := store.New(pool)
	if err := st.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return st, nil
}

// BuildServer assembles the HTTP server and its engines on top of an
// already-open store.
func BuildServer(cfg config.Config, st *store.Store) (*httpapi.Server, *redis.Client) {
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
	} else {
		log.Warn().Msg("REDIS_URL not set; weekly report cache disabled, Postgres remains the source of truth")
	}

	embedder := embedding.NewHashProvider(cfg.EmbeddingDim, 4000)
	extractor := keyword.NewTFIDFExtractor()
	pipeline := derive.New(embedder, extractor, 10)

	syncEngine := syncengine.New(st, pipeline, cfg.SyncBatchMaxItems, 500)
	recommendEngine := recommend.New(st)
	reportEngine := report.New(st, report.NewCache(redisClient))

	if !cfg.JWTDevMode {
		if cfg.JWTHS256Secret == "" || cfg.JWTHS256Secret == "dev-secret-change-in-production" {
			log.Fatal().Msg("JWT_HS256_SECRET must be set to a strong value outside dev mode")
		}
	}
	jwtCfg := auth.JWTCfg{
		HS256Secret: cfg.JWTHS256Secret,
		DevMode:     cfg.JWTDevMode,
		Issuer:      cfg.JWTIssuer,
		JWKSURL:     cfg.JWTJWKSURL,
		Audience:    cfg.JWTAudience,
	}
	if jwtCfg.JWKSURL != "" {
		if err := auth.InitJWKSCache(jwtCfg); err != nil {
			log.Warn().Err(err).Msg("failed to pre-fetch JWKS (will retry on first request)")
		}
	}

	srv := &httpapi.Server{
		Store: st,
		RateLimitConfig: httpapi.RateLimitInfo{
			WindowSeconds: cfg.RateLimitWindowSeconds,
			MaxRequests:   cfg.RateLimitMaxRequests,
			Burst:         cfg.RateLimitBurst,
		},
		JWTCfg:            jwtCfg,
		SyncEngine:        syncEngine,
		RecommendEngine:   recommendEngine,
		ReportEngine:      reportEngine,
		Metrics:           metrics.New(),
		SyncBatchMaxBytes: cfg.SyncBatchMaxBytes,
	}
	return srv, redisClient
}

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts it down
// gracefully.
func Serve(ctx context.Context, cfg config.Config) error {
	ConfigureLogging(cfg)

	shutdownTracer, err := telemetry.Init(ctx, "synapse-core")
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize tracer provider, continuing without tracing")
		shutdownTracer = func(context.Context) error { return nil }
	}

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Pool.Close()

	srv, redisClient := BuildServer(cfg, st)

	httpAddr := ":" + cfg.Port
	httpServer := &http.Server{
		Addr:         httpAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpAddr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown error")
	}

	log.Info().Msg("server stopped")
	return nil
}
