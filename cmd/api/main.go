package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	apiDeal "deal_underwriting/pkg/api/deal"
	"deal_underwriting/pkg/core/config"
	"deal_underwriting/pkg/core/engine"
	"deal_underwriting/pkg/core/logging"
	"deal_underwriting/pkg/core/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	presets, err := config.LoadPresets(cfg.PresetsPath)
	if err != nil {
		logger.Warn("presets unavailable", zap.String("path", cfg.PresetsPath), zap.Error(err))
	} else {
		logger.Info("presets loaded", zap.Int("count", len(presets)))
	}

	cache, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		logger.LogError("cache unavailable", err)
		os.Exit(1)
	}
	defer closeCache()

	h := apiDeal.NewHandler(cache, presets, logger)
	h.Workers = cfg.SensitivityWorkers
	if cfg.DiscountRate != 0 {
		h.Options = append(h.Options, engine.WithDiscountRate(cfg.DiscountRate))
	}

	mux := http.NewServeMux()
	h.Register(mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.LogError("shutdown", err)
		}
	}()

	logger.Info("API server starting",
		zap.String("addr", cfg.Addr),
		zap.String("cache", string(cfg.Cache())),
		zap.Strings("routes", []string{
			"POST /api/deal/validate",
			"POST /api/deal/run",
			"GET|POST /api/deal/share",
			"POST /api/deal/sensitivity",
			"POST /api/deal/report",
			"GET /api/deal/presets",
		}),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.LogError("server failed", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// openCache builds the configured result cache and a func that releases it.
func openCache(ctx context.Context, cfg *config.Config, logger *logging.Logger) (store.ResultCache, func(), error) {
	log := logger.WithComponent("cache")
	noop := func() {}

	switch cfg.Cache() {
	case config.CachePostgres:
		pool, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		c := store.NewPostgresCache(pool)
		if err := c.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		log.Info("using postgres")
		return c, pool.Close, nil
	case config.CacheRedis:
		client, err := store.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, noop, err
		}
		log.Info("using redis", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
		return store.NewRedisCache(client, cfg.CacheTTL), func() { client.Close() }, nil
	case config.CacheFile:
		c, err := store.NewFileCache(cfg.CacheDir)
		if err != nil {
			return nil, noop, err
		}
		log.Info("using files", zap.String("dir", cfg.CacheDir))
		return c, noop, nil
	default:
		log.Info("using memory")
		return store.NewMemoryCache(), noop, nil
	}
}
