package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/tripplanner/internal/api"
	"github.com/neexbeast/tripplanner/internal/cache"
	"github.com/neexbeast/tripplanner/internal/config"
	"github.com/neexbeast/tripplanner/internal/discover"
	"github.com/neexbeast/tripplanner/internal/generate"
	"github.com/neexbeast/tripplanner/internal/geocode"
	"github.com/neexbeast/tripplanner/internal/imagery"
	"github.com/neexbeast/tripplanner/internal/itinerary"
	"github.com/neexbeast/tripplanner/internal/storage"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	// Connect to PostgreSQL.
	pool, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := storage.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations applied")

	// Connect to Redis.
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	gen, closeGen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGen()

	// Wire dependencies.
	repo := storage.NewRepository(pool)
	resolver := newResolver(cfg, redisClient)
	deps := api.Deps{
		Trips:     repo,
		Locations: repo,
		Cache:     cache.NewCache(redisClient),
		Planner:   generate.NewPlanner(gen, cfg.GenerationTimeout),
		Images:    resolver,
		Enricher:  itinerary.NewEnricher(resolver, cfg.EnrichBatchSize, cfg.EnrichBatchDelay),

		Destinations: discover.NewCatalog(resolver),
	}
	if cfg.MapTilerKey != "" {
		deps.Places = geocode.NewClient(cfg.MapTilerKey)
	} else {
		log.Warn("MAPTILER_API_KEY not set, place search disabled")
	}

	handlers := api.NewHandlers(deps, log)
	router := api.NewRouter(handlers, cfg.APIToken, pool, &redisPingerAdapter{client: redisClient}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GenerationTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port, "ai_provider", cfg.AIProvider, "image_cache", cfg.ImageCache)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// newGenerator builds the configured model client and the func that releases it.
func newGenerator(ctx context.Context, cfg *config.Config) (generate.Generator, func(), error) {
	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		return generate.NewOpenAIClient(cfg.AIKey, cfg.AIModel), func() {}, nil
	default:
		client, err := generate.NewGeminiClient(ctx, cfg.AIKey, cfg.AIModel)
		if err != nil {
			return nil, nil, err
		}
		return client, func() { _ = client.Close() }, nil
	}
}

// newResolver chains Pexels then Pixabay, each within its free-plan quota, behind the
// configured image cache.
func newResolver(cfg *config.Config, redisClient *redis.Client) *imagery.Resolver {
	var store imagery.Cache = imagery.NewMemoryCache()
	if cfg.ImageCache == config.ImageCacheRedis {
		store = cache.NewImageStore(redisClient, cache.DefaultImageTTL)
	}

	searchers := []imagery.PhotoSearcher{
		imagery.Throttle(imagery.NewPexelsClient(cfg.PexelsKey), imagery.PexelsQuota),
	}
	if cfg.PixabayKey != "" {
		searchers = append(searchers, imagery.Throttle(imagery.NewPixabayClient(cfg.PixabayKey), imagery.PixabayQuota))
	}
	return imagery.NewResolver(store, searchers...)
}

// redisPingerAdapter adapts redis.Client to the api.redisPinger interface.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return cache.Ping(ctx, r.client)
}
