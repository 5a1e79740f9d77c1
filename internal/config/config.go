// Package config reads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AI providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Image cache backends.
const (
	ImageCacheMemory = "memory"
	ImageCacheRedis  = "redis"
)

// Config holds every setting the server needs.
type Config struct {
	Port          string
	DatabaseURL   string
	RedisURL      string
	APIToken      string
	MigrationsDir string

	PexelsKey   string
	PixabayKey  string
	MapTilerKey string

	AIProvider        string
	AIModel           string
	AIKey             string
	GenerationTimeout time.Duration

	ImageCache      string
	EnrichBatchSize int

	// EnrichBatchDelay is the pause between enrichment batches; 0 turns it off.
	EnrichBatchDelay time.Duration
}

// Load seeds the environment from the given .env files (".env" when none are named;
// missing files are skipped, variables already set win) and reads the settings.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	r := &reader{}
	cfg := &Config{
		Port:          r.optional("PORT", "8080"),
		DatabaseURL:   r.required("DATABASE_URL"),
		RedisURL:      r.required("REDIS_URL"),
		APIToken:      r.required("API_TOKEN"),
		MigrationsDir: r.optional("MIGRATIONS_DIR", "migrations"),

		PexelsKey:   r.required("PEXELS_API_KEY"),
		PixabayKey:  r.optional("PIXABAY_API_KEY", ""),
		MapTilerKey: r.optional("MAPTILER_API_KEY", ""),

		AIProvider:        strings.ToLower(r.optional("AI_PROVIDER", ProviderGemini)),
		AIModel:           r.optional("AI_MODEL", ""),
		GenerationTimeout: r.duration("GENERATION_TIMEOUT", 60*time.Second),

		ImageCache:       strings.ToLower(r.optional("IMAGE_CACHE", ImageCacheMemory)),
		EnrichBatchSize:  r.integer("ENRICH_BATCH_SIZE", 3),
		EnrichBatchDelay: r.duration("ENRICH_BATCH_DELAY", 500*time.Millisecond),
	}

	switch cfg.AIProvider {
	case ProviderGemini:
		cfg.AIKey = r.required("GEMINI_API_KEY")
	case ProviderOpenAI:
		cfg.AIKey = r.required("OPENAI_API_KEY")
	default:
		r.fail(fmt.Errorf("AI_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, cfg.AIProvider))
	}

	if cfg.ImageCache != ImageCacheMemory && cfg.ImageCache != ImageCacheRedis {
		r.fail(fmt.Errorf("IMAGE_CACHE must be %q or %q, got %q", ImageCacheMemory, ImageCacheRedis, cfg.ImageCache))
	}
	if cfg.EnrichBatchSize <= 0 {
		r.fail(fmt.Errorf("ENRICH_BATCH_SIZE must be positive, got %d", cfg.EnrichBatchSize))
	}
	if cfg.EnrichBatchDelay < 0 {
		r.fail(fmt.Errorf("ENRICH_BATCH_DELAY must not be negative, got %s", cfg.EnrichBatchDelay))
	}

	if err := errors.Join(r.errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// reader collects every problem so one run reports all of them.
type reader struct {
	errs []error
}

func (r *reader) fail(err error) {
	r.errs = append(r.errs, err)
}

func (r *reader) required(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		r.fail(fmt.Errorf("required environment variable %s not set", key))
	}
	return v
}

func (r *reader) optional(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (r *reader) integer(key string, fallback int) int {
	v := r.optional(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(fmt.Errorf("parsing %s: %w", key, err))
		return fallback
	}
	return n
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	v := r.optional(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(fmt.Errorf("parsing %s: %w", key, err))
		return fallback
	}
	return d
}
