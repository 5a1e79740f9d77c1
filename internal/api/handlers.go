// Package api exposes the trip planner over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Deps groups the collaborators of the HTTP handlers. Places may be nil when geocoding
// is not configured.
type Deps struct {
	Trips     TripRepo
	Locations LocationRepo
	Cache     LocationCache
	Planner   Planner
	Images    ImageResolver
	Enricher  DayEnricher
	Places    PlaceSearcher

	Destinations DestinationFinder
}

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	trips     TripRepo
	locations LocationRepo
	cache     LocationCache
	planner   Planner
	images    ImageResolver
	enricher  DayEnricher
	places    PlaceSearcher
	finder    DestinationFinder
	log       *slog.Logger
	now       func() time.Time
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(deps Deps, log *slog.Logger) *Handlers {
	return &Handlers{
		trips:     deps.Trips,
		locations: deps.Locations,
		cache:     deps.Cache,
		planner:   deps.Planner,
		images:    deps.Images,
		enricher:  deps.Enricher,
		places:    deps.Places,
		finder:    deps.Destinations,
		log:       log,
		now:       time.Now,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type dbPinger interface {
	Ping(ctx context.Context) error
}

type redisPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc handles GET /api/v1/health.
// Pings DB and Redis; returns 200 if both ok, 503 otherwise.
func HealthHandlerFunc(db dbPinger, redis redisPinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		overall, dbStatus, redisStatus := "ok", "ok", "ok"

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", "err", err)
			dbStatus = "error"
			status = http.StatusServiceUnavailable
		}

		if err := redis.Ping(ctx); err != nil {
			log.Error("health check: redis ping failed", "err", err)
			redisStatus = "error"
			status = http.StatusServiceUnavailable
		}

		if status != http.StatusOK {
			overall = "degraded"
		}

		writeJSON(w, status, map[string]string{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}
