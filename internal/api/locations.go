package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/neexbeast/tripplanner/internal/trip"
)

// GetLocation handles GET /api/v1/locations/{name}?country=.
// Cache hit → return. DB hit → cache + return. Neither → generate, store, cache.
func (h *Handlers) GetLocation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	country := r.URL.Query().Get("country")

	cached, err := h.cache.Get(r.Context(), name, country)
	if err != nil {
		h.log.Error("cache get failed", "location", name, "err", err)
	}
	if cached != nil {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	stored, err := h.locations.GetLocation(r.Context(), name, country)
	if err != nil {
		h.log.Error("db get failed", "location", name, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if stored != nil {
		if err := h.cache.Set(r.Context(), name, country, stored); err != nil {
			h.log.Warn("cache set failed after db hit", "location", name, "err", err)
		}
		writeJSON(w, http.StatusOK, stored)
		return
	}

	details, err := h.planner.DescribeLocation(r.Context(), name, country)
	if err != nil {
		h.log.Error("location generation failed", "location", name, "err", err)
		writeError(w, http.StatusBadGateway, "failed to generate location details")
		return
	}

	if err := h.locations.UpsertLocation(r.Context(), details); err != nil {
		h.log.Warn("storing generated location failed", "location", name, "err", err)
	}
	if err := h.cache.Set(r.Context(), name, country, details); err != nil {
		h.log.Warn("cache set failed after generation", "location", name, "err", err)
	}

	writeJSON(w, http.StatusOK, details)
}

// RefreshLocation handles POST /api/v1/locations/{name}/refresh?country=.
// Regenerates the guide, upserts DB, invalidates + repopulates cache.
func (h *Handlers) RefreshLocation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	country := r.URL.Query().Get("country")

	details, err := h.planner.DescribeLocation(r.Context(), name, country)
	if err != nil {
		h.log.Error("location generation failed", "location", name, "err", err)
		writeError(w, http.StatusBadGateway, "failed to generate location details")
		return
	}

	if err := h.locations.UpsertLocation(r.Context(), details); err != nil {
		h.log.Error("upsert failed", "location", name, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to store location details")
		return
	}

	if err := h.cache.Delete(r.Context(), name, country); err != nil {
		h.log.Warn("cache delete failed", "location", name, "err", err)
	}
	if err := h.cache.Set(r.Context(), name, country, details); err != nil {
		h.log.Warn("cache set failed after refresh", "location", name, "err", err)
	}

	writeJSON(w, http.StatusOK, details)
}

// SearchPlaces handles GET /api/v1/places?q=.
func (h *Handlers) SearchPlaces(w http.ResponseWriter, r *http.Request) {
	if h.places == nil {
		writeError(w, http.StatusServiceUnavailable, "place search is not configured")
		return
	}

	query := r.URL.Query().Get("q")
	places, err := h.places.Search(r.Context(), query)
	if err != nil {
		h.log.Error("place search failed", "query", query, "err", err)
		writeError(w, http.StatusBadGateway, "place search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"places": places})
}

// SearchDestinations handles GET /api/v1/destinations?q=.
// A blank query lists the featured destinations.
func (h *Handlers) SearchDestinations(w http.ResponseWriter, r *http.Request) {
	found := h.finder.Search(r.Context(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{"destinations": found})
}

// GetImage handles GET /api/v1/images?q=.
// Responds with an empty url when no picture was found.
func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	imageURL, _ := h.images.Resolve(r.Context(), query)
	writeJSON(w, http.StatusOK, map[string]string{"url": imageURL})
}

// destinationImage prefers the photo picked with the destination and falls back to a
// photo search on its name.
func (h *Handlers) destinationImage(ctx context.Context, loc trip.Location) string {
	if loc.PhotoURL != "" {
		return loc.PhotoURL
	}
	if loc.Name == "" {
		return ""
	}
	imageURL, _ := h.images.Resolve(ctx, loc.Name)
	return imageURL
}
