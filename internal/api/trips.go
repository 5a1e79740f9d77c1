package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/tripplanner/internal/itinerary"
	"github.com/neexbeast/tripplanner/internal/trip"
)

const (
	// coverConcurrency bounds concurrent cover and hotel image lookups.
	coverConcurrency = 3
	maxRequestBody   = 1 << 20
)

type tripSummary struct {
	ID             string    `json:"id"`
	Destination    string    `json:"destination,omitempty"`
	Country        string    `json:"country,omitempty"`
	StartDate      string    `json:"startDate,omitempty"`
	EndDate        string    `json:"endDate,omitempty"`
	Days           int       `json:"days,omitempty"`
	Traveler       string    `json:"traveler,omitempty"`
	Budget         string    `json:"budget,omitempty"`
	Status         string    `json:"status,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	CoverImage     string    `json:"coverImage,omitempty"`
	Corrupted      bool      `json:"corrupted,omitempty"`
	CorruptedField string    `json:"corruptedField,omitempty"`
}

type tripDetail struct {
	Trip               *trip.Record    `json:"trip"`
	HeaderImage        string          `json:"headerImage,omitempty"`
	Itinerary          []itinerary.Day `json:"itinerary"`
	ItineraryAvailable bool            `json:"itineraryAvailable"`
}

type createTripRequest struct {
	OwnerEmail string          `json:"ownerEmail"`
	Selections json.RawMessage `json:"selections"`
}

// ListTrips handles GET /api/v1/trips?owner=<email>.
// Every stored trip is listed; trips that fail to decode are flagged as corrupted.
func (h *Handlers) ListTrips(w http.ResponseWriter, r *http.Request) {
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner is required")
		return
	}

	records, err := h.trips.ListTripsByOwner(r.Context(), owner)
	if err != nil {
		h.log.Error("listing trips failed", "owner", owner, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	summaries := make([]tripSummary, len(records))
	for i, raw := range records {
		rec, err := trip.Parse(raw)
		if err != nil {
			h.log.Warn("corrupted trip in list", "id", raw.ID, "err", err)
			summaries[i] = tripSummary{
				ID:             raw.ID,
				Status:         raw.Status,
				CreatedAt:      raw.CreatedAt,
				Corrupted:      true,
				CorruptedField: malformedField(err),
			}
			continue
		}
		summaries[i] = summarize(rec)
	}

	g, gCtx := errgroup.WithContext(r.Context())
	g.SetLimit(coverConcurrency)
	for i := range summaries {
		s := &summaries[i]
		if s.Corrupted || s.CoverImage != "" || s.Destination == "" {
			continue
		}
		g.Go(func() error {
			if imageURL, ok := h.images.Resolve(gCtx, s.Destination); ok {
				s.CoverImage = imageURL
			}
			return nil
		})
	}
	_ = g.Wait()

	writeJSON(w, http.StatusOK, map[string]any{"trips": summaries})
}

// CreateTrip handles POST /api/v1/trips.
// Generates a plan for the selections, stores the trip and returns it decoded.
func (h *Handlers) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner := strings.TrimSpace(req.OwnerEmail)
	if !strings.Contains(owner, "@") {
		writeError(w, http.StatusBadRequest, "ownerEmail is required")
		return
	}

	draft, err := trip.Parse(trip.RawRecord{Selections: req.Selections})
	if err != nil {
		writeError(w, http.StatusBadRequest, "selections are malformed")
		return
	}
	destination := strings.TrimSpace(draft.Selections.Destination.Name)
	if destination == "" {
		writeError(w, http.StatusBadRequest, "a destination is required")
		return
	}

	plan, err := h.planner.PlanTrip(r.Context(), draft.Selections)
	if err != nil {
		h.log.Error("trip generation failed", "destination", destination, "err", err)
		writeError(w, http.StatusBadGateway, "failed to generate trip plan")
		return
	}

	raw := trip.RawRecord{
		ID:         uuid.NewString(),
		OwnerEmail: owner,
		Selections: req.Selections,
		AiPlan:     plan,
		Status:     trip.StatusPlanned,
		CreatedAt:  h.now().UTC(),
	}
	if err := h.trips.PutTrip(r.Context(), raw); err != nil {
		h.log.Error("storing trip failed", "id", raw.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to store trip")
		return
	}

	rec, err := trip.Parse(raw)
	if err != nil {
		h.log.Error("stored trip does not decode", "id", raw.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.log.Info("trip created", "id", rec.ID, "destination", destination)
	writeJSON(w, http.StatusCreated, rec)
}

// GetTrip handles GET /api/v1/trips/{id}.
// Returns the decoded trip with its normalized, image-enriched itinerary.
func (h *Handlers) GetTrip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	raw, err := h.trips.GetTrip(r.Context(), id)
	if err != nil {
		h.log.Error("db get failed", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if raw == nil {
		writeError(w, http.StatusNotFound, "trip not found")
		return
	}

	rec, err := trip.Parse(*raw)
	if err != nil {
		h.log.Warn("corrupted trip requested", "id", id, "err", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": "trip data is corrupted",
			"field": malformedField(err),
		})
		return
	}

	days := []itinerary.Day{}
	if rec.AiPlan != nil {
		days = itinerary.Normalize(rec.AiPlan.Itinerary)
	}

	ctx := r.Context()
	var (
		header    string
		enrichErr error
		g         errgroup.Group
	)
	g.Go(func() error {
		header = h.destinationImage(ctx, rec.Selections.Destination)
		return nil
	})
	g.Go(func() error {
		h.hotelImages(ctx, rec.AiPlan)
		return nil
	})
	g.Go(func() error {
		enriched, err := h.enricher.Enrich(ctx, days)
		if enriched != nil {
			days = enriched
		}
		enrichErr = err
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		h.log.Info("trip detail abandoned", "id", id, "err", err)
		return
	}
	if enrichErr != nil {
		h.log.Warn("itinerary enrichment incomplete", "id", id, "err", enrichErr)
	}

	writeJSON(w, http.StatusOK, tripDetail{
		Trip:               rec,
		HeaderImage:        header,
		Itinerary:          days,
		ItineraryAvailable: len(days) > 0,
	})
}

// hotelImages fills in a picture for every hotel the plan left without one.
func (h *Handlers) hotelImages(ctx context.Context, plan *trip.Plan) {
	if plan == nil {
		return
	}

	var g errgroup.Group
	g.SetLimit(coverConcurrency)
	for i := range plan.Hotels {
		hotel := &plan.Hotels[i]
		name := strings.TrimSpace(hotel.Name.String())
		if hotel.ImageURL != "" || name == "" {
			continue
		}
		g.Go(func() error {
			if imageURL, ok := h.images.Resolve(ctx, name+" hotel"); ok {
				hotel.ImageURL = imageURL
			}
			return nil
		})
	}
	_ = g.Wait()
}

func summarize(rec *trip.Record) tripSummary {
	sel := rec.Selections
	return tripSummary{
		ID:          rec.ID,
		Destination: sel.Destination.Name,
		Country:     sel.Destination.Country,
		StartDate:   sel.StartDate,
		EndDate:     sel.EndDate,
		Days:        sel.DayCount(),
		Traveler:    sel.Traveler.Display(),
		Budget:      sel.Budget.Display(),
		Status:      rec.Status,
		CreatedAt:   rec.CreatedAt,
		CoverImage:  sel.Destination.PhotoURL,
	}
}

func malformedField(err error) string {
	var malformed *trip.MalformedError
	if errors.As(err, &malformed) {
		return malformed.Field
	}
	return ""
}
