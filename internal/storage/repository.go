package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/tripplanner/internal/generate"
	"github.com/neexbeast/tripplanner/internal/trip"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides database access for trips and location guides.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

const tripColumns = `id, owner_email, selections, ai_plan, status, created_at`

// ListTripsByOwner returns the owner's trips, newest first. Blobs are returned as stored;
// decoding is left to trip.Parse so that one corrupted trip does not hide the others.
func (r *Repository) ListTripsByOwner(ctx context.Context, ownerEmail string) ([]trip.RawRecord, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE owner_email = $1
		ORDER BY created_at DESC
	`

	rows, err := r.q.Query(ctx, q, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("querying trips for owner %s: %w", ownerEmail, err)
	}
	defer rows.Close()

	records := []trip.RawRecord{}
	for rows.Next() {
		rec, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trip row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trip rows: %w", err)
	}

	return records, nil
}

// GetTrip retrieves a trip by id.
// Returns nil, nil when the trip is not found.
func (r *Repository) GetTrip(ctx context.Context, id string) (*trip.RawRecord, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE id = $1
	`

	rec, err := scanTrip(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying trip %s: %w", id, err)
	}

	return &rec, nil
}

// PutTrip inserts a trip or updates its blobs and status. Owner and creation time are
// set once and never overwritten.
func (r *Repository) PutTrip(ctx context.Context, rec trip.RawRecord) error {
	if len(rec.Selections) == 0 {
		return fmt.Errorf("storing trip %s: selections are required", rec.ID)
	}

	status := rec.Status
	if status == "" {
		status = trip.StatusPlanned
	}

	const q = `
		INSERT INTO trips (id, owner_email, selections, ai_plan, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE
		SET selections = EXCLUDED.selections,
		    ai_plan    = EXCLUDED.ai_plan,
		    status     = EXCLUDED.status,
		    updated_at = EXCLUDED.updated_at
	`

	var plan []byte
	if len(rec.AiPlan) > 0 {
		plan = []byte(rec.AiPlan)
	}

	if _, err := r.q.Exec(ctx, q, rec.ID, rec.OwnerEmail, []byte(rec.Selections), plan, status, rec.CreatedAt); err != nil {
		return fmt.Errorf("storing trip %s: %w", rec.ID, err)
	}

	return nil
}

func scanTrip(row pgx.Row) (trip.RawRecord, error) {
	var rec trip.RawRecord
	var selections, plan []byte

	if err := row.Scan(
		&rec.ID,
		&rec.OwnerEmail,
		&selections,
		&plan,
		&rec.Status,
		&rec.CreatedAt,
	); err != nil {
		return trip.RawRecord{}, err
	}

	rec.Selections = selections
	if len(plan) > 0 {
		rec.AiPlan = plan
	}
	return rec, nil
}

// GetLocation retrieves a stored location guide.
// Returns nil, nil when no guide exists for the location.
func (r *Repository) GetLocation(ctx context.Context, name, country string) (*generate.LocationDetails, error) {
	const q = `
		SELECT data
		FROM location_details
		WHERE key = $1
	`

	var dataJSON []byte
	if err := r.q.QueryRow(ctx, q, generate.LocationKey(name, country)).Scan(&dataJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying location guide for %s: %w", name, err)
	}

	var details generate.LocationDetails
	if err := json.Unmarshal(dataJSON, &details); err != nil {
		return nil, fmt.Errorf("unmarshaling location guide for %s: %w", name, err)
	}

	return &details, nil
}

// UpsertLocation inserts or replaces the guide for details.Name and details.Country.
func (r *Repository) UpsertLocation(ctx context.Context, details *generate.LocationDetails) error {
	if details == nil {
		return nil
	}

	dataJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshaling location guide for %s: %w", details.Name, err)
	}

	const q = `
		INSERT INTO location_details (key, name, country, data, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (key) DO UPDATE
		SET data       = EXCLUDED.data,
		    updated_at = EXCLUDED.updated_at
	`

	key := generate.LocationKey(details.Name, details.Country)
	if _, err := r.q.Exec(ctx, q, key, details.Name, details.Country, dataJSON); err != nil {
		return fmt.Errorf("upserting location guide for %s: %w", details.Name, err)
	}

	return nil
}
