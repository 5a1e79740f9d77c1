package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/tripplanner/internal/generate"
)

const defaultTTL = time.Hour

// Cache wraps a Redis client and provides typed get/set/delete for location guides.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache with a 1-hour TTL.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client, ttl: defaultTTL}
}

func locationKey(name, country string) string {
	return "location:" + generate.LocationKey(name, country)
}

// Get retrieves a location guide from cache.
// Returns nil, nil on a cache miss (not an error).
func (c *Cache) Get(ctx context.Context, name, country string) (*generate.LocationDetails, error) {
	val, err := c.client.Get(ctx, locationKey(name, country)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for location %s: %w", name, err)
	}

	var details generate.LocationDetails
	if err := json.Unmarshal([]byte(val), &details); err != nil {
		return nil, fmt.Errorf("unmarshaling cached guide for location %s: %w", name, err)
	}

	return &details, nil
}

// Set stores a location guide in cache with the configured TTL.
func (c *Cache) Set(ctx context.Context, name, country string, details *generate.LocationDetails) error {
	if details == nil {
		return nil
	}

	b, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshaling guide for location %s: %w", name, err)
	}

	if err := c.client.Set(ctx, locationKey(name, country), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for location %s: %w", name, err)
	}

	return nil
}

// Delete removes the cached guide for the given location.
func (c *Cache) Delete(ctx context.Context, name, country string) error {
	if err := c.client.Del(ctx, locationKey(name, country)).Err(); err != nil {
		return fmt.Errorf("cache delete for location %s: %w", name, err)
	}
	return nil
}
