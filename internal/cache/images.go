package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultImageTTL is how long a resolved image URL is kept.
const DefaultImageTTL = 7 * 24 * time.Hour

// ImageStore keeps resolved image URLs in Redis so that every server instance shares
// them. It satisfies imagery.Cache. An empty stored value records a search without match.
type ImageStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewImageStore constructs an ImageStore. A non-positive ttl selects DefaultImageTTL.
func NewImageStore(client *redis.Client, ttl time.Duration) *ImageStore {
	if ttl <= 0 {
		ttl = DefaultImageTTL
	}
	return &ImageStore{client: client, ttl: ttl}
}

func imageKey(key string) string {
	return "image:" + key
}

// Get returns the stored URL and whether the key was present.
func (s *ImageStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, imageKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("image cache get for %q: %w", key, err)
	}
	return val, true, nil
}

// Set stores imageURL under key with the configured TTL.
func (s *ImageStore) Set(ctx context.Context, key, imageURL string) error {
	if err := s.client.Set(ctx, imageKey(key), imageURL, s.ttl).Err(); err != nil {
		return fmt.Errorf("image cache set for %q: %w", key, err)
	}
	return nil
}
