package imagery

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Resolver turns a free-text query into a photo URL, consulting the cache before the
// photo services. Safe for concurrent use.
type Resolver struct {
	cache     Cache
	searchers []PhotoSearcher
	group     singleflight.Group
}

// NewResolver constructs a Resolver. Searchers are tried in the given order; nil
// searchers are ignored. A nil cache falls back to a MemoryCache.
func NewResolver(cache Cache, searchers ...PhotoSearcher) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}

	active := make([]PhotoSearcher, 0, len(searchers))
	for _, s := range searchers {
		if s != nil {
			active = append(active, s)
		}
	}

	return &Resolver{cache: cache, searchers: active}
}

// Resolve returns a photo URL for query and whether one was found. Failures are logged
// and reported as "no image". Concurrent calls for the same cache key share one search.
func (r *Resolver) Resolve(ctx context.Context, query string) (string, bool) {
	key := CacheKey(query)
	if key == "" {
		return "", false
	}

	imageURL, found, err := r.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("image cache read failed", "key", key, "err", err)
	} else if found {
		return imageURL, imageURL != ""
	}

	// The shared search outlives any single caller's cancellation.
	searchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		return r.search(searchCtx, key, strings.TrimSpace(query)), nil
	})

	select {
	case <-ctx.Done():
		return "", false
	case res := <-ch:
		imageURL, _ := res.Val.(string)
		return imageURL, imageURL != ""
	}
}

// search asks each photo service in turn. A URL or a clean "no match" from every service
// is cached; a lookup that hit any error and found nothing is not.
func (r *Resolver) search(ctx context.Context, key, query string) string {
	definite := true
	for _, s := range r.searchers {
		imageURL, err := s.Search(ctx, query)
		if err != nil {
			slog.Warn("image search failed", "source", s.Name(), "query", query, "err", err)
			definite = false
			continue
		}
		if imageURL != "" {
			r.store(ctx, key, imageURL)
			return imageURL
		}
	}

	if definite {
		r.store(ctx, key, "")
	}
	return ""
}

func (r *Resolver) store(ctx context.Context, key, imageURL string) {
	if err := r.cache.Set(ctx, key, imageURL); err != nil {
		slog.Warn("image cache write failed", "key", key, "err", err)
	}
}
