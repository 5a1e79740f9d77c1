package imagery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrQuotaExhausted is returned by a Throttled searcher that has spent its request budget.
var ErrQuotaExhausted = errors.New("search quota exhausted")

// Quota is a request budget: one request per Every, with up to Burst saved up.
type Quota struct {
	Every time.Duration
	Burst int
}

// Free-plan budgets: Pexels allows 200 requests an hour, Pixabay 100 a minute.
var (
	PexelsQuota  = Quota{Every: time.Hour / 200, Burst: 20}
	PixabayQuota = Quota{Every: time.Minute / 100, Burst: 10}
)

// Throttled keeps a PhotoSearcher within a Quota. Requests over budget fail at once with
// ErrQuotaExhausted instead of waiting, so the resolver moves on to the next service and
// caches nothing.
type Throttled struct {
	PhotoSearcher
	limiter *rate.Limiter
}

// Throttle wraps s with q.
func Throttle(s PhotoSearcher, q Quota) *Throttled {
	return &Throttled{PhotoSearcher: s, limiter: rate.NewLimiter(rate.Every(q.Every), max(q.Burst, 1))}
}

// Search forwards to the wrapped searcher while budget remains.
func (t *Throttled) Search(ctx context.Context, query string) (string, error) {
	if !t.limiter.Allow() {
		return "", fmt.Errorf("%s search for %q: %w", t.Name(), query, ErrQuotaExhausted)
	}
	return t.PhotoSearcher.Search(ctx, query)
}
