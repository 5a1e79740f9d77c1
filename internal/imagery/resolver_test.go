package imagery_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/tripplanner/internal/imagery"
)

type mockSearcher struct {
	name string
	fn   func(ctx context.Context, query string) (string, error)
}

func (m *mockSearcher) Name() string { return m.name }

func (m *mockSearcher) Search(ctx context.Context, query string) (string, error) {
	return m.fn(ctx, query)
}

// pexelsServer answers every search with url and counts the requests it served.
func pexelsServer(t *testing.T, url string, delay time.Duration) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"photos": []map[string]any{{"src": map[string]any{"large": url}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "visit the eiffel", imagery.CacheKey("  Visit   the\tEIFFEL "))
	assert.Equal(t, "abcdefghijklmnopqrstuvwxyzabcd", imagery.CacheKey("abcdefghijklmnopqrstuvwxyzabcdefgh"))
	assert.Len(t, []rune(imagery.CacheKey("ééééééééééééééééééééééééééééééééééé")), 30)
	assert.Empty(t, imagery.CacheKey("   "))
}

func TestResolve_SecondLookupServedFromCache(t *testing.T) {
	srv, calls := pexelsServer(t, "https://images.example.com/louvre.jpg", 0)
	r := imagery.NewResolver(imagery.NewMemoryCache(), imagery.NewPexelsClientWithURL(srv.URL, "test-key"))
	ctx := context.Background()

	first, ok := r.Resolve(ctx, "Louvre museum")
	require.True(t, ok)
	second, ok := r.Resolve(ctx, "  louvre   MUSEUM")
	require.True(t, ok)

	assert.Equal(t, "https://images.example.com/louvre.jpg", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolve_ConcurrentLookupsCoalesce(t *testing.T) {
	srv, calls := pexelsServer(t, "https://images.example.com/x.jpg", 50*time.Millisecond)
	r := imagery.NewResolver(nil, imagery.NewPexelsClientWithURL(srv.URL, "test-key"))

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = r.Resolve(context.Background(), "Colosseum")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, got := range results {
		assert.Equal(t, "https://images.example.com/x.jpg", got)
	}
}

func TestResolve_FallsBackToSecondSearcher(t *testing.T) {
	empty := &mockSearcher{name: "first", fn: func(context.Context, string) (string, error) { return "", nil }}
	found := &mockSearcher{name: "second", fn: func(context.Context, string) (string, error) { return "https://b/1.jpg", nil }}

	got, ok := imagery.NewResolver(nil, empty, found).Resolve(context.Background(), "beach")
	require.True(t, ok)
	assert.Equal(t, "https://b/1.jpg", got)
}

func TestResolve_NoResultIsCached(t *testing.T) {
	var calls atomic.Int32
	none := &mockSearcher{name: "none", fn: func(context.Context, string) (string, error) {
		calls.Add(1)
		return "", nil
	}}
	mem := imagery.NewMemoryCache()
	r := imagery.NewResolver(mem, none)

	_, ok := r.Resolve(context.Background(), "nothing")
	assert.False(t, ok)
	_, ok = r.Resolve(context.Background(), "nothing")
	assert.False(t, ok)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, mem.Len())
}

func TestResolve_FailureIsNotCached(t *testing.T) {
	var calls atomic.Int32
	failing := &mockSearcher{name: "failing", fn: func(context.Context, string) (string, error) {
		calls.Add(1)
		return "", errors.New("boom")
	}}
	mem := imagery.NewMemoryCache()
	r := imagery.NewResolver(mem, failing)

	_, ok := r.Resolve(context.Background(), "tower")
	assert.False(t, ok)
	_, ok = r.Resolve(context.Background(), "tower")
	assert.False(t, ok)

	assert.Equal(t, int32(2), calls.Load())
	assert.Zero(t, mem.Len())
}

func TestResolve_ServerErrorYieldsNoImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	got, ok := imagery.NewResolver(nil, imagery.NewPexelsClientWithURL(srv.URL, "k")).Resolve(context.Background(), "x")
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestResolve_EmptyQuery(t *testing.T) {
	called := false
	s := &mockSearcher{name: "s", fn: func(context.Context, string) (string, error) {
		called = true
		return "u", nil
	}}

	_, ok := imagery.NewResolver(nil, s).Resolve(context.Background(), "  ")
	assert.False(t, ok)
	assert.False(t, called)
}

func TestResolve_CancelledCaller(t *testing.T) {
	release := make(chan struct{})
	slow := &mockSearcher{name: "slow", fn: func(context.Context, string) (string, error) {
		<-release
		return "https://slow/1.jpg", nil
	}}
	mem := imagery.NewMemoryCache()
	r := imagery.NewResolver(mem, slow)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := r.Resolve(ctx, "harbor")
	assert.False(t, ok)

	close(release)
	assert.Eventually(t, func() bool { return mem.Len() == 1 }, time.Second, 5*time.Millisecond,
		"the shared search still completes and fills the cache")
}
