package itinerary_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/tripplanner/internal/itinerary"
)

type mockResolver struct {
	fn func(ctx context.Context, query string) (string, bool)
}

func (m *mockResolver) Resolve(ctx context.Context, query string) (string, bool) {
	return m.fn(ctx, query)
}

func day(n int, activity string) itinerary.Day {
	return itinerary.Day{DayNumber: n, Activities: []itinerary.Activity{{Description: activity}}}
}

func TestEnrich_AttachesImages(t *testing.T) {
	resolver := &mockResolver{fn: func(_ context.Context, query string) (string, bool) {
		if query == "Visit museum" {
			return "https://img.example.com/museum.jpg", true
		}
		return "", false
	}}

	in := []itinerary.Day{day(1, "Visit museum"), day(2, "Unknown thing"), {DayNumber: 3}}
	out, err := itinerary.NewEnricher(resolver, 3, -1).Enrich(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, "https://img.example.com/museum.jpg", out[0].ImageURL)
	assert.Empty(t, out[1].ImageURL)
	assert.Empty(t, out[2].ImageURL)
	assert.Empty(t, in[0].ImageURL, "input is not modified")
}

func TestEnrich_BoundedConcurrency(t *testing.T) {
	var inFlight, peak, calls atomic.Int32
	resolver := &mockResolver{fn: func(_ context.Context, _ string) (string, bool) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return "x", true
	}}

	days := make([]itinerary.Day, 7)
	for i := range days {
		days[i] = day(i+1, "Day trip")
	}

	out, err := itinerary.NewEnricher(resolver, 3, -1).Enrich(context.Background(), days)
	require.NoError(t, err)

	assert.Equal(t, int32(7), calls.Load())
	assert.LessOrEqual(t, peak.Load(), int32(3))
	for _, d := range out {
		assert.Equal(t, "x", d.ImageURL)
	}
}

func TestEnrich_BatchesRunInOrder(t *testing.T) {
	var mu sync.Mutex
	var started []int
	finished := make(map[int]bool)
	violations := 0

	resolver := &mockResolver{fn: func(_ context.Context, query string) (string, bool) {
		mu.Lock()
		n := len(started)
		started = append(started, n)
		// every lookup of a previous batch must be done before this one starts
		for i := 0; i < n-n%2; i++ {
			if !finished[i] {
				violations++
			}
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		finished[n] = true
		mu.Unlock()
		return "", false
	}}

	days := []itinerary.Day{day(1, "a"), day(2, "b"), day(3, "c"), day(4, "d"), day(5, "e")}
	_, err := itinerary.NewEnricher(resolver, 2, -1).Enrich(context.Background(), days)
	require.NoError(t, err)

	assert.Len(t, started, 5)
	assert.Zero(t, violations)
}

func TestEnrich_DelayBetweenBatches(t *testing.T) {
	resolver := &mockResolver{fn: func(_ context.Context, _ string) (string, bool) { return "", false }}
	days := []itinerary.Day{day(1, "a"), day(2, "b"), day(3, "c")}

	begin := time.Now()
	_, err := itinerary.NewEnricher(resolver, 1, 30*time.Millisecond).Enrich(context.Background(), days)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(begin), 55*time.Millisecond)
}

func TestEnrich_DelayFollowsSlowBatch(t *testing.T) {
	var (
		mu     sync.Mutex
		starts []time.Time
		ends   []time.Time
	)
	resolver := &mockResolver{fn: func(_ context.Context, _ string) (string, bool) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()

		time.Sleep(40 * time.Millisecond)

		mu.Lock()
		ends = append(ends, time.Now())
		mu.Unlock()
		return "", false
	}}

	days := []itinerary.Day{day(1, "a"), day(2, "b")}
	_, err := itinerary.NewEnricher(resolver, 1, 30*time.Millisecond).Enrich(context.Background(), days)
	require.NoError(t, err)

	require.Len(t, starts, 2)
	assert.GreaterOrEqual(t, starts[1].Sub(ends[0]), 25*time.Millisecond)
}

func TestEnrich_ZeroDelayDisablesPause(t *testing.T) {
	resolver := &mockResolver{fn: func(_ context.Context, _ string) (string, bool) { return "", false }}
	days := []itinerary.Day{day(1, "a"), day(2, "b"), day(3, "c"), day(4, "d")}

	begin := time.Now()
	_, err := itinerary.NewEnricher(resolver, 1, 0).Enrich(context.Background(), days)
	require.NoError(t, err)

	assert.Less(t, time.Since(begin), itinerary.DefaultBatchDelay)
}

func TestEnrich_CancelledDuringPause(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var calls atomic.Int32
	resolver := &mockResolver{fn: func(_ context.Context, _ string) (string, bool) {
		calls.Add(1)
		return "x", true
	}}

	days := []itinerary.Day{day(1, "a"), day(2, "b")}
	out, err := itinerary.NewEnricher(resolver, 1, time.Second).Enrich(ctx, days)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "x", out[0].ImageURL)
	assert.Empty(t, out[1].ImageURL)
}

func TestEnrich_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	resolver := &mockResolver{fn: func(_ context.Context, _ string) (string, bool) {
		calls.Add(1)
		cancel()
		return "x", true
	}}

	days := []itinerary.Day{day(1, "a"), day(2, "b"), day(3, "c")}
	out, err := itinerary.NewEnricher(resolver, 1, -1).Enrich(ctx, days)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "x", out[0].ImageURL)
	assert.Empty(t, out[1].ImageURL)
}

func TestEnrich_Empty(t *testing.T) {
	resolver := &mockResolver{fn: func(_ context.Context, _ string) (string, bool) {
		t.Fatal("resolver must not be called")
		return "", false
	}}

	out, err := itinerary.NewEnricher(resolver, 0, 0).Enrich(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSearchPhrase(t *testing.T) {
	cases := []struct {
		activity string
		want     string
	}{
		{"Visit the Eiffel Tower at sunset", "Visit the Eiffel"},
		{"Café-hopping in Montmartre!", "Caféhopping in Montmartre"},
		{"Louvre", "Louvre"},
		{"  Breakfast,  then   walk ", "Breakfast then walk"},
		{"!!! ???", ""},
		{"", ""},
	}

	for _, tc := range cases {
		t.Run(tc.activity, func(t *testing.T) {
			assert.Equal(t, tc.want, itinerary.SearchPhrase(day(1, tc.activity)))
		})
	}

	assert.Empty(t, itinerary.SearchPhrase(itinerary.Day{DayNumber: 1}))
}
