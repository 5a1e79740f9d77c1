package itinerary

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize  = 3
	DefaultBatchDelay = 500 * time.Millisecond

	// searchWords is how many words of the first activity make up a search phrase.
	searchWords = 3
)

// imageResolver is the interface satisfied by imagery.Resolver.
type imageResolver interface {
	Resolve(ctx context.Context, query string) (string, bool)
}

// Enricher attaches a representative image to each itinerary day.
type Enricher struct {
	resolver   imageResolver
	batchSize  int
	batchDelay time.Duration
}

// NewEnricher constructs an Enricher. A non-positive batch size selects DefaultBatchSize;
// a non-positive delay disables the pause between batches.
func NewEnricher(resolver imageResolver, batchSize int, batchDelay time.Duration) *Enricher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Enricher{resolver: resolver, batchSize: batchSize, batchDelay: max(batchDelay, 0)}
}

// Enrich returns a copy of days with ImageURL filled where a picture was found. Lookups
// run concurrently within a batch; batches run one after another with the batch delay
// between the end of one and the start of the next. A day that gets no picture keeps an empty ImageURL. When ctx is cancelled the
// days enriched so far are returned along with ctx.Err().
func (e *Enricher) Enrich(ctx context.Context, days []Day) ([]Day, error) {
	out := make([]Day, len(days))
	copy(out, days)

	for start := 0; start < len(out); start += e.batchSize {
		if start > 0 {
			if err := pause(ctx, e.batchDelay); err != nil {
				return out, err
			}
		}

		end := min(start+e.batchSize, len(out))

		var g errgroup.Group
		for i := start; i < end; i++ {
			phrase := SearchPhrase(out[i])
			if phrase == "" {
				continue
			}

			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						slog.Error("image lookup panicked", "day", out[i].DayNumber, "recover", r)
					}
				}()
				if imageURL, ok := e.resolver.Resolve(ctx, phrase); ok {
					out[i].ImageURL = imageURL
				}
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return out, err
		}
	}

	return out, nil
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SearchPhrase derives an image search phrase from the first activity of a day: its
// first three words with everything but letters, digits, underscores and spaces removed.
// It returns "" when the day has nothing to search for.
func SearchPhrase(d Day) string {
	if len(d.Activities) == 0 {
		return ""
	}

	words := strings.Fields(d.Activities[0].Description)
	if len(words) > searchWords {
		words = words[:searchWords]
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == ' ' {
			return r
		}
		return -1
	}, strings.Join(words, " "))

	return strings.Join(strings.Fields(cleaned), " ")
}
