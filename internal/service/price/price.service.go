package price

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kantxie-coder/cryptosage/internal/entity"
	"github.com/kantxie-coder/cryptosage/internal/httpx"
	"github.com/kantxie-coder/cryptosage/internal/source"
)

// ErrNoQuotes reports that no requested asset resolved on any tier. Partial
// results never produce it; callers use it to show one unified unavailable
// message instead of per-asset noise.
var ErrNoQuotes = errors.New("no quotes resolved on any source")

// Service resolves asset ids against an ordered list of sources. An earlier
// tier always wins: later tiers are only consulted for the unresolved
// remainder, so each asset is attributed to exactly one source and never
// fetched twice.
type Service struct {
	tiers []source.Source
}

func NewService(tiers ...source.Source) *Service {
	return &Service{tiers: tiers}
}

// Resolve returns one quote per id for the subset of ids that resolved on at
// least one tier. Ids that failed everywhere are absent from the set. When
// nothing resolves at all it returns ErrNoQuotes.
func (s *Service) Resolve(ctx context.Context, ids []string) (entity.QuoteSet, error) {
	ids = NormalizeIDs(ids)
	resolved := make(entity.QuoteSet, len(ids))

	for _, tier := range s.tiers {
		remaining := unresolvedIDs(ids, resolved)
		if len(remaining) == 0 {
			break
		}

		if batcher, ok := tier.(source.Batcher); ok {
			mergeBatch(ctx, tier.Name(), batcher, remaining, resolved)
			continue
		}

		mergeFanOut(ctx, tier, remaining, resolved)
	}

	if len(resolved) == 0 {
		return nil, ErrNoQuotes
	}

	return resolved, nil
}

// NormalizeIDs lowercases, trims and deduplicates ids, preserving first-seen
// order so callers can format results in the order they were asked for.
func NormalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

func unresolvedIDs(ids []string, resolved entity.QuoteSet) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := resolved[id]; !ok {
			out = append(out, id)
		}
	}

	return out
}

// mergeFanOut dispatches one lookup per id concurrently and waits for all of
// them to settle. Failures are downgraded to "no quote" per id so one bad
// lookup cannot abort its siblings.
func mergeFanOut(ctx context.Context, tier source.Source, ids []string, resolved entity.QuoteSet) {
	results := make(chan entity.Quote, len(ids))

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() {
				if recovered := recover(); recovered != nil {
					logrus.WithFields(logrus.Fields{
						"source": tier.Name(),
						"id":     id,
						"panic":  recovered,
					}).Error("price lookup panicked")
				}
			}()

			quote, err := tier.Lookup(ctx, id)
			if err != nil {
				logLookupFailure(tier.Name(), id, err)
				return
			}

			results <- quote
		}(id)
	}

	wg.Wait()
	close(results)

	for quote := range results {
		resolved[quote.ID] = quote
	}
}

// mergeBatch issues one call covering every remaining id and merges whatever
// subset the source recognized. Ids the source volunteers beyond the request
// are dropped so tier precedence cannot be subverted.
func mergeBatch(ctx context.Context, name entity.SourceName, batcher source.Batcher, ids []string, resolved entity.QuoteSet) {
	quotes, err := batcher.LookupBatch(ctx, ids)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"source": name,
			"ids":    strings.Join(ids, ","),
		}).Warnf("batch lookup failed: %v", err)
		return
	}

	requested := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}

	for id, quote := range quotes {
		if _, ok := requested[id]; !ok {
			continue
		}

		resolved[id] = quote
	}
}

func logLookupFailure(name entity.SourceName, id string, err error) {
	logger := logrus.WithFields(logrus.Fields{
		"source": name,
		"id":     id,
	})

	switch {
	case errors.Is(err, source.ErrNotListed):
		logger.Debug("asset not listed on source")
	case errors.Is(err, httpx.ErrRateLimited):
		logger.Warn("source rate limited, skipping tier for this asset")
	default:
		logger.Warnf("price lookup failed: %v", err)
	}
}
