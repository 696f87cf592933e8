package price_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kantxie-coder/cryptosage/internal/entity"
	"github.com/kantxie-coder/cryptosage/internal/service/price"
	"github.com/kantxie-coder/cryptosage/internal/source"
)

// fakeSource resolves only the ids it carries quotes for; everything else is
// a not-listed miss. Ids in panics blow up to prove isolation.
type fakeSource struct {
	name   entity.SourceName
	quotes map[string]entity.Quote
	panics map[string]bool

	mu    sync.Mutex
	calls []string
}

func (f *fakeSource) Name() entity.SourceName { return f.name }

func (f *fakeSource) Lookup(_ context.Context, id string) (entity.Quote, error) {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()

	if f.panics[id] {
		panic("adapter exploded")
	}

	quote, ok := f.quotes[id]
	if !ok {
		return entity.Quote{}, source.ErrNotListed
	}

	return quote, nil
}

func (f *fakeSource) calledWith() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeBatcher is a batch-capable source, like the aggregator tier.
type fakeBatcher struct {
	name   entity.SourceName
	quotes entity.QuoteSet

	mu      sync.Mutex
	batches [][]string
}

func (f *fakeBatcher) Name() entity.SourceName { return f.name }

func (f *fakeBatcher) Lookup(_ context.Context, id string) (entity.Quote, error) {
	quote, ok := f.quotes[id]
	if !ok {
		return entity.Quote{}, source.ErrNotListed
	}

	return quote, nil
}

func (f *fakeBatcher) LookupBatch(_ context.Context, ids []string) (entity.QuoteSet, error) {
	f.mu.Lock()
	f.batches = append(f.batches, append([]string(nil), ids...))
	f.mu.Unlock()

	out := make(entity.QuoteSet)
	for id, quote := range f.quotes {
		out[id] = quote
	}

	return out, nil
}

func quoteFrom(id string, name entity.SourceName) entity.Quote {
	return entity.Quote{ID: id, PriceUSD: 100, Source: name}
}

func TestResolveTierPrecedence(t *testing.T) {
	t.Parallel()

	primary := &fakeSource{name: entity.SourceBinance, quotes: map[string]entity.Quote{
		"bitcoin": quoteFrom("bitcoin", entity.SourceBinance),
	}}
	secondary := &fakeSource{name: entity.SourceOKX, quotes: map[string]entity.Quote{
		"bitcoin": quoteFrom("bitcoin", entity.SourceOKX),
	}}

	svc := price.NewService(primary, secondary)

	quotes, err := svc.Resolve(t.Context(), []string{"bitcoin"})
	require.NoError(t, err)
	require.Equal(t, entity.SourceBinance, quotes["bitcoin"].Source)
	require.Empty(t, secondary.calledWith(), "secondary must not be consulted for a resolved asset")
}

func TestResolveFallbackAcrossAllTiers(t *testing.T) {
	t.Parallel()

	primary := &fakeSource{name: entity.SourceBinance, quotes: map[string]entity.Quote{
		"primary-ok-asset": quoteFrom("primary-ok-asset", entity.SourceBinance),
	}}
	secondary := &fakeSource{name: entity.SourceOKX, quotes: map[string]entity.Quote{
		"secondary-ok-asset": quoteFrom("secondary-ok-asset", entity.SourceOKX),
	}}
	tertiary := &fakeBatcher{name: entity.SourceCoinGecko, quotes: entity.QuoteSet{
		"tertiary-only-asset": quoteFrom("tertiary-only-asset", entity.SourceCoinGecko),
	}}

	svc := price.NewService(primary, secondary, tertiary)

	quotes, err := svc.Resolve(t.Context(), []string{
		"primary-ok-asset", "secondary-ok-asset", "tertiary-only-asset", "nowhere-asset",
	})
	require.NoError(t, err)
	require.Len(t, quotes, 3)
	require.Equal(t, entity.SourceBinance, quotes["primary-ok-asset"].Source)
	require.Equal(t, entity.SourceOKX, quotes["secondary-ok-asset"].Source)
	require.Equal(t, entity.SourceCoinGecko, quotes["tertiary-only-asset"].Source)
	require.NotContains(t, quotes, "nowhere-asset")

	// The aggregator gets exactly one batched call covering the remainder.
	require.Len(t, tertiary.batches, 1)
	require.ElementsMatch(t, []string{"tertiary-only-asset", "nowhere-asset"}, tertiary.batches[0])
}

func TestResolveTotalFailureSignal(t *testing.T) {
	t.Parallel()

	svc := price.NewService(
		&fakeSource{name: entity.SourceBinance},
		&fakeSource{name: entity.SourceOKX},
		&fakeBatcher{name: entity.SourceCoinGecko},
	)

	quotes, err := svc.Resolve(t.Context(), []string{"ghost-one", "ghost-two"})
	require.ErrorIs(t, err, price.ErrNoQuotes)
	require.Empty(t, quotes)
}

func TestResolveEmptyInput(t *testing.T) {
	t.Parallel()

	svc := price.NewService(&fakeSource{name: entity.SourceBinance})

	_, err := svc.Resolve(t.Context(), nil)
	require.ErrorIs(t, err, price.ErrNoQuotes)
}

func TestResolveFailureIsolation(t *testing.T) {
	t.Parallel()

	primary := &fakeSource{
		name: entity.SourceBinance,
		quotes: map[string]entity.Quote{
			"stable-asset": quoteFrom("stable-asset", entity.SourceBinance),
		},
		panics: map[string]bool{"broken-asset": true},
	}
	secondary := &fakeSource{name: entity.SourceOKX, quotes: map[string]entity.Quote{
		"broken-asset": quoteFrom("broken-asset", entity.SourceOKX),
	}}

	svc := price.NewService(primary, secondary)

	quotes, err := svc.Resolve(t.Context(), []string{"broken-asset", "stable-asset"})
	require.NoError(t, err)

	// The sibling lookup survives the panic and keeps primary provenance.
	require.Equal(t, entity.SourceBinance, quotes["stable-asset"].Source)
	// The panicking id is downgraded to a miss and falls through.
	require.Equal(t, entity.SourceOKX, quotes["broken-asset"].Source)
}

func TestResolveDeduplicatesAndNormalizes(t *testing.T) {
	t.Parallel()

	primary := &fakeSource{name: entity.SourceBinance, quotes: map[string]entity.Quote{
		"bitcoin": quoteFrom("bitcoin", entity.SourceBinance),
	}}

	svc := price.NewService(primary)

	quotes, err := svc.Resolve(t.Context(), []string{"Bitcoin", " bitcoin ", "BITCOIN"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.Len(t, primary.calledWith(), 1, "duplicates must collapse to one lookup")
}

func TestResolveIgnoresUnrequestedBatchExtras(t *testing.T) {
	t.Parallel()

	tertiary := &fakeBatcher{name: entity.SourceCoinGecko, quotes: entity.QuoteSet{
		"requested-asset": quoteFrom("requested-asset", entity.SourceCoinGecko),
		"volunteer-asset": quoteFrom("volunteer-asset", entity.SourceCoinGecko),
	}}

	svc := price.NewService(tertiary)

	quotes, err := svc.Resolve(t.Context(), []string{"requested-asset"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.NotContains(t, quotes, "volunteer-asset")
}

func TestNormalizeIDsKeepsOrder(t *testing.T) {
	t.Parallel()

	got := price.NormalizeIDs([]string{"  Ethereum", "bitcoin", "ethereum", "", "SOLANA"})
	require.Equal(t, []string{"ethereum", "bitcoin", "solana"}, got)
}
