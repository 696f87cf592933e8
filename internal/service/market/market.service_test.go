package market

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kantxie-coder/cryptosage/internal/detect"
	"github.com/kantxie-coder/cryptosage/internal/entity"
)

type fakeResolver struct {
	quotes entity.QuoteSet
	err    error
	calls  [][]string
}

func (f *fakeResolver) Resolve(_ context.Context, ids []string) (entity.QuoteSet, error) {
	f.calls = append(f.calls, ids)
	if f.err != nil {
		return nil, f.err
	}

	return f.quotes, nil
}

type fakeAggregator struct {
	coins    []entity.MarketCoin
	trending []entity.TrendingCoin
	global   entity.GlobalMarket
	charts   map[string]entity.MarketChart

	marketsErr  error
	globalErr   error
	chartErr    error
	marketCalls int
}

func (f *fakeAggregator) Markets(_ context.Context, limit int) ([]entity.MarketCoin, error) {
	f.marketCalls++
	if f.marketsErr != nil {
		return nil, f.marketsErr
	}
	if limit < len(f.coins) {
		return f.coins[:limit], nil
	}

	return f.coins, nil
}

func (f *fakeAggregator) Trending(_ context.Context) ([]entity.TrendingCoin, error) {
	return f.trending, nil
}

func (f *fakeAggregator) Global(_ context.Context) (entity.GlobalMarket, error) {
	if f.globalErr != nil {
		return entity.GlobalMarket{}, f.globalErr
	}

	return f.global, nil
}

func (f *fakeAggregator) MarketChart(_ context.Context, id string) (entity.MarketChart, error) {
	if f.chartErr != nil {
		return entity.MarketChart{}, f.chartErr
	}

	chart, ok := f.charts[id]
	if !ok {
		return entity.MarketChart{}, errors.New("no chart")
	}

	return chart, nil
}

type fakeSentiment struct {
	index entity.FearGreed
	err   error
}

func (f *fakeSentiment) FearGreed(_ context.Context) (entity.FearGreed, error) {
	if f.err != nil {
		return entity.FearGreed{}, f.err
	}

	return f.index, nil
}

type fakeNews struct {
	articles []entity.NewsArticle
}

func (f *fakeNews) News(_ context.Context, limit int) ([]entity.NewsArticle, error) {
	if limit < len(f.articles) {
		return f.articles[:limit], nil
	}

	return f.articles, nil
}

type fakeWhales struct {
	keyed bool
	txs   []entity.WhaleTransaction
	err   error
}

func (f *fakeWhales) Keyed() bool {
	return f.keyed
}

func (f *fakeWhales) Transactions(_ context.Context, _, _ int) ([]entity.WhaleTransaction, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.txs, nil
}

func newTestService(resolver *fakeResolver, aggregator *fakeAggregator, sentiment *fakeSentiment) *Service {
	return NewService(resolver, aggregator, sentiment, &fakeNews{}, &fakeWhales{}, nil)
}

func TestContextBlocksDetectedAssetsTriggerPriceBlock(t *testing.T) {
	resolver := &fakeResolver{quotes: entity.QuoteSet{
		"bitcoin": {ID: "bitcoin", PriceUSD: 45000, Source: entity.SourceBinance},
	}}
	svc := newTestService(resolver, &fakeAggregator{}, &fakeSentiment{})

	blocks := svc.ContextBlocks(context.Background(), detect.Detection{Assets: []string{"bitcoin"}})

	require.Len(t, blocks, 1)
	require.Contains(t, blocks[0], "[Real-time prices]")
	require.Contains(t, blocks[0], `"id":"bitcoin"`)
	require.Contains(t, blocks[0], `"usd":45000`)
	require.Equal(t, [][]string{{"bitcoin"}}, resolver.calls)
}

func TestContextBlocksPriceIntentFallsBackToDefaultAssets(t *testing.T) {
	resolver := &fakeResolver{quotes: entity.QuoteSet{
		"bitcoin": {ID: "bitcoin", PriceUSD: 45000, Source: entity.SourceBinance},
	}}
	svc := NewService(resolver, &fakeAggregator{}, &fakeSentiment{}, &fakeNews{}, &fakeWhales{}, []string{"bitcoin", "ethereum"})

	svc.ContextBlocks(context.Background(), detect.Detection{WantsPrice: true})

	require.Equal(t, [][]string{{"bitcoin", "ethereum"}}, resolver.calls)
}

func TestContextBlocksAssemblesAllCategoriesInOrder(t *testing.T) {
	resolver := &fakeResolver{quotes: entity.QuoteSet{
		"bitcoin": {ID: "bitcoin", PriceUSD: 45000, Source: entity.SourceBinance},
	}}
	aggregator := &fakeAggregator{coins: []entity.MarketCoin{
		{Symbol: "btc", PriceUSD: 45000, Change24h: 2.1},
		{Symbol: "eth", PriceUSD: 2500, Change24h: -1.3},
	}}
	sentiment := &fakeSentiment{index: entity.FearGreed{Value: 57, Classification: "Greed"}}
	svc := newTestService(resolver, aggregator, sentiment)

	blocks := svc.ContextBlocks(context.Background(), detect.Detection{
		Assets:         []string{"bitcoin"},
		WantsPrice:     true,
		WantsMarket:    true,
		WantsSentiment: true,
	})

	require.Len(t, blocks, 3)
	require.Contains(t, blocks[0], "[Real-time prices]")
	require.Contains(t, blocks[1], "[Top 5 by market cap]")
	require.Contains(t, blocks[1], "BTC: $45000.00 (24h: +2.10%)")
	require.Contains(t, blocks[1], "ETH: $2500.00 (24h: -1.30%)")
	require.Contains(t, blocks[2], "[Fear & Greed index]\n57/100 (Greed)")
}

func TestContextBlocksDropsFailedBlockKeepsRest(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("all sources down")}
	sentiment := &fakeSentiment{index: entity.FearGreed{Value: 20, Classification: "Extreme Fear"}}
	svc := newTestService(resolver, &fakeAggregator{}, sentiment)

	blocks := svc.ContextBlocks(context.Background(), detect.Detection{
		Assets:         []string{"bitcoin"},
		WantsSentiment: true,
	})

	require.Len(t, blocks, 1)
	require.Contains(t, blocks[0], "[Fear & Greed index]")
}

func TestContextBlocksEmptyDetectionFetchesNothing(t *testing.T) {
	resolver := &fakeResolver{}
	aggregator := &fakeAggregator{}
	svc := newTestService(resolver, aggregator, &fakeSentiment{})

	blocks := svc.ContextBlocks(context.Background(), detect.Detection{})

	require.Empty(t, blocks)
	require.Empty(t, resolver.calls)
	require.Zero(t, aggregator.marketCalls)
}

func TestOverviewDowngradesGlobalFailure(t *testing.T) {
	aggregator := &fakeAggregator{
		coins:     []entity.MarketCoin{{ID: "bitcoin", Symbol: "btc", PriceUSD: 45000}},
		globalErr: errors.New("global endpoint down"),
	}
	svc := newTestService(&fakeResolver{}, aggregator, &fakeSentiment{})

	overview, err := svc.Overview(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, overview.Coins, 1)
	require.Zero(t, overview.Global)
}

func TestOverviewPropagatesMarketsFailure(t *testing.T) {
	aggregator := &fakeAggregator{marketsErr: errors.New("markets endpoint down")}
	svc := newTestService(&fakeResolver{}, aggregator, &fakeSentiment{})

	_, err := svc.Overview(context.Background(), 10)

	require.Error(t, err)
}

func TestChainActivityContextSummarizesDefaultAssets(t *testing.T) {
	aggregator := &fakeAggregator{charts: map[string]entity.MarketChart{
		"bitcoin":  {ID: "bitcoin", VolumePoints: 25, LatestVolumeUSD: 1500000000, VolumeTrendPct: 12.5},
		"ethereum": {ID: "ethereum", VolumePoints: 25, LatestVolumeUSD: 800000000, VolumeTrendPct: -4.2},
	}}
	svc := newTestService(&fakeResolver{}, aggregator, &fakeSentiment{})

	summary, err := svc.ChainActivityContext(context.Background())

	require.NoError(t, err)
	require.Contains(t, summary, "bitcoin: 24h volume trend +12.50% over 25 hourly samples, latest hourly volume $1500000000")
	require.Contains(t, summary, "ethereum: 24h volume trend -4.20%")
}

func TestChainActivityContextFailsWhenNoChartResolves(t *testing.T) {
	aggregator := &fakeAggregator{chartErr: errors.New("chart endpoint down")}
	svc := newTestService(&fakeResolver{}, aggregator, &fakeSentiment{})

	_, err := svc.ChainActivityContext(context.Background())

	require.Error(t, err)
}

func TestWhaleFeedAvailability(t *testing.T) {
	svc := NewService(&fakeResolver{}, &fakeAggregator{}, &fakeSentiment{}, &fakeNews{}, &fakeWhales{keyed: true}, nil)

	require.True(t, svc.WhaleFeedAvailable())
	require.False(t, newTestService(&fakeResolver{}, &fakeAggregator{}, &fakeSentiment{}).WhaleFeedAvailable())
}
