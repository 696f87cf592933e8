// Package market serves everything the bot answers that is not a plain
// price lookup: market overview, trending coins, the fear & greed index,
// news headlines and whale activity. It also assembles the labeled context
// blocks injected into AI conversations.
package market

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/kantxie-coder/cryptosage/internal/detect"
	"github.com/kantxie-coder/cryptosage/internal/entity"
)

const (
	overviewLimit = 10
	contextTopN   = 5
)

// QuoteResolver resolves asset ids to quotes across the source tiers.
type QuoteResolver interface {
	Resolve(ctx context.Context, ids []string) (entity.QuoteSet, error)
}

// Aggregator is the slice of the CoinGecko surface this service consumes.
type Aggregator interface {
	Markets(ctx context.Context, limit int) ([]entity.MarketCoin, error)
	Trending(ctx context.Context) ([]entity.TrendingCoin, error)
	Global(ctx context.Context) (entity.GlobalMarket, error)
	MarketChart(ctx context.Context, id string) (entity.MarketChart, error)
}

// SentimentFeed serves the fear & greed index.
type SentimentFeed interface {
	FearGreed(ctx context.Context) (entity.FearGreed, error)
}

// NewsFeed serves latest headlines.
type NewsFeed interface {
	News(ctx context.Context, limit int) ([]entity.NewsArticle, error)
}

// WhaleFeed serves large transfers when an API key is configured.
type WhaleFeed interface {
	Keyed() bool
	Transactions(ctx context.Context, minValueUSD, limit int) ([]entity.WhaleTransaction, error)
}

// Overview pairs the top coins with the market-wide totals. Global is the
// zero value when the totals endpoint failed; the coin rows still render.
type Overview struct {
	Global entity.GlobalMarket
	Coins  []entity.MarketCoin
}

type Service struct {
	prices        QuoteResolver
	aggregator    Aggregator
	sentiment     SentimentFeed
	news          NewsFeed
	whales        WhaleFeed
	defaultAssets []string
}

func NewService(prices QuoteResolver, aggregator Aggregator, sentiment SentimentFeed, news NewsFeed, whales WhaleFeed, defaultAssets []string) *Service {
	if len(defaultAssets) == 0 {
		defaultAssets = []string{"bitcoin", "ethereum"}
	}

	return &Service{
		prices:        prices,
		aggregator:    aggregator,
		sentiment:     sentiment,
		news:          news,
		whales:        whales,
		defaultAssets: defaultAssets,
	}
}

// Overview returns the top coins by market cap together with global totals.
// A failed totals call is downgraded to a zero Global so the overview still
// answers when only the headline endpoint hiccups.
func (s *Service) Overview(ctx context.Context, limit int) (Overview, error) {
	if limit <= 0 {
		limit = overviewLimit
	}

	coins, err := s.aggregator.Markets(ctx, limit)
	if err != nil {
		return Overview{}, err
	}

	global, err := s.aggregator.Global(ctx)
	if err != nil {
		logrus.Warnf("global market totals unavailable: %v", err)
		global = entity.GlobalMarket{}
	}

	return Overview{Global: global, Coins: coins}, nil
}

func (s *Service) Trending(ctx context.Context) ([]entity.TrendingCoin, error) {
	return s.aggregator.Trending(ctx)
}

func (s *Service) FearGreed(ctx context.Context) (entity.FearGreed, error) {
	return s.sentiment.FearGreed(ctx)
}

func (s *Service) News(ctx context.Context, limit int) ([]entity.NewsArticle, error) {
	return s.news.News(ctx, limit)
}

// WhaleFeedAvailable reports whether the transfer feed can be queried at
// all. When it cannot, callers fall back to ChainActivityContext plus an AI
// analysis instead of failing the command.
func (s *Service) WhaleFeedAvailable() bool {
	return s.whales.Keyed()
}

func (s *Service) WhaleTransactions(ctx context.Context, minValueUSD, limit int) ([]entity.WhaleTransaction, error) {
	return s.whales.Transactions(ctx, minValueUSD, limit)
}

// ChainActivityContext builds a plain-text volume summary for the default
// assets, one line per asset. It backs the whale command when no feed key is
// configured: the summary is handed to the AI to analyze instead.
func (s *Service) ChainActivityContext(ctx context.Context) (string, error) {
	lines := make([]string, 0, len(s.defaultAssets))
	for _, id := range s.defaultAssets {
		chart, err := s.aggregator.MarketChart(ctx, id)
		if err != nil {
			logrus.WithField("id", id).Warnf("market chart unavailable: %v", err)
			continue
		}

		lines = append(lines, fmt.Sprintf("%s: 24h volume trend %+.2f%% over %d hourly samples, latest hourly volume $%.0f",
			id, chart.VolumeTrendPct, chart.VolumePoints, chart.LatestVolumeUSD))
	}

	if len(lines) == 0 {
		return "", fmt.Errorf("no chain activity data for %s", strings.Join(s.defaultAssets, ", "))
	}

	return strings.Join(lines, "\n"), nil
}

// ContextBlocks assembles the labeled text blocks injected ahead of a free
// text question. Each block is independent and optional: a failed fetch
// drops its block instead of failing the whole message.
func (s *Service) ContextBlocks(ctx context.Context, det detect.Detection) []string {
	var blocks []string

	if len(det.Assets) > 0 || det.WantsPrice {
		ids := det.Assets
		if len(ids) == 0 {
			ids = s.defaultAssets
		}
		if block, ok := s.priceBlock(ctx, ids); ok {
			blocks = append(blocks, block)
		}
	}

	if det.WantsMarket {
		if block, ok := s.marketBlock(ctx); ok {
			blocks = append(blocks, block)
		}
	}

	if det.WantsSentiment {
		if block, ok := s.sentimentBlock(ctx); ok {
			blocks = append(blocks, block)
		}
	}

	return blocks
}

func (s *Service) priceBlock(ctx context.Context, ids []string) (string, bool) {
	quotes, err := s.prices.Resolve(ctx, ids)
	if err != nil {
		logrus.Warnf("context price block skipped: %v", err)
		return "", false
	}

	raw, err := json.Marshal(quotes)
	if err != nil {
		logrus.Warnf("context price block skipped: %v", err)
		return "", false
	}

	return "[Real-time prices]\n" + string(raw), true
}

func (s *Service) marketBlock(ctx context.Context) (string, bool) {
	coins, err := s.aggregator.Markets(ctx, contextTopN)
	if err != nil {
		logrus.Warnf("context market block skipped: %v", err)
		return "", false
	}
	if len(coins) == 0 {
		return "", false
	}

	lines := make([]string, 0, len(coins))
	for _, coin := range coins {
		lines = append(lines, fmt.Sprintf("%s: $%.2f (24h: %+.2f%%)",
			strings.ToUpper(coin.Symbol), coin.PriceUSD, coin.Change24h))
	}

	return fmt.Sprintf("[Top %d by market cap]\n%s", contextTopN, strings.Join(lines, " | ")), true
}

func (s *Service) sentimentBlock(ctx context.Context) (string, bool) {
	index, err := s.sentiment.FearGreed(ctx)
	if err != nil {
		logrus.Warnf("context sentiment block skipped: %v", err)
		return "", false
	}

	return fmt.Sprintf("[Fear & Greed index]\n%d/100 (%s)", index.Value, index.Classification), true
}
