package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/guregu/null/v6"

	"github.com/kantxie-coder/cryptosage/internal/entity"
	"github.com/kantxie-coder/cryptosage/internal/httpx"
)

const defaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoSource is the tertiary tier: slower than the exchange feeds but
// authoritative, batch capable, and the only tier that reports market cap.
// It also hosts the aggregator's auxiliary endpoints (markets, trending,
// global, market chart) that no exchange ticker offers.
type CoinGeckoSource struct {
	client  *httpx.Client
	baseURL string
	apiKey  string
}

func NewCoinGeckoSource(client *httpx.Client, baseURL, apiKey string) *CoinGeckoSource {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultCoinGeckoBaseURL
	}

	return &CoinGeckoSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
	}
}

func (s *CoinGeckoSource) Name() entity.SourceName {
	return entity.SourceCoinGecko
}

func (s *CoinGeckoSource) Lookup(ctx context.Context, id string) (entity.Quote, error) {
	quotes, err := s.LookupBatch(ctx, []string{id})
	if err != nil {
		return entity.Quote{}, err
	}

	quote, ok := quotes[id]
	if !ok {
		return entity.Quote{}, fmt.Errorf("coingecko %s: %w", id, ErrNotListed)
	}

	return quote, nil
}

// LookupBatch resolves every id the aggregator recognizes in one round trip.
// Ids the aggregator does not know are absent from the result, not errors.
func (s *CoinGeckoSource) LookupBatch(ctx context.Context, ids []string) (entity.QuoteSet, error) {
	params := map[string]string{
		"ids":                 strings.Join(ids, ","),
		"vs_currencies":       "usd,cny",
		"include_24hr_change": "true",
		"include_24hr_vol":    "true",
		"include_market_cap":  "true",
	}

	// Fields come back null or missing whenever the aggregator has no fresh
	// figure, so everything except the id is nullable.
	var payload map[string]struct {
		USD          null.Float `json:"usd"`
		CNY          null.Float `json:"cny"`
		USD24hChange null.Float `json:"usd_24h_change"`
		USD24hVol    null.Float `json:"usd_24h_vol"`
		USDMarketCap null.Float `json:"usd_market_cap"`
	}

	err := s.client.GetJSON(ctx, s.baseURL+"/simple/price", params, s.headers(), &payload)
	if err != nil {
		return nil, err
	}

	quotes := make(entity.QuoteSet, len(payload))
	for id, row := range payload {
		if !row.USD.Valid || row.USD.Float64 <= 0 {
			continue
		}

		quotes[id] = entity.Quote{
			ID:        id,
			PriceUSD:  row.USD.Float64,
			PriceCNY:  row.CNY.ValueOrZero(),
			Change24h: row.USD24hChange.ValueOrZero(),
			Volume24h: row.USD24hVol.ValueOrZero(),
			MarketCap: row.USDMarketCap.ValueOrZero(),
			Source:    entity.SourceCoinGecko,
		}
	}

	return quotes, nil
}

// Markets returns the top limit coins by market cap, one row per coin.
func (s *CoinGeckoSource) Markets(ctx context.Context, limit int) ([]entity.MarketCoin, error) {
	if limit <= 0 {
		limit = 10
	}

	params := map[string]string{
		"vs_currency": "usd",
		"order":       "market_cap_desc",
		"per_page":    strconv.Itoa(limit),
		"page":        "1",
		"sparkline":   "false",
	}

	var payload []struct {
		ID            string     `json:"id"`
		Symbol        string     `json:"symbol"`
		Name          string     `json:"name"`
		CurrentPrice  null.Float `json:"current_price"`
		MarketCap     null.Float `json:"market_cap"`
		MarketCapRank null.Int   `json:"market_cap_rank"`
		TotalVolume   null.Float `json:"total_volume"`
		Change24h     null.Float `json:"price_change_percentage_24h"`
	}

	err := s.client.GetJSON(ctx, s.baseURL+"/coins/markets", params, s.headers(), &payload)
	if err != nil {
		return nil, err
	}

	coins := make([]entity.MarketCoin, 0, len(payload))
	for _, row := range payload {
		coins = append(coins, entity.MarketCoin{
			ID:            row.ID,
			Symbol:        row.Symbol,
			Name:          row.Name,
			PriceUSD:      row.CurrentPrice.ValueOrZero(),
			MarketCap:     row.MarketCap.ValueOrZero(),
			MarketCapRank: int(row.MarketCapRank.ValueOrZero()),
			Volume24h:     row.TotalVolume.ValueOrZero(),
			Change24h:     row.Change24h.ValueOrZero(),
		})
	}

	return coins, nil
}

// Trending returns the aggregator's trending-search list.
func (s *CoinGeckoSource) Trending(ctx context.Context) ([]entity.TrendingCoin, error) {
	var payload struct {
		Coins []struct {
			Item struct {
				ID            string   `json:"id"`
				Symbol        string   `json:"symbol"`
				Name          string   `json:"name"`
				MarketCapRank null.Int `json:"market_cap_rank"`
			} `json:"item"`
		} `json:"coins"`
	}

	err := s.client.GetJSON(ctx, s.baseURL+"/search/trending", nil, s.headers(), &payload)
	if err != nil {
		return nil, err
	}

	coins := make([]entity.TrendingCoin, 0, len(payload.Coins))
	for _, row := range payload.Coins {
		coins = append(coins, entity.TrendingCoin{
			ID:            row.Item.ID,
			Symbol:        row.Item.Symbol,
			Name:          row.Item.Name,
			MarketCapRank: int(row.Item.MarketCapRank.ValueOrZero()),
		})
	}

	return coins, nil
}

// Global returns market-wide totals in USD.
func (s *CoinGeckoSource) Global(ctx context.Context) (entity.GlobalMarket, error) {
	var payload struct {
		Data struct {
			ActiveCryptocurrencies int                   `json:"active_cryptocurrencies"`
			TotalMarketCap         map[string]null.Float `json:"total_market_cap"`
			TotalVolume            map[string]null.Float `json:"total_volume"`
			MarketCapPercentage    map[string]null.Float `json:"market_cap_percentage"`
			MarketCapChange24h     null.Float            `json:"market_cap_change_percentage_24h_usd"`
		} `json:"data"`
	}

	err := s.client.GetJSON(ctx, s.baseURL+"/global", nil, s.headers(), &payload)
	if err != nil {
		return entity.GlobalMarket{}, err
	}

	return entity.GlobalMarket{
		ActiveCryptocurrencies: payload.Data.ActiveCryptocurrencies,
		TotalMarketCapUSD:      payload.Data.TotalMarketCap["usd"].ValueOrZero(),
		TotalVolumeUSD:         payload.Data.TotalVolume["usd"].ValueOrZero(),
		BTCDominancePct:        payload.Data.MarketCapPercentage["btc"].ValueOrZero(),
		MarketCapChange24hPct:  payload.Data.MarketCapChange24h.ValueOrZero(),
	}, nil
}

// MarketChart summarizes one coin's hourly chart series over the last day.
// It condenses the series into a volume level and trend, which stand in as
// an on-chain activity signal when no whale feed is available.
func (s *CoinGeckoSource) MarketChart(ctx context.Context, id string) (entity.MarketChart, error) {
	params := map[string]string{
		"vs_currency": "usd",
		"days":        "1",
		"interval":    "hourly",
	}

	var payload struct {
		Prices       [][]float64 `json:"prices"`
		TotalVolumes [][]float64 `json:"total_volumes"`
	}

	err := s.client.GetJSON(ctx, s.baseURL+"/coins/"+id+"/market_chart", params, s.headers(), &payload)
	if err != nil {
		return entity.MarketChart{}, err
	}

	chart := entity.MarketChart{
		ID:           id,
		PricePoints:  len(payload.Prices),
		VolumePoints: len(payload.TotalVolumes),
	}

	// Chart rows are [timestamp, value] pairs; short rows are skipped.
	first, last := 0.0, 0.0
	for _, row := range payload.TotalVolumes {
		if len(row) < 2 {
			continue
		}
		if first == 0 {
			first = row[1]
		}
		last = row[1]
	}

	chart.LatestVolumeUSD = last
	if first > 0 {
		chart.VolumeTrendPct = (last - first) / first * 100
	}

	return chart, nil
}

func (s *CoinGeckoSource) headers() map[string]string {
	if s.apiKey == "" {
		return nil
	}

	return map[string]string{"x-cg-demo-api-key": s.apiKey}
}
