package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kantxie-coder/cryptosage/internal/entity"
	"github.com/kantxie-coder/cryptosage/internal/httpx"
)

const defaultBinanceBaseURL = "https://api.binance.com"

// defaultUSDCNYRate is a static approximation used by the exchange-tier
// sources instead of a live FX lookup. Quotes derived from it are labeled
// approximate, never authoritative.
var defaultUSDCNYRate = decimal.NewFromFloat(7.25)

// binancePairs maps canonical asset ids to Binance spot pairs. A miss means
// the asset is simply not quoted here.
var binancePairs = map[string]string{
	"bitcoin":          "BTCUSDT",
	"ethereum":         "ETHUSDT",
	"solana":           "SOLUSDT",
	"binancecoin":      "BNBUSDT",
	"ripple":           "XRPUSDT",
	"cardano":          "ADAUSDT",
	"dogecoin":         "DOGEUSDT",
	"the-open-network": "TONUSDT",
	"polkadot":         "DOTUSDT",
	"avalanche-2":      "AVAXUSDT",
	"chainlink":        "LINKUSDT",
	"uniswap":          "UNIUSDT",
	"litecoin":         "LTCUSDT",
	"shiba-inu":        "SHIBUSDT",
	"sui":              "SUIUSDT",
	"tron":             "TRXUSDT",
}

// BinanceSource is the primary tier: the fastest feed with a pre-computed
// 24h change percentage. It never reports market cap.
type BinanceSource struct {
	client     *httpx.Client
	baseURL    string
	usdCNYRate decimal.Decimal
}

func NewBinanceSource(client *httpx.Client, baseURL string, usdCNYRate decimal.Decimal) *BinanceSource {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBinanceBaseURL
	}
	if !usdCNYRate.GreaterThan(decimal.Zero) {
		usdCNYRate = defaultUSDCNYRate
	}

	return &BinanceSource{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		usdCNYRate: usdCNYRate,
	}
}

func (s *BinanceSource) Name() entity.SourceName {
	return entity.SourceBinance
}

func (s *BinanceSource) Lookup(ctx context.Context, id string) (entity.Quote, error) {
	pair, ok := binancePairs[id]
	if !ok {
		return entity.Quote{}, fmt.Errorf("binance %s: %w", id, ErrNotListed)
	}

	var payload struct {
		Symbol             string `json:"symbol"`
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
		QuoteVolume        string `json:"quoteVolume"`
	}

	err := s.client.GetJSON(ctx, s.baseURL+"/api/v3/ticker/24hr", map[string]string{"symbol": pair}, nil, &payload)
	if err != nil {
		return entity.Quote{}, err
	}

	last, err := decimal.NewFromString(strings.TrimSpace(payload.LastPrice))
	if err != nil {
		return entity.Quote{}, fmt.Errorf("binance %s: invalid last price: %w", pair, err)
	}
	if !last.GreaterThan(decimal.Zero) {
		return entity.Quote{}, fmt.Errorf("binance %s: non-positive price %s", pair, last.String())
	}

	changePct, err := decimalOrZero(payload.PriceChangePercent)
	if err != nil {
		return entity.Quote{}, fmt.Errorf("binance %s: invalid change percent: %w", pair, err)
	}

	quoteVolume, err := decimalOrZero(payload.QuoteVolume)
	if err != nil {
		return entity.Quote{}, fmt.Errorf("binance %s: invalid quote volume: %w", pair, err)
	}

	return entity.Quote{
		ID:        id,
		PriceUSD:  last.InexactFloat64(),
		PriceCNY:  last.Mul(s.usdCNYRate).InexactFloat64(),
		Change24h: changePct.InexactFloat64(),
		Volume24h: quoteVolume.InexactFloat64(),
		Source:    entity.SourceBinance,
	}, nil
}

func decimalOrZero(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, nil
	}

	return decimal.NewFromString(trimmed)
}
