package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kantxie-coder/cryptosage/internal/entity"
	"github.com/kantxie-coder/cryptosage/internal/httpx"
)

const defaultOKXBaseURL = "https://www.okx.com"

// binancecoin is deliberately absent: OKX does not list BNB, so those
// lookups fall through to the aggregator tier.
var okxInstruments = map[string]string{
	"bitcoin":          "BTC-USDT",
	"ethereum":         "ETH-USDT",
	"solana":           "SOL-USDT",
	"ripple":           "XRP-USDT",
	"cardano":          "ADA-USDT",
	"dogecoin":         "DOGE-USDT",
	"the-open-network": "TON-USDT",
	"polkadot":         "DOT-USDT",
	"avalanche-2":      "AVAX-USDT",
	"chainlink":        "LINK-USDT",
	"uniswap":          "UNI-USDT",
	"litecoin":         "LTC-USDT",
	"shiba-inu":        "SHIB-USDT",
	"sui":              "SUI-USDT",
	"tron":             "TRX-USDT",
}

// OKXSource is the secondary tier. OKX does not report a pre-computed 24h
// percentage, so it is derived from last and open24h.
type OKXSource struct {
	client     *httpx.Client
	baseURL    string
	usdCNYRate decimal.Decimal
}

func NewOKXSource(client *httpx.Client, baseURL string, usdCNYRate decimal.Decimal) *OKXSource {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultOKXBaseURL
	}
	if !usdCNYRate.GreaterThan(decimal.Zero) {
		usdCNYRate = defaultUSDCNYRate
	}

	return &OKXSource{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		usdCNYRate: usdCNYRate,
	}
}

func (s *OKXSource) Name() entity.SourceName {
	return entity.SourceOKX
}

func (s *OKXSource) Lookup(ctx context.Context, id string) (entity.Quote, error) {
	instrument, ok := okxInstruments[id]
	if !ok {
		return entity.Quote{}, fmt.Errorf("okx %s: %w", id, ErrNotListed)
	}

	var payload struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			InstID    string `json:"instId"`
			Last      string `json:"last"`
			Open24h   string `json:"open24h"`
			VolCcy24h string `json:"volCcy24h"`
		} `json:"data"`
	}

	err := s.client.GetJSON(ctx, s.baseURL+"/api/v5/market/ticker", map[string]string{"instId": instrument}, nil, &payload)
	if err != nil {
		return entity.Quote{}, err
	}

	if payload.Code != "0" || len(payload.Data) == 0 {
		return entity.Quote{}, fmt.Errorf("okx %s: code=%s msg=%s", instrument, payload.Code, payload.Msg)
	}

	ticker := payload.Data[0]

	last, err := decimal.NewFromString(strings.TrimSpace(ticker.Last))
	if err != nil {
		return entity.Quote{}, fmt.Errorf("okx %s: invalid last price: %w", instrument, err)
	}
	if !last.GreaterThan(decimal.Zero) {
		return entity.Quote{}, fmt.Errorf("okx %s: non-positive price %s", instrument, last.String())
	}

	open24h, err := decimalOrZero(ticker.Open24h)
	if err != nil {
		return entity.Quote{}, fmt.Errorf("okx %s: invalid open24h: %w", instrument, err)
	}
	// A zero open would divide by zero; treating it as equal to last yields
	// a flat 0% change instead.
	if !open24h.GreaterThan(decimal.Zero) {
		open24h = last
	}

	changePct := last.Sub(open24h).Div(open24h).Mul(decimal.NewFromInt(100))

	volCcy24h, err := decimalOrZero(ticker.VolCcy24h)
	if err != nil {
		return entity.Quote{}, fmt.Errorf("okx %s: invalid volCcy24h: %w", instrument, err)
	}

	return entity.Quote{
		ID:        id,
		PriceUSD:  last.InexactFloat64(),
		PriceCNY:  last.Mul(s.usdCNYRate).InexactFloat64(),
		Change24h: changePct.InexactFloat64(),
		Volume24h: volCcy24h.InexactFloat64(),
		Source:    entity.SourceOKX,
	}, nil
}
