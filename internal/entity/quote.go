package entity

// SourceName identifies one market data source. The consultation order is
// owned by the price service; a Quote carries the name of the source that
// actually produced it.
type SourceName string

const (
	SourceBinance   SourceName = "binance"
	SourceOKX       SourceName = "okx"
	SourceCoinGecko SourceName = "coingecko"
)

// Quote is the normalized price record for one asset from one source.
// A Quote is only ever built from a positive USD price; a zero or missing
// price is a lookup failure, not a quote of value zero.
type Quote struct {
	ID        string     `json:"id"`
	PriceUSD  float64    `json:"usd"`
	PriceCNY  float64    `json:"cny"`
	Change24h float64    `json:"usd_24h_change"`
	Volume24h float64    `json:"usd_24h_vol"`
	MarketCap float64    `json:"usd_market_cap"`
	Source    SourceName `json:"source"`
}

// QuoteSet maps asset id -> quote for the subset of requested assets that
// resolved on at least one source. Assets that failed everywhere are absent,
// never present with zeroed fields.
type QuoteSet map[string]Quote

func (s QuoteSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}

	return ids
}
