package entity

import "time"

// MarketCoin is one row of the market overview, ordered by market cap rank.
type MarketCoin struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	PriceUSD      float64 `json:"price_usd"`
	MarketCap     float64 `json:"market_cap"`
	MarketCapRank int     `json:"market_cap_rank"`
	Volume24h     float64 `json:"volume_24h"`
	Change24h     float64 `json:"change_24h"`
}

// TrendingCoin is one entry of the trending search list.
type TrendingCoin struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank int    `json:"market_cap_rank"`
}

// GlobalMarket aggregates market-wide totals.
type GlobalMarket struct {
	ActiveCryptocurrencies int     `json:"active_cryptocurrencies"`
	TotalMarketCapUSD      float64 `json:"total_market_cap_usd"`
	TotalVolumeUSD         float64 `json:"total_volume_usd"`
	BTCDominancePct        float64 `json:"btc_dominance_pct"`
	MarketCapChange24hPct  float64 `json:"market_cap_change_24h_pct"`
}

// MarketChart condenses one coin's recent chart series into an activity
// signal: sample counts plus the volume level and its first-to-last trend.
type MarketChart struct {
	ID              string  `json:"id"`
	PricePoints     int     `json:"price_points"`
	VolumePoints    int     `json:"volume_points"`
	LatestVolumeUSD float64 `json:"latest_volume_usd"`
	VolumeTrendPct  float64 `json:"volume_trend_pct"`
}

// FearGreed is the crypto fear & greed index reading. Value runs 0-100.
type FearGreed struct {
	Value          int    `json:"value"`
	Classification string `json:"classification"`
}

// NewsArticle is one crypto news headline.
type NewsArticle struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// WhaleTransaction is one large on-chain transfer.
type WhaleTransaction struct {
	Blockchain string    `json:"blockchain"`
	Symbol     string    `json:"symbol"`
	Amount     float64   `json:"amount"`
	AmountUSD  float64   `json:"amount_usd"`
	FromOwner  string    `json:"from_owner"`
	ToOwner    string    `json:"to_owner"`
	Timestamp  time.Time `json:"timestamp"`
}
