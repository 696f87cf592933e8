package source_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kantxie-coder/cryptosage/internal/entity"
	"github.com/kantxie-coder/cryptosage/internal/source"
)

func TestCoinGeckoBatchReturnsRecognizedSubset(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/simple/price", r.URL.Path)
		require.Equal(t, "bitcoin,nowhere-asset", r.URL.Query().Get("ids"))
		require.Equal(t, "usd,cny", r.URL.Query().Get("vs_currencies"))
		require.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))
		// nowhere-asset is simply absent; bitcoin has a null market cap.
		_, _ = w.Write([]byte(`{
			"bitcoin": {"usd": 61000.5, "cny": 442253.6, "usd_24h_change": 2.1, "usd_24h_vol": 25000000000, "usd_market_cap": null}
		}`))
	}))
	defer srv.Close()

	src := source.NewCoinGeckoSource(newTestClient(t), srv.URL, "demo-key")

	quotes, err := src.LookupBatch(t.Context(), []string{"bitcoin", "nowhere-asset"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	quote := quotes["bitcoin"]
	require.Equal(t, entity.SourceCoinGecko, quote.Source)
	require.InDelta(t, 61000.5, quote.PriceUSD, 1e-9)
	require.InDelta(t, 442253.6, quote.PriceCNY, 1e-9)
	require.Zero(t, quote.MarketCap)
}

func TestCoinGeckoDropsNonPositivePrices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"dead-coin": {"usd": 0},
			"null-coin": {"usd": null},
			"solana": {"usd": 150.25, "cny": 1089.3}
		}`))
	}))
	defer srv.Close()

	src := source.NewCoinGeckoSource(newTestClient(t), srv.URL, "")

	quotes, err := src.LookupBatch(t.Context(), []string{"dead-coin", "null-coin", "solana"})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.Contains(t, quotes, "solana")
}

func TestCoinGeckoLookupMissIsNotListed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	src := source.NewCoinGeckoSource(newTestClient(t), srv.URL, "")

	_, err := src.Lookup(t.Context(), "nowhere-asset")
	require.ErrorIs(t, err, source.ErrNotListed)
}

func TestCoinGeckoMarkets(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/coins/markets", r.URL.Path)
		require.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		require.Equal(t, "2", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":61000,"market_cap":1200000000000,"market_cap_rank":1,"total_volume":30000000000,"price_change_percentage_24h":1.5},
			{"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":2100,"market_cap":250000000000,"market_cap_rank":2,"total_volume":12000000000,"price_change_percentage_24h":null}
		]`))
	}))
	defer srv.Close()

	src := source.NewCoinGeckoSource(newTestClient(t), srv.URL, "")

	coins, err := src.Markets(t.Context(), 2)
	require.NoError(t, err)
	require.Len(t, coins, 2)
	require.Equal(t, "btc", coins[0].Symbol)
	require.Equal(t, 1, coins[0].MarketCapRank)
	require.Zero(t, coins[1].Change24h)
}

func TestCoinGeckoGlobal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/global", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{
			"active_cryptocurrencies": 13000,
			"total_market_cap": {"usd": 2400000000000},
			"total_volume": {"usd": 90000000000},
			"market_cap_percentage": {"btc": 52.3},
			"market_cap_change_percentage_24h_usd": -0.8
		}}`))
	}))
	defer srv.Close()

	src := source.NewCoinGeckoSource(newTestClient(t), srv.URL, "")

	global, err := src.Global(t.Context())
	require.NoError(t, err)
	require.Equal(t, 13000, global.ActiveCryptocurrencies)
	require.InDelta(t, 52.3, global.BTCDominancePct, 1e-9)
	require.InDelta(t, -0.8, global.MarketCapChange24hPct, 1e-9)
}

func TestCoinGeckoMarketChartSummarizesVolume(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/coins/bitcoin/market_chart", r.URL.Path)
		require.Equal(t, "1", r.URL.Query().Get("days"))
		// The last volume row is short and must be skipped.
		_, _ = w.Write([]byte(`{
			"prices": [[1724400000000, 61000], [1724403600000, 61500]],
			"total_volumes": [[1724400000000, 20000000000], [1724403600000, 25000000000], [1724407200000]]
		}`))
	}))
	defer srv.Close()

	src := source.NewCoinGeckoSource(newTestClient(t), srv.URL, "")

	chart, err := src.MarketChart(t.Context(), "bitcoin")
	require.NoError(t, err)
	require.Equal(t, "bitcoin", chart.ID)
	require.Equal(t, 2, chart.PricePoints)
	require.Equal(t, 3, chart.VolumePoints)
	require.InDelta(t, 25000000000, chart.LatestVolumeUSD, 1e-3)
	// (25e9-20e9)/20e9*100
	require.InDelta(t, 25.0, chart.VolumeTrendPct, 1e-9)
}

func TestCoinGeckoTrending(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search/trending", r.URL.Path)
		_, _ = w.Write([]byte(`{"coins":[
			{"item":{"id":"pepe","symbol":"PEPE","name":"Pepe","market_cap_rank":40}},
			{"item":{"id":"sui","symbol":"SUI","name":"Sui","market_cap_rank":null}}
		]}`))
	}))
	defer srv.Close()

	src := source.NewCoinGeckoSource(newTestClient(t), srv.URL, "")

	coins, err := src.Trending(t.Context())
	require.NoError(t, err)
	require.Len(t, coins, 2)
	require.Equal(t, "pepe", coins[0].ID)
	require.Zero(t, coins[1].MarketCapRank)
}
