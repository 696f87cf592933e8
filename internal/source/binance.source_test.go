package source_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kantxie-coder/cryptosage/internal/entity"
	"github.com/kantxie-coder/cryptosage/internal/httpx"
	"github.com/kantxie-coder/cryptosage/internal/source"
)

func newTestClient(t *testing.T) *httpx.Client {
	t.Helper()
	return httpx.New(2 * time.Second)
}

func TestBinanceLookup(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v3/ticker/24hr", r.URL.Path)
		require.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{
			"symbol": "BTCUSDT",
			"lastPrice": "62000.50",
			"priceChangePercent": "-1.25",
			"quoteVolume": "1500000000.12"
		}`))
	}))
	defer srv.Close()

	src := source.NewBinanceSource(newTestClient(t), srv.URL, decimal.NewFromFloat(7.0))

	quote, err := src.Lookup(t.Context(), "bitcoin")
	require.NoError(t, err)
	require.Equal(t, entity.SourceBinance, quote.Source)
	require.Equal(t, "bitcoin", quote.ID)
	require.InDelta(t, 62000.50, quote.PriceUSD, 1e-9)
	require.InDelta(t, 62000.50*7.0, quote.PriceCNY, 1e-6)
	require.InDelta(t, -1.25, quote.Change24h, 1e-9)
	require.InDelta(t, 1500000000.12, quote.Volume24h, 1e-6)
	require.Zero(t, quote.MarketCap)
}

func TestBinanceUnlistedAssetSkipsNetwork(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	src := source.NewBinanceSource(newTestClient(t), srv.URL, decimal.Zero)

	_, err := src.Lookup(t.Context(), "some-obscure-asset")
	require.ErrorIs(t, err, source.ErrNotListed)
	require.Zero(t, calls.Load())
}

func TestBinanceNonPositivePriceIsFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","lastPrice":"0.00","priceChangePercent":"0","quoteVolume":"0"}`))
	}))
	defer srv.Close()

	src := source.NewBinanceSource(newTestClient(t), srv.URL, decimal.Zero)

	_, err := src.Lookup(t.Context(), "bitcoin")
	require.Error(t, err)
}

func TestBinanceUpstreamErrorPropagates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := source.NewBinanceSource(newTestClient(t), srv.URL, decimal.Zero)

	_, err := src.Lookup(t.Context(), "ethereum")
	require.ErrorIs(t, err, httpx.ErrRateLimited)
}
