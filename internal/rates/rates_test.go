package rates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/breaker"
)

func newRatesProvider(t *testing.T, handler http.HandlerFunc) (*Provider, *int64) {
	t.Helper()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	breakers := breaker.NewRegistry(breaker.DefaultSettings(), zap.NewNop())
	return NewProvider(srv.URL, breakers, zap.NewNop()), &hits
}

func serveRates(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"result": "success", "rates": {"USD": 1, "EUR": 0.92, "JPY": 147.5}}`))
}

func TestConvertThroughUSD(t *testing.T) {
	p, _ := newRatesProvider(t, serveRates)

	got, err := p.Convert(context.Background(), decimal.NewFromFloat(9.20), "EUR", "USD")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(10)), "got %s", got)
}

func TestConvertSameCurrencySkipsFetch(t *testing.T) {
	p, hits := newRatesProvider(t, serveRates)

	amount := decimal.NewFromFloat(12.34)
	got, err := p.Convert(context.Background(), amount, "usd", "USD")
	require.NoError(t, err)
	assert.True(t, got.Equal(amount))
	assert.Zero(t, atomic.LoadInt64(hits))
}

func TestConvertCachesRates(t *testing.T) {
	p, hits := newRatesProvider(t, serveRates)

	_, err := p.Convert(context.Background(), decimal.NewFromInt(100), "JPY", "EUR")
	require.NoError(t, err)
	_, err = p.Convert(context.Background(), decimal.NewFromInt(50), "EUR", "JPY")
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt64(hits))
}

func TestConvertUnknownCurrency(t *testing.T) {
	p, _ := newRatesProvider(t, serveRates)

	_, err := p.Convert(context.Background(), decimal.NewFromInt(5), "XXX", "USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no exchange rate")
}

func TestConvertProviderDownWithEmptyCache(t *testing.T) {
	p, _ := newRatesProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := p.Convert(context.Background(), decimal.NewFromInt(5), "EUR", "USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange rates unavailable")
}
