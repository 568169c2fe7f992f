package marketplace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/models"
)

const ragavanJSON = `{
	"id": "a1b2c3",
	"name": "Ragavan, Nimble Pilferer",
	"set": "mh2",
	"collector_number": "138",
	"lang": "en",
	"prices": {"usd": "64.99", "usd_foil": "89.99", "eur": "58.00", "eur_foil": ""}
}`

func newScryfallServer(t *testing.T, handler http.HandlerFunc) *ScryfallAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewScryfallAdapter(Config{
		BaseURL:           srv.URL,
		RateLimitInterval: time.Millisecond,
	}, zap.NewNop())
}

func TestScryfallFetchPriceByCanonicalID(t *testing.T) {
	adapter := newScryfallServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cards/a1b2c3", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ragavanJSON))
	})

	res, err := adapter.FetchPrice(context.Background(), CardRef{CanonicalID: "a1b2c3"})
	require.NoError(t, err)
	require.True(t, res.Found)

	obs := res.Observation
	assert.Equal(t, "Ragavan, Nimble Pilferer", obs.CardName)
	assert.True(t, obs.Price.Equal(decimal.RequireFromString("64.99")))
	assert.Equal(t, "USD", obs.Currency)
	assert.False(t, obs.IsFoil)
	assert.Equal(t, models.ConditionNearMint, obs.Condition)
	assert.Equal(t, models.LangEnglish, obs.Language)
}

func TestScryfallFallsBackToSetAndNumber(t *testing.T) {
	adapter := newScryfallServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cards/stale-id":
			w.WriteHeader(http.StatusNotFound)
		case "/cards/mh2/138":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(ragavanJSON))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	res, err := adapter.FetchPrice(context.Background(), CardRef{
		CanonicalID:     "stale-id",
		SetCode:         "mh2",
		CollectorNumber: "138",
	})
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, "a1b2c3", res.Observation.CanonicalID)
}

func TestScryfallNotFoundEverywhere(t *testing.T) {
	adapter := newScryfallServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	res, err := adapter.FetchPrice(context.Background(), CardRef{
		Name:    "Not A Real Card",
		SetCode: "xyz",
	})
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Nil(t, res.Observation)
}

func TestScryfallServerErrorIsAnError(t *testing.T) {
	adapter := newScryfallServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := adapter.FetchPrice(context.Background(), CardRef{CanonicalID: "a1b2c3"})
	require.Error(t, err)
}

func TestScryfallFoilOnlyPricing(t *testing.T) {
	adapter := newScryfallServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "f1",
			"name": "Foil Only Promo",
			"set": "pro",
			"collector_number": "1",
			"lang": "en",
			"prices": {"usd": "", "usd_foil": "120.00", "eur": "", "eur_foil": ""}
		}`))
	})

	res, err := adapter.FetchPrice(context.Background(), CardRef{CanonicalID: "f1"})
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.True(t, res.Observation.IsFoil)
	assert.True(t, res.Observation.Price.Equal(decimal.RequireFromString("120.00")))
}

func TestScryfallNoUsablePriceIsNotFound(t *testing.T) {
	adapter := newScryfallServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "d1", "name": "Digital Only", "set": "mtga",
			"collector_number": "1", "lang": "en",
			"prices": {"usd": "", "usd_foil": "", "eur": "", "eur_foil": ""}
		}`))
	})

	res, err := adapter.FetchPrice(context.Background(), CardRef{CanonicalID: "d1"})
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestScryfallSearchCardsHonorsLimit(t *testing.T) {
	adapter := newScryfallServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/cards/search", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [
			{"id": "1", "name": "Bolt A", "set": "aaa", "collector_number": "1"},
			{"id": "2", "name": "Bolt B", "set": "bbb", "collector_number": "2"},
			{"id": "3", "name": "Bolt C", "set": "ccc", "collector_number": "3"}
		]}`))
	})

	hits, err := adapter.SearchCards(context.Background(), "bolt", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Bolt A", hits[0].Name)
}

func TestParsePrice(t *testing.T) {
	require.Nil(t, parsePrice(""))
	require.Nil(t, parsePrice("not-a-number"))
	d := parsePrice("12.34")
	require.NotNil(t, d)
	assert.True(t, d.Equal(decimal.RequireFromString("12.34")))

	assert.Nil(t, parsePriceFloat(0))
	assert.Nil(t, parsePriceFloat(-3))
	f := parsePriceFloat(9.999)
	require.NotNil(t, f)
	assert.True(t, f.Equal(decimal.RequireFromString("10.00")))
}
