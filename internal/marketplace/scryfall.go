package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const ScryfallCode = "scryfall"

// ScryfallAdapter fetches aggregated prices from the Scryfall API. Scryfall
// exposes per-printing price aggregates only, so FetchListings always returns
// an empty list.
type ScryfallAdapter struct {
	client *httpClient
	logger *zap.Logger
}

func NewScryfallAdapter(cfg Config, logger *zap.Logger) *ScryfallAdapter {
	return &ScryfallAdapter{
		client: newHTTPClient(cfg),
		logger: logger,
	}
}

func (a *ScryfallAdapter) Code() string { return ScryfallCode }

type scryfallCard struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Set             string `json:"set"`
	CollectorNumber string `json:"collector_number"`
	Lang            string `json:"lang"`
	Prices          struct {
		USD     string `json:"usd"`
		USDFoil string `json:"usd_foil"`
		EUR     string `json:"eur"`
		EURFoil string `json:"eur_foil"`
	} `json:"prices"`
}

type scryfallList struct {
	Data []scryfallCard `json:"data"`
}

// FetchPrice resolves the card in priority order: canonical ID, then
// set+collector number, then fuzzy name+set.
func (a *ScryfallAdapter) FetchPrice(ctx context.Context, ref CardRef) (FetchResult, error) {
	if ref.CanonicalID != "" {
		res, err := a.fetchCard(ctx, "/cards/"+ref.CanonicalID, nil)
		if err != nil || res.Found {
			return res, err
		}
	}
	if ref.SetCode != "" && ref.CollectorNumber != "" {
		res, err := a.fetchCard(ctx, fmt.Sprintf("/cards/%s/%s", ref.SetCode, ref.CollectorNumber), nil)
		if err != nil || res.Found {
			return res, err
		}
	}
	if ref.Name != "" {
		query := map[string]string{"fuzzy": ref.Name}
		if ref.SetCode != "" {
			query["set"] = ref.SetCode
		}
		return a.fetchCard(ctx, "/cards/named", query)
	}
	return FetchResult{}, nil
}

func (a *ScryfallAdapter) fetchCard(ctx context.Context, path string, query map[string]string) (FetchResult, error) {
	var card scryfallCard
	resp, err := a.client.get(ctx, path, query, &card)
	if err != nil {
		return FetchResult{}, fmt.Errorf("scryfall request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return FetchResult{}, nil
	}
	if !resp.IsSuccess() {
		return FetchResult{}, fmt.Errorf("scryfall returned HTTP %d", resp.StatusCode())
	}
	obs := a.toObservation(card)
	if obs == nil {
		a.logger.Debug("scryfall card has no usable price", zap.String("card", card.Name))
		return FetchResult{}, nil
	}
	return FetchResult{Observation: obs, Found: true}, nil
}

// toObservation builds an observation from whichever price variant the card
// actually has, preferring non-foil USD.
func (a *ScryfallAdapter) toObservation(card scryfallCard) *PriceObservation {
	obs := &PriceObservation{
		CardName:        card.Name,
		SetCode:         card.Set,
		CollectorNumber: card.CollectorNumber,
		CanonicalID:     card.ID,
		Condition:       NormalizeCondition(""), // aggregates assume NM
		Language:        NormalizeLanguage(card.Lang),
		ObservedAt:      time.Now().UTC(),
	}

	usd := parsePrice(card.Prices.USD)
	usdFoil := parsePrice(card.Prices.USDFoil)
	eur := parsePrice(card.Prices.EUR)
	eurFoil := parsePrice(card.Prices.EURFoil)

	switch {
	case usd != nil:
		obs.Price = *usd
		obs.Currency = "USD"
	case usdFoil != nil:
		obs.Price = *usdFoil
		obs.Currency = "USD"
		obs.IsFoil = true
	case eur != nil:
		obs.Price = *eur
		obs.Currency = "EUR"
	case eurFoil != nil:
		obs.Price = *eurFoil
		obs.Currency = "EUR"
		obs.IsFoil = true
	default:
		return nil
	}
	obs.PriceMarket = usd
	return obs
}

// FetchListings is empty by design: Scryfall exposes aggregated prices only.
func (a *ScryfallAdapter) FetchListings(ctx context.Context, filter ListingFilter, limit int) ([]Listing, error) {
	return []Listing{}, nil
}

func (a *ScryfallAdapter) SearchCards(ctx context.Context, query string, limit int) ([]CardSummary, error) {
	var list scryfallList
	resp, err := a.client.get(ctx, "/cards/search", map[string]string{"q": query}, &list)
	if err != nil {
		return nil, fmt.Errorf("scryfall search failed: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return []CardSummary{}, nil
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("scryfall search returned HTTP %d", resp.StatusCode())
	}

	out := make([]CardSummary, 0, limit)
	for _, c := range list.Data {
		out = append(out, CardSummary{
			Name:            c.Name,
			SetCode:         c.Set,
			CollectorNumber: c.CollectorNumber,
			CanonicalID:     c.ID,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (a *ScryfallAdapter) HealthCheck(ctx context.Context) bool {
	resp, err := a.client.get(ctx, "/symbology", nil, nil)
	return err == nil && resp.IsSuccess()
}
