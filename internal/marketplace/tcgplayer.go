package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const TCGPlayerCode = "tcgplayer"

// TCGPlayerAdapter fetches product prices and live listings from the
// TCGplayer API. Prices are quoted in USD.
type TCGPlayerAdapter struct {
	client *httpClient
	logger *zap.Logger
}

func NewTCGPlayerAdapter(cfg Config, logger *zap.Logger) *TCGPlayerAdapter {
	return &TCGPlayerAdapter{
		client: newHTTPClient(cfg),
		logger: logger,
	}
}

func (a *TCGPlayerAdapter) Code() string { return TCGPlayerCode }

type tcgProduct struct {
	ProductID       int64  `json:"productId"`
	Name            string `json:"name"`
	SetCode         string `json:"setCode"`
	CollectorNumber string `json:"number"`
	ScryfallID      string `json:"scryfallId"`
}

type tcgProductList struct {
	Results []tcgProduct `json:"results"`
}

type tcgPricing struct {
	Results []struct {
		SubTypeName    string  `json:"subTypeName"` // Normal or Foil
		LowPrice       float64 `json:"lowPrice"`
		MidPrice       float64 `json:"midPrice"`
		HighPrice      float64 `json:"highPrice"`
		MarketPrice    float64 `json:"marketPrice"`
		DirectLowPrice float64 `json:"directLowPrice"`
		NumListings    int     `json:"numListings"`
		TotalQuantity  int     `json:"totalQuantity"`
	} `json:"results"`
}

type tcgListings struct {
	Results []struct {
		Price     float64 `json:"price"`
		Condition string  `json:"condition"`
		Language  string  `json:"language"`
		Printing  string  `json:"printing"`
		Quantity  int     `json:"quantity"`
		SellerKey string  `json:"sellerKey"`
	} `json:"results"`
}

func (a *TCGPlayerAdapter) FetchPrice(ctx context.Context, ref CardRef) (FetchResult, error) {
	product, found, err := a.resolveProduct(ctx, ref)
	if err != nil || !found {
		return FetchResult{}, err
	}

	var pricing tcgPricing
	resp, err := a.client.get(ctx, fmt.Sprintf("/pricing/product/%d", product.ProductID), nil, &pricing)
	if err != nil {
		return FetchResult{}, fmt.Errorf("tcgplayer pricing request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return FetchResult{}, nil
	}
	if !resp.IsSuccess() {
		return FetchResult{}, fmt.Errorf("tcgplayer pricing returned HTTP %d", resp.StatusCode())
	}

	for _, r := range pricing.Results {
		price := parsePriceFloat(r.MarketPrice)
		if price == nil {
			price = parsePriceFloat(r.MidPrice)
		}
		if price == nil {
			continue
		}
		listings := r.NumListings
		quantity := r.TotalQuantity
		obs := &PriceObservation{
			CardName:        product.Name,
			SetCode:         product.SetCode,
			CollectorNumber: product.CollectorNumber,
			CanonicalID:     product.ScryfallID,
			Price:           *price,
			PriceLow:        parsePriceFloat(r.LowPrice),
			PriceMid:        parsePriceFloat(r.MidPrice),
			PriceHigh:       parsePriceFloat(r.HighPrice),
			PriceMarket:     parsePriceFloat(r.MarketPrice),
			Currency:        "USD",
			NumListings:     &listings,
			TotalQuantity:   &quantity,
			Condition:       NormalizeCondition("Near Mint"),
			IsFoil:          r.SubTypeName == "Foil",
			Language:        NormalizeLanguage("English"),
			ObservedAt:      time.Now().UTC(),
		}
		return FetchResult{Observation: obs, Found: true}, nil
	}

	a.logger.Debug("tcgplayer product has no priced subtype", zap.Int64("product_id", product.ProductID))
	return FetchResult{}, nil
}

// resolveProduct looks the card up by scryfall ID first, then set+number,
// then name search.
func (a *TCGPlayerAdapter) resolveProduct(ctx context.Context, ref CardRef) (tcgProduct, bool, error) {
	attempts := []map[string]string{}
	if ref.CanonicalID != "" {
		attempts = append(attempts, map[string]string{"scryfallId": ref.CanonicalID})
	}
	if ref.SetCode != "" && ref.CollectorNumber != "" {
		attempts = append(attempts, map[string]string{"setCode": ref.SetCode, "number": ref.CollectorNumber})
	}
	if ref.Name != "" {
		q := map[string]string{"productName": ref.Name}
		if ref.SetCode != "" {
			q["setCode"] = ref.SetCode
		}
		attempts = append(attempts, q)
	}

	for _, query := range attempts {
		var list tcgProductList
		resp, err := a.client.get(ctx, "/catalog/products", query, &list)
		if err != nil {
			return tcgProduct{}, false, fmt.Errorf("tcgplayer catalog request failed: %w", err)
		}
		if resp.StatusCode() == http.StatusNotFound {
			continue
		}
		if !resp.IsSuccess() {
			return tcgProduct{}, false, fmt.Errorf("tcgplayer catalog returned HTTP %d", resp.StatusCode())
		}
		if len(list.Results) > 0 {
			return list.Results[0], true, nil
		}
	}
	return tcgProduct{}, false, nil
}

func (a *TCGPlayerAdapter) FetchListings(ctx context.Context, filter ListingFilter, limit int) ([]Listing, error) {
	product, found, err := a.resolveProduct(ctx, CardRef{Name: filter.CardName, SetCode: filter.SetCode})
	if err != nil {
		return nil, err
	}
	if !found {
		return []Listing{}, nil
	}

	var listings tcgListings
	resp, err := a.client.get(ctx, fmt.Sprintf("/pricing/product/%d/listings", product.ProductID),
		map[string]string{"limit": strconv.Itoa(limit)}, &listings)
	if err != nil {
		return nil, fmt.Errorf("tcgplayer listings request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("tcgplayer listings returned HTTP %d", resp.StatusCode())
	}

	out := make([]Listing, 0, len(listings.Results))
	for _, l := range listings.Results {
		price := parsePriceFloat(l.Price)
		if price == nil {
			continue
		}
		condition := NormalizeCondition(l.Condition)
		if filter.Condition != "" && condition != filter.Condition {
			continue
		}
		isFoil := l.Printing == "Foil"
		if filter.FoilOnly && !isFoil {
			continue
		}
		out = append(out, Listing{
			CardName:  product.Name,
			SetCode:   product.SetCode,
			Price:     *price,
			Currency:  "USD",
			Condition: condition,
			IsFoil:    isFoil,
			Language:  NormalizeLanguage(l.Language),
			Quantity:  l.Quantity,
			SellerID:  l.SellerKey,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (a *TCGPlayerAdapter) SearchCards(ctx context.Context, query string, limit int) ([]CardSummary, error) {
	var list tcgProductList
	resp, err := a.client.get(ctx, "/catalog/products", map[string]string{
		"productName": query,
		"limit":       strconv.Itoa(limit),
	}, &list)
	if err != nil {
		return nil, fmt.Errorf("tcgplayer search failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("tcgplayer search returned HTTP %d", resp.StatusCode())
	}

	out := make([]CardSummary, 0, len(list.Results))
	for _, p := range list.Results {
		out = append(out, CardSummary{
			Name:            p.Name,
			SetCode:         p.SetCode,
			CollectorNumber: p.CollectorNumber,
			CanonicalID:     p.ScryfallID,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (a *TCGPlayerAdapter) HealthCheck(ctx context.Context) bool {
	resp, err := a.client.get(ctx, "/catalog/categories", nil, nil)
	return err == nil && resp.IsSuccess()
}
