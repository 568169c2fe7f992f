package marketplace

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const CardKingdomCode = "cardkingdom"

// CardKingdomAdapter reads the Card Kingdom price list feed. The feed is a
// flat product list with retail price and on-hand quantity per condition, so
// lookup is filter-based rather than by ID.
type CardKingdomAdapter struct {
	client *httpClient
	logger *zap.Logger
}

func NewCardKingdomAdapter(cfg Config, logger *zap.Logger) *CardKingdomAdapter {
	return &CardKingdomAdapter{
		client: newHTTPClient(cfg),
		logger: logger,
	}
}

func (a *CardKingdomAdapter) Code() string { return CardKingdomCode }

type ckRow struct {
	Name            string  `json:"name"`
	Edition         string  `json:"edition"`
	CollectorNumber string  `json:"collector_number"`
	ScryfallID      string  `json:"scryfall_id"`
	IsFoil          string  `json:"is_foil"` // "true"/"false" in the feed
	PriceRetail     string  `json:"price_retail"`
	QtyRetail       int     `json:"qty_retail"`
	PriceBuy        string  `json:"price_buy"`
	ConditionValues []ckQty `json:"condition_values"`
}

type ckQty struct {
	Condition string `json:"condition"`
	Qty       int    `json:"qty"`
}

type ckFeed struct {
	Data []ckRow `json:"data"`
}

func (a *CardKingdomAdapter) FetchPrice(ctx context.Context, ref CardRef) (FetchResult, error) {
	rows, err := a.query(ctx, ref, 50)
	if err != nil {
		return FetchResult{}, err
	}

	row, ok := pickCardKingdomRow(rows, ref)
	if !ok {
		return FetchResult{}, nil
	}

	price := parsePrice(row.PriceRetail)
	if price == nil {
		a.logger.Debug("cardkingdom row has no retail price", zap.String("card", row.Name))
		return FetchResult{}, nil
	}

	qty := row.QtyRetail
	listings := len(row.ConditionValues)
	if listings == 0 && qty > 0 {
		listings = 1
	}
	obs := &PriceObservation{
		CardName:        row.Name,
		SetCode:         strings.ToLower(row.Edition),
		CollectorNumber: row.CollectorNumber,
		CanonicalID:     row.ScryfallID,
		Price:           *price,
		PriceLow:        parsePrice(row.PriceBuy),
		Currency:        "USD",
		NumListings:     &listings,
		TotalQuantity:   &qty,
		Condition:       NormalizeCondition("NM"),
		IsFoil:          row.IsFoil == "true",
		Language:        NormalizeLanguage("English"),
		ObservedAt:      time.Now().UTC(),
	}
	return FetchResult{Observation: obs, Found: true}, nil
}

// pickCardKingdomRow applies the lookup priority against the returned rows:
// scryfall ID, then edition+collector number, then first name match.
func pickCardKingdomRow(rows []ckRow, ref CardRef) (ckRow, bool) {
	if ref.CanonicalID != "" {
		for _, r := range rows {
			if r.ScryfallID == ref.CanonicalID {
				return r, true
			}
		}
	}
	if ref.SetCode != "" && ref.CollectorNumber != "" {
		for _, r := range rows {
			if strings.EqualFold(r.Edition, ref.SetCode) && r.CollectorNumber == ref.CollectorNumber {
				return r, true
			}
		}
	}
	for _, r := range rows {
		if strings.EqualFold(r.Name, ref.Name) {
			return r, true
		}
	}
	if len(rows) > 0 && ref.Name != "" {
		return rows[0], true
	}
	return ckRow{}, false
}

func (a *CardKingdomAdapter) query(ctx context.Context, ref CardRef, limit int) ([]ckRow, error) {
	query := map[string]string{"limit": strconv.Itoa(limit)}
	if ref.Name != "" {
		query["name"] = ref.Name
	}
	if ref.SetCode != "" {
		query["edition"] = ref.SetCode
	}
	if ref.CanonicalID != "" {
		query["scryfall_id"] = ref.CanonicalID
	}

	var feed ckFeed
	resp, err := a.client.get(ctx, "/api/pricelist", query, &feed)
	if err != nil {
		return nil, fmt.Errorf("cardkingdom request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("cardkingdom returned HTTP %d", resp.StatusCode())
	}
	return feed.Data, nil
}

// FetchListings maps per-condition stock rows to listings; Card Kingdom is a
// single seller so each condition bucket is one listing.
func (a *CardKingdomAdapter) FetchListings(ctx context.Context, filter ListingFilter, limit int) ([]Listing, error) {
	rows, err := a.query(ctx, CardRef{Name: filter.CardName, SetCode: filter.SetCode}, limit)
	if err != nil {
		return nil, err
	}

	var out []Listing
	for _, row := range rows {
		price := parsePrice(row.PriceRetail)
		if price == nil {
			continue
		}
		isFoil := row.IsFoil == "true"
		if filter.FoilOnly && !isFoil {
			continue
		}
		for _, cv := range row.ConditionValues {
			condition := NormalizeCondition(cv.Condition)
			if filter.Condition != "" && condition != filter.Condition {
				continue
			}
			if cv.Qty <= 0 {
				continue
			}
			out = append(out, Listing{
				CardName:  row.Name,
				SetCode:   strings.ToLower(row.Edition),
				Price:     *price,
				Currency:  "USD",
				Condition: condition,
				IsFoil:    isFoil,
				Language:  NormalizeLanguage("English"),
				Quantity:  cv.Qty,
				SellerID:  CardKingdomCode,
			})
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	if out == nil {
		out = []Listing{}
	}
	return out, nil
}

func (a *CardKingdomAdapter) SearchCards(ctx context.Context, query string, limit int) ([]CardSummary, error) {
	rows, err := a.query(ctx, CardRef{Name: query}, limit)
	if err != nil {
		return nil, err
	}
	out := make([]CardSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, CardSummary{
			Name:            r.Name,
			SetCode:         strings.ToLower(r.Edition),
			CollectorNumber: r.CollectorNumber,
			CanonicalID:     r.ScryfallID,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (a *CardKingdomAdapter) HealthCheck(ctx context.Context) bool {
	resp, err := a.client.get(ctx, "/api/pricelist", map[string]string{"limit": "1"}, nil)
	return err == nil && resp.IsSuccess()
}
