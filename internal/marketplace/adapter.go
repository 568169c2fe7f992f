// Package marketplace defines the adapter contract for external price
// sources and the concrete adapters for the closed set of supported
// marketplaces. Adapters do network I/O only; they never touch the database.
package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CardRef identifies a card for lookup. Lookup priority inside an adapter is
// canonical ID, then set+collector number, then fuzzy name+set.
type CardRef struct {
	Name            string
	SetCode         string
	CollectorNumber string
	CanonicalID     string // Scryfall UUID when known
}

// PriceObservation is the ephemeral output of one adapter fetch. It is
// consumed immediately by the bulk upsert engine and never persisted as-is.
type PriceObservation struct {
	CardName        string
	SetCode         string
	CollectorNumber string
	CanonicalID     string
	Price           decimal.Decimal
	PriceLow        *decimal.Decimal
	PriceMid        *decimal.Decimal
	PriceHigh       *decimal.Decimal
	PriceMarket     *decimal.Decimal
	Currency        string
	NumListings     *int
	TotalQuantity   *int
	Condition       string
	IsFoil          bool
	Language        string
	ObservedAt      time.Time
}

// FetchResult distinguishes "card not on this marketplace" from an error.
// Found=false with a nil error is a legitimate, non-error outcome.
type FetchResult struct {
	Observation *PriceObservation
	Found       bool
}

// Listing is a single live offer on a marketplace. Sources that only expose
// aggregated prices return no listings.
type Listing struct {
	CardName  string
	SetCode   string
	Price     decimal.Decimal
	Currency  string
	Condition string
	IsFoil    bool
	Language  string
	Quantity  int
	SellerID  string
}

// ListingFilter narrows FetchListings results.
type ListingFilter struct {
	CardName  string
	SetCode   string
	Condition string
	FoilOnly  bool
}

// CardSummary is a search hit.
type CardSummary struct {
	Name            string
	SetCode         string
	CollectorNumber string
	CanonicalID     string
}

// Adapter is implemented once per external price source.
type Adapter interface {
	// Code returns the marketplace code this adapter serves. It doubles as
	// the circuit breaker dependency name.
	Code() string
	FetchPrice(ctx context.Context, ref CardRef) (FetchResult, error)
	FetchListings(ctx context.Context, filter ListingFilter, limit int) ([]Listing, error)
	SearchCards(ctx context.Context, query string, limit int) ([]CardSummary, error)
	HealthCheck(ctx context.Context) bool
}

// Config configures one adapter instance. Plain struct, no environment
// coupling; the caller wires values in from wherever it loads them.
type Config struct {
	BaseURL           string
	APIKey            string
	RateLimitInterval time.Duration // minimum gap between outbound requests
	MaxRetries        int
	Timeout           time.Duration
}

// Registry maps marketplace codes to adapter instances. The set is closed
// and assembled at startup.
type Registry struct {
	adapters map[string]Adapter
	order    []string
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range adapters {
		if _, dup := r.adapters[a.Code()]; dup {
			continue
		}
		r.adapters[a.Code()] = a
		r.order = append(r.order, a.Code())
	}
	return r
}

// Get returns the adapter for code.
func (r *Registry) Get(code string) (Adapter, error) {
	a, ok := r.adapters[code]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for marketplace %q", code)
	}
	return a, nil
}

// All returns adapters in registration order.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.adapters[code])
	}
	return out
}
