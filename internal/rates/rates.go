// Package rates provides fiat exchange rates for cross-currency price
// comparison. The upstream provider is an external dependency, so calls go
// through the circuit breaker and successful responses are cached in-process.
package rates

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Lyro-ty/mtg-market-intel-sub002/internal/breaker"
)

const dependencyName = "fx-rates"

// Provider fetches USD-based exchange rates and converts amounts between
// currencies.
type Provider struct {
	rest     *resty.Client
	breakers *breaker.Registry
	logger   *zap.Logger

	mu        sync.RWMutex
	rates     map[string]decimal.Decimal // currency -> units per USD
	fetchedAt time.Time
	cacheTTL  time.Duration
}

func NewProvider(baseURL string, breakers *breaker.Registry, logger *zap.Logger) *Provider {
	return &Provider{
		rest: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second).
			SetHeader("Accept", "application/json"),
		breakers: breakers,
		logger:   logger,
		rates:    map[string]decimal.Decimal{"USD": decimal.NewFromInt(1)},
		cacheTTL: 6 * time.Hour,
	}
}

type ratesResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// Convert converts amount from one currency to another using the latest
// cached rates, refreshing through the breaker when the cache is stale.
func (p *Provider) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	if err := p.ensureFresh(ctx); err != nil {
		return decimal.Zero, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	fromRate, okFrom := p.rates[from]
	toRate, okTo := p.rates[to]
	if !okFrom || !okTo || fromRate.IsZero() {
		return decimal.Zero, fmt.Errorf("no exchange rate for %s->%s", from, to)
	}
	// amount / fromRate = USD, USD * toRate = target
	return amount.Div(fromRate).Mul(toRate).Round(4), nil
}

func (p *Provider) ensureFresh(ctx context.Context) error {
	p.mu.RLock()
	fresh := time.Since(p.fetchedAt) < p.cacheTTL && len(p.rates) > 1
	p.mu.RUnlock()
	if fresh {
		return nil
	}

	fetched, err := breaker.Do(p.breakers, dependencyName, func() (map[string]decimal.Decimal, error) {
		return p.fetch(ctx)
	})
	if err != nil {
		// A stale cache is still usable when the provider is down.
		p.mu.RLock()
		usable := len(p.rates) > 1
		p.mu.RUnlock()
		if usable {
			p.logger.Warn("exchange rate refresh failed, using stale rates", zap.Error(err))
			return nil
		}
		return fmt.Errorf("exchange rates unavailable: %w", err)
	}

	p.mu.Lock()
	p.rates = fetched
	p.fetchedAt = time.Now()
	p.mu.Unlock()
	return nil
}

func (p *Provider) fetch(ctx context.Context) (map[string]decimal.Decimal, error) {
	var body ratesResponse
	resp, err := p.rest.R().SetContext(ctx).SetResult(&body).Get("/latest/USD")
	if err != nil {
		return nil, fmt.Errorf("exchange rate request failed: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("exchange rate provider returned HTTP %d", resp.StatusCode())
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("exchange rate provider returned no rates")
	}

	rates := make(map[string]decimal.Decimal, len(body.Rates)+1)
	rates["USD"] = decimal.NewFromInt(1)
	for code, rate := range body.Rates {
		if rate > 0 {
			rates[strings.ToUpper(code)] = decimal.NewFromFloat(rate)
		}
	}
	return rates, nil
}
