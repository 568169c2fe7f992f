package marketplace

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// httpClient bundles the resty client with the adapter's local rate limiter.
// The limiter blocks the caller until the configured interval has elapsed
// since this adapter instance's previous request; it is not shared across
// adapters or processes.
type httpClient struct {
	rest    *resty.Client
	limiter *rate.Limiter
}

func newHTTPClient(cfg Config) *httpClient {
	interval := cfg.RateLimitInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.MaxRetries).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		rest.SetAuthToken(cfg.APIKey)
	}

	return &httpClient{
		rest:    rest,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// get performs a rate-limited GET, decoding a 2xx body into out when out is
// non-nil.
func (c *httpClient) get(ctx context.Context, path string, query map[string]string, out interface{}) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := c.rest.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if out != nil {
		req.SetResult(out)
	}
	return req.Get(path)
}

// parsePrice converts a source price string into a decimal, returning nil for
// empty or unparseable values so a bad optional field becomes NULL instead of
// sinking the whole observation.
func parsePrice(raw string) *decimal.Decimal {
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &d
}

// parsePriceFloat is parsePrice for sources that report JSON numbers.
// Non-positive values are treated as absent.
func parsePriceFloat(raw float64) *decimal.Decimal {
	if raw <= 0 {
		return nil
	}
	d := decimal.NewFromFloat(raw).Round(2)
	return &d
}
