package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/fintel/internal/infra"
	"github.com/seenimoa/fintel/internal/logging"
)

// Source tags where a currency record came from.
type Source string

const (
	SourceLive Source = "Live API"
	SourceMock Source = "Mock Data"
)

const mockDebugNote = "API failed or key missing"

// CurrencyRecord is a currency code plus its cross-rates.
type CurrencyRecord struct {
	Currency  string `json:"currency"`
	Rates     Rates  `json:"rates"`
	Source    Source `json:"source"`
	DebugInfo string `json:"debug_info,omitempty"`
	APIError  string `json:"api_error,omitempty"`
}

// RateSource fetches live conversion rates. *ExchangeRateClient implements it.
type RateSource interface {
	Latest(ctx context.Context, apiKey, base string) (*LatestResponse, error)
}

// CurrencyProvider resolves a country's currency, preferring the live rate
// service and falling back to the catalog on any failure.
type CurrencyProvider struct {
	catalog    *Catalog
	live       RateSource
	credential func() string
	limiter    *infra.RateLimiter
	timeout    time.Duration
	group      singleflight.Group
	log        *slog.Logger
}

// CurrencyOption configures a CurrencyProvider.
type CurrencyOption func(*CurrencyProvider)

// WithRateSource sets the live rate service.
func WithRateSource(src RateSource) CurrencyOption {
	return func(p *CurrencyProvider) { p.live = src }
}

// WithCredential sets the function that yields the live service API key.
// It is called once per lookup; an empty key disables the live call.
func WithCredential(fn func() string) CurrencyOption {
	return func(p *CurrencyProvider) { p.credential = fn }
}

// WithLimiter gates live calls through a rate limiter.
func WithLimiter(rl *infra.RateLimiter) CurrencyOption {
	return func(p *CurrencyProvider) { p.limiter = rl }
}

// WithTimeout bounds each live call, limiter wait included.
func WithTimeout(d time.Duration) CurrencyOption {
	return func(p *CurrencyProvider) { p.timeout = d }
}

// WithLogger sets the logger used for upstream failures.
func WithLogger(log *slog.Logger) CurrencyOption {
	return func(p *CurrencyProvider) { p.log = log }
}

// NewCurrencyProvider creates a currency provider over catalog.
// Without a rate source or credential it serves the catalog only.
func NewCurrencyProvider(catalog *Catalog, opts ...CurrencyOption) *CurrencyProvider {
	p := &CurrencyProvider{
		catalog:    catalog,
		credential: func() string { return "" },
		timeout:    5 * time.Second,
		log:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Lookup returns the currency record for a country. A country missing from
// the catalog returns a *LookupError; upstream failures are never returned.
func (p *CurrencyProvider) Lookup(ctx context.Context, country string) (*CurrencyRecord, error) {
	key := NormalizeCountry(country)
	base, hasBase := p.catalog.BaseCurrency(key)

	var apiErr string
	if apiKey := p.credential(); apiKey != "" && hasBase && p.live != nil {
		rec, err := p.fetchLive(ctx, apiKey, base)
		if err == nil {
			return rec, nil
		}
		apiErr = err.Error()
		p.log.Warn("live exchange rate lookup failed, using mock data",
			"country", key, "base", base, "timeout", isTimeout(err), "error", apiErr)
	}

	entry, ok := p.catalog.currency(key)
	if !ok {
		return nil, &LookupError{
			Message:   fmt.Sprintf("Country '%s' not found in database.", key),
			APIStatus: "failed",
		}
	}
	return &CurrencyRecord{
		Currency:  entry.code,
		Rates:     entry.rates.clone(),
		Source:    SourceMock,
		DebugInfo: mockDebugNote,
		APIError:  apiErr,
	}, nil
}

// LookupJSON is Lookup encoded for the tool surface.
func (p *CurrencyProvider) LookupJSON(ctx context.Context, country string) string {
	rec, err := p.Lookup(ctx, country)
	if err != nil {
		return errorJSON(err)
	}
	return toJSON(rec)
}

// fetchLive performs one upstream call. Concurrent lookups of the same base
// currency and key share the call. The shared call is detached from any one
// caller's cancellation; each caller stops waiting when its own ctx is done.
func (p *CurrencyProvider) fetchLive(ctx context.Context, apiKey, base string) (*CurrencyRecord, error) {
	shared := context.WithoutCancel(ctx)
	ch := p.group.DoChan(base+"|"+apiKey, func() (any, error) {
		ctx, cancel := context.WithTimeout(shared, p.timeout)
		defer cancel()

		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrUpstream, err)
		}
		latest, err := p.live.Latest(ctx, apiKey, base)
		if err != nil {
			return nil, err
		}
		return &CurrencyRecord{
			Currency: base,
			Rates:    ratesFrom(latest.ConversionRates),
			Source:   SourceLive,
		}, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		rec := *res.Val.(*CurrencyRecord)
		rec.Rates = rec.Rates.clone()
		return &rec, nil
	}
}
