package datasource

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Providers groups the lookups a country brief draws on.
// Headlines is optional.
type Providers struct {
	Currency  *CurrencyProvider
	Stocks    *StockProvider
	Maps      *MapsProvider
	Headlines *HeadlinesProvider
}

// NewProviders wires the three table providers over one catalog.
func NewProviders(catalog *Catalog, currencyOpts ...CurrencyOption) *Providers {
	return &Providers{
		Currency: NewCurrencyProvider(catalog, currencyOpts...),
		Stocks:   NewStockProvider(catalog),
		Maps:     NewMapsProvider(catalog),
	}
}

// Brief is every provider's answer for one country, fetched without the LLM.
type Brief struct {
	Country   string            `json:"country"`
	Currency  *CurrencyRecord   `json:"currency,omitempty"`
	Stocks    *StockRecord      `json:"stocks,omitempty"`
	MapsLink  string            `json:"maps_link"`
	Headlines *Headlines        `json:"headlines,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// Brief runs all providers for a country in parallel. Lookup misses are
// collected in Brief.Errors; only cancellation fails the call.
func (p *Providers) Brief(ctx context.Context, country string) (*Brief, error) {
	key := NormalizeCountry(country)
	if key == "" {
		return nil, ErrNoCountry
	}

	brief := &Brief{Country: key, MapsLink: p.Maps.Lookup(key)}

	var mu sync.Mutex
	fail := func(section string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if brief.Errors == nil {
			brief.Errors = make(map[string]string)
		}
		brief.Errors[section] = err.Error()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rec, err := p.Currency.Lookup(gctx, key)
		if err != nil {
			fail("currency", err)
			return nil // non-fatal
		}
		mu.Lock()
		brief.Currency = rec
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		rec, err := p.Stocks.Lookup(key)
		if err != nil {
			fail("stocks", err)
			return nil
		}
		mu.Lock()
		brief.Stocks = rec
		mu.Unlock()
		return nil
	})

	if p.Headlines != nil {
		g.Go(func() error {
			h, err := p.Headlines.Lookup(gctx, key)
			if err != nil {
				fail("headlines", err)
				return nil
			}
			mu.Lock()
			brief.Headlines = h
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return brief, nil
}
