package datasource

import "slices"

// StockRecord is a country's main exchange and its indices in display order.
type StockRecord struct {
	Exchange string       `json:"exchange"`
	Indices  []IndexQuote `json:"indices"`
}

// StockProvider serves stock indices from the catalog. There is no live source.
type StockProvider struct {
	catalog *Catalog
}

// NewStockProvider creates a stock provider over catalog.
func NewStockProvider(catalog *Catalog) *StockProvider {
	return &StockProvider{catalog: catalog}
}

// Lookup returns the stock record for a country, or a *LookupError.
func (p *StockProvider) Lookup(country string) (*StockRecord, error) {
	entry, ok := p.catalog.stock(NormalizeCountry(country))
	if !ok {
		return nil, &LookupError{Message: "Country not found in mock database."}
	}
	return &StockRecord{
		Exchange: entry.exchange,
		Indices:  slices.Clone(entry.indices),
	}, nil
}

// LookupJSON is Lookup encoded for the tool surface.
func (p *StockProvider) LookupJSON(country string) string {
	rec, err := p.Lookup(country)
	if err != nil {
		return errorJSON(err)
	}
	return toJSON(rec)
}
