package datasource

// MapsProvider serves the map link of each country's main stock exchange.
type MapsProvider struct {
	catalog *Catalog
}

// NewMapsProvider creates a maps provider over catalog.
func NewMapsProvider(catalog *Catalog) *MapsProvider {
	return &MapsProvider{catalog: catalog}
}

// Lookup returns the exchange location URL. Unknown countries get
// DefaultMapsLink; this lookup cannot fail.
func (p *MapsProvider) Lookup(country string) string {
	if link, ok := p.catalog.mapsLink(NormalizeCountry(country)); ok {
		return link
	}
	return DefaultMapsLink
}

// Known reports whether the country has a specific exchange location.
func (p *MapsProvider) Known(country string) bool {
	_, ok := p.catalog.mapsLink(NormalizeCountry(country))
	return ok
}
