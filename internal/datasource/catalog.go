package datasource

import (
	"maps"
	"slices"
)

// TargetCurrencies lists the codes reported in every rate block, in display order.
var TargetCurrencies = []string{"USD", "INR", "GBP", "EUR"}

// Rates holds the conversion of one unit of a currency into the target
// currencies. A nil field means the rate was not available and is omitted
// from the JSON form; field order fixes the JSON key order.
type Rates struct {
	USD *float64 `json:"USD,omitempty"`
	INR *float64 `json:"INR,omitempty"`
	GBP *float64 `json:"GBP,omitempty"`
	EUR *float64 `json:"EUR,omitempty"`
}

// Get returns the rate for a target currency code.
func (r Rates) Get(code string) (float64, bool) {
	var p *float64
	switch code {
	case "USD":
		p = r.USD
	case "INR":
		p = r.INR
	case "GBP":
		p = r.GBP
	case "EUR":
		p = r.EUR
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Len returns the number of rates present.
func (r Rates) Len() int {
	n := 0
	for _, code := range TargetCurrencies {
		if _, ok := r.Get(code); ok {
			n++
		}
	}
	return n
}

// ratesFrom picks the target currencies out of an upstream conversion table.
func ratesFrom(conversion map[string]float64) Rates {
	pick := func(code string) *float64 {
		v, ok := conversion[code]
		if !ok {
			return nil
		}
		return &v
	}
	return Rates{USD: pick("USD"), INR: pick("INR"), GBP: pick("GBP"), EUR: pick("EUR")}
}

// clone copies the rate values so callers never share the catalog's storage.
func (r Rates) clone() Rates {
	cp := func(p *float64) *float64 {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	return Rates{USD: cp(r.USD), INR: cp(r.INR), GBP: cp(r.GBP), EUR: cp(r.EUR)}
}

func fullRates(usd, inr, gbp, eur float64) Rates {
	return Rates{USD: &usd, INR: &inr, GBP: &gbp, EUR: &eur}
}

type currencyEntry struct {
	code  string
	rates Rates
}

// IndexQuote is one stock index value.
type IndexQuote struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Change string  `json:"change"`
}

type stockEntry struct {
	exchange string
	indices  []IndexQuote
}

// Catalog holds the fixed country tables. It is built once by NewCatalog and
// never mutated, so a single instance is shared by all providers and requests.
type Catalog struct {
	baseCurrency map[string]string
	currencies   map[string]currencyEntry
	stocks       map[string]stockEntry
	mapsLinks    map[string]string
}

const mapsSearchURL = "https://www.google.com/maps/search/?api=1&query="

// DefaultMapsLink is returned for countries without a known exchange location.
const DefaultMapsLink = "https://www.google.com/maps"

// NewCatalog builds the country tables.
func NewCatalog() *Catalog {
	usd := currencyEntry{"USD", fullRates(1.0, 90.56, 0.79, 0.92)}
	gbp := currencyEntry{"GBP", fullRates(1.26, 105.4, 1.0, 1.17)}
	eur := currencyEntry{"EUR", fullRates(1.08, 90.50, 0.85, 1.0)}

	us := stockEntry{"New York Stock Exchange (NYSE) / NASDAQ", []IndexQuote{
		{"S&P 500", 5400, "+0.3%"},
		{"Dow Jones", 39000, "+0.1%"},
		{"NASDAQ", 17000, "+0.5%"},
	}}
	uk := stockEntry{"London Stock Exchange (LSE)", []IndexQuote{
		{"FTSE 100", 8200, "+0.4%"},
		{"FTSE 250", 20100, "+0.6%"},
	}}

	return &Catalog{
		baseCurrency: map[string]string{
			"japan": "JPY", "india": "INR",
			"us": "USD", "usa": "USD", "united states": "USD",
			"south korea": "KRW", "china": "CNY",
			"uk": "GBP", "united kingdom": "GBP",
			"germany": "EUR", "france": "EUR", "italy": "EUR", "spain": "EUR",
		},
		currencies: map[string]currencyEntry{
			"japan":          {"JPY", fullRates(0.0067, 0.56, 0.0053, 0.0062)},
			"india":          {"INR", fullRates(0.011, 1.0, 0.0095, 0.011)},
			"us":             usd,
			"usa":            usd,
			"united states":  usd,
			"south korea":    {"KRW", fullRates(0.00075, 0.062, 0.00059, 0.00069)},
			"china":          {"CNY", fullRates(0.14, 11.5, 0.11, 0.13)},
			"uk":             gbp,
			"united kingdom": gbp,
			"germany":        eur,
			"france":         eur,
			"italy":          eur,
			"spain":          eur,
		},
		stocks: map[string]stockEntry{
			"japan": {"Tokyo Stock Exchange (TSE)", []IndexQuote{
				{"Nikkei 225", 38915.00, "+1.2%"},
				{"TOPIX", 2650.50, "+0.8%"},
			}},
			"india": {"Bombay Stock Exchange (BSE) / National Stock Exchange (NSE)", []IndexQuote{
				{"NIFTY 50", 24500, "-0.5%"},
				{"SENSEX", 81000, "-0.4%"},
			}},
			"us":            us,
			"usa":           us,
			"united states": us,
			"south korea": {"Korea Exchange (KRX)", []IndexQuote{
				{"KOSPI", 2700, "+0.9%"},
				{"KOSDAQ", 850, "+1.1%"},
			}},
			"china": {"Shanghai Stock Exchange (SSE)", []IndexQuote{
				{"Shanghai Composite", 3050, "-0.2%"},
				{"Shenzhen Component", 9500, "-0.3%"},
			}},
			"uk":             uk,
			"united kingdom": uk,
			"germany": {"Frankfurt Stock Exchange (FWB / Xetra)", []IndexQuote{
				{"DAX", 18500, "+0.5%"},
				{"MDAX", 26000, "+0.3%"},
			}},
			"france": {"Euronext Paris", []IndexQuote{
				{"CAC 40", 7600, "+0.2%"},
				{"SBF 120", 5800, "+0.1%"},
			}},
			"italy": {"Borsa Italiana (Euronext Milan)", []IndexQuote{
				{"FTSE MIB", 34000, "-0.1%"},
			}},
			"spain": {"Bolsas y Mercados Españoles (BME)", []IndexQuote{
				{"IBEX 35", 11000, "+0.4%"},
			}},
		},
		mapsLinks: map[string]string{
			"japan":          mapsSearchURL + "Tokyo+Stock+Exchange",
			"india":          mapsSearchURL + "Bombay+Stock+Exchange",
			"us":             mapsSearchURL + "New+York+Stock+Exchange",
			"usa":            mapsSearchURL + "New+York+Stock+Exchange",
			"united states":  mapsSearchURL + "New+York+Stock+Exchange",
			"south korea":    mapsSearchURL + "Korea+Exchange+Seoul",
			"china":          mapsSearchURL + "Shanghai+Stock+Exchange",
			"uk":             mapsSearchURL + "London+Stock+Exchange",
			"united kingdom": mapsSearchURL + "London+Stock+Exchange",
			"germany":        mapsSearchURL + "Frankfurt+Stock+Exchange",
			"france":         mapsSearchURL + "Euronext+Paris",
			"italy":          mapsSearchURL + "Borsa+Italiana+Milan",
			"spain":          mapsSearchURL + "Bolsa+de+Madrid",
		},
	}
}

// Countries returns the known country keys in sorted order.
func (c *Catalog) Countries() []string {
	return slices.Sorted(maps.Keys(c.baseCurrency))
}

// BaseCurrency returns the currency code of a country key.
func (c *Catalog) BaseCurrency(key string) (string, bool) {
	code, ok := c.baseCurrency[key]
	return code, ok
}

func (c *Catalog) currency(key string) (currencyEntry, bool) {
	e, ok := c.currencies[key]
	return e, ok
}

func (c *Catalog) stock(key string) (stockEntry, bool) {
	e, ok := c.stocks[key]
	return e, ok
}

func (c *Catalog) mapsLink(key string) (string, bool) {
	link, ok := c.mapsLinks[key]
	return link, ok
}
