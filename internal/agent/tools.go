package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/seenimoa/fintel/internal/datasource"
	"github.com/seenimoa/fintel/internal/llm"
)

// Tool names exposed to the model.
const (
	ToolCurrency = "currency_tool"
	ToolStock    = "stock_tool"
	ToolMaps     = "maps_tool"
	ToolNews     = "news_tool"
)

// Tool descriptions shared by every surface that exposes the lookups.
const (
	CurrencyToolDescription = "Get official currency and exchange rates (USD, INR, GBP, EUR) for a specific country."
	StockToolDescription    = "Get major stock indices and current market data for a specific country."
	MapsToolDescription     = "Get the Google Maps link for the main Stock Exchange HQ of a specific country."
	NewsToolDescription     = "Get recent stock market news headlines for a specific country."
)

func countrySchema() *llm.JSONSchema {
	return llm.ObjectSchema("",
		map[string]*llm.JSONSchema{
			"country": llm.StringProp("Country name, e.g. Japan"),
		},
		"country",
	)
}

// ToolsFor builds the lookup tools over providers. The news tool is added
// only when a headlines provider is configured.
func ToolsFor(p *datasource.Providers) []llm.Tool {
	tools := []llm.Tool{
		{
			Name:        ToolCurrency,
			Description: CurrencyToolDescription,
			Parameters:  countrySchema(),
			Handler: countryHandler(func(ctx context.Context, country string) string {
				return p.Currency.LookupJSON(ctx, country)
			}),
		},
		{
			Name:        ToolStock,
			Description: StockToolDescription,
			Parameters:  countrySchema(),
			Handler: countryHandler(func(_ context.Context, country string) string {
				return p.Stocks.LookupJSON(country)
			}),
		},
		{
			Name:        ToolMaps,
			Description: MapsToolDescription,
			Parameters:  countrySchema(),
			// The maps tool answers with the bare URL, not a JSON document.
			Handler: countryHandler(func(_ context.Context, country string) string {
				return p.Maps.Lookup(country)
			}),
		},
	}
	if p.Headlines != nil {
		tools = append(tools, llm.Tool{
			Name:        ToolNews,
			Description: NewsToolDescription,
			Parameters:  countrySchema(),
			Handler: countryHandler(func(ctx context.Context, country string) string {
				return p.Headlines.LookupJSON(ctx, country)
			}),
		})
	}
	return tools
}

// countryHandler adapts a lookup to the tool handler signature. Only
// undecodable arguments are an error; a blank or unknown country is answered
// in-band by the provider.
func countryHandler(lookup func(ctx context.Context, country string) string) llm.ToolHandler {
	return func(ctx context.Context, args json.RawMessage) (string, error) {
		var params struct {
			Country string `json:"country"`
		}
		if err := json.Unmarshal(args, &params); err != nil {
			return "", fmt.Errorf("parse args: %w", err)
		}
		return lookup(ctx, params.Country), nil
	}
}
