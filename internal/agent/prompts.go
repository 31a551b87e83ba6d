package agent

import "fmt"

// SystemPrompt configures the model as the financial intelligence agent.
const SystemPrompt = "You are an expert Financial Intelligence Agent. " +
	"Your goal is to provide accurate financial data for a given country. " +
	"You MUST use the provided tools to get exchange rates, stock indices, and location links. " +
	"Do not make up data. If a tool returns specific data, use it exactly. " +
	"Output the final answer as a structured summary, but you can also include the raw JSON in a code block if requested."

// UserPrompt is the request sent for one country. The answer is expected to
// carry a ```json fenced object that the presenter extracts.
func UserPrompt(country string) string {
	return fmt.Sprintf(`Give me full financial intelligence for %s.
1. Official Currency Name & Code.
2. Exchange rates for 1 unit of this currency to USD, INR, GBP, EUR.
3. Major Stock Indices with current values.
4. Google Maps link for the Stock Exchange HQ.
Return the final answer as a structured JSON object with keys: 'currency', 'exchange_rates', 'stock_indices', 'maps_link', 'source'.
Use 'source' for the data source reported by the currency tool.
Wrap the JSON object in a fenced code block that starts with `+"```json"+`.`, country)
}
