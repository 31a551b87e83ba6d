// Package presenter turns the orchestrator's answer text into a Report: the
// fenced JSON object is extracted, decoded defensively and flattened into
// display metrics. Rendering never fails; when the answer has no usable JSON
// the Report carries the raw text only.
package presenter

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// UnparsedWarning is shown when a fenced block was found but is not valid JSON.
const UnparsedWarning = "Could not parse structured JSON. Showing raw agent output below."

// Defaults applied to absent fields.
const (
	NotAvailable    = "N/A"
	DefaultMapsLink = "#"
	DefaultSource   = "Mock Data"
	LiveSource      = "Live API"
	DefaultIndex    = "Index"
	IndicesPerRow   = 3
)

// RateCurrencies is the display order of exchange rates.
var RateCurrencies = []string{"USD", "INR", "GBP", "EUR"}

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// CurrencyKind tags the two shapes the currency field can take.
type CurrencyKind string

const (
	CurrencyNameOnly    CurrencyKind = "name_only"
	CurrencyNameAndCode CurrencyKind = "name_and_code"
)

// Currency is the decoded currency field. A bare string yields NameOnly with
// code N/A; an object yields NameAndCode with N/A for missing members.
type Currency struct {
	Kind CurrencyKind `json:"kind"`
	Name string       `json:"name"`
	Code string       `json:"code"`
}

// Metric is one labelled value on the dashboard.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Delta string `json:"delta,omitempty"`
}

// Falling reports whether the delta marks a decline.
func (m Metric) Falling() bool { return strings.HasPrefix(m.Delta, "-") }

// Report is the view model of one answer.
type Report struct {
	Structured bool       `json:"structured"`
	Warning    string     `json:"warning,omitempty"`
	Currency   Currency   `json:"currency"`
	Source     string     `json:"source,omitempty"`
	SourceLive bool       `json:"source_live"`
	Rates      []Metric   `json:"rates,omitempty"`
	IndexRows  [][]Metric `json:"index_rows,omitempty"`
	MapsLink   string     `json:"maps_link,omitempty"`
	Raw        string     `json:"raw"`
}

// Indices returns the index metrics without the row grouping.
func (r *Report) Indices() []Metric {
	var out []Metric
	for _, row := range r.IndexRows {
		out = append(out, row...)
	}
	return out
}

// Extract returns the interior of the first ```json fenced object in text.
func Extract(text string) (string, bool) {
	m := fencedJSON.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Parse builds the Report for an answer text.
func Parse(text string) *Report {
	report := &Report{Raw: text}

	block, ok := Extract(text)
	if !ok {
		return report
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(block), &top); err != nil {
		report.Warning = UnparsedWarning
		return report
	}

	report.Structured = true
	report.Currency = decodeCurrency(top["currency"])
	report.Rates = decodeRates(top["exchange_rates"])
	report.IndexRows = chunk(decodeIndices(top["stock_indices"]), IndicesPerRow)
	report.MapsLink = stringOr(top["maps_link"], DefaultMapsLink)
	report.Source = stringOr(top["source"], DefaultSource)
	report.SourceLive = report.Source == LiveSource
	return report
}

func decodeCurrency(raw json.RawMessage) Currency {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil && !isNull(raw) {
		return Currency{Kind: CurrencyNameOnly, Name: name, Code: NotAvailable}
	}

	cur := Currency{Kind: CurrencyNameAndCode, Name: NotAvailable, Code: NotAvailable}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		cur.Name = stringOr(obj["name"], NotAvailable)
		cur.Code = stringOr(obj["code"], NotAvailable)
	}
	return cur
}

func decodeRates(raw json.RawMessage) []Metric {
	var rates map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rates); err != nil {
		return nil
	}
	var out []Metric
	for _, code := range RateCurrencies {
		v, ok := rates[code]
		if !ok {
			continue
		}
		out = append(out, Metric{Label: "To " + code, Value: scalarText(v)})
	}
	return out
}

// decodeIndices accepts a list of {name, value, change} objects or an object
// keyed by index name whose members are {value, change} objects or numbers.
// Object members keep their document order.
func decodeIndices(raw json.RawMessage) []Metric {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	switch raw[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil
		}
		var out []Metric
		for _, e := range entries {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(e, &obj); err != nil {
				continue
			}
			out = append(out, indexMetric(stringOr(obj["name"], DefaultIndex), obj))
		}
		return out
	case '{':
		return decodeIndexObject(raw)
	}
	return nil
}

func decodeIndexObject(raw json.RawMessage) []Metric {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil
	}

	var out []Metric
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		name, _ := tok.(string)

		var member json.RawMessage
		if err := dec.Decode(&member); err != nil {
			return out
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(member, &obj); err == nil {
			out = append(out, indexMetric(name, obj))
			continue
		}
		out = append(out, Metric{Label: name, Value: formatValue(member)})
	}
	return out
}

func indexMetric(name string, obj map[string]json.RawMessage) Metric {
	m := Metric{Label: name, Value: formatValue(obj["value"])}
	if change, ok := obj["change"]; ok && !isNull(change) {
		m.Delta = scalarText(change)
	}
	return m
}

func chunk(metrics []Metric, size int) [][]Metric {
	var rows [][]Metric
	for len(metrics) > 0 {
		n := min(size, len(metrics))
		rows = append(rows, metrics[:n:n])
		metrics = metrics[n:]
	}
	return rows
}

// stringOr returns the JSON string in raw, or def when raw is absent or not a string.
func stringOr(raw json.RawMessage, def string) string {
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		return def
	}
	return s
}

// scalarText renders a JSON value as displayed text: strings unquoted,
// numbers exactly as written.
func scalarText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
