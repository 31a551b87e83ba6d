package presenter

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// formatValue renders an index value with thousands grouping. Absent values
// read as 0; strings are shown as written.
func formatValue(raw json.RawMessage) string {
	if isNull(raw) {
		return "0"
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return scalarText(raw)
	}
	return GroupDigits(n.String())
}

// GroupDigits inserts thousands separators into a decimal number, keeping
// every fractional digit it was given. Non-numeric input is returned unchanged.
func GroupDigits(s string) string {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}

	frac := 0
	if strings.ContainsAny(s, "eE") {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		frac = len(s) - i - 1
	}

	return printer.Sprintf("%v", number.Decimal(f, number.MinFractionDigits(frac), number.MaxFractionDigits(frac)))
}
