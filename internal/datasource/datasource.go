// Package datasource provides the country lookups behind fintel's tools:
// currency and exchange rates (live with a fixed-table fallback), stock
// indices, the stock exchange map link and optional market headlines.
//
// Every provider resolves its input with NormalizeCountry and reads from a
// shared, immutable Catalog. A country missing from a table is reported
// in-band as a LookupError, never as a transport failure.
package datasource

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// --- Sentinel errors ---

// ErrCountryNotFound is wrapped by every LookupError.
var ErrCountryNotFound = errors.New("country not found")

// ErrUpstream is wrapped by failures of the live exchange-rate service.
var ErrUpstream = errors.New("exchange rate service failed")

// LookupError is the in-band miss shape returned by the table lookups.
type LookupError struct {
	Message   string `json:"error"`
	APIStatus string `json:"api_status,omitempty"`
}

func (e *LookupError) Error() string { return e.Message }

// Unwrap lets callers match misses with errors.Is(err, ErrCountryNotFound).
func (e *LookupError) Unwrap() error { return ErrCountryNotFound }

// NormalizeCountry converts free text into the canonical lookup key.
// It never fails; unknown keys are handled by each provider.
func NormalizeCountry(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// toJSON encodes v for the tool surface. The payloads are plain structs,
// so a marshal failure is reported as an error object rather than dropped.
func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(b)
}

// errorJSON renders a lookup error, or any other error, as a tool payload.
func errorJSON(err error) string {
	var le *LookupError
	if errors.As(err, &le) {
		return toJSON(le)
	}
	return toJSON(&LookupError{Message: err.Error()})
}
