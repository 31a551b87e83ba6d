package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultExchangeRateURL is the exchangerate-api v6 endpoint.
const DefaultExchangeRateURL = "https://v6.exchangerate-api.com/v6"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=datasource_test -destination=mock_http_client_test.go -source=exchangerate.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ExchangeRateClient is a client for the exchangerate-api v6 "latest" endpoint.
type ExchangeRateClient struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
}

// ExchangeRateOption is a configuration option for the exchange rate client.
type ExchangeRateOption func(*ExchangeRateClient)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ExchangeRateOption {
	return func(c *ExchangeRateClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ExchangeRateOption {
	return func(c *ExchangeRateClient) {
		c.httpClient = httpClient
	}
}

// NewExchangeRateClient creates a new exchange rate client.
func NewExchangeRateClient(options ...ExchangeRateOption) *ExchangeRateClient {
	client := &ExchangeRateClient{
		baseURL:    DefaultExchangeRateURL,
		httpClient: http.DefaultClient,
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// LatestResponse is the subset of the "latest" payload fintel consumes.
type LatestResponse struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type,omitempty"`
	BaseCode        string             `json:"base_code,omitempty"`
	ConversionRates map[string]float64 `json:"conversion_rates,omitempty"`
}

// StatusError reports a response body whose result is not "success".
type StatusError struct {
	Result    string
	ErrorType string
}

func (e *StatusError) Error() string {
	errType := e.ErrorType
	if errType == "" {
		errType = "Unknown error"
	}
	return fmt.Sprintf("API returned '%s': %s", e.Result, errType)
}

// Unwrap lets callers match with errors.Is(err, ErrUpstream).
func (e *StatusError) Unwrap() error { return ErrUpstream }

// Latest fetches the conversion rates of one unit of base.
// The API key is part of the request path and is redacted from returned errors.
func (c *ExchangeRateClient) Latest(ctx context.Context, apiKey, base string) (*LatestResponse, error) {
	endpoint := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, url.PathEscape(apiKey), url.PathEscape(base))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, redact(fmt.Errorf("creating request: %w", err), apiKey)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, redact(fmt.Errorf("%w: performing request: %w", ErrUpstream, err), apiKey)
	}
	defer res.Body.Close()

	// Error responses still carry a JSON body with "result" and "error-type".
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, redact(fmt.Errorf("%w: reading body: %w", ErrUpstream, err), apiKey)
	}

	var latest LatestResponse
	if err := json.Unmarshal(body, &latest); err != nil {
		if res.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("%w: unexpected status code: %d", ErrUpstream, res.StatusCode)
		}
		return nil, fmt.Errorf("%w: decoding response: %w", ErrUpstream, err)
	}

	if latest.Result != "success" {
		return nil, &StatusError{Result: latest.Result, ErrorType: latest.ErrorType}
	}
	return &latest, nil
}

// redactedError hides the API key in an error message while keeping the chain.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if err == nil || secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "HIDDEN_KEY"), err: err}
}

// isTimeout reports whether err came from a deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
