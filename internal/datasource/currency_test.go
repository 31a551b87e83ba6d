package datasource_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/seenimoa/fintel/internal/datasource"
	"github.com/seenimoa/fintel/internal/infra"
)

const testKey = "test-key-0123456789"

func jsonResponse(t *testing.T, status int, body any) *http.Response {
	t.Helper()
	buffer := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buffer).Encode(body))
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(buffer),
	}
}

func newLiveProvider(httpClient datasource.HTTPClient, opts ...datasource.CurrencyOption) *datasource.CurrencyProvider {
	client := datasource.NewExchangeRateClient(
		datasource.WithHTTPClient(httpClient),
		datasource.WithBaseURL("http://rates.local/v6/"),
	)
	base := []datasource.CurrencyOption{
		datasource.WithRateSource(client),
		datasource.WithCredential(func() string { return testKey }),
	}
	return datasource.NewCurrencyProvider(datasource.NewCatalog(), append(base, opts...)...)
}

func TestLiveLookup(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, http.MethodGet, req.Method)
			assert.Equal(t, "http://rates.local/v6/"+testKey+"/latest/JPY", req.URL.String())
			return jsonResponse(t, http.StatusOK, map[string]any{
				"result":    "success",
				"base_code": "JPY",
				"conversion_rates": map[string]float64{
					"JPY": 1, "USD": 0.0066, "INR": 0.55, "GBP": 0.0052, "EUR": 0.0061, "CNY": 0.048,
				},
			}), nil
		}).
		Times(1)

	rec, err := newLiveProvider(httpClient).Lookup(t.Context(), "Japan")
	require.NoError(t, err)
	assert.Equal(t, datasource.SourceLive, rec.Source)
	assert.Equal(t, "JPY", rec.Currency)
	assert.Empty(t, rec.DebugInfo)
	assert.Empty(t, rec.APIError)

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"currency":"JPY","rates":{"USD":0.0066,"INR":0.55,"GBP":0.0052,"EUR":0.0061},"source":"Live API"}`, string(b))
}

func TestLiveLookupOmitsMissingRates(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(t, http.StatusOK, map[string]any{
			"result":           "success",
			"conversion_rates": map[string]float64{"USD": 1, "EUR": 0.92},
		}), nil).
		Times(1)

	rec, err := newLiveProvider(httpClient).Lookup(t.Context(), "usa")
	require.NoError(t, err)
	assert.Equal(t, datasource.SourceLive, rec.Source)
	assert.Equal(t, 2, rec.Rates.Len())

	b, err := json.Marshal(rec.Rates)
	require.NoError(t, err)
	assert.Equal(t, `{"USD":1,"EUR":0.92}`, string(b))
}

func TestLiveLookupFallsBackOnErrorResult(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(t, http.StatusForbidden, map[string]any{
			"result":     "error",
			"error-type": "invalid-key",
		}), nil).
		Times(1)

	rec, err := newLiveProvider(httpClient).Lookup(t.Context(), "india")
	require.NoError(t, err)
	assert.Equal(t, datasource.SourceMock, rec.Source)
	assert.Equal(t, "INR", rec.Currency)
	assert.Equal(t, "API failed or key missing", rec.DebugInfo)
	assert.Equal(t, "API returned 'error': invalid-key", rec.APIError)
}

func TestLiveLookupFallsBackWithUnknownErrorType(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(t, http.StatusOK, map[string]any{"result": "error"}), nil).
		Times(1)

	rec, err := newLiveProvider(httpClient).Lookup(t.Context(), "china")
	require.NoError(t, err)
	assert.Equal(t, datasource.SourceMock, rec.Source)
	assert.Equal(t, "API returned 'error': Unknown error", rec.APIError)
}

func TestLiveLookupFallsBackOnUndecodableBody(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader("<html>bad gateway</html>")),
		}, nil).
		Times(1)

	rec, err := newLiveProvider(httpClient).Lookup(t.Context(), "south korea")
	require.NoError(t, err)
	assert.Equal(t, datasource.SourceMock, rec.Source)
	assert.Equal(t, "KRW", rec.Currency)
	assert.Contains(t, rec.APIError, "unexpected status code: 502")
}

func TestLiveLookupRedactsKeyFromTransportErrors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: errors.New("connection refused")}
		}).
		Times(1)

	rec, err := newLiveProvider(httpClient).Lookup(t.Context(), "uk")
	require.NoError(t, err)
	assert.Equal(t, datasource.SourceMock, rec.Source)
	assert.Contains(t, rec.APIError, "connection refused")
	assert.Contains(t, rec.APIError, "HIDDEN_KEY")
	assert.NotContains(t, rec.APIError, testKey)
}

func TestLiveLookupFallsBackOnTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	provider := datasource.NewCurrencyProvider(datasource.NewCatalog(),
		datasource.WithRateSource(datasource.NewExchangeRateClient(datasource.WithBaseURL(srv.URL))),
		datasource.WithCredential(func() string { return testKey }),
		datasource.WithTimeout(50*time.Millisecond),
	)

	for _, country := range knownCountries {
		rec, err := provider.Lookup(t.Context(), country)
		require.NoError(t, err, country)
		assert.Equal(t, datasource.SourceMock, rec.Source, country)
		assert.NotEmpty(t, rec.APIError, country)
	}
}

func TestLiveLookupSkippedWithoutCredential(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl) // no calls expected

	provider := newLiveProvider(httpClient, datasource.WithCredential(func() string { return "" }))
	rec, err := provider.Lookup(t.Context(), "japan")
	require.NoError(t, err)
	assert.Equal(t, datasource.SourceMock, rec.Source)
	assert.Empty(t, rec.APIError)
}

func TestLiveLookupSkippedForUnknownCountry(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl) // no calls expected

	_, err := newLiveProvider(httpClient).Lookup(t.Context(), "atlantis")
	require.ErrorIs(t, err, datasource.ErrCountryNotFound)
}

func TestCredentialReadOncePerLookup(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	var reads atomic.Int32
	provider := newLiveProvider(httpClient, datasource.WithCredential(func() string {
		reads.Add(1)
		return ""
	}))

	for range 3 {
		_, err := provider.Lookup(t.Context(), "france")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), reads.Load())
}

func TestLiveLookupRateLimited(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl) // the limiter blocks before any call

	limiter := infra.NewRateLimiter(1, time.Hour)
	require.NoError(t, limiter.Wait(t.Context()))

	provider := newLiveProvider(httpClient,
		datasource.WithLimiter(limiter),
		datasource.WithTimeout(50*time.Millisecond),
	)

	rec, err := provider.Lookup(t.Context(), "spain")
	require.NoError(t, err)
	assert.Equal(t, datasource.SourceMock, rec.Source)
	assert.Contains(t, rec.APIError, "rate limiter")
}

func TestConcurrentLookupsShareUpstreamCall(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	release := make(chan struct{})
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			<-release
			return jsonResponse(t, http.StatusOK, map[string]any{
				"result":           "success",
				"conversion_rates": map[string]float64{"USD": 1.09, "INR": 91, "GBP": 0.86, "EUR": 1},
			}), nil
		}).
		Times(1)

	provider := newLiveProvider(httpClient)

	var wg sync.WaitGroup
	results := make([]*datasource.CurrencyRecord, 4)
	for i, country := range []string{"germany", "france", "italy", "spain"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := provider.Lookup(t.Context(), country)
			assert.NoError(t, err)
			results[i] = rec
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, rec := range results {
		require.NotNil(t, rec)
		assert.Equal(t, datasource.SourceLive, rec.Source)
		assert.Equal(t, "EUR", rec.Currency)
	}
}

func TestCancelledCallerDoesNotFailSharedLookup(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			close(started)
			<-release
			assert.NoError(t, req.Context().Err())
			return jsonResponse(t, http.StatusOK, map[string]any{
				"result":           "success",
				"conversion_rates": map[string]float64{"USD": 0.0067, "INR": 0.56, "GBP": 0.0053, "EUR": 0.0062},
			}), nil
		}).
		Times(1)

	provider := newLiveProvider(httpClient, datasource.WithTimeout(5*time.Second))

	first, cancel := context.WithCancel(t.Context())
	firstDone := make(chan *datasource.CurrencyRecord, 1)
	go func() {
		rec, err := provider.Lookup(first, "japan")
		assert.NoError(t, err)
		firstDone <- rec
	}()
	<-started

	secondDone := make(chan *datasource.CurrencyRecord, 1)
	go func() {
		rec, err := provider.Lookup(context.Background(), "japan")
		assert.NoError(t, err)
		secondDone <- rec
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	rec := <-firstDone
	require.NotNil(t, rec)
	assert.Equal(t, datasource.SourceMock, rec.Source)
	assert.Contains(t, rec.APIError, "context canceled")

	close(release)
	rec = <-secondDone
	require.NotNil(t, rec)
	assert.Equal(t, datasource.SourceLive, rec.Source)
	assert.Equal(t, "JPY", rec.Currency)
	assert.Empty(t, rec.APIError)
}

func TestLookupsWithDifferentKeysDoNotShare(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	var inFlight sync.WaitGroup
	inFlight.Add(2)
	release := make(chan struct{})
	var mu sync.Mutex
	var paths []string
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			mu.Lock()
			paths = append(paths, req.URL.Path)
			mu.Unlock()
			inFlight.Done()
			<-release
			return jsonResponse(t, http.StatusOK, map[string]any{
				"result":           "success",
				"conversion_rates": map[string]float64{"USD": 1.27, "INR": 106, "GBP": 1, "EUR": 1.17},
			}), nil
		}).
		Times(2)

	var reads atomic.Int32
	provider := newLiveProvider(httpClient, datasource.WithCredential(func() string {
		if reads.Add(1) == 1 {
			return "key-a"
		}
		return "key-b"
	}))

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := provider.Lookup(t.Context(), "uk")
			assert.NoError(t, err)
			assert.Equal(t, datasource.SourceLive, rec.Source)
		}()
	}

	inFlight.Wait()
	close(release)
	wg.Wait()

	assert.ElementsMatch(t, []string{"/v6/key-a/latest/GBP", "/v6/key-b/latest/GBP"}, paths)
}

func TestWithBaseURLTrimsSlash(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "/v6/k/latest/GBP", req.URL.Path)
			assert.Equal(t, "application/json", req.Header.Get("Accept"))
			return jsonResponse(t, http.StatusOK, map[string]any{"result": "success"}), nil
		}).
		Times(1)

	client := datasource.NewExchangeRateClient(
		datasource.WithHTTPClient(httpClient),
		datasource.WithBaseURL("http://localhost:8080/v6/"),
	)
	latest, err := client.Latest(t.Context(), "k", "GBP")
	require.NoError(t, err)
	assert.Equal(t, "success", latest.Result)
}

func TestStatusErrorMatchesUpstream(t *testing.T) {
	t.Parallel()

	err := error(&datasource.StatusError{Result: "error", ErrorType: "quota-reached"})
	assert.ErrorIs(t, err, datasource.ErrUpstream)
	assert.Equal(t, "API returned 'error': quota-reached", err.Error())
}
