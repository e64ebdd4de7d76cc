// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jcodagnone/mapdeploy/utils/httputils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDelay records how many times the policy was applied.
type countingDelay struct {
	calls int
}

func (d *countingDelay) Wait(_ context.Context) error {
	d.calls++

	return nil
}

func newTestGeocoder(t *testing.T, handler http.HandlerFunc) (*NominatimGeocoder, *countingDelay) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	delay := &countingDelay{}
	g := NewNominatimGeocoder(NominatimOptions{
		BaseURL:    srv.URL + "/search",
		HTTPClient: httputils.NewClient(&httputils.ClientOptions{UserAgent: "mapdeploy/test"}),
		Delay:      delay,
	})

	return g, delay
}

func TestNominatimGeocoder_Found(t *testing.T) {
	g, delay := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Times Square, New York, NY", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "mapdeploy/test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"40.7580","lon":"-73.9855","display_name":"Times Square"},{"lat":"1","lon":"1"}]`))
	})

	got, err := g.Geocode(context.Background(), "Times Square, New York, NY")
	require.NoError(t, err)
	require.True(t, got.Resolved())
	assert.Equal(t, "Times Square, New York, NY", got.Address)
	assert.InDelta(t, 40.7580, got.Point.Lat, 1e-9)
	assert.InDelta(t, -73.9855, got.Point.Lng, 1e-9)
	assert.Equal(t, 1, delay.calls)
}

func TestNominatimGeocoder_NoCandidates(t *testing.T) {
	g, delay := newTestGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	got, err := g.Geocode(context.Background(), "Nowhere Street 123, Atlantis")
	require.NoError(t, err)
	assert.False(t, got.Resolved())
	assert.Nil(t, got.Point)
	assert.Equal(t, 1, delay.calls)
}

func TestNominatimGeocoder_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType ErrorType
	}{
		{"throttled", http.StatusTooManyRequests, "slow down", ErrorTypeRateLimit},
		{"anonymous client", http.StatusForbidden, "missing user agent", ErrorTypeForbidden},
		{"server error", http.StatusInternalServerError, "", ErrorTypeUnknown},
		{"malformed json", http.StatusOK, `{"lat":`, ErrorTypeInvalidResponse},
		{"malformed coordinates", http.StatusOK, `[{"lat":"north","lon":"1"}]`, ErrorTypeInvalidResponse},
		{"coordinates out of range", http.StatusOK, `[{"lat":"120.5","lon":"1"}]`, ErrorTypeInvalidResponse},
		{"nan coordinates", http.StatusOK, `[{"lat":"NaN","lon":"1.0"}]`, ErrorTypeInvalidResponse},
		{"infinite coordinates", http.StatusOK, `[{"lat":"1","lon":"-Inf"}]`, ErrorTypeInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, delay := newTestGeocoder(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := g.Geocode(context.Background(), "Central Park, New York, NY")
			require.Error(t, err)

			var geoErr *GeocodingError
			require.ErrorAs(t, err, &geoErr)
			assert.Equal(t, tt.wantType, geoErr.Type)
			assert.Equal(t, 1, delay.calls, "delay must apply after failures too")
		})
	}
}

func TestNominatimGeocoder_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	delay := &countingDelay{}
	g := NewNominatimGeocoder(NominatimOptions{BaseURL: srv.URL, Delay: delay})

	_, err := g.Geocode(context.Background(), "Central Park, New York, NY")
	require.Error(t, err)

	var geoErr *GeocodingError
	require.ErrorAs(t, err, &geoErr)
	assert.Equal(t, ErrorTypeNetworkError, geoErr.Type)
	assert.Equal(t, 1, delay.calls)
}

func TestNewNominatimGeocoderDefaults(t *testing.T) {
	g := NewNominatimGeocoder(NominatimOptions{})
	assert.Equal(t, DefaultNominatimURL, g.baseURL)
	assert.Equal(t, NominatimDelay, g.delay)
	assert.NotNil(t, g.httpClient)
}
