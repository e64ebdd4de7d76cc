// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jcodagnone/mapdeploy/spatial"
)

// DefaultNominatimURL is the public OpenStreetMap search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// NominatimGeocoder uses the OpenStreetMap Nominatim search API.
type NominatimGeocoder struct {
	baseURL    string
	httpClient *http.Client
	delay      DelayPolicy
}

// NominatimOptions configures a NominatimGeocoder.
type NominatimOptions struct {
	// BaseURL of the search endpoint, DefaultNominatimURL when empty.
	BaseURL string

	// HTTPClient must send an identifying User-Agent: Nominatim rejects
	// anonymous clients.
	HTTPClient *http.Client

	// Delay applied after every request, NominatimDelay when nil.
	Delay DelayPolicy
}

// NewNominatimGeocoder creates a new Nominatim geocoder.
func NewNominatimGeocoder(options NominatimOptions) *NominatimGeocoder {
	g := &NominatimGeocoder{
		baseURL:    options.BaseURL,
		httpClient: options.HTTPClient,
		delay:      options.Delay,
	}

	if g.baseURL == "" {
		g.baseURL = DefaultNominatimURL
	}

	if g.httpClient == nil {
		g.httpClient = http.DefaultClient
	}

	if g.delay == nil {
		g.delay = NominatimDelay
	}

	return g
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode implements Geocoder. The configured delay runs after the request
// on every path, including failures.
func (g *NominatimGeocoder) Geocode(ctx context.Context, address string) (ret Result, err error) {
	ret.Address = address

	defer func() {
		if werr := g.delay.Wait(ctx); werr != nil && err == nil {
			err = werr
		}
	}()

	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return ret, fmt.Errorf("building geocoding request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return ret, classifyTransportError(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return ret, ClassifyHTTPError(resp.StatusCode, string(body))
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return ret, &GeocodingError{
			Type:    ErrorTypeInvalidResponse,
			Message: "decoding response",
			Err:     err,
		}
	}

	if len(places) == 0 {
		return ret, nil
	}

	point, err := places[0].point()
	if err != nil {
		return ret, &GeocodingError{
			Type:    ErrorTypeInvalidResponse,
			Message: "parsing coordinates",
			Err:     err,
		}
	}

	ret.Point = &point

	return ret, nil
}

func (p nominatimPlace) point() (spatial.Point, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("lat %q: %w", p.Lat, err)
	}

	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("lon %q: %w", p.Lon, err)
	}

	ret := spatial.Point{Lat: lat, Lng: lng}
	if err := ret.Validate(); err != nil {
		return spatial.Point{}, err
	}

	return ret, nil
}

func classifyTransportError(err error) *GeocodingError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &GeocodingError{Type: ErrorTypeTimeout, Message: "geocoding request timed out", Err: err}
	}

	return &GeocodingError{Type: ErrorTypeNetworkError, Message: "geocoding request failed", Err: err}
}
