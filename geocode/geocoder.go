// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves free-text addresses into coordinates and
// aggregates a batch of resolutions into the set of mappable locations.
package geocode

import (
	"context"

	"github.com/jcodagnone/mapdeploy/spatial"
)

// Result is the outcome of geocoding one address. A nil Point means the
// provider had no candidate for the address.
type Result struct {
	Address string
	Point   *spatial.Point
}

// Resolved reports whether the address got coordinates.
func (r Result) Resolved() bool {
	return r.Point != nil
}

// ResolvedLocation is a Result with coordinates.
type ResolvedLocation struct {
	spatial.Point
	Address string
}

// Geocoder interface for different geocoding providers.
//
// Implementations return a Result without Point (and a nil error) when the
// provider answers with zero candidates. Transport and protocol failures are
// returned as errors.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Result, error)
}
