// Copyright 2025 The ChapaUY Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"errors"
	"fmt"
	"math"

	"github.com/uber/h3-go/v4"
)

// ErrNoPoints is returned when an aggregate is requested over an empty set.
var ErrNoPoints = errors.New("spatial: no points")

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Validate reports whether the point lies within the WGS84 ranges.
func (p Point) Validate() error {
	if !isFinite(p.Lat) || !isFinite(p.Lng) {
		return fmt.Errorf("coordinates must be finite (got: %f, %f)", p.Lat, p.Lng)
	}

	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90 (got: %f)", p.Lat)
	}

	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180 (got: %f)", p.Lng)
	}

	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Cell returns the H3 cell containing the point at the given resolution.
func (p Point) Cell(res int) (h3.Cell, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), res)
	if err != nil {
		return 0, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
	}

	return cell, nil
}

// Centroid returns the arithmetic mean of the latitudes and longitudes.
func Centroid(points []Point) (Point, error) {
	if len(points) == 0 {
		return Point{}, ErrNoPoints
	}

	var lat, lng float64

	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}

	n := float64(len(points))

	return Point{Lat: lat / n, Lng: lng / n}, nil
}
