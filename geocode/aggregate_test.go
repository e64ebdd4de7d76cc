// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jcodagnone/mapdeploy/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGeocoder answers from a fixed table; unknown addresses have no candidates.
type fakeGeocoder struct {
	points map[string]spatial.Point
	errs   map[string]error
	calls  []string
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (Result, error) {
	f.calls = append(f.calls, address)

	if err, ok := f.errs[address]; ok {
		return Result{Address: address}, err
	}

	if p, ok := f.points[address]; ok {
		return Result{Address: address, Point: &p}, nil
	}

	return Result{Address: address}, nil
}

type countingProgress struct {
	n int
}

func (p *countingProgress) Add(n int) error {
	p.n += n

	return nil
}

func resolvedCentroid(b *Batch) (spatial.Point, error) {
	points := make([]spatial.Point, 0, len(b.Resolved))
	for _, r := range b.Resolved {
		points = append(points, r.Point)
	}

	return spatial.Centroid(points)
}

const (
	timesSquare  = "Times Square, New York, NY"
	centralPark  = "Central Park, New York, NY"
	empireState  = "Empire State Building, New York, NY"
	nowhereLand  = "Invalid Address 1, Nowhere"
	brokenLookup = "Broken Lookup Street, Nowhere"
)

func newFake() *fakeGeocoder {
	return &fakeGeocoder{
		points: map[string]spatial.Point{
			timesSquare: {Lat: 40.7580, Lng: -73.9855},
			centralPark: {Lat: 40.7812, Lng: -73.9665},
			empireState: {Lat: 40.7488, Lng: -73.9857},
		},
		errs: map[string]error{
			brokenLookup: errors.New("connection reset by peer"),
		},
	}
}

func TestAggregate_PartialResolution(t *testing.T) {
	g := newFake()
	progress := &countingProgress{}
	a := NewAggregator(g, progress)

	batch, err := a.Aggregate(context.Background(), []string{timesSquare, nowhereLand, centralPark})
	require.NoError(t, err)

	want := []ResolvedLocation{
		{Point: spatial.Point{Lat: 40.7580, Lng: -73.9855}, Address: timesSquare},
		{Point: spatial.Point{Lat: 40.7812, Lng: -73.9665}, Address: centralPark},
	}
	if diff := cmp.Diff(want, batch.Resolved); diff != "" {
		t.Errorf("resolved mismatch (-want +got):\n%s", diff)
	}

	assert.Len(t, batch.Results, 3)
	assert.Equal(t, []string{"Could not geocode: " + nowhereLand}, batch.Errors)

	center, err := resolvedCentroid(batch)
	require.NoError(t, err)
	assert.InDelta(t, (40.7580+40.7812)/2, center.Lat, 1e-9)
	assert.InDelta(t, (-73.9855-73.9665)/2, center.Lng, 1e-9)

	assert.Equal(t, AggregateMetrics{Resolved: 2, Unresolved: 1}, a.Metrics)
	assert.Equal(t, 3, progress.n)
}

func TestAggregate_FailureDoesNotAbortBatch(t *testing.T) {
	g := newFake()
	a := NewAggregator(g, nil)

	batch, err := a.Aggregate(context.Background(), []string{brokenLookup, empireState})
	require.NoError(t, err)

	assert.Equal(t, []string{brokenLookup, empireState}, g.calls)
	require.Len(t, batch.Resolved, 1)
	assert.Equal(t, empireState, batch.Resolved[0].Address)
	require.Len(t, batch.Errors, 1)
	assert.Contains(t, batch.Errors[0], "Could not geocode: "+brokenLookup)
	assert.Contains(t, batch.Errors[0], "connection reset by peer")
	assert.Equal(t, 1, a.Metrics.Failed)
}

func TestAggregate_Throttling(t *testing.T) {
	const (
		throttled = "Throttled Avenue 1, Springfield"
		slow      = "Slow Boulevard 2, Springfield"
	)

	g := newFake()
	g.errs[throttled] = ClassifyHTTPError(http.StatusTooManyRequests, "")
	g.errs[slow] = &GeocodingError{Type: ErrorTypeTimeout, Message: "geocoding request timed out"}

	var logs bytes.Buffer

	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	a := NewAggregator(g, &countingProgress{})

	batch, err := a.Aggregate(context.Background(), []string{throttled, brokenLookup, slow, timesSquare})
	require.NoError(t, err)

	assert.Len(t, batch.Resolved, 1)
	assert.Len(t, batch.Errors, 3)
	assert.Equal(t, AggregateMetrics{Resolved: 1, Failed: 3, Throttled: 2}, a.Metrics)
	assert.Equal(t, 2, strings.Count(logs.String(), "throttled by the geocoding service"))
	assert.Contains(t, logs.String(), "(2 throttled)")
}

func TestAggregate_NoValidAddresses(t *testing.T) {
	a := NewAggregator(newFake(), nil)

	batch, err := a.Aggregate(context.Background(), []string{nowhereLand, brokenLookup})
	require.ErrorIs(t, err, ErrNoValidAddresses)
	require.NotNil(t, batch)
	assert.Empty(t, batch.Resolved)
	assert.Len(t, batch.Errors, 2)
}

func TestAggregate_DuplicatesAreKept(t *testing.T) {
	g := newFake()
	a := NewAggregator(g, nil)

	batch, err := a.Aggregate(context.Background(), []string{timesSquare, timesSquare, centralPark})
	require.NoError(t, err)

	assert.Len(t, g.calls, 3)
	assert.Len(t, batch.Resolved, 3)

	center, err := resolvedCentroid(batch)
	require.NoError(t, err)
	assert.InDelta(t, (2*40.7580+40.7812)/3, center.Lat, 1e-9)
}

func TestAggregate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := newFake()
	a := NewAggregator(g, nil)

	_, err := a.Aggregate(ctx, []string{timesSquare})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, g.calls)
}
