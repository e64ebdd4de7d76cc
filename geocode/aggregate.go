// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// duplicateCellRes is the H3 resolution (~1m² cells) used to flag addresses
// that resolve to the same position.
const duplicateCellRes = 15

// Progress receives one tick per geocoded address.
// *progressbar.ProgressBar satisfies it.
type Progress interface {
	Add(n int) error
}

// Batch holds the outcome of geocoding an ordered list of addresses.
type Batch struct {
	// Results has one entry per input address, in input order.
	Results []Result

	// Resolved is the subset of Results with coordinates, in input order.
	Resolved []ResolvedLocation

	// Errors has one human readable line per address that didn't resolve.
	Errors []string
}

// AggregateMetrics tracks statistics about an aggregation.
type AggregateMetrics struct {
	Resolved   int
	Unresolved int
	Failed     int
	// Throttled counts the failures that were rate limits or timeouts.
	Throttled int
}

// Aggregator geocodes a batch of addresses one at a time.
type Aggregator struct {
	geocoder Geocoder
	progress Progress
	Metrics  AggregateMetrics
}

// NewAggregator creates an aggregator on top of the given geocoder.
// progress may be nil, in which case every address is logged.
func NewAggregator(geocoder Geocoder, progress Progress) *Aggregator {
	return &Aggregator{
		geocoder: geocoder,
		progress: progress,
	}
}

// Aggregate geocodes every address sequentially. A failing or unresolvable
// address is recorded in Batch.Errors and never aborts the batch. Duplicated
// addresses are geocoded independently and all of them weigh in the
// centroid.
//
// The returned batch is never nil. The error is ErrNoValidAddresses when
// nothing resolved, or the context error if ctx ends mid-batch.
func (a *Aggregator) Aggregate(ctx context.Context, addresses []string) (*Batch, error) {
	batch := &Batch{
		Results: make([]Result, 0, len(addresses)),
	}

	n := len(addresses)

	for i, address := range addresses {
		if err := ctx.Err(); err != nil {
			return batch, fmt.Errorf("geocoding aborted after %d of %d addresses: %w", i, n, err)
		}

		result, err := a.geocoder.Geocode(ctx, address)
		result.Address = address
		batch.Results = append(batch.Results, result)

		switch {
		case err != nil:
			a.Metrics.Failed++
			msg := fmt.Sprintf("Could not geocode: %s (%v)", address, err)
			batch.Errors = append(batch.Errors, msg)
			a.logf("[%d/%d] ❌ %s", i+1, n, msg)

			if IsRateLimitError(err) || IsTimeoutError(err) {
				a.Metrics.Throttled++
				log.Printf("⚠️  throttled by the geocoding service at %q, later addresses may fail too", address)
			}
		case !result.Resolved():
			a.Metrics.Unresolved++
			msg := "Could not geocode: " + address
			batch.Errors = append(batch.Errors, msg)
			a.logf("[%d/%d] ❌ %s", i+1, n, msg)
		default:
			a.Metrics.Resolved++
			batch.Resolved = append(batch.Resolved, ResolvedLocation{
				Point:   *result.Point,
				Address: address,
			})
			a.logf("[%d/%d] ✅ Found: %s -> %f, %f", i+1, n, address, result.Point.Lat, result.Point.Lng)
		}

		if a.progress != nil {
			if err := a.progress.Add(1); err != nil {
				log.Printf("updating progress bar for %q: %s", address, err)
			}
		}
	}

	log.Printf(
		"Geocoding complete - %d resolved, %d unresolved, %d failed (%d throttled)",
		a.Metrics.Resolved,
		a.Metrics.Unresolved,
		a.Metrics.Failed,
		a.Metrics.Throttled,
	)

	warnDuplicates(batch.Resolved)

	if len(batch.Resolved) == 0 {
		return batch, ErrNoValidAddresses
	}

	return batch, nil
}

func (a *Aggregator) logf(format string, args ...any) {
	if a.progress == nil {
		log.Printf(format, args...)
	}
}

// warnDuplicates logs groups of addresses sharing a position, since each of
// them pulls the centroid towards that spot.
func warnDuplicates(locations []ResolvedLocation) {
	groups := make(map[string][]string)

	var order []string

	for _, l := range locations {
		cell, err := l.Cell(duplicateCellRes)
		if err != nil {
			continue
		}

		key := cell.String()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}

		groups[key] = append(groups[key], l.Address)
	}

	for _, key := range order {
		if addrs := groups[key]; len(addrs) > 1 {
			log.Printf(
				"⚠️  %d addresses share the same position, the map center is weighted towards it: %s",
				len(addrs),
				strings.Join(addrs, " | "),
			)
		}
	}
}
