// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline turns a list of addresses into a published map:
// geocode, center, render, publish and clean up.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"

	"github.com/jcodagnone/mapdeploy/geocode"
	"github.com/jcodagnone/mapdeploy/mapdoc"
	"github.com/jcodagnone/mapdeploy/publish"
)

// DefaultFileName is where the map is written before upload.
const DefaultFileName = "temp_map.html"

// Request is one CreateAndPublish call.
type Request struct {
	// Addresses is a pipe delimited list.
	Addresses string

	// Backend identifier, see publish.Backends.
	Backend string

	Zoom   int
	Width  int
	Height int

	// FileName of the local document, DefaultFileName when empty. Runs
	// sharing a process must use distinct names.
	FileName string

	Publish publish.Options
}

// Coordinator wires the geocoder and the publishers together.
type Coordinator struct {
	Geocoder   geocode.Geocoder
	Publishers publish.Registry

	// MinAddressLength is the noise threshold for ParseAddresses.
	MinAddressLength int

	// Progress, when set, builds the progress reporter for a batch.
	Progress func(total int) geocode.Progress
}

// NewCoordinator creates a coordinator with the default noise threshold.
func NewCoordinator(geocoder geocode.Geocoder, publishers publish.Registry) *Coordinator {
	return &Coordinator{
		Geocoder:         geocoder,
		Publishers:       publishers,
		MinAddressLength: DefaultMinAddressLength,
	}
}

// CreateAndPublish runs the whole pipeline once. It never panics nor
// returns an error: every outcome is a Report. The local document is
// removed after the publish attempt whatever its result.
func (c *Coordinator) CreateAndPublish(ctx context.Context, req Request) (rep *Report) {
	rep = &Report{}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ map creation panicked: %v\n%s", r, debug.Stack())

			rep.Kind = ReportInternal
			rep.Error = fmt.Sprintf("unexpected failure: %v", r)
			rep.URL = ""
		}
	}()

	backend, err := publish.ParseBackend(req.Backend)
	if err != nil {
		return rep.fail(ReportInvalidRequest, err)
	}

	rep.Backend = backend

	if _, err := c.Publishers.Lookup(backend); err != nil {
		return rep.fail(ReportInvalidRequest, err)
	}

	addresses := ParseAddresses(req.Addresses, c.MinAddressLength)
	rep.Addresses = len(addresses)

	log.Printf("🌍 Geocoding %d addresses", len(addresses))

	var progress geocode.Progress
	if c.Progress != nil && len(addresses) > 0 {
		progress = c.Progress(len(addresses))
	}

	batch, err := geocode.NewAggregator(c.Geocoder, progress).Aggregate(ctx, addresses)
	rep.GeocodeErrors = batch.Errors
	rep.Locations = len(batch.Resolved)

	if errors.Is(err, geocode.ErrNoValidAddresses) {
		return rep.fail(ReportNoValidAddresses, err)
	} else if err != nil {
		return rep.fail(ReportInternal, err)
	}

	doc, err := mapdoc.Build(batch.Resolved, mapdoc.Options{
		Zoom:   req.Zoom,
		Width:  req.Width,
		Height: req.Height,
	})
	if err != nil {
		return rep.fail(ReportInternal, err)
	}

	name := req.FileName
	if name == "" {
		name = DefaultFileName
	}

	path, err := doc.Persist(name)
	if err != nil {
		return rep.fail(ReportInternal, err)
	}

	defer removeDocument(path)

	log.Printf("🚀 Publishing %s to %s", path, backend.DisplayName())

	res := c.Publishers.Publish(ctx, backend, path, req.Publish)
	rep.Metadata = res.Metadata

	if !res.Success {
		log.Printf("❌ %s", res.Error)

		rep.Kind = ReportPublishFailed
		rep.Error = res.Error

		return rep
	}

	log.Printf("✅ Map available at %s", res.URL)

	rep.Kind = ReportOK
	rep.URL = res.URL

	return rep
}

func (r *Report) fail(kind ReportKind, err error) *Report {
	r.Kind = kind
	r.Error = err.Error()

	return r
}

func removeDocument(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️  removing %s: %s", path, err)
	}
}
