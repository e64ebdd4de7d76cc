// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package mapdoc builds the interactive map document that gets published:
// a single HTML file with one marker per resolved address, centered on
// their centroid.
package mapdoc

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jcodagnone/mapdeploy/geocode"
	"github.com/jcodagnone/mapdeploy/spatial"
	"github.com/jcodagnone/mapdeploy/utils/htmlutils"
)

const (
	DefaultZoom   = 12
	DefaultWidth  = 800
	DefaultHeight = 600
	DefaultTitle  = "Map"

	leafletCSS = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"
	leafletJS  = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"

	dataElementID = "map-data"
)

//go:embed map.html.tmpl
var pageTemplate string

var page = template.Must(template.New("map").Parse(pageTemplate))

// Marker is a single pin on the map.
type Marker struct {
	spatial.Point

	// Tooltip is shown on hover.
	Tooltip string `json:"tooltip"`

	// Popup is shown on click.
	Popup string `json:"popup"`
}

// Document is the renderable map.
type Document struct {
	Title   string        `json:"title"`
	Center  spatial.Point `json:"center"`
	Zoom    int           `json:"zoom"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Markers []Marker      `json:"markers"`
}

// Options sets the initial view. Zero values fall back to the defaults.
type Options struct {
	Zoom   int
	Width  int
	Height int
	Title  string
}

func (o Options) withDefaults() Options {
	if o.Zoom <= 0 {
		o.Zoom = DefaultZoom
	}

	if o.Width <= 0 {
		o.Width = DefaultWidth
	}

	if o.Height <= 0 {
		o.Height = DefaultHeight
	}

	if o.Title == "" {
		o.Title = DefaultTitle
	}

	return o
}

// Build places one marker per location, labeled with its address, and
// centers the view on their centroid. It fails with
// geocode.ErrNoValidAddresses when locs is empty.
func Build(locs []geocode.ResolvedLocation, opts Options) (*Document, error) {
	if len(locs) == 0 {
		return nil, geocode.ErrNoValidAddresses
	}

	opts = opts.withDefaults()

	points := make([]spatial.Point, 0, len(locs))
	markers := make([]Marker, 0, len(locs))

	for _, l := range locs {
		points = append(points, l.Point)
		markers = append(markers, Marker{
			Point:   l.Point,
			Tooltip: l.Address,
			Popup:   l.Address,
		})
	}

	center, err := spatial.Centroid(points)
	if err != nil {
		return nil, fmt.Errorf("computing map center: %w", err)
	}

	return &Document{
		Title:   opts.Title,
		Center:  center,
		Zoom:    opts.Zoom,
		Width:   opts.Width,
		Height:  opts.Height,
		Markers: markers,
	}, nil
}

type pageData struct {
	Title      string
	Width      int
	Height     int
	LeafletCSS string
	LeafletJS  string
	Data       template.JS
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	// json.Marshal escapes <, > and & so the payload can't close the
	// script element.
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding map data: %w", err)
	}

	err = page.Execute(w, pageData{
		Title:      d.Title,
		Width:      d.Width,
		Height:     d.Height,
		LeafletCSS: leafletCSS,
		LeafletJS:  leafletJS,
		Data:       template.JS(data), //nolint:gosec // marshaled JSON, HTML escaped
	})
	if err != nil {
		return fmt.Errorf("rendering map: %w", err)
	}

	return nil
}

// Persist writes the document to path and returns its absolute form. A
// failed write leaves no file behind.
func (d *Document) Persist(path string) (ret string, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}

	f, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("creating map file: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing map file: %w", cerr))
		}

		if err != nil {
			ret = ""

			if rerr := os.Remove(abs); rerr != nil {
				err = errors.Join(err, fmt.Errorf("removing partial map file: %w", rerr))
			}
		}
	}()

	if err := d.Render(f); err != nil {
		return "", err
	}

	return abs, nil
}

// Decode reads back a document produced by Render.
func Decode(r io.Reader) (*Document, error) {
	root, err := htmlutils.AsNode(r)
	if err != nil {
		return nil, err
	}

	n, err := htmlutils.FindByID(root, dataElementID)
	if err != nil {
		return nil, fmt.Errorf("not a map document: %w", err)
	}

	var ret Document
	if err := json.Unmarshal([]byte(htmlutils.RawText(n)), &ret); err != nil {
		return nil, fmt.Errorf("decoding map data: %w", err)
	}

	return &ret, nil
}

// Fetch downloads a published map and decodes it. Only hosts that serve
// the page itself as text/html qualify; a Drive view link does not.
func Fetch(ctx context.Context, client *http.Client, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}

	defer resp.Body.Close()

	r, err := htmlutils.AsReader(resp)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}

	return Decode(r)
}
