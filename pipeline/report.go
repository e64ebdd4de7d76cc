// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"strings"

	"github.com/jcodagnone/mapdeploy/publish"
)

// ReportKind tells the outcomes of a run apart.
type ReportKind int

const (
	ReportOK ReportKind = iota
	ReportNoValidAddresses
	ReportPublishFailed
	ReportInternal
	ReportInvalidRequest
)

func (k ReportKind) String() string {
	switch k {
	case ReportOK:
		return "ok"
	case ReportNoValidAddresses:
		return "no-valid-addresses"
	case ReportPublishFailed:
		return "publish-failed"
	case ReportInternal:
		return "internal"
	case ReportInvalidRequest:
		return "invalid-request"
	default:
		return fmt.Sprintf("ReportKind(%d)", int(k))
	}
}

// MarshalText renders the kind by name.
func (k ReportKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Report is the externally visible outcome of CreateAndPublish.
type Report struct {
	Kind    ReportKind      `json:"kind"`
	Backend publish.Backend `json:"backend,omitempty"`

	// URL of the hosted map, set when Kind is ReportOK.
	URL string `json:"url,omitempty"`

	// Addresses is how many tokens survived parsing, Locations how many of
	// them resolved.
	Addresses int `json:"addresses"`
	Locations int `json:"locations"`

	// GeocodeErrors has one line per address that couldn't be placed.
	GeocodeErrors []string `json:"geocode_errors,omitempty"`

	// Error is the verbatim failure, for any kind but ReportOK.
	Error string `json:"error,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Success reports whether the map got published.
func (r *Report) Success() bool {
	return r.Kind == ReportOK
}

type highlight struct {
	key, label string
}

var highlights = []highlight{
	{"expires", "⏰ Expires"},
	{"site_name", "🆔 Site"},
	{"path", "📄 Path"},
	{"file_id", "🆔 File"},
}

// Markdown renders the report for a chat client.
func (r *Report) Markdown() string {
	sb := strings.Builder{}

	switch r.Kind {
	case ReportOK:
		fmt.Fprintf(&sb, "🗺️ **Map Deployed to %s!**\n\n", r.Backend.DisplayName())
		fmt.Fprintf(&sb, "🔗 [View Map](%s)\n\n", r.URL)
		fmt.Fprintf(&sb, "📍 Locations: %d mapped", r.Locations)

		for _, h := range highlights {
			if v := r.Metadata[h.key]; v != "" {
				fmt.Fprintf(&sb, "\n%s: %s", h.label, v)
			}
		}

		if len(r.GeocodeErrors) > 0 {
			fmt.Fprintf(&sb, "\n\n⚠️ Skipped %d address(es):", len(r.GeocodeErrors))
			writeLines(&sb, r.GeocodeErrors)
		}
	case ReportNoValidAddresses:
		sb.WriteString("[error] No valid addresses found!")
		writeLines(&sb, r.GeocodeErrors)
	case ReportPublishFailed:
		sb.WriteString("[error] ")

		// backends already name themselves in most errors
		prefix := r.Backend.DisplayName() + " "
		if !strings.HasPrefix(r.Error, prefix) {
			sb.WriteString(prefix + "deployment failed: ")
		}

		sb.WriteString(r.Error)
		writeLines(&sb, r.GeocodeErrors)
	case ReportInternal:
		sb.WriteString("[error] Map creation failed: " + r.Error)
	default:
		sb.WriteString("[error] " + r.Error)
	}

	return sb.String()
}

func (r *Report) String() string {
	return r.Markdown()
}

func writeLines(sb *strings.Builder, lines []string) {
	for _, l := range lines {
		sb.WriteByte('\n')
		sb.WriteString(l)
	}
}
