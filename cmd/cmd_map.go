// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jcodagnone/mapdeploy/config"
	"github.com/jcodagnone/mapdeploy/mapdoc"
	"github.com/jcodagnone/mapdeploy/pipeline"
	"github.com/jcodagnone/mapdeploy/publish"
	"github.com/jcodagnone/mapdeploy/utils/textutils"
	"github.com/spf13/cobra"
)

type mapOptions struct {
	Backend          string
	Zoom             int
	Width            int
	Height           int
	FileName         string
	MinAddressLength int
	GeocodeDelay     string
	SiteName         string
	RepoPath         string
	RepoDir          string
	DriveFolder      string
	DriveRole        string
}

var mapOpts = &mapOptions{}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Create and publish maps",
}

var mapCreateCmd = &cobra.Command{
	Use:   "create <address> [| <address>...]",
	Short: "Geocode pipe separated addresses and publish them as a map",
	Example: `  mapdeploy map create "Times Square, New York, NY | Central Park, New York, NY"
  mapdeploy map create --backend github "Plaza Independencia, Montevideo | Rambla de Pocitos, Montevideo"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := applyMapFlags(cmd, cfg); err != nil {
			return err
		}

		rep := newCoordinator(cfg, true).CreateAndPublish(cmd.Context(), pipeline.Request{
			Addresses: strings.Join(args, " | "),
			Backend:   cfg.Backend,
			Zoom:      cfg.Map.Zoom,
			Width:     cfg.Map.Width,
			Height:    cfg.Map.Height,
			FileName:  cfg.Map.FileName,
			Publish: publish.Options{
				SiteName: textutils.Slug(mapOpts.SiteName, 63),
				Path:     mapOpts.RepoPath,
			},
		})

		fmt.Fprintln(cmd.OutOrStdout(), rep.Markdown())

		if !rep.Success() {
			return fmt.Errorf("map creation failed (%s)", rep.Kind)
		}

		return nil
	},
}

var mapCheckCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Download a published map and summarize what it shows",
	Long: `
Reads back a map from a host that serves the page itself (Netlify, GitHub
Pages). Google Drive view links point at a viewer page and can't be checked.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		doc, err := mapdoc.Fetch(cmd.Context(), newHTTPClient(cfg, cfg.Publish.Timeout), args[0])
		if err != nil {
			return err
		}

		printSummary(cmd.OutOrStdout(), doc)

		return nil
	},
}

func printSummary(w io.Writer, doc *mapdoc.Document) {
	fmt.Fprintf(w, "🗺️ %s: %d markers, %dx%d, zoom %d\n", doc.Title, len(doc.Markers), doc.Width, doc.Height, doc.Zoom)
	fmt.Fprintf(w, "📍 Center: %f, %f\n", doc.Center.Lat, doc.Center.Lng)

	for _, m := range doc.Markers {
		fmt.Fprintf(w, "  - %s (%f, %f)\n", m.Tooltip, m.Lat, m.Lng)
	}
}

// applyMapFlags lets explicit flags win over the configuration.
func applyMapFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("backend") {
		cfg.Backend = mapOpts.Backend
	}

	if flags.Changed("zoom") {
		cfg.Map.Zoom = mapOpts.Zoom
	}

	if flags.Changed("width") {
		cfg.Map.Width = mapOpts.Width
	}

	if flags.Changed("height") {
		cfg.Map.Height = mapOpts.Height
	}

	if flags.Changed("file-name") {
		cfg.Map.FileName = mapOpts.FileName
	}

	if flags.Changed("min-address-length") {
		cfg.Geocoder.MinAddressLength = mapOpts.MinAddressLength
	}

	if flags.Changed("geocode-delay") {
		d, err := parseDelay(mapOpts.GeocodeDelay)
		if err != nil {
			return err
		}

		cfg.Geocoder.Delay = d
	}

	if flags.Changed("repo-dir") {
		cfg.GitHub.Dir = mapOpts.RepoDir
	}

	if flags.Changed("drive-folder") {
		cfg.Drive.FolderID = mapOpts.DriveFolder
	}

	if flags.Changed("drive-role") {
		cfg.Drive.Role = mapOpts.DriveRole
	}

	return cfg.Validate()
}

// parseDelay accepts Go durations and bare seconds ("1.5").
func parseDelay(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	if secs, ferr := strconv.ParseFloat(s, 64); ferr == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}

	return 0, fmt.Errorf("invalid --geocode-delay %q: %w", s, err)
}

func init() {
	defaults := config.Default()

	rootCmd.AddCommand(mapCmd)
	mapCmd.AddCommand(mapCreateCmd)
	mapCmd.AddCommand(mapCheckCmd)

	flags := mapCreateCmd.Flags()
	flags.StringVarP(&mapOpts.Backend, "backend", "b", defaults.Backend,
		fmt.Sprintf("Hosting backend, one of %v", publish.Backends()))
	flags.IntVar(&mapOpts.Zoom, "zoom", defaults.Map.Zoom, "Initial zoom level")
	flags.IntVar(&mapOpts.Width, "width", defaults.Map.Width, "Map width in pixels")
	flags.IntVar(&mapOpts.Height, "height", defaults.Map.Height, "Map height in pixels")
	flags.StringVar(&mapOpts.FileName, "file-name", defaults.Map.FileName, "Local file the map is written to before upload")
	flags.IntVar(&mapOpts.MinAddressLength, "min-address-length", defaults.Geocoder.MinAddressLength,
		"Addresses of up to this many characters are dropped as noise")
	flags.StringVar(&mapOpts.GeocodeDelay, "geocode-delay", defaults.Geocoder.Delay.String(),
		"Pause after every geocoding request")
	flags.StringVar(&mapOpts.SiteName, "site-name", "", "Netlify site name")
	flags.StringVar(&mapOpts.RepoPath, "repo-path", "", "GitHub repository path, derived from the file name when empty")
	flags.StringVar(&mapOpts.RepoDir, "repo-dir", defaults.GitHub.Dir, "GitHub repository directory for derived paths")
	flags.StringVar(&mapOpts.DriveFolder, "drive-folder", "", "Google Drive parent folder id")
	flags.StringVar(&mapOpts.DriveRole, "drive-role", defaults.Drive.Role, "Google Drive link role: reader, commenter or writer")
}
