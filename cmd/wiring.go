// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/jcodagnone/mapdeploy/config"
	"github.com/jcodagnone/mapdeploy/geocode"
	"github.com/jcodagnone/mapdeploy/pipeline"
	"github.com/jcodagnone/mapdeploy/publish"
	"github.com/jcodagnone/mapdeploy/utils/httputils"
)

func newHTTPClient(cfg *config.Config, timeout time.Duration) *http.Client {
	return httputils.NewClient(&httputils.ClientOptions{
		UserAgent:           cfg.UserAgent,
		EnableHTTPTrace:     rootOpts.EnableHTTPTrace,
		EnableHTTPBodyTrace: rootOpts.EnableHTTPBodyTrace,
		Timeout:             timeout,
	})
}

// newClients returns the geocoder client and the one shared by the
// publishers; uploads run far longer than a geocoding lookup.
func newClients(cfg *config.Config) (geocoder, publisher *http.Client) {
	return newHTTPClient(cfg, cfg.Geocoder.Timeout), newHTTPClient(cfg, cfg.Publish.Timeout)
}

func newGeocoder(cfg *config.Config, client *http.Client) geocode.Geocoder {
	return geocode.NewNominatimGeocoder(geocode.NominatimOptions{
		BaseURL:    cfg.Geocoder.URL,
		HTTPClient: client,
		Delay:      geocode.FixedDelay(cfg.Geocoder.Delay),
	})
}

func newGitHubBackend(cfg *config.Config, client *http.Client) *publish.GitHubBackend {
	return publish.NewGitHubBackend(publish.GitHubOptions{
		BaseURL:    cfg.GitHub.API,
		Token:      cfg.GitHub.Token,
		Owner:      cfg.GitHub.Owner,
		Repo:       cfg.GitHub.Repo,
		Branch:     cfg.GitHub.Branch,
		PagesHost:  cfg.GitHub.PagesHost,
		Dir:        cfg.GitHub.Dir,
		HTTPClient: client,
	})
}

func newDriveCredentials(cfg *config.Config, interactive bool) *publish.FileCredentials {
	creds := &publish.FileCredentials{
		ClientSecretsFile: cfg.Drive.CredentialsFile,
		TokenFile:         cfg.Drive.TokenFile,
	}

	if interactive {
		creds.Consent = terminalConsent
	}

	return creds
}

// newRegistry builds every backend; each one fails on its own at publish
// time when its settings are incomplete.
func newRegistry(cfg *config.Config, client *http.Client, interactive bool) publish.Registry {
	return publish.Registry{
		publish.Netlify: publish.NewNetlifyBackend(publish.NetlifyOptions{
			BaseURL:    cfg.Netlify.API,
			Token:      cfg.Netlify.Token,
			HTTPClient: client,
		}),
		publish.GitHub: newGitHubBackend(cfg, client),
		publish.GDrive: publish.NewDriveBackend(newDriveCredentials(cfg, interactive), publish.DriveOptions{
			FolderID: cfg.Drive.FolderID,
			Role:     cfg.Drive.Role,
		}),
	}
}

func newCoordinator(cfg *config.Config, interactive bool) *pipeline.Coordinator {
	geocoderClient, publishClient := newClients(cfg)

	c := pipeline.NewCoordinator(newGeocoder(cfg, geocoderClient), newRegistry(cfg, publishClient, interactive))
	c.MinAddressLength = cfg.Geocoder.MinAddressLength

	if interactive {
		c.Progress = terminalProgress
	}

	return c
}

// terminalProgress shows a bar when stderr is a terminal. A nil Progress
// makes the aggregator log one line per address instead.
func terminalProgress(total int) geocode.Progress {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Geocoding"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func terminalConsent(ctx context.Context, authURL string) (string, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return "", errors.New("stdin is not a terminal, run `mapdeploy drive auth` first")
	}

	fmt.Fprintf(os.Stderr, "🔑 Open this link, grant access and paste the authorization code:\n\n%s\n\ncode: ", authURL)

	type answer struct {
		code string
		err  error
	}

	ch := make(chan answer, 1)

	go func() {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		ch <- answer{strings.TrimSpace(line), err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-ch:
		if a.code == "" {
			return "", errors.Join(errors.New("no authorization code given"), a.err)
		}

		return a.code, nil
	}
}
