// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/klauspost/compress/zip"
)

// DefaultNetlifyAPI is the Netlify REST API root.
const DefaultNetlifyAPI = "https://api.netlify.com/api/v1"

const (
	netlifyFailure   = "Netlify deployment failed"
	anonymousExpires = "24 hours"
	maxResponseBody  = 1 << 20
)

// NetlifyOptions configures a NetlifyBackend.
type NetlifyOptions struct {
	// BaseURL of the API, DefaultNetlifyAPI when empty.
	BaseURL string

	// Token is optional. Anonymous sites expire after a day.
	Token string

	HTTPClient *http.Client

	// TempDir holds the transient archives, os.TempDir when empty.
	TempDir string
}

// NetlifyBackend creates a new site out of a single page zip archive.
type NetlifyBackend struct {
	baseURL    string
	token      string
	httpClient *http.Client
	tempDir    string
}

// NewNetlifyBackend creates the zip-deploy backend.
func NewNetlifyBackend(options NetlifyOptions) *NetlifyBackend {
	b := &NetlifyBackend{
		baseURL:    options.BaseURL,
		token:      options.Token,
		httpClient: options.HTTPClient,
		tempDir:    options.TempDir,
	}

	if b.baseURL == "" {
		b.baseURL = DefaultNetlifyAPI
	}

	if b.httpClient == nil {
		b.httpClient = http.DefaultClient
	}

	return b
}

type netlifySite struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	SSLURL   string `json:"ssl_url"`
	AdminURL string `json:"admin_url"`
}

// Publish implements Publisher. The temporary archive is removed on every
// path.
func (b *NetlifyBackend) Publish(ctx context.Context, path string, opts Options) Result {
	if err := checkLocalFile(path); err != nil {
		return Failure(err)
	}

	archive, err := packSite(path, b.tempDir)
	if err != nil {
		return Failure(err)
	}

	defer func() {
		if err := os.Remove(archive); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("removing %s: %s", archive, err)
		}
	}()

	site, err := b.createSite(ctx, archive, opts.SiteName)
	if err != nil {
		return Failure(err)
	}

	ret := Succeeded(site.SSLURL, nil)
	if ret.URL == "" {
		ret.URL = site.URL
	}

	ret.set("site_id", site.ID)
	ret.set("site_name", site.Name)
	ret.set("admin_url", site.AdminURL)

	if b.token != "" {
		ret.set("expires", "permanent")
	} else {
		ret.set("expires", anonymousExpires)
	}

	return ret
}

func (b *NetlifyBackend) createSite(ctx context.Context, archive, siteName string) (*netlifySite, error) {
	f, err := os.Open(archive)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	endpoint := b.baseURL + "/sites"
	if siteName != "" {
		endpoint += "?" + url.Values{"site_name": {siteName}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, f)
	if err != nil {
		return nil, fmt.Errorf("building deploy request: %w", err)
	}

	req.ContentLength = st.Size()
	req.Header.Set("Content-Type", "application/zip")

	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, transport(netlifyFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, transport(netlifyFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, rejected(netlifyFailure, resp.StatusCode, body)
	}

	var site netlifySite
	if err := json.Unmarshal(body, &site); err != nil {
		return nil, &Error{Kind: KindRejected, Message: netlifyFailure + ": decoding response", Err: err}
	}

	if site.SSLURL == "" && site.URL == "" {
		return nil, &Error{Kind: KindRejected, Message: netlifyFailure + ": response has no site url"}
	}

	return &site, nil
}

// packSite writes path as index.html into a new temporary zip archive and
// returns the archive name.
func packSite(path, dir string) (ret string, err error) {
	src, err := os.Open(path)
	if err != nil {
		return "", &Error{Kind: KindLocalFileMissing, Message: "opening " + path, Err: err}
	}
	defer src.Close()

	tmp, err := os.CreateTemp(dir, "mapdeploy-*.zip")
	if err != nil {
		return "", fmt.Errorf("creating archive: %w", err)
	}

	ret = tmp.Name()

	defer func() {
		if cerr := tmp.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing archive: %w", cerr))
		}

		if err != nil {
			_ = os.Remove(ret)
			ret = ""
		}
	}()

	zw := zip.NewWriter(tmp)

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     "index.html",
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return ret, fmt.Errorf("creating archive entry: %w", err)
	}

	if _, err := io.Copy(w, src); err != nil {
		return ret, fmt.Errorf("writing archive entry: %w", err)
	}

	if err := zw.Close(); err != nil {
		return ret, fmt.Errorf("finishing archive: %w", err)
	}

	return ret, nil
}
