// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultGitHubAPI is the GitHub REST API root.
	DefaultGitHubAPI = "https://api.github.com"
	// DefaultPagesHost serves the repository as a static site.
	DefaultPagesHost = "github.io"
	// DefaultRepoDir is where documents land when no path is given.
	DefaultRepoDir = "docs"

	githubFailure = "GitHub deployment failed"
	githubAccept  = "application/vnd.github.v3+json"
)

// GitHubOptions configures a GitHubBackend.
type GitHubOptions struct {
	BaseURL   string
	Token     string
	Owner     string
	Repo      string
	Branch    string
	PagesHost string
	Dir       string

	HTTPClient *http.Client

	// Now stamps default repository paths, time.Now when nil.
	Now func() time.Time
}

// GitHubBackend commits documents through the repository contents API and
// serves them from the Pages site of the same repository.
type GitHubBackend struct {
	opts GitHubOptions
}

// NewGitHubBackend creates the content API backend.
func NewGitHubBackend(options GitHubOptions) *GitHubBackend {
	if options.BaseURL == "" {
		options.BaseURL = DefaultGitHubAPI
	}

	if options.PagesHost == "" {
		options.PagesHost = DefaultPagesHost
	}

	if options.Dir == "" {
		options.Dir = DefaultRepoDir
	}

	if options.HTTPClient == nil {
		options.HTTPClient = http.DefaultClient
	}

	if options.Now == nil {
		options.Now = time.Now
	}

	options.BaseURL = strings.TrimRight(options.BaseURL, "/")

	return &GitHubBackend{opts: options}
}

// PagesURL is the public address of a repository path. It is derived from
// the naming convention, never read from an API response.
func (b *GitHubBackend) PagesURL(p string) string {
	return fmt.Sprintf("https://%s.%s/%s/%s", b.opts.Owner, b.opts.PagesHost, b.opts.Repo, strings.TrimLeft(p, "/"))
}

// DefaultPath derives a unique repository path from the local file name.
func (b *GitHubBackend) DefaultPath(local string) string {
	stem := strings.TrimSuffix(filepath.Base(local), filepath.Ext(local))

	return path.Join(b.opts.Dir, stem+"__"+b.opts.Now().Format("20060102_150405")+".html")
}

type githubContent struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	SHA         string `json:"sha"`
	HTMLURL     string `json:"html_url"`
	DownloadURL string `json:"download_url"`
}

type githubWriteResponse struct {
	Content githubContent `json:"content"`
	Commit  struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type githubWriteRequest struct {
	Message string `json:"message"`
	Content string `json:"content,omitempty"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

func (b *GitHubBackend) check() error {
	if b.opts.Token == "" {
		return &Error{Kind: KindAuth, Message: "GitHub token is required"}
	}

	if b.opts.Owner == "" || b.opts.Repo == "" {
		return &Error{Kind: KindInvalidOptions, Message: "GitHub owner and repository are required"}
	}

	return nil
}

// Publish implements Publisher. An existing file at the target path is
// updated in place with its current revision attached.
func (b *GitHubBackend) Publish(ctx context.Context, local string, opts Options) Result {
	if err := checkLocalFile(local); err != nil {
		return Failure(err)
	}

	if err := b.check(); err != nil {
		return Failure(err)
	}

	content, err := os.ReadFile(local)
	if err != nil {
		return Failure(&Error{Kind: KindLocalFileMissing, Message: "reading " + local, Err: err})
	}

	remote := strings.TrimLeft(opts.Path, "/")
	if remote == "" {
		remote = b.DefaultPath(local)
	}

	existing, err := b.probe(ctx, remote)
	if err != nil {
		return Failure(err)
	}

	body := githubWriteRequest{
		Message: "Add HTML file: " + remote,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  b.opts.Branch,
	}
	action := "create"

	if existing != nil {
		body.Message = "Update HTML file: " + remote
		body.SHA = existing.SHA
		action = "update"
	}

	var out githubWriteResponse

	status, raw, err := b.do(ctx, http.MethodPut, b.contentsURL(remote), body)
	if err != nil {
		return Failure(err)
	}

	if status != http.StatusOK && status != http.StatusCreated {
		return Failure(rejected(githubFailure, status, raw))
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return Failure(&Error{Kind: KindRejected, Message: githubFailure + ": decoding response", Err: err})
	}

	ret := Succeeded(b.PagesURL(remote), nil)
	ret.set("path", remote)
	ret.set("action", action)
	ret.set("commit", out.Commit.SHA)
	ret.set("html_url", out.Content.HTMLURL)
	ret.set("raw_url", out.Content.DownloadURL)

	return ret
}

// Delete removes a file from the repository.
func (b *GitHubBackend) Delete(ctx context.Context, p string) Result {
	if err := b.check(); err != nil {
		return Failure(err)
	}

	p = strings.TrimLeft(p, "/")

	existing, err := b.probe(ctx, p)
	if err != nil {
		return Failure(err)
	}

	if existing == nil {
		return Failure(&Error{Kind: KindInvalidOptions, Message: "file not found in repository: " + p})
	}

	body := githubWriteRequest{
		Message: "Delete file: " + p,
		SHA:     existing.SHA,
		Branch:  b.opts.Branch,
	}

	status, raw, err := b.do(ctx, http.MethodDelete, b.contentsURL(p), body)
	if err != nil {
		return Failure(err)
	}

	if status != http.StatusOK {
		return Failure(rejected("GitHub delete failed", status, raw))
	}

	var out githubWriteResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Printf("⚠️  %s deleted but the response didn't decode, no commit recorded: %s", p, err)
	}

	ret := Succeeded("", nil)
	ret.set("path", p)
	ret.set("commit", out.Commit.SHA)

	return ret
}

// DeleteAll deletes each path independently; one failure doesn't stop the
// rest.
func (b *GitHubBackend) DeleteAll(ctx context.Context, paths []string) map[string]Result {
	ret := make(map[string]Result, len(paths))
	for _, p := range paths {
		ret[p] = b.Delete(ctx, p)
	}

	return ret
}

// ListHTML returns the repository paths of the .html files directly under
// dir. A missing directory is empty.
func (b *GitHubBackend) ListHTML(ctx context.Context, dir string) ([]string, error) {
	if err := b.check(); err != nil {
		return nil, err
	}

	status, raw, err := b.do(ctx, http.MethodGet, b.contentsURL(strings.Trim(dir, "/")), nil)
	if err != nil {
		return nil, err
	}

	if status == http.StatusNotFound {
		return nil, nil
	}

	if status != http.StatusOK {
		return nil, rejected("GitHub listing failed", status, raw)
	}

	var entries []githubContent
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, &Error{Kind: KindRejected, Message: "GitHub listing failed: decoding response", Err: err}
	}

	var ret []string

	for _, e := range entries {
		if e.Type == "file" && strings.HasSuffix(strings.ToLower(e.Name), ".html") {
			ret = append(ret, e.Path)
		}
	}

	return ret, nil
}

// probe returns the current file at p, or nil when it doesn't exist.
func (b *GitHubBackend) probe(ctx context.Context, p string) (*githubContent, error) {
	status, raw, err := b.do(ctx, http.MethodGet, b.contentsURL(p), nil)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		var ret githubContent
		if err := json.Unmarshal(raw, &ret); err != nil {
			return nil, &Error{Kind: KindRejected, Message: "GitHub probe failed: decoding response", Err: err}
		}

		return &ret, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, rejected("GitHub probe failed", status, raw)
	}
}

func (b *GitHubBackend) contentsURL(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	ret := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		b.opts.BaseURL,
		url.PathEscape(b.opts.Owner),
		url.PathEscape(b.opts.Repo),
		strings.Join(segments, "/"),
	)

	return ret
}

func (b *GitHubBackend) do(ctx context.Context, method, u string, body any) (int, []byte, error) {
	var r io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request: %w", err)
		}

		r = bytes.NewReader(data)
	} else if method == http.MethodGet && b.opts.Branch != "" {
		u += "?" + url.Values{"ref": {b.opts.Branch}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Authorization", "token "+b.opts.Token)
	req.Header.Set("Accept", githubAccept)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.opts.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, transport(githubFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, transport(githubFailure, err)
	}

	return resp.StatusCode, raw, nil
}
