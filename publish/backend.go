// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package publish uploads a persisted map document to a hosting provider.
//
// Every backend answers with the same Result shape, whatever protocol it
// speaks, so callers never branch on which backend ran.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Backend identifies a hosting strategy.
type Backend string

const (
	// Netlify deploys a zip archive to a new static site.
	Netlify Backend = "netlify"
	// GitHub commits the file through the repository contents API.
	GitHub Backend = "github"
	// GDrive uploads to Google Drive and shares it by link.
	GDrive Backend = "gdrive"
)

// Backends returns every known backend.
func Backends() []Backend {
	return []Backend{Netlify, GitHub, GDrive}
}

func backendList() string {
	names := make([]string, 0, 3)
	for _, b := range Backends() {
		names = append(names, string(b))
	}

	return strings.Join(names, ", ")
}

// ParseBackend validates a backend identifier.
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Backends() {
		if b == known {
			return b, nil
		}
	}

	return "", &Error{
		Kind:    KindInvalidOptions,
		Message: fmt.Sprintf("unknown backend %q (want one of %s)", s, backendList()),
	}
}

// DisplayName is the human facing provider name.
func (b Backend) DisplayName() string {
	switch b {
	case Netlify:
		return "Netlify"
	case GitHub:
		return "GitHub"
	case GDrive:
		return "Google Drive"
	default:
		return string(b)
	}
}

// Options carries the per call settings. Each backend reads the fields it
// understands and ignores the rest.
type Options struct {
	// Name for the uploaded file. The local base name when empty.
	Name string

	// SiteName requested from the zip-deploy backend.
	SiteName string

	// Path inside the repository for the content API backend.
	Path string

	// FolderID is the Drive parent folder.
	FolderID string

	// Role granted to "anyone with the link" on Drive.
	Role string
}

// Result is the normalized outcome of a publish attempt.
type Result struct {
	Success  bool              `json:"success"`
	URL      string            `json:"url,omitempty"`
	Error    string            `json:"error,omitempty"`
	Kind     ErrorKind         `json:"kind,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(url string, metadata map[string]string) Result {
	return Result{
		Success:  true,
		URL:      url,
		Metadata: metadata,
	}
}

// Failure builds a failed result out of err.
func Failure(err error) Result {
	return Result{}.Fail(err)
}

// Fail turns r into a failure described by err, keeping any metadata
// collected so far.
func (r Result) Fail(err error) Result {
	r.Success = false
	r.URL = ""
	r.Error = err.Error()
	r.Kind = KindUnknown

	var perr *Error
	if errors.As(err, &perr) {
		r.Kind = perr.Kind

		if perr.Body != "" {
			r.set("details", perr.Body)
		}
	}

	return r
}

func (r *Result) set(k, v string) {
	if v == "" {
		return
	}

	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}

	r.Metadata[k] = v
}

// Publisher uploads the file at path and reports the outcome. It never
// returns a Go error: every failure is folded into the Result.
type Publisher interface {
	Publish(ctx context.Context, path string, opts Options) Result
}

// Registry selects the publisher for a backend.
type Registry map[Backend]Publisher

// Lookup returns the publisher registered for b.
func (r Registry) Lookup(b Backend) (Publisher, error) {
	p, ok := r[b]
	if !ok || p == nil {
		return nil, &Error{
			Kind:    KindInvalidOptions,
			Message: fmt.Sprintf("backend %q is not configured", b),
		}
	}

	return p, nil
}

// Publish runs the publisher registered for b exactly once.
func (r Registry) Publish(ctx context.Context, b Backend, path string, opts Options) Result {
	p, err := r.Lookup(b)
	if err != nil {
		return Failure(err)
	}

	return p.Publish(ctx, path, opts)
}

// checkLocalFile fails before any network call when the document is gone.
func checkLocalFile(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Error{Kind: KindLocalFileMissing, Message: "file not found: " + path}
		}

		return &Error{Kind: KindLocalFileMissing, Message: "checking " + path, Err: err}
	}

	if st.IsDir() {
		return &Error{Kind: KindLocalFileMissing, Message: path + " is a directory"}
	}

	return nil
}
