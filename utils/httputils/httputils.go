// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides utility functions for working with HTTP.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"time"
)

/////////////////////////////////////////
/// RountTrippers

// LoggingRoundTripper adds a very primitive logging to a http transaction.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
}

var redactedHeaders = []string{"authorization:", "x-goog-api-key:"}

func redact(line string) string {
	lower := strings.ToLower(line)
	for _, h := range redactedHeaders {
		if strings.HasPrefix(lower, h) {
			return line[:len(h)] + " ██████"
		}
	}

	return line
}

// reduce the content the liens.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 2048, 512

	for i, line := range lines {
		if i < maxLines {
			lines[i] = fmt.Sprintf("%c %s", prefix, redact(line))
		} else {
			break
		}
	}

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines = append(lines, "…")
	}

	for i, line := range lines {
		if len(line) > maxChars {
			lines[i] = line[0:maxChars] + "…"
		}
	}

	return lines
}

func (t *LoggingRoundTripper) dumpRequest(req *http.Request) error {
	dump, err := httputil.DumpRequestOut(req, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '>')
	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

func (t *LoggingRoundTripper) dumpResponse(resp *http.Response, duration time.Duration) error {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '<')

	_, err = fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n", duration)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	if err := t.dumpRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := t.dumpResponse(resp, time.Since(start)); err != nil {
		return nil, err
	}

	return resp, nil
}

// AppendRequestHeadersRoundTripper adds headers to the request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := t.Transport.RoundTrip(req)

	return resp, err
}

////////////////////////////////////////////////////

// ClientOptions configures the clients built by NewClient.
type ClientOptions struct {
	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Extra headers added to every request that doesn't already set them
	Headers map[string]string

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// Overall request timeout. Zero keeps the transport default (none).
	Timeout time.Duration

	// Transport overrides the base transport, mostly for tests.
	Transport http.RoundTripper
}

// NewClient builds an *http.Client with the header and tracing round trippers
// chained in front of the base transport.
func NewClient(options *ClientOptions) *http.Client {
	if options == nil {
		options = &ClientOptions{}
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace || options.EnableHTTPBodyTrace {
		httpLogWriter = os.Stderr
	}

	transport := options.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	loggingTransport := &LoggingRoundTripper{
		Writer:    httpLogWriter,
		DumpBody:  options.EnableHTTPBodyTrace,
		Transport: transport,
	}

	headers := make(map[string]string, len(options.Headers)+1)
	for k, v := range options.Headers {
		headers[k] = v
	}

	if options.UserAgent != "" {
		headers["User-Agent"] = options.UserAgent
	}

	return &http.Client{
		Timeout: options.Timeout,
		Transport: &AppendRequestHeadersRoundTripper{
			Headers:   headers,
			Transport: loggingTransport,
		},
	}
}
