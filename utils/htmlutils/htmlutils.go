// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for working with HTML.
package htmlutils

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ErrNotFound is returned when a lookup finds no matching element.
var ErrNotFound = errors.New("element not found")

// RawText returns the unescaped content of a <script> or <style> element,
// or the concatenated text children of any other node.
func RawText(n *html.Node) string {
	sb := strings.Builder{}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			sb.WriteString(child.Data)
		}
	}

	return sb.String()
}

// Attr returns the value of the named attribute.
func Attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}

	return "", false
}

// FindByID returns the first element with the given id, depth first.
func FindByID(n *html.Node, id string) (*html.Node, error) {
	var found *html.Node

	walk(n, func(c *html.Node) bool {
		if v, ok := Attr(c, "id"); ok && v == id {
			found = c

			return false
		}

		return true
	})

	if found == nil {
		return nil, fmt.Errorf("#%s: %w", id, ErrNotFound)
	}

	return found, nil
}

// walk visits element nodes until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if n.Type == html.ElementNode && !fn(n) {
		return false
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if !walk(child, fn) {
			return false
		}
	}

	return true
}

// Validates that response seems to be an HTML response.
func hasHTMLContentType(media string) bool {
	const expectedMedia = "text/html"

	return strings.EqualFold(
		expectedMedia,
		media[0:min(len(media), len(expectedMedia))],
	)
}

// AsReader converts an HTTP response body to an io.Reader with the correct charset.
func AsReader(resp *http.Response) (io.Reader, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	media := resp.Header.Get("Content-Type")
	if !hasHTMLContentType(media) {
		return nil, fmt.Errorf("media type is %s", media)
	}

	rr, err := charset.NewReader(resp.Body, media)
	if err != nil {
		return nil, err
	}

	return rr, nil
}

// AsNode parses an io.Reader as an HTML node.
func AsNode(r io.Reader) (*html.Node, error) {
	n, err := html.Parse(r)
	if nil != err {
		return nil, fmt.Errorf("parsing body as HTML: %w", err)
	}

	return n, nil
}
