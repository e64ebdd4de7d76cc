// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package textutils normalizes free text into identifiers usable in URLs and paths.
package textutils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowerASCIIFolding normalizes a string by removing accents, lowercasing, and trimming spaces.
func LowerASCIIFolding(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)

	return s
}

// Slug turns s into a lowercase ASCII token made of [a-z0-9-], suitable for
// site names and repository paths. Runs of other characters collapse into a
// single dash. maxLen <= 0 means no limit.
func Slug(s string, maxLen int) string {
	var sb strings.Builder

	dash := false

	for _, r := range LowerASCIIFolding(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)

			dash = false
		case sb.Len() > 0 && !dash:
			sb.WriteByte('-')

			dash = true
		}
	}

	ret := strings.TrimRight(sb.String(), "-")
	if maxLen > 0 && len(ret) > maxLen {
		ret = strings.TrimRight(ret[:maxLen], "-")
	}

	return ret
}
