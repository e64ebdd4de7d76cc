// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"strings"
	"unicode/utf8"
)

// DefaultMinAddressLength drops tokens of up to ten characters.
const DefaultMinAddressLength = 10

// ParseAddresses splits a pipe delimited list and keeps, in order, the
// tokens longer than minLen once surrounding spaces and quotes are removed.
// Short tokens are noise rather than addresses. Duplicates are kept.
func ParseAddresses(raw string, minLen int) []string {
	var ret []string

	for _, tok := range strings.Split(raw, "|") {
		tok = strings.Trim(tok, " \t\r\n\"")
		if tok == "" || utf8.RuneCountInString(tok) <= minLen {
			continue
		}

		ret = append(ret, tok)
	}

	return ret
}
