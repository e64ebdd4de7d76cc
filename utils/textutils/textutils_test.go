// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package textutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLowerAsciiFolding(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello world"},
		{"  Spaces  ", "spaces"},
		{"Áéíóú", "aeiou"},
		{"Ñandú", "nandu"},
		{"Crème Brûlée", "creme brulee"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, LowerASCIIFolding(tc.input))
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"korean-new-york", 0, "korean-new-york"},
		{"Korean  New York!", 0, "korean-new-york"},
		{"temp_map.html", 0, "temp-map-html"},
		{"  --Café Crème--  ", 0, "cafe-creme"},
		{"abcdef-ghij", 7, "abcdef"},
		{"???", 0, ""},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, Slug(tc.input, tc.maxLen))
		})
	}
}
