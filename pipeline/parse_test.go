// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseAddresses(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		minLen int
		want   []string
	}{
		{
			name:   "short token dropped",
			input:  "Times Square, New York, NY | Central Park, New York, NY | x",
			minLen: DefaultMinAddressLength,
			want:   []string{"Times Square, New York, NY", "Central Park, New York, NY"},
		},
		{
			name:   "quotes and blanks trimmed",
			input:  ` "Empire State Building, NY" |  | "Brooklyn Bridge, NY"`,
			minLen: DefaultMinAddressLength,
			want:   []string{"Empire State Building, NY", "Brooklyn Bridge, NY"},
		},
		{
			name:   "exactly the threshold is noise",
			input:  "0123456789|01234567890",
			minLen: 10,
			want:   []string{"01234567890"},
		},
		{
			name:   "threshold counts characters",
			input:  "Ñuñoa, Chile",
			minLen: 11,
			want:   []string{"Ñuñoa, Chile"},
		},
		{
			name:   "duplicates kept in order",
			input:  "Plaza Independencia | Plaza Independencia",
			minLen: DefaultMinAddressLength,
			want:   []string{"Plaza Independencia", "Plaza Independencia"},
		},
		{
			name:   "lower threshold",
			input:  "Paris|Rome|x",
			minLen: 1,
			want:   []string{"Paris", "Rome"},
		},
		{
			name:   "empty",
			input:  "",
			minLen: DefaultMinAddressLength,
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAddresses(tt.input, tt.minLen)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseAddresses() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
