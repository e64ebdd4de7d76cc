// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		input   string
		want    Backend
		wantErr bool
	}{
		{"netlify", Netlify, false},
		{" GitHub ", GitHub, false},
		{"gdrive", GDrive, false},
		{"surge", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBackend(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "want one of netlify, github, gdrive")

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type recordingPublisher struct {
	calls int
	path  string
}

func (p *recordingPublisher) Publish(_ context.Context, path string, _ Options) Result {
	p.calls++
	p.path = path

	return Succeeded("https://example.test/"+path, nil)
}

func TestRegistryPublish(t *testing.T) {
	netlify := &recordingPublisher{}
	github := &recordingPublisher{}
	r := Registry{Netlify: netlify, GitHub: github}

	res := r.Publish(context.Background(), GitHub, "map.html", Options{})
	require.True(t, res.Success)
	assert.Equal(t, 1, github.calls)
	assert.Equal(t, 0, netlify.calls)

	res = r.Publish(context.Background(), GDrive, "map.html", Options{})
	assert.False(t, res.Success)
	assert.Equal(t, KindInvalidOptions, res.Kind)
	assert.Contains(t, res.Error, `"gdrive" is not configured`)
}

func TestResultFail(t *testing.T) {
	r := Result{}
	r.set("file_id", "abc")

	got := r.Fail(rejected("Netlify deployment failed", 400, []byte(" bad zip \n")))
	assert.False(t, got.Success)
	assert.Equal(t, KindRejected, got.Kind)
	assert.Equal(t, "Netlify deployment failed: HTTP 400 - bad zip", got.Error)
	assert.Equal(t, map[string]string{"file_id": "abc", "details": "bad zip"}, got.Metadata)

	plain := Failure(errors.New("kaboom"))
	assert.Equal(t, KindUnknown, plain.Kind)
	assert.Equal(t, "kaboom", plain.Error)
}

func TestResultJSON(t *testing.T) {
	b, err := json.Marshal(Failure(&Error{Kind: KindAuth, Message: "no token"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"no token","kind":"auth"}`, string(b))

	b, err = json.Marshal(Succeeded("https://x.test", map[string]string{"expires": "permanent"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"url":"https://x.test","metadata":{"expires":"permanent"}}`, string(b))
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	err := transport("GitHub deployment failed", inner)

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "GitHub deployment failed: dial tcp: refused", err.Error())
}
