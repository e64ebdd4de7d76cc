// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"fmt"
	"strings"
)

// ErrorKind classifies publish failures.
type ErrorKind int

const (
	// KindUnknown is any error not produced by this package.
	KindUnknown ErrorKind = iota
	// KindTransport network or transport failure talking to the provider.
	KindTransport
	// KindRejected the provider answered with a non success status.
	KindRejected
	// KindLocalFileMissing the document to upload doesn't exist.
	KindLocalFileMissing
	// KindAuth credentials could not be acquired or refreshed.
	KindAuth
	// KindInvalidOptions the call itself is malformed.
	KindInvalidOptions
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRejected:
		return "rejected"
	case KindLocalFileMissing:
		return "local-file-missing"
	case KindAuth:
		return "auth"
	case KindInvalidOptions:
		return "invalid-options"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON reports.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Error is a classified publish failure.
type Error struct {
	Kind    ErrorKind
	Message string

	// Status and Body are set for KindRejected.
	Status int
	Body   string

	Err error
}

func (e *Error) Error() string {
	sb := strings.Builder{}
	sb.WriteString(e.Message)

	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}

	if e.Body != "" {
		fmt.Fprintf(&sb, " - %s", e.Body)
	}

	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// rejected builds a KindRejected error keeping the raw response body.
func rejected(prefix string, status int, body []byte) *Error {
	return &Error{
		Kind:    KindRejected,
		Message: fmt.Sprintf("%s: HTTP %d", prefix, status),
		Status:  status,
		Body:    strings.TrimSpace(string(body)),
	}
}

func transport(prefix string, err error) *Error {
	return &Error{Kind: KindTransport, Message: prefix, Err: err}
}
