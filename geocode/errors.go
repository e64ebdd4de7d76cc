// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoValidAddresses is returned when no address of a batch could be resolved.
var ErrNoValidAddresses = errors.New("no valid addresses found")

// GeocodingError represents a geocoding specific failure.
type GeocodingError struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType enumerates the kinds of geocoding failures.
type ErrorType int

const (
	// ErrorTypeUnknown unknown error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit the provider throttled us.
	ErrorTypeRateLimit
	// ErrorTypeForbidden the provider rejected the client (missing or banned User-Agent).
	ErrorTypeForbidden
	// ErrorTypeTimeout connection timeout.
	ErrorTypeTimeout
	// ErrorTypeInvalidRequest invalid request.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError transport level failure or unavailable provider.
	ErrorTypeNetworkError
	// ErrorTypeInvalidResponse the provider answered something we can't decode.
	ErrorTypeInvalidResponse
)

func (e *GeocodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *GeocodingError) Unwrap() error {
	return e.Err
}

// IsRateLimitError reports whether err is a throttling failure.
func IsRateLimitError(err error) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeRateLimit
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsTimeoutError reports whether err is a timeout.
func IsTimeoutError(err error) bool {
	var geoErr *GeocodingError
	if errors.As(err, &geoErr) {
		return geoErr.Type == ErrorTypeTimeout
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// ClassifyHTTPError maps a non-200 provider answer into a GeocodingError.
func ClassifyHTTPError(statusCode int, body string) *GeocodingError {
	var ret *GeocodingError

	switch statusCode {
	case http.StatusTooManyRequests: // 429
		ret = &GeocodingError{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit reached",
		}
	case http.StatusForbidden: // 403
		ret = &GeocodingError{
			Type:    ErrorTypeForbidden,
			Message: "client rejected by provider",
		}
	case http.StatusBadRequest: // 400
		ret = &GeocodingError{
			Type:    ErrorTypeInvalidRequest,
			Message: "invalid request",
		}
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		ret = &GeocodingError{
			Type:    ErrorTypeNetworkError,
			Message: fmt.Sprintf("service unavailable (status %d)", statusCode),
		}
	default:
		ret = &GeocodingError{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("HTTP error %d", statusCode),
		}
	}

	if body = strings.TrimSpace(body); body != "" {
		const maxBody = 200
		if len(body) > maxBody {
			body = body[:maxBody] + "…"
		}

		ret.Err = errors.New(body)
	}

	return ret
}
