// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for provider failure classification.
//
// Rate limits and server errors are transient; auth and request errors
// are not. Callers use IsRetryable rather than matching these directly.
var (
	// ErrRateLimited indicates the provider returned HTTP 429.
	ErrRateLimited = errors.New("llm provider rate limited")

	// ErrServerError indicates the provider returned HTTP 5xx.
	ErrServerError = errors.New("llm provider server error")

	// ErrInvalidRequest indicates a 4xx failure other than rate limiting
	// (bad auth, malformed request, unknown model).
	ErrInvalidRequest = errors.New("llm request rejected")

	// ErrEmptyResponse indicates the provider returned no usable content.
	ErrEmptyResponse = errors.New("llm provider returned empty response")

	// ErrMissingAPIKey indicates no credential could be found for the
	// provider at client construction time.
	ErrMissingAPIKey = errors.New("llm provider API key missing")
)

// statusError wraps a classified HTTP failure with its status and body.
func statusError(code int, body string) error {
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", ErrRateLimited, code, body)
	case code >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrServerError, code, body)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrInvalidRequest, code, body)
	}
}

// IsRetryable reports whether err is worth retrying with backoff.
//
// Rate limits, server errors, and unclassified transport failures are
// retryable. Invalid requests, empty responses, missing credentials, and
// context cancellation are not: retrying cannot change the outcome.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrServerError):
		return true
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrEmptyResponse),
		errors.Is(err, ErrMissingAPIKey):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		// Unflagged transport errors (connection reset, DNS) are
		// treated as transient.
		return true
	}
}
