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
	"testing"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate_limited", ErrRateLimited, true},
		{"wrapped_rate_limited", fmt.Errorf("call failed: %w", ErrRateLimited), true},
		{"server_error", ErrServerError, true},
		{"invalid_request", ErrInvalidRequest, false},
		{"empty_response", ErrEmptyResponse, false},
		{"missing_key", ErrMissingAPIKey, false},
		{"context_canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"unflagged_transport", errors.New("connection reset by peer"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{429, ErrRateLimited},
		{500, ErrServerError},
		{502, ErrServerError},
		{503, ErrServerError},
		{400, ErrInvalidRequest},
		{401, ErrInvalidRequest},
		{404, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			err := statusError(tt.code, "body")
			if !errors.Is(err, tt.want) {
				t.Errorf("statusError(%d) = %v, want wrapped %v", tt.code, err, tt.want)
			}
		})
	}
}

func TestApplyOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		o := applyOptions(nil)
		if o.maxTokens != DefaultMaxTokens {
			t.Errorf("maxTokens = %d, want %d", o.maxTokens, DefaultMaxTokens)
		}
		if o.temperature != DefaultTemperature {
			t.Errorf("temperature = %v, want %v", o.temperature, DefaultTemperature)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		o := applyOptions([]Option{WithMaxTokens(512), WithTemperature(0.7)})
		if o.maxTokens != 512 {
			t.Errorf("maxTokens = %d, want 512", o.maxTokens)
		}
		if o.temperature != 0.7 {
			t.Errorf("temperature = %v, want 0.7", o.temperature)
		}
	})

	t.Run("invalid_values_ignored", func(t *testing.T) {
		o := applyOptions([]Option{WithMaxTokens(0), WithTemperature(-1)})
		if o.maxTokens != DefaultMaxTokens {
			t.Errorf("maxTokens = %d, want default", o.maxTokens)
		}
		if o.temperature != DefaultTemperature {
			t.Errorf("temperature = %v, want default", o.temperature)
		}
	})
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"ab", 1},
		{"abcd", 1},
		{"abcdefgh", 2},
	}

	for _, tt := range tests {
		if got := estimateTokens(tt.text); got != tt.want {
			t.Errorf("estimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New("cohere", "")
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
