// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analysis

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/aleutian-release/services/llm"
)

// AnalysisError is a failure of the AI classifier.
//
// Retryable mirrors the provider-level partition: rate limits, server
// errors, and unflagged transport failures are retryable; schema
// violations, empty diffs, and client errors are not.
type AnalysisError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *AnalysisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ai analysis failed during %s", e.Op)
	}
	return fmt.Sprintf("ai analysis failed during %s: %v", e.Op, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// ConfigError is a configuration problem detected before any git or
// network work begins.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// isRetryable reports whether an error should trigger another attempt.
//
// An explicit *AnalysisError carries its own flag; everything else
// defers to the provider-layer classification.
func isRetryable(err error) bool {
	var aerr *AnalysisError
	if errors.As(err, &aerr) {
		return aerr.Retryable
	}
	return llm.IsRetryable(err)
}
