// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analysis decides the version bump and change categories for a
// branch diff.
//
// Two classifiers are available: the deterministic conventional-commit
// classifier (package changelog) and an AI classifier that asks an LLM
// provider for a structured judgment. The Arbiter selects between them
// per the configured strategy and emits exactly one AnalysisResult per
// run.
package analysis

import (
	"fmt"
	"time"

	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/changelog"
	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/semver"
)

// Strategy selects how the bump decision is made.
type Strategy string

const (
	// StrategyConventional uses only deterministic commit-message analysis.
	StrategyConventional Strategy = "conventional"

	// StrategyAI uses only the AI classifier; any AI failure is fatal.
	StrategyAI Strategy = "ai"

	// StrategyHybrid tries the AI classifier first and falls back to
	// conventional analysis on failure or low confidence.
	StrategyHybrid Strategy = "hybrid"
)

// ParseStrategy converts a string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyConventional, StrategyAI, StrategyHybrid:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown analysis strategy %q (want conventional, ai, or hybrid)", s)
	}
}

// Metadata carries informational execution details of a run. Nothing in
// here affects control flow.
type Metadata struct {
	RunID       string        `json:"run_id"`
	CommitCount int           `json:"commit_count"`
	FileCount   int           `json:"file_count"`
	Duration    time.Duration `json:"duration_ns"`

	// Model, TokensUsed, and EstimatedCostUSD are populated only when
	// the AI classifier actually ran.
	Model            string  `json:"model,omitempty"`
	TokensUsed       int     `json:"tokens_used,omitempty"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd,omitempty"`
}

// AnalysisResult is the terminal artifact of a run.
//
// Confidence is nil for pure conventional analysis: the deterministic
// classifier does not score itself.
type AnalysisResult struct {
	Bump         semver.Bump       `json:"bump"`
	Confidence   *float64          `json:"confidence,omitempty"`
	Reasoning    []string          `json:"reasoning"`
	Entries      []changelog.Entry `json:"entries"`
	StrategyUsed Strategy          `json:"strategy_used"`
	HasBreaking  bool              `json:"has_breaking"`
	Metadata     Metadata          `json:"metadata"`
}
