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
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/changelog"
	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/gitdiff"
	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/semver"
)

// Reasoning notes appended by hybrid fallback. Callers read these from
// the reasoning trail to see why a fallback happened.
const (
	noteAIFailed      = "AI analysis failed, using conventional fallback"
	noteLowConfidence = "confidence below threshold, using conventional analysis"
)

// Arbiter selects the classification strategy and reconciles fallback.
//
// # Thread Safety
//
// Arbiter holds no mutable state and is safe for concurrent use.
type Arbiter struct {
	strategy  Strategy
	threshold float64
	ai        *AIClassifier
}

// NewArbiter creates an Arbiter.
//
// The threshold must lie in [0,1] and the AI classifier must be present
// for the ai and hybrid strategies; violations are configuration errors
// surfaced before any work begins.
func NewArbiter(strategy Strategy, threshold float64, ai *AIClassifier) (*Arbiter, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, &ConfigError{Field: "strategy", Reason: err.Error()}
	}
	if threshold < 0 || threshold > 1 {
		return nil, &ConfigError{
			Field:  "confidence_threshold",
			Reason: fmt.Sprintf("%v is outside [0,1]", threshold),
		}
	}
	if ai == nil && strategy != StrategyConventional {
		return nil, &ConfigError{
			Field:  "strategy",
			Reason: fmt.Sprintf("strategy %q requires an AI classifier", strategy),
		}
	}
	return &Arbiter{strategy: strategy, threshold: threshold, ai: ai}, nil
}

// Analyze produces exactly one AnalysisResult for the diff.
//
// Strategy semantics:
//   - conventional: deterministic analysis only; Confidence is nil.
//   - ai: AI only; any AI failure propagates to the caller.
//   - hybrid: AI first. On AI failure, fall back to conventional with
//     AI confidence reported as 0. On confidence below the threshold,
//     fall back while preserving the AI's reasoning. The threshold is
//     inclusive: a confidence exactly at the threshold accepts the AI
//     result.
//
// The result's StrategyUsed records the classifier that actually made
// the decision, which under hybrid may differ from the configured
// strategy.
func (a *Arbiter) Analyze(ctx context.Context, diff *gitdiff.Diff) (*AnalysisResult, error) {
	start := time.Now()
	runID := uuid.NewString()

	slog.Info("Starting release analysis",
		"run_id", runID,
		"strategy", a.strategy,
		"commits", len(diff.Commits),
		"files", len(diff.Files))

	var (
		result *AnalysisResult
		err    error
	)
	switch a.strategy {
	case StrategyConventional:
		result = a.conventional(diff)
	case StrategyAI:
		result, err = a.aiOnly(ctx, diff)
	case StrategyHybrid:
		result = a.hybrid(ctx, diff)
	default:
		// NewArbiter rejects unknown strategies; this is unreachable.
		err = &ConfigError{Field: "strategy", Reason: string(a.strategy)}
	}
	if err != nil {
		return nil, err
	}

	result.Metadata.RunID = runID
	result.Metadata.CommitCount = len(diff.Commits)
	result.Metadata.FileCount = len(diff.Files)
	result.Metadata.Duration = time.Since(start)

	slog.Info("Analysis complete",
		"run_id", runID,
		"strategy_used", result.StrategyUsed,
		"bump", result.Bump,
		"breaking", result.HasBreaking,
		"duration", result.Metadata.Duration)

	return result, nil
}

// conventional runs the deterministic classifier. Confidence is nil:
// the conventional path does not score itself.
func (a *Arbiter) conventional(diff *gitdiff.Diff) *AnalysisResult {
	bump := changelog.DetermineBump(diff.Commits)
	entries := changelog.Classify(diff)

	reasoning := []string{
		fmt.Sprintf("conventional commit analysis of %d commits", len(diff.Commits)),
		fmt.Sprintf("determined version bump: %s", bump),
	}

	return &AnalysisResult{
		Bump:         bump,
		Confidence:   nil,
		Reasoning:    reasoning,
		Entries:      entries,
		StrategyUsed: StrategyConventional,
		HasBreaking:  bump == semver.BumpMajor,
	}
}

// aiOnly runs the AI classifier with no fallback.
func (a *Arbiter) aiOnly(ctx context.Context, diff *gitdiff.Diff) (*AnalysisResult, error) {
	c, err := a.ai.Classify(ctx, diff)
	if err != nil {
		return nil, err
	}
	return a.fromAI(c), nil
}

// hybrid runs the AI classifier and falls back to conventional analysis
// on failure or insufficient confidence.
func (a *Arbiter) hybrid(ctx context.Context, diff *gitdiff.Diff) *AnalysisResult {
	c, err := a.ai.Classify(ctx, diff)
	if err != nil {
		slog.Warn("AI classification failed, falling back to conventional",
			"error", err)

		result := a.conventional(diff)
		result.Reasoning = append(result.Reasoning, noteAIFailed)
		zero := 0.0
		result.Confidence = &zero
		result.Metadata.Model = a.ai.model
		return result
	}

	if c.Confidence < a.threshold {
		slog.Info("AI confidence below threshold, falling back to conventional",
			"confidence", c.Confidence,
			"threshold", a.threshold)

		result := a.conventional(diff)
		reasoning := append([]string{}, c.Reasoning...)
		reasoning = append(reasoning, noteLowConfidence)
		result.Reasoning = append(reasoning, result.Reasoning...)
		confidence := c.Confidence
		result.Confidence = &confidence
		result.Metadata.Model = a.ai.model
		result.Metadata.TokensUsed = c.TokensUsed
		result.Metadata.EstimatedCostUSD = c.EstimatedCostUSD
		return result
	}

	return a.fromAI(c)
}

// fromAI converts an accepted AI classification into a final result.
func (a *Arbiter) fromAI(c *AIClassification) *AnalysisResult {
	confidence := c.Confidence
	return &AnalysisResult{
		Bump:         c.Bump,
		Confidence:   &confidence,
		Reasoning:    c.Reasoning,
		Entries:      c.Entries,
		StrategyUsed: StrategyAI,
		HasBreaking:  c.HasBreaking,
		Metadata: Metadata{
			Model:            a.ai.model,
			TokensUsed:       c.TokensUsed,
			EstimatedCostUSD: c.EstimatedCostUSD,
		},
	}
}
