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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/changelog"
	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/gitdiff"
	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/semver"
	"github.com/AleutianAI/aleutian-release/services/llm"
)

// modelPricing is USD per 1K tokens, input/output. Informational only;
// unknown models estimate to zero.
var modelPricing = map[string]struct{ input, output float64 }{
	"gpt-4o":                     {0.0025, 0.010},
	"gpt-4o-mini":                {0.00015, 0.0006},
	"claude-3-5-sonnet-20240620": {0.003, 0.015},
	"claude-3-5-haiku-20241022":  {0.0008, 0.004},
}

// AIClassification is the classifier's fragment of an analysis result.
type AIClassification struct {
	Bump        semver.Bump
	Confidence  float64
	Reasoning   []string
	Entries     []changelog.Entry
	HasBreaking bool

	TokensUsed       int
	EstimatedCostUSD float64
}

// AIClassifier asks an LLM provider to categorize a diff.
//
// # Thread Safety
//
// AIClassifier holds no mutable state and is safe for concurrent use.
type AIClassifier struct {
	client llm.Client
	model  string
	retry  RetryPolicy
}

// NewAIClassifier creates a classifier over the given provider client.
func NewAIClassifier(client llm.Client, model string, retry RetryPolicy) *AIClassifier {
	return &AIClassifier{client: client, model: model, retry: retry}
}

// Classify sends the diff to the provider and validates the response.
//
// An empty commit list fails fast without a network call. Provider
// calls run under the retry policy; schema violations are non-retryable
// and abort immediately. A structurally valid response has its
// confidence adjusted for sparse or inconsistent content before being
// returned.
//
// # Outputs
//
//   - *AIClassification: The validated, confidence-adjusted fragment.
//   - error: *AnalysisError; Retryable is false for empty diffs and
//     schema failures, and reflects the last provider error otherwise.
func (a *AIClassifier) Classify(ctx context.Context, diff *gitdiff.Diff) (*AIClassification, error) {
	if len(diff.Commits) == 0 {
		return nil, &AnalysisError{
			Op:        "preflight",
			Retryable: false,
			Err:       errors.New("diff contains no commits"),
		}
	}

	prompt := BuildPrompt(diff)
	slog.Debug("Built classification prompt",
		"model", a.model,
		"commits", len(diff.Commits),
		"estimated_tokens", a.client.EstimateTokens(prompt))

	var result *AIClassification
	attempts, err := a.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			slog.Info("Retrying AI classification", "attempt", attempt, "model", a.model)
		}

		resp, err := a.client.Complete(ctx, prompt)
		if err != nil {
			return err
		}

		parsed, err := parseResponse(resp.Content)
		if err != nil {
			return &AnalysisError{Op: "response validation", Retryable: false, Err: err}
		}

		parsed.Confidence = adjustConfidence(parsed.Confidence, len(parsed.Reasoning),
			len(parsed.Entries), len(diff.Commits))
		parsed.TokensUsed = resp.TokensUsed
		parsed.EstimatedCostUSD = estimateCost(a.model, resp.InputTokens, resp.OutputTokens)

		result = parsed
		return nil
	})
	if err != nil {
		var aerr *AnalysisError
		if errors.As(err, &aerr) {
			return nil, aerr
		}
		return nil, &AnalysisError{
			Op:        fmt.Sprintf("provider call (after %d attempts)", attempts),
			Retryable: llm.IsRetryable(err),
			Err:       err,
		}
	}

	slog.Debug("AI classification complete",
		"model", a.model,
		"bump", result.Bump,
		"confidence", result.Confidence,
		"entries", len(result.Entries),
		"attempts", attempts)

	return result, nil
}

// aiResponse is the raw provider payload. Required fields are pointers
// so absence is distinguishable from zero values.
type aiResponse struct {
	Bump       *string     `json:"bump"`
	Confidence *float64    `json:"confidence"`
	Reasoning  []string    `json:"reasoning"`
	Changes    *[]aiChange `json:"changes"`
}

type aiChange struct {
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
	CommitSha   string   `json:"commitSha"`
	Author      string   `json:"author"`
	IsBreaking  bool     `json:"isBreaking"`
	Scope       string   `json:"scope"`
	Confidence  *float64 `json:"confidence"`
}

// parseResponse extracts and validates the JSON body of a completion.
func parseResponse(content string) (*AIClassification, error) {
	body, err := extractJSON(content)
	if err != nil {
		return nil, err
	}

	var raw aiResponse
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}

	if raw.Bump == nil {
		return nil, errors.New("response missing required field \"bump\"")
	}
	bump := semver.Bump(strings.ToLower(*raw.Bump))
	if bump != semver.BumpMajor && bump != semver.BumpMinor && bump != semver.BumpPatch {
		return nil, fmt.Errorf("bump %q is not one of major, minor, patch", *raw.Bump)
	}

	if raw.Confidence == nil {
		return nil, errors.New("response missing required field \"confidence\"")
	}
	if *raw.Confidence < 0 || *raw.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v is outside [0,1]", *raw.Confidence)
	}

	if raw.Changes == nil {
		return nil, errors.New("response missing required field \"changes\"")
	}

	var (
		entries     []changelog.Entry
		hasBreaking bool
	)
	for i, c := range *raw.Changes {
		if c.Category == nil || c.Description == nil {
			return nil, fmt.Errorf("changes[%d] missing category or description", i)
		}
		category := strings.ToLower(*c.Category)
		if !changelog.ValidCategory(category) {
			return nil, fmt.Errorf("changes[%d] category %q is not recognized", i, category)
		}

		entryConfidence := *raw.Confidence
		if c.Confidence != nil {
			if *c.Confidence < 0 || *c.Confidence > 1 {
				return nil, fmt.Errorf("changes[%d] confidence %v is outside [0,1]", i, *c.Confidence)
			}
			entryConfidence = *c.Confidence
		}

		if c.IsBreaking {
			hasBreaking = true
			category = string(changelog.CategoryBreaking)
		}

		entries = append(entries, changelog.Entry{
			Category:    changelog.Category(category),
			Description: *c.Description,
			CommitSHA:   c.CommitSha,
			Author:      c.Author,
			Scope:       c.Scope,
			Confidence:  entryConfidence,
		})
	}

	return &AIClassification{
		Bump:        bump,
		Confidence:  *raw.Confidence,
		Reasoning:   raw.Reasoning,
		Entries:     entries,
		HasBreaking: hasBreaking,
	}, nil
}

// extractJSON returns the first balanced top-level JSON object in text.
// Providers occasionally wrap the object in prose or code fences.
func extractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", errors.New("no JSON object found in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", errors.New("unterminated JSON object in response")
}

// adjustConfidence penalizes sparse or inconsistent responses.
//
// Empty reasoning costs 20%; commits with zero returned changes cost
// 30%; a change-to-commit ratio outside [0.5, 2.0] costs 10%. The
// ratio penalty applies only when both counts are positive: a
// zero-change response is already covered by the 30% penalty, and the
// two never stack. The result is clamped to [0,1].
func adjustConfidence(confidence float64, reasoningCount, changeCount, commitCount int) float64 {
	if reasoningCount == 0 {
		confidence *= 0.8
	}
	if commitCount > 0 && changeCount == 0 {
		confidence *= 0.7
	}
	if changeCount > 0 && commitCount > 0 {
		ratio := float64(changeCount) / float64(commitCount)
		if ratio < 0.5 || ratio > 2.0 {
			confidence *= 0.9
		}
	}

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// estimateCost converts token usage into an approximate USD figure.
func estimateCost(model string, inputTokens, outputTokens int) float64 {
	price, ok := modelPricing[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1000*price.input + float64(outputTokens)/1000*price.output
}
