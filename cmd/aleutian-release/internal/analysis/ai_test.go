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
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/changelog"
	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/gitdiff"
	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/semver"
	"github.com/AleutianAI/aleutian-release/services/llm"
)

// mockClient replays a scripted sequence of completions.
type mockClient struct {
	replies       []mockReply
	calls         int
	prompts       []string
	estimateCalls int
}

type mockReply struct {
	resp *llm.Response
	err  error
}

func (m *mockClient) Complete(ctx context.Context, prompt string, opts ...llm.Option) (*llm.Response, error) {
	m.prompts = append(m.prompts, prompt)
	if m.calls >= len(m.replies) {
		return nil, errors.New("mock exhausted")
	}
	reply := m.replies[m.calls]
	m.calls++
	return reply.resp, reply.err
}

func (m *mockClient) EstimateTokens(text string) int {
	m.estimateCalls++
	return len(text) / 4
}

func (m *mockClient) Model() string { return "mock-model" }

// fastRetry keeps backoff waits negligible in tests.
func fastRetry() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func sampleDiff() *gitdiff.Diff {
	return &gitdiff.Diff{
		BaseBranch:    "main",
		FeatureBranch: "feature/pagination",
		Commits: []gitdiff.CommitInfo{
			{SHA: "abc123def456", AuthorName: "Ada", Message: "feat: add X"},
			{SHA: "789012345678", AuthorName: "Grace", Message: "fix: bug Y"},
		},
		Files: []gitdiff.FileChange{
			{Path: "api/page.go", Status: gitdiff.StatusAdded, Additions: 40},
			{Path: "api/list.go", Status: gitdiff.StatusModified, Additions: 3, Deletions: 2},
		},
		TotalAdditions: 43,
		TotalDeletions: 2,
		Contributors:   []string{"Ada <ada@example.com>", "Grace <grace@example.com>"},
	}
}

const validResponse = `{
  "bump": "minor",
  "confidence": 0.9,
  "reasoning": ["new pagination feature", "one bug fix"],
  "changes": [
    {"category": "feat", "description": "add pagination", "commitSha": "abc123def456", "author": "Ada", "isBreaking": false, "scope": "api", "confidence": 0.95},
    {"category": "fix", "description": "fix list bug", "commitSha": "789012345678", "author": "Grace", "isBreaking": false, "scope": "", "confidence": 0.9}
  ]
}`

func TestBuildPrompt(t *testing.T) {
	diff := sampleDiff()
	prompt := BuildPrompt(diff)

	for _, want := range []string{
		"abc123de", // truncated sha
		"feat: add X",
		"api/page.go (added, +40/-0)",
		"+43/-2 lines across 2 commits by 2 contributors",
		`"bump": "major|minor|patch"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("BuildPrompt() missing %q", want)
		}
	}

	if prompt != BuildPrompt(diff) {
		t.Error("BuildPrompt() is not deterministic for the same diff")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, false},
		{"prose wrapped", "Sure, here you go:\n{\"a\":1}\nHope it helps.", `{"a":1}`, false},
		{"code fence", "```json\n{\"a\":{\"b\":2}}\n```", `{"a":{"b":2}}`, false},
		{"brace inside string", `{"a":"}{"}`, `{"a":"}{"}`, false},
		{"no object", "nothing here", "", true},
		{"unterminated", `{"a":1`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("extractJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("extractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseResponse(t *testing.T) {
	t.Run("valid response", func(t *testing.T) {
		c, err := parseResponse(validResponse)
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if c.Bump != semver.BumpMinor {
			t.Errorf("Bump = %q, want minor", c.Bump)
		}
		if c.Confidence != 0.9 {
			t.Errorf("Confidence = %v, want 0.9", c.Confidence)
		}
		if len(c.Entries) != 2 || c.Entries[0].Category != changelog.CategoryFeat {
			t.Errorf("Entries = %+v", c.Entries)
		}
		if c.HasBreaking {
			t.Error("HasBreaking = true, want false")
		}
	})

	t.Run("breaking change recategorized", func(t *testing.T) {
		body := `{"bump":"major","confidence":0.8,"reasoning":["api removed"],"changes":[
			{"category":"feat","description":"drop v1","commitSha":"abc","author":"Ada","isBreaking":true}]}`
		c, err := parseResponse(body)
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if !c.HasBreaking {
			t.Error("HasBreaking = false, want true")
		}
		if c.Entries[0].Category != changelog.CategoryBreaking {
			t.Errorf("Category = %q, want breaking", c.Entries[0].Category)
		}
	})

	invalid := []struct {
		name string
		body string
	}{
		{"missing bump", `{"confidence":0.9,"reasoning":[],"changes":[]}`},
		{"missing confidence", `{"bump":"minor","reasoning":[],"changes":[]}`},
		{"missing changes", `{"bump":"minor","confidence":0.9,"reasoning":[]}`},
		{"bump not in set", `{"bump":"gigantic","confidence":0.9,"reasoning":[],"changes":[]}`},
		{"none not accepted from provider", `{"bump":"none","confidence":0.9,"reasoning":[],"changes":[]}`},
		{"confidence out of range", `{"bump":"minor","confidence":1.5,"reasoning":[],"changes":[]}`},
		{"change missing description", `{"bump":"minor","confidence":0.9,"reasoning":[],"changes":[{"category":"feat"}]}`},
		{"unknown category", `{"bump":"minor","confidence":0.9,"reasoning":[],"changes":[{"category":"enhancement","description":"x"}]}`},
		{"wrong type", `{"bump":"minor","confidence":"high","reasoning":[],"changes":[]}`},
		{"not json", `the diff looks fine to me`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseResponse(tt.body); err == nil {
				t.Error("parseResponse() expected error")
			}
		})
	}
}

func TestAdjustConfidence(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		reasoning  int
		changes    int
		commits    int
		want       float64
	}{
		{"no penalty", 0.9, 2, 2, 2, 0.9},
		{"empty reasoning", 1.0, 0, 2, 2, 0.8},
		{"zero changes with commits", 1.0, 1, 0, 3, 0.7},
		{"ratio too low", 1.0, 1, 1, 3, 0.9},
		{"ratio too high", 1.0, 1, 5, 2, 0.9},
		{"stacked penalties", 1.0, 0, 0, 3, 0.8 * 0.7},
		{"clamped at zero", -0.5, 1, 2, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adjustConfidence(tt.confidence, tt.reasoning, tt.changes, tt.commits)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("adjustConfidence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateCost(t *testing.T) {
	got := estimateCost("gpt-4o-mini", 1000, 1000)
	want := 0.00015 + 0.0006
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("estimateCost() = %v, want %v", got, want)
	}
	if estimateCost("unknown-model", 1000, 1000) != 0 {
		t.Error("estimateCost() for unknown model should be 0")
	}
}

func TestClassify_EmptyDiffFailsFast(t *testing.T) {
	mock := &mockClient{}
	classifier := NewAIClassifier(mock, "gpt-4o-mini", fastRetry())

	_, err := classifier.Classify(context.Background(), &gitdiff.Diff{})

	var aerr *AnalysisError
	if !errors.As(err, &aerr) {
		t.Fatalf("Classify() error = %v, want *AnalysisError", err)
	}
	if aerr.Retryable {
		t.Error("empty diff error should be non-retryable")
	}
	if len(mock.prompts) != 0 {
		t.Error("empty diff must not reach the provider")
	}
}

func TestClassify_RetriesRateLimit(t *testing.T) {
	mock := &mockClient{replies: []mockReply{
		{err: llm.ErrRateLimited},
		{resp: &llm.Response{Content: validResponse, TokensUsed: 500, InputTokens: 400, OutputTokens: 100}},
	}}
	classifier := NewAIClassifier(mock, "gpt-4o-mini", fastRetry())

	c, err := classifier.Classify(context.Background(), sampleDiff())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if mock.calls != 2 {
		t.Errorf("provider calls = %d, want 2", mock.calls)
	}
	if mock.estimateCalls != 1 {
		t.Errorf("token estimates = %d, want 1 (once per prompt, not per attempt)", mock.estimateCalls)
	}
	if c.TokensUsed != 500 {
		t.Errorf("TokensUsed = %d, want 500", c.TokensUsed)
	}
	if c.EstimatedCostUSD <= 0 {
		t.Errorf("EstimatedCostUSD = %v, want positive", c.EstimatedCostUSD)
	}
}

func TestClassify_SchemaFailureDoesNotRetry(t *testing.T) {
	mock := &mockClient{replies: []mockReply{
		{resp: &llm.Response{Content: `{"bump":"minor","confidence":0.9,"reasoning":[]}`}},
	}}
	classifier := NewAIClassifier(mock, "gpt-4o-mini", fastRetry())

	_, err := classifier.Classify(context.Background(), sampleDiff())

	var aerr *AnalysisError
	if !errors.As(err, &aerr) {
		t.Fatalf("Classify() error = %v, want *AnalysisError", err)
	}
	if aerr.Retryable {
		t.Error("schema failure should be non-retryable")
	}
	if mock.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (no retry)", mock.calls)
	}
}

func TestClassify_ExhaustsAttempts(t *testing.T) {
	mock := &mockClient{replies: []mockReply{
		{err: llm.ErrServerError},
		{err: llm.ErrServerError},
		{err: llm.ErrServerError},
	}}
	classifier := NewAIClassifier(mock, "gpt-4o-mini", fastRetry())

	_, err := classifier.Classify(context.Background(), sampleDiff())
	if err == nil {
		t.Fatal("Classify() expected error after exhausting attempts")
	}
	if !errors.Is(err, llm.ErrServerError) {
		t.Errorf("error chain should wrap the last cause, got %v", err)
	}
	if mock.calls != 3 {
		t.Errorf("provider calls = %d, want 3", mock.calls)
	}
}
