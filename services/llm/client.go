// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides completion clients for the language-model providers
// supported by aleutian-release: OpenAI (official SDK), Anthropic and
// Ollama (raw REST).
//
// The analysis engine treats a provider as an opaque text-completion
// operation; everything above this package works with prompt in, text plus
// token counts out.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultTemperature keeps classification output focused and stable.
	DefaultTemperature = 0.3

	// DefaultMaxTokens bounds a single completion response.
	DefaultMaxTokens = 2048

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 60 * time.Second
)

// Client defines the completion interface for any LLM backend.
//
// Implementations must respect context cancellation and classify provider
// failures through the sentinel errors in this package so callers can
// decide what is retryable.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Client interface {
	// Complete sends a prompt and returns the completion.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation and timeout. Must not be nil.
	//   - prompt: The prompt text. Must not be empty.
	//   - opts: Optional generation parameters.
	//
	// # Outputs
	//
	//   - *Response: The completion. Never nil on success.
	//   - error: Non-nil on failure, wrapping one of the package
	//     sentinel errors when the cause is classifiable.
	Complete(ctx context.Context, prompt string, opts ...Option) (*Response, error)

	// EstimateTokens returns an approximate token count for text.
	//
	// Uses the ~4 chars per token heuristic; good enough for budget
	// logging, not for billing.
	EstimateTokens(text string) int

	// Model returns the effective model identifier, after provider
	// defaulting.
	Model() string
}

// Response represents a completion response from a provider.
type Response struct {
	// Content is the generated text.
	Content string `json:"content"`

	// TokensUsed is the total tokens consumed (input + output).
	TokensUsed int `json:"tokens_used"`

	// InputTokens is the prompt token count reported by the provider.
	InputTokens int `json:"input_tokens"`

	// OutputTokens is the completion token count reported by the provider.
	OutputTokens int `json:"output_tokens"`

	// Model is the model identifier that generated the response.
	Model string `json:"model,omitempty"`
}

// options holds per-request generation parameters.
type options struct {
	maxTokens   int
	temperature float64
}

func defaultOptions() *options {
	return &options{
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
}

// Option is a functional option for Complete.
type Option func(*options)

// WithMaxTokens sets the maximum tokens for the response.
// Ignored when n <= 0.
func WithMaxTokens(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
// Ignored when t < 0.
func WithTemperature(t float64) Option {
	return func(o *options) {
		if t >= 0 {
			o.temperature = t
		}
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// New creates a Client for the named provider.
//
// # Inputs
//
//   - provider: One of "openai", "anthropic", "ollama" (case-insensitive).
//   - model: Model identifier; empty selects the provider default.
//
// # Outputs
//
//   - Client: The provider client.
//   - error: Non-nil for unknown providers or missing credentials.
func New(provider, model string) (Client, error) {
	switch strings.ToLower(provider) {
	case "openai":
		return NewOpenAIClient(model)
	case "anthropic":
		return NewAnthropicClient(model)
	case "ollama":
		return NewOllamaClient(model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}

// estimateTokens is the shared chars/4 heuristic.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}
