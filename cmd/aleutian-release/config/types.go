// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

type ReleaseConfig struct {
	// Branches: default branch pair analyzed when flags are omitted
	Branches BranchConfig `yaml:"branches"`

	// Analysis: strategy selection and AI tuning
	Analysis AnalysisConfig `yaml:"analysis"`

	// Logging: destination and verbosity for structured logs
	Logging LoggingConfig `yaml:"logging"`
}

type BranchConfig struct {
	Base string `yaml:"base" validate:"required"` // e.g. main
}

type AnalysisConfig struct {
	// Strategy can be "conventional", "ai", or "hybrid".
	Strategy string `yaml:"strategy" validate:"oneof=conventional ai hybrid"`

	// Provider can be "openai", "anthropic", or "ollama".
	Provider string `yaml:"provider" validate:"oneof=openai anthropic ollama"`

	Model string `yaml:"model"`

	// ConfidenceThreshold gates hybrid fallback; must lie in [0,1].
	ConfidenceThreshold float64 `yaml:"confidence_threshold" validate:"gte=0,lte=1"`

	// Retry tuning for provider calls.
	MaxAttempts    int     `yaml:"max_attempts" validate:"gte=1"`
	InitialBackoff string  `yaml:"initial_backoff"`
	MaxBackoff     string  `yaml:"max_backoff"`
	BackoffFactor  float64 `yaml:"backoff_factor" validate:"gte=1"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	Dir   string `yaml:"dir,omitempty"`
}

func DefaultConfig() ReleaseConfig {
	return ReleaseConfig{
		Branches: BranchConfig{
			Base: "main",
		},
		Analysis: AnalysisConfig{
			Strategy:            "conventional",
			Provider:            "ollama",
			Model:               "",
			ConfidenceThreshold: 0.7,
			MaxAttempts:         3,
			InitialBackoff:      "1s",
			MaxBackoff:          "30s",
			BackoffFactor:       2.0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
