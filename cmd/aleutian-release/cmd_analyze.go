// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/config"
	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/analysis"
	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/gitdiff"
	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/semver"
	"github.com/AleutianAI/aleutian-release/services/llm"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	// Branch selection flags
	analyzeBase    string
	analyzeWorkdir string

	// Strategy flags
	analyzeStrategy  string
	analyzeProvider  string
	analyzeModel     string
	analyzeThreshold float64

	// Versioning flags
	analyzeCurrentVersion string
	analyzePrerelease     string

	// Output flags
	analyzeJSON  bool
	analyzeQuiet bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var analyzeCmd = &cobra.Command{
	Use:   "analyze <feature-branch>",
	Short: "Analyze a feature branch and decide the next version",
	Long: `Analyze the commits and file changes on a feature branch relative to
the base branch, categorize them for a changelog, and decide the next
semantic version.

Strategies:
  conventional  Deterministic conventional-commit analysis (default)
  ai            AI classification only; AI failures are fatal
  hybrid        AI first, conventional fallback on failure or low confidence

The current version is taken from --current-version, or from the
highest v-prefixed git tag when omitted (0.0.0 if the repository has
no version tags).

Examples:
  aleutian-release analyze feature/pagination
  aleutian-release analyze feature/pagination --base develop
  aleutian-release analyze feature/pagination --strategy hybrid --threshold 0.8
  aleutian-release analyze feature/pagination --prerelease rc --json

CI/CD Integration:
  aleutian-release analyze "$BRANCH" --strategy hybrid --json --quiet
  (exit codes: 0 success, 1 analysis failed, 2 configuration/git error)`,
	Args: cobra.ExactArgs(1),
	Run:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeBase, "base", "",
		"Base branch to diff against (default from config, normally main)")
	analyzeCmd.Flags().StringVar(&analyzeWorkdir, "workdir", ".",
		"Git repository to analyze")

	analyzeCmd.Flags().StringVar(&analyzeStrategy, "strategy", "",
		"Analysis strategy: conventional, ai, hybrid (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeProvider, "provider", "",
		"AI provider: openai, anthropic, ollama (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "",
		"AI model name (default from config or provider default)")
	analyzeCmd.Flags().Float64Var(&analyzeThreshold, "threshold", -1,
		"Hybrid confidence threshold in [0,1] (default from config)")

	analyzeCmd.Flags().StringVar(&analyzeCurrentVersion, "current-version", "",
		"Current version to increment (default: highest v* git tag)")
	analyzeCmd.Flags().StringVar(&analyzePrerelease, "prerelease", "",
		"Produce a prerelease with this label instead of a stable version")

	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false,
		"Output as JSON for scripting")
	analyzeCmd.Flags().BoolVar(&analyzeQuiet, "quiet", false,
		"Only the next version on stdout, no report")

	rootCmd.AddCommand(analyzeCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// analyzeReport is the JSON output contract of the analyze command.
type analyzeReport struct {
	APIVersion  string                   `json:"api_version"`
	Success     bool                     `json:"success"`
	BaseBranch  string                   `json:"base_branch"`
	Feature     string                   `json:"feature_branch"`
	CurrentVer  string                   `json:"current_version"`
	NextVersion string                   `json:"next_version"`
	Result      *analysis.AnalysisResult `json:"analysis"`
}

const analyzeAPIVersion = "1.0"

func runAnalyze(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	feature := args[0]
	base := analyzeBase
	if base == "" {
		base = config.Global.Branches.Base
	}

	arbiter, err := buildArbiter()
	if err != nil {
		outputAnalyzeError("Invalid configuration", err)
		os.Exit(ExitError)
	}

	collector := gitdiff.NewCollector(analyzeWorkdir)
	diff, err := collector.Collect(ctx, base, feature)
	if err != nil {
		outputAnalyzeError("Failed to collect branch diff", err)
		os.Exit(ExitError)
	}

	current, err := currentVersion(ctx, collector)
	if err != nil {
		outputAnalyzeError("Invalid current version", err)
		os.Exit(ExitError)
	}

	result, err := arbiter.Analyze(ctx, diff)
	if err != nil {
		outputAnalyzeError("Analysis failed", err)
		os.Exit(errorExitCode(err))
	}

	next := nextVersion(current, result.Bump, analyzePrerelease)

	if analyzeQuiet {
		fmt.Println(next.String())
		os.Exit(ExitSuccess)
	}
	if analyzeJSON {
		outputAnalyzeJSON(base, feature, current, next, result)
	} else {
		outputAnalyzeText(base, feature, diff, current, next, result)
	}
	os.Exit(ExitSuccess)
}

// buildArbiter assembles the arbiter from config with flag overrides.
// The AI client is only constructed for strategies that can use it.
func buildArbiter() (*analysis.Arbiter, error) {
	strategyName := analyzeStrategy
	if strategyName == "" {
		strategyName = config.Global.Analysis.Strategy
	}
	strategy, err := analysis.ParseStrategy(strategyName)
	if err != nil {
		return nil, err
	}

	threshold := analyzeThreshold
	if threshold < 0 {
		threshold = config.Global.Analysis.ConfidenceThreshold
	}

	var classifier *analysis.AIClassifier
	if strategy != analysis.StrategyConventional {
		provider := analyzeProvider
		if provider == "" {
			provider = config.Global.Analysis.Provider
		}
		model := analyzeModel
		if model == "" {
			model = config.Global.Analysis.Model
		}

		client, err := llm.New(provider, model)
		if err != nil {
			return nil, err
		}
		classifier = analysis.NewAIClassifier(client, client.Model(), retryPolicyFromConfig())
	}

	return analysis.NewArbiter(strategy, threshold, classifier)
}

// retryPolicyFromConfig maps config retry fields onto a policy,
// falling back to defaults for unparseable durations.
func retryPolicyFromConfig() analysis.RetryPolicy {
	policy := analysis.DefaultRetryPolicy()
	cfg := config.Global.Analysis

	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if d, err := time.ParseDuration(cfg.InitialBackoff); err == nil && d > 0 {
		policy.InitialBackoff = d
	}
	if d, err := time.ParseDuration(cfg.MaxBackoff); err == nil && d >= policy.InitialBackoff {
		policy.MaxBackoff = d
	}
	if cfg.BackoffFactor >= 1 {
		policy.BackoffFactor = cfg.BackoffFactor
	}
	return policy
}

// currentVersion resolves the version being incremented: the
// --current-version flag, else the highest v* tag, else 0.0.0.
func currentVersion(ctx context.Context, collector *gitdiff.Collector) (semver.Version, error) {
	if analyzeCurrentVersion != "" {
		return semver.Parse(analyzeCurrentVersion)
	}

	tag, err := collector.LatestTag(ctx)
	if err != nil || tag == "" {
		return semver.Version{}, nil
	}
	v, err := semver.Parse(tag)
	if err != nil {
		return semver.Version{}, fmt.Errorf("latest tag %q is not a semantic version: %w", tag, err)
	}
	return v, nil
}

// nextVersion combines the bump decision with the current version.
//
// With a prerelease label, a real bump yields the first prerelease of
// the new core (1.2.3 + minor + rc -> 1.3.0-rc.1); a none bump advances
// the prerelease sequence of the current version instead.
func nextVersion(current semver.Version, bump semver.Bump, prereleaseLabel string) semver.Version {
	next := current.Increment(bump)
	if prereleaseLabel == "" {
		return next
	}
	if bump == semver.BumpNone {
		return current.IncrementPrerelease(prereleaseLabel)
	}
	next.Prerelease = prereleaseLabel + ".1"
	return next
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputAnalyzeError(msg string, err error) {
	if analyzeJSON {
		report := map[string]interface{}{
			"api_version": analyzeAPIVersion,
			"success":     false,
			"error":       msg,
		}
		if err != nil {
			report["error"] = fmt.Sprintf("%s: %v", msg, err)
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(report)
	} else {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		}
	}
}

func outputAnalyzeJSON(base, feature string, current, next semver.Version, result *analysis.AnalysisResult) {
	report := analyzeReport{
		APIVersion:  analyzeAPIVersion,
		Success:     true,
		BaseBranch:  base,
		Feature:     feature,
		CurrentVer:  current.String(),
		NextVersion: next.String(),
		Result:      result,
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(ExitError)
	}
}

func outputAnalyzeText(base, feature string, diff *gitdiff.Diff, current, next semver.Version, result *analysis.AnalysisResult) {
	decorated := isatty.IsTerminal(os.Stdout.Fd())

	fmt.Println("Release Analysis")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	fmt.Printf("Branches:  %s -> %s\n", feature, base)
	fmt.Printf("Commits:   %d\n", len(diff.Commits))
	fmt.Printf("Files:     %d (+%d/-%d lines)\n",
		len(diff.Files), diff.TotalAdditions, diff.TotalDeletions)
	if len(diff.Contributors) > 0 {
		fmt.Printf("Authors:   %s\n", strings.Join(diff.Contributors, ", "))
	}

	fmt.Println()
	fmt.Println("Decision:")
	fmt.Printf("  Strategy:  %s\n", result.StrategyUsed)
	fmt.Printf("  Bump:      %s\n", result.Bump)
	if result.Confidence != nil {
		fmt.Printf("  Confidence: %.2f\n", *result.Confidence)
	}
	if result.HasBreaking {
		if decorated {
			fmt.Println("  ⚠ Contains breaking changes")
		} else {
			fmt.Println("  Contains breaking changes")
		}
	}
	fmt.Printf("  Version:   %s -> %s\n", current.String(), next.String())

	if len(result.Reasoning) > 0 {
		fmt.Println()
		fmt.Println("Reasoning:")
		for _, reason := range result.Reasoning {
			fmt.Printf("  - %s\n", reason)
		}
	}

	if len(result.Entries) > 0 {
		fmt.Println()
		fmt.Println("Changelog Entries:")
		for _, entry := range result.Entries {
			line := fmt.Sprintf("  [%s] %s", entry.Category, entry.Description)
			if entry.Scope != "" {
				line = fmt.Sprintf("  [%s] (%s) %s", entry.Category, entry.Scope, entry.Description)
			}
			if entry.PRNumber > 0 {
				line += fmt.Sprintf(" (#%d)", entry.PRNumber)
			}
			fmt.Println(line)
		}
	}

	if result.Metadata.Model != "" {
		fmt.Println()
		fmt.Printf("AI usage: model=%s tokens=%d est_cost=$%.4f\n",
			result.Metadata.Model, result.Metadata.TokensUsed, result.Metadata.EstimatedCostUSD)
	}
}

// errorExitCode maps an analysis error to the CLI exit code.
func errorExitCode(err error) int {
	var cerr *analysis.ConfigError
	var berr *gitdiff.BranchNotFoundError
	if errors.As(err, &cerr) || errors.As(err, &berr) {
		return ExitError
	}
	return ExitAnalysisFailed
}
