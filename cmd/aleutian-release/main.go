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
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/config"
	"github.com/AleutianAI/aleutian-release/pkg/logging"
)

// Exit codes surfaced to CI pipelines.
const (
	ExitSuccess        = 0 // Analysis produced a result
	ExitAnalysisFailed = 1 // Classification failed (e.g. AI fatal under ai strategy)
	ExitError          = 2 // Configuration or git error
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "aleutian-release",
	Short: "Decide the next semantic version for a branch pair",
	Long: `aleutian-release analyzes the commits and file changes between a base
and a feature branch, categorizes them for a changelog, and decides the
next semantic version using conventional-commit analysis, an AI
classifier, or a hybrid of both.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}

// loggerConfig builds the logging configuration for the process.
// Without --verbose, stderr stays quiet so command output remains
// machine-readable and records go to the configured log dir only.
func loggerConfig(cfg config.ReleaseConfig, verbose bool) logging.Config {
	return logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "aleutian-release",
		Quiet:   !verbose,
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log to stderr in addition to the configured log directory")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if err := config.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(ExitError)
		}

		logger, err := logging.New(loggerConfig(config.Global, verbose))
		if err != nil {
			// Fall back to stderr-only logging rather than refusing to run.
			slog.Warn("Failed to initialize file logging", "error", err)
			return
		}
		slog.SetDefault(logger.Logger)
	}
}
