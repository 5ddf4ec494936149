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
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/semver"
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Semantic version operations",
	Long: `Operations on semantic version strings: increment, prerelease
management, promotion, comparison, and validation.

All subcommands accept versions with or without a leading "v".`,
}

var versionBumpCmd = &cobra.Command{
	Use:   "bump <version> <major|minor|patch|none>",
	Short: "Increment a version",
	Long: `Increment a version by the given magnitude. Prerelease and build
metadata are always dropped from the result.

Examples:
  aleutian-release version bump 1.2.3 minor          -> 1.3.0
  aleutian-release version bump v2.0.0-rc.1 major    -> 3.0.0`,
	Args: cobra.ExactArgs(2),
	Run:  runVersionBump,
}

var versionPrereleaseCmd = &cobra.Command{
	Use:   "prerelease <version> <label>",
	Short: "Start or advance a prerelease",
	Long: `Advance the prerelease of a version. A stable version gets its patch
incremented and the first prerelease of the label; a matching label with
a numeric tail is advanced by one; a different label restarts at 1.

Examples:
  aleutian-release version prerelease 1.2.3 rc        -> 1.2.4-rc.1
  aleutian-release version prerelease 1.2.4-rc.1 rc   -> 1.2.4-rc.2
  aleutian-release version prerelease 1.2.4-rc.2 beta -> 1.2.4-beta.1`,
	Args: cobra.ExactArgs(2),
	Run:  runVersionPrerelease,
}

var versionPromoteCmd = &cobra.Command{
	Use:   "promote <version>",
	Short: "Promote a prerelease to stable",
	Long: `Strip the prerelease and build metadata from a version. Promoting a
version that is already stable is an error.

Examples:
  aleutian-release version promote 1.2.3-rc.2  -> 1.2.3`,
	Args: cobra.ExactArgs(1),
	Run:  runVersionPromote,
}

var versionCompareCmd = &cobra.Command{
	Use:   "compare <a> <b>",
	Short: "Compare two versions",
	Long: `Compare two versions by precedence. Prints -1, 0, or 1 as a is lower
than, equal to, or higher than b. A stable version outranks a prerelease
with the same core.`,
	Args: cobra.ExactArgs(2),
	Run:  runVersionCompare,
}

var versionValidateCmd = &cobra.Command{
	Use:   "validate <version>",
	Short: "Validate a version string",
	Long: `Check a version string for validity. Soft limits (very large
components) produce warnings without failing validation.`,
	Args: cobra.ExactArgs(1),
	Run:  runVersionValidate,
}

func init() {
	versionCmd.AddCommand(versionBumpCmd)
	versionCmd.AddCommand(versionPrereleaseCmd)
	versionCmd.AddCommand(versionPromoteCmd)
	versionCmd.AddCommand(versionCompareCmd)
	versionCmd.AddCommand(versionValidateCmd)
	rootCmd.AddCommand(versionCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runVersionBump(cmd *cobra.Command, args []string) {
	v := mustParseVersion(args[0])
	bump, err := semver.ParseBump(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
	fmt.Println(v.Increment(bump).String())
}

func runVersionPrerelease(cmd *cobra.Command, args []string) {
	v := mustParseVersion(args[0])
	fmt.Println(v.IncrementPrerelease(args[1]).String())
}

func runVersionPromote(cmd *cobra.Command, args []string) {
	v := mustParseVersion(args[0])
	promoted, err := v.PromoteToStable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
	fmt.Println(promoted.String())
}

func runVersionCompare(cmd *cobra.Command, args []string) {
	a := mustParseVersion(args[0])
	b := mustParseVersion(args[1])
	fmt.Println(semver.Compare(a, b))
}

func runVersionValidate(cmd *cobra.Command, args []string) {
	v, err := semver.Parse(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitAnalysisFailed)
	}
	warnings, err := v.Validate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitAnalysisFailed)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	fmt.Printf("%s is a valid semantic version\n", v.String())
}

func mustParseVersion(s string) semver.Version {
	v, err := semver.Parse(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
	return v
}
