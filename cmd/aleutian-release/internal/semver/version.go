// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package semver models semantic versions for release decisions.
//
// Version is an immutable value type: every transformation (Increment,
// IncrementPrerelease, PromoteToStable) returns a new Version.
//
// The comparison and range rules here are intentionally simpler than the
// full SemVer 2.0 specification: prerelease strings compare as plain
// strings rather than identifier-by-identifier, and range satisfaction
// supports only caret, tilde, and exact forms. See Compare and Satisfies.
package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	xsemver "golang.org/x/mod/semver"
)

// identifierPattern is the grammar for prerelease and build token
// sequences: dot-separated alphanumeric (plus hyphen) tokens.
var identifierPattern = regexp.MustCompile(`^[0-9A-Za-z-]+(\.[0-9A-Za-z-]+)*$`)

// Soft upper bounds for version components. Exceeding them is suspicious
// (usually a parsing accident upstream) but not an error.
const (
	softMaxMajor = 999
	softMaxMinor = 99
	softMaxPatch = 999
)

// VersionError describes a malformed version string or an invalid
// version operation. There is no recovery: the analyzer cannot guess
// what the caller meant.
type VersionError struct {
	Input  string
	Reason string
}

func (e *VersionError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("invalid version: %s", e.Reason)
	}
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

// Bump is the magnitude of a version increment.
type Bump string

const (
	BumpMajor Bump = "major"
	BumpMinor Bump = "minor"
	BumpPatch Bump = "patch"
	BumpNone  Bump = "none"
)

// ParseBump converts a string to a Bump.
func ParseBump(s string) (Bump, error) {
	switch strings.ToLower(s) {
	case "major":
		return BumpMajor, nil
	case "minor":
		return BumpMinor, nil
	case "patch":
		return BumpPatch, nil
	case "none", "":
		return BumpNone, nil
	default:
		return BumpNone, fmt.Errorf("unknown version bump %q", s)
	}
}

// Version is an immutable semantic version value.
//
// Invariants: Major, Minor, Patch are never negative; Prerelease and
// Build, when non-empty, match the dot-separated alphanumeric grammar.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Build      string
}

// Parse parses a version string into a Version.
//
// Accepts an optional leading "v" and the strict
// MAJOR.MINOR.PATCH[-prerelease][+build] grammar. Leading zeros in
// numeric components are tolerated and normalized away.
//
// # Outputs
//
//   - Version: The parsed version.
//   - error: *VersionError on empty input, wrong arity, non-numeric or
//     negative core components, or malformed prerelease/build.
func Parse(input string) (Version, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Version{}, &VersionError{Input: input, Reason: "empty version string"}
	}
	s = strings.TrimPrefix(s, "v")

	var build string
	if idx := strings.Index(s, "+"); idx >= 0 {
		s, build = s[:idx], s[idx+1:]
		if build == "" || !identifierPattern.MatchString(build) {
			return Version{}, &VersionError{Input: input, Reason: "malformed build metadata"}
		}
	}

	var prerelease string
	if idx := strings.Index(s, "-"); idx >= 0 {
		s, prerelease = s[:idx], s[idx+1:]
		if prerelease == "" || !identifierPattern.MatchString(prerelease) {
			return Version{}, &VersionError{Input: input, Reason: "malformed prerelease"}
		}
	}

	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, &VersionError{
			Input:  input,
			Reason: fmt.Sprintf("expected MAJOR.MINOR.PATCH, got %d component(s)", len(parts)),
		}
	}

	nums := make([]int, 3)
	for i, p := range parts {
		// strconv.Atoi accepts a sign prefix; semver core components do not.
		if p == "" || strings.HasPrefix(p, "-") || strings.HasPrefix(p, "+") {
			return Version{}, &VersionError{Input: input, Reason: "core components must be non-negative integers"}
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, &VersionError{Input: input, Reason: fmt.Sprintf("non-numeric component %q", p)}
		}
		if n < 0 {
			return Version{}, &VersionError{Input: input, Reason: "core components must be non-negative"}
		}
		nums[i] = n
	}

	return Version{
		Major:      nums[0],
		Minor:      nums[1],
		Patch:      nums[2],
		Prerelease: prerelease,
		Build:      build,
	}, nil
}

// String formats the version as MAJOR.MINOR.PATCH[-prerelease][+build].
func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		b.WriteByte('-')
		b.WriteString(v.Prerelease)
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(v.Build)
	}
	return b.String()
}

// Increment returns a new version advanced by the given bump.
//
// major -> (M+1, 0, 0); minor -> (M, m+1, 0); patch -> (M, m, p+1);
// none -> identity copy. Any increment strips prerelease and build.
func (v Version) Increment(bump Bump) Version {
	switch bump {
	case BumpMajor:
		return Version{Major: v.Major + 1}
	case BumpMinor:
		return Version{Major: v.Major, Minor: v.Minor + 1}
	case BumpPatch:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	default:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch, Prerelease: v.Prerelease, Build: v.Build}
	}
}

// IncrementPrerelease returns the next prerelease of the version under
// the given label.
//
// No existing prerelease: bumps patch and starts at "label.1". An
// existing prerelease of the same label: increments its trailing number.
// A different or malformed existing prerelease: resets to "label.1"
// without touching the core. Build metadata is always dropped.
func (v Version) IncrementPrerelease(label string) Version {
	if v.Prerelease == "" {
		return Version{
			Major:      v.Major,
			Minor:      v.Minor,
			Patch:      v.Patch + 1,
			Prerelease: label + ".1",
		}
	}

	next := Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch, Prerelease: label + ".1"}

	idx := strings.LastIndex(v.Prerelease, ".")
	if idx < 0 {
		return next
	}
	if v.Prerelease[:idx] != label {
		return next
	}
	n, err := strconv.Atoi(v.Prerelease[idx+1:])
	if err != nil || n < 0 {
		// Malformed trailing number is treated as absent.
		return next
	}
	next.Prerelease = fmt.Sprintf("%s.%d", label, n+1)
	return next
}

// PromoteToStable strips prerelease and build metadata.
//
// Fails with *VersionError when the version has no prerelease: an
// already-stable version cannot be promoted.
func (v Version) PromoteToStable() (Version, error) {
	if v.Prerelease == "" {
		return Version{}, &VersionError{Input: v.String(), Reason: "cannot promote a stable version"}
	}
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch}, nil
}

// Compare returns -1, 0, or +1 ordering a against b.
//
// Core components compare lexicographically. With equal cores, a stable
// version outranks a prerelease of the same core. Two prereleases
// compare as plain strings; this is not SemVer-identifier-aware, a
// documented simplification.
func Compare(a, b Version) int {
	if c := compareInt(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareInt(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareInt(a.Patch, b.Patch); c != 0 {
		return c
	}
	switch {
	case a.Prerelease == "" && b.Prerelease == "":
		return 0
	case a.Prerelease == "":
		return 1
	case b.Prerelease == "":
		return -1
	default:
		return strings.Compare(a.Prerelease, b.Prerelease)
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Validate checks the version's invariants.
//
// # Outputs
//
//   - []string: Warnings for components above the soft thresholds
//     (major > 999, minor > 99, patch > 999) and for forms the
//     golang.org/x/mod canonical check rejects.
//   - error: *VersionError for negative components or malformed
//     prerelease/build metadata.
func (v Version) Validate() ([]string, error) {
	if v.Major < 0 || v.Minor < 0 || v.Patch < 0 {
		return nil, &VersionError{Input: v.String(), Reason: "components must be non-negative"}
	}
	if v.Prerelease != "" && !identifierPattern.MatchString(v.Prerelease) {
		return nil, &VersionError{Input: v.String(), Reason: "malformed prerelease"}
	}
	if v.Build != "" && !identifierPattern.MatchString(v.Build) {
		return nil, &VersionError{Input: v.String(), Reason: "malformed build metadata"}
	}

	var warnings []string
	if v.Major > softMaxMajor {
		warnings = append(warnings, fmt.Sprintf("major version %d exceeds %d", v.Major, softMaxMajor))
	}
	if v.Minor > softMaxMinor {
		warnings = append(warnings, fmt.Sprintf("minor version %d exceeds %d", v.Minor, softMaxMinor))
	}
	if v.Patch > softMaxPatch {
		warnings = append(warnings, fmt.Sprintf("patch version %d exceeds %d", v.Patch, softMaxPatch))
	}
	if !xsemver.IsValid("v" + v.String()) {
		warnings = append(warnings, "version is not canonical per golang.org/x/mod/semver")
	}
	return warnings, nil
}

// Satisfies reports whether the version satisfies a simplified range
// constraint.
//
// Supported forms: "^X.Y.Z" (same major, version >= target), "~X.Y.Z"
// (same major and minor, version >= target), and "X.Y.Z" (exact). This
// is intentionally not full SemVer range semantics.
func (v Version) Satisfies(constraint string) (bool, error) {
	c := strings.TrimSpace(constraint)
	if c == "" {
		return false, &VersionError{Input: constraint, Reason: "empty range constraint"}
	}

	op := ""
	if strings.HasPrefix(c, "^") || strings.HasPrefix(c, "~") {
		op, c = c[:1], c[1:]
	}

	target, err := Parse(c)
	if err != nil {
		return false, err
	}

	switch op {
	case "^":
		return v.Major == target.Major && Compare(v, target) >= 0, nil
	case "~":
		return v.Major == target.Major && v.Minor == target.Minor && Compare(v, target) >= 0, nil
	default:
		return Compare(v, target) == 0, nil
	}
}
