// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package changelog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/gitdiff"
	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/semver"
)

// commitTypes is the ordered list of recognized conventional commit
// types. Order matters only for documentation; matching is exact on the
// header type token.
var commitTypes = []string{
	"feat", "fix", "docs", "style", "refactor", "perf",
	"test", "build", "ci", "chore", "revert",
}

var (
	// headerPattern matches "type(scope)!: description" headers.
	headerPattern = regexp.MustCompile(`^([A-Za-z]+)(\(([^)]+)\))?(!)?:\s*(.+)$`)

	// prRefPattern matches trailing pull request references "(#123)".
	prRefPattern = regexp.MustCompile(`\(#(\d+)\)`)

	// issueRefPattern matches issue closing keywords "fixes #45".
	issueRefPattern = regexp.MustCompile(`(?i)(?:close[sd]?|fix(?:e[sd])?|resolve[sd]?)\s+#(\d+)`)
)

// ConventionalCommit is the parsed form of a conventional commit header.
type ConventionalCommit struct {
	Type        string
	Scope       string
	Description string
	IsBreaking  bool
}

// ParseCommit classifies a single commit message.
//
// The type is matched case-insensitively against the conventional commit
// type list; messages that do not follow the convention default to
// "chore" with the whole first line as description. Breaking changes are
// signaled by a "!" before the colon or the literal "BREAKING CHANGE"
// anywhere in the message.
func ParseCommit(message string) ConventionalCommit {
	firstLine := message
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		firstLine = message[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)

	breaking := strings.Contains(message, "BREAKING CHANGE")

	m := headerPattern.FindStringSubmatch(firstLine)
	if m == nil {
		return ConventionalCommit{
			Type:        "chore",
			Description: firstLine,
			IsBreaking:  breaking,
		}
	}

	typ := strings.ToLower(m[1])
	if !knownType(typ) {
		return ConventionalCommit{
			Type:        "chore",
			Description: firstLine,
			IsBreaking:  breaking,
		}
	}

	return ConventionalCommit{
		Type:        typ,
		Scope:       m[3],
		Description: strings.TrimSpace(m[5]),
		IsBreaking:  breaking || m[4] == "!",
	}
}

func knownType(t string) bool {
	for _, known := range commitTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Category maps the parsed commit to a changelog category.
//
// Breaking commits map to the breaking category regardless of type;
// dependency-scoped build/chore commits map to deps.
func (c ConventionalCommit) Category() Category {
	if c.IsBreaking {
		return CategoryBreaking
	}
	if c.Scope == "deps" && (c.Type == "build" || c.Type == "chore") {
		return CategoryDeps
	}
	return Category(c.Type)
}

// DetermineBump infers a version bump from a set of commits.
//
// Any breaking commit forces major; otherwise any feat gives minor; any
// fix gives patch; any commits at all still give patch. Only an empty
// commit list yields none.
func DetermineBump(commits []gitdiff.CommitInfo) semver.Bump {
	if len(commits) == 0 {
		return semver.BumpNone
	}

	hasFeat := false
	for _, commit := range commits {
		parsed := ParseCommit(commit.Message)
		if parsed.IsBreaking {
			return semver.BumpMajor
		}
		if parsed.Type == "feat" {
			hasFeat = true
		}
	}
	if hasFeat {
		return semver.BumpMinor
	}
	return semver.BumpPatch
}

// Classify produces one changelog entry per commit in the diff.
//
// Deterministic and side-effect-free; entries carry confidence 1.
func Classify(diff *gitdiff.Diff) []Entry {
	entries := make([]Entry, 0, len(diff.Commits))
	for _, commit := range diff.Commits {
		parsed := ParseCommit(commit.Message)
		entry := Entry{
			Category:    parsed.Category(),
			Description: parsed.Description,
			CommitSHA:   commit.SHA,
			Author:      commit.AuthorName,
			Scope:       parsed.Scope,
			IssueRefs:   issueRefs(commit.Message),
			Confidence:  1,
		}
		if m := prRefPattern.FindStringSubmatch(commit.Message); m != nil {
			// Strconv cannot fail: the capture group is digits only.
			entry.PRNumber, _ = strconv.Atoi(m[1])
		}
		entries = append(entries, entry)
	}
	return entries
}

// issueRefs extracts "#N" issue references behind closing keywords.
func issueRefs(message string) []string {
	var refs []string
	for _, m := range issueRefPattern.FindAllStringSubmatch(message, -1) {
		refs = append(refs, "#"+m[1])
	}
	return refs
}
