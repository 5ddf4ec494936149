// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package changelog categorizes commits into changelog entries.
//
// The deterministic classifier in this package follows the conventional
// commit grammar (type(scope)!: description) and is the fallback / default
// strategy of the release engine: pure string work, no side effects.
package changelog

import "strings"

// Category is the closed set of changelog change categories.
type Category string

const (
	CategoryBreaking Category = "breaking"
	CategoryFeat     Category = "feat"
	CategoryFix      Category = "fix"
	CategoryPerf     Category = "perf"
	CategoryRefactor Category = "refactor"
	CategoryDocs     Category = "docs"
	CategoryStyle    Category = "style"
	CategoryTest     Category = "test"
	CategoryBuild    Category = "build"
	CategoryCI       Category = "ci"
	CategoryChore    Category = "chore"
	CategoryRevert   Category = "revert"
	CategoryDeps     Category = "deps"
)

// Categories lists every valid category, in changelog display order.
var Categories = []Category{
	CategoryBreaking,
	CategoryFeat,
	CategoryFix,
	CategoryPerf,
	CategoryRefactor,
	CategoryDocs,
	CategoryStyle,
	CategoryTest,
	CategoryBuild,
	CategoryCI,
	CategoryChore,
	CategoryRevert,
	CategoryDeps,
}

// ValidCategory reports whether s names a known category.
func ValidCategory(s string) bool {
	c := Category(strings.ToLower(s))
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Entry is a single categorized change destined for the changelog.
//
// Produced by either classifier (conventional or AI) and consumed by the
// changelog store collaborator outside this engine.
type Entry struct {
	Category    Category `json:"category"`
	Description string   `json:"description"`
	CommitSHA   string   `json:"commit_sha"`
	Author      string   `json:"author"`
	Scope       string   `json:"scope,omitempty"`
	PRNumber    int      `json:"pr_number,omitempty"`
	IssueRefs   []string `json:"issue_refs,omitempty"`

	// Confidence is the classifier's trust in this entry, in [0,1].
	// The conventional classifier always reports 1.
	Confidence float64 `json:"confidence"`
}
