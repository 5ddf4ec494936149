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
	"fmt"
	"strings"

	"github.com/AleutianAI/aleutian-release/cmd/aleutian-release/internal/gitdiff"
)

// promptSchema is the fixed response contract sent to the provider.
const promptSchema = `{
  "bump": "major|minor|patch",
  "confidence": 0.0,
  "reasoning": ["..."],
  "changes": [
    {
      "category": "breaking|feat|fix|perf|refactor|docs|style|test|build|ci|chore|revert|deps",
      "description": "...",
      "commitSha": "...",
      "author": "...",
      "isBreaking": false,
      "scope": "",
      "confidence": 0.0
    }
  ]
}`

// BuildPrompt renders the classification prompt for a diff.
//
// The output is deterministic given the diff: commits in diff order with
// truncated shas, every aggregate file change with line counts, totals,
// and the contributor count, followed by the fixed JSON schema the
// provider must return.
func BuildPrompt(diff *gitdiff.Diff) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a release engineer. Analyze the changes on branch %q relative to %q and decide the semantic version bump.\n\n",
		diff.FeatureBranch, diff.BaseBranch)

	fmt.Fprintf(&b, "Commits (%d, newest first):\n", len(diff.Commits))
	for _, c := range diff.Commits {
		fmt.Fprintf(&b, "- [%s] %s\n", c.ShortSHA(), firstLine(c.Message))
	}

	fmt.Fprintf(&b, "\nFile changes (%d files):\n", len(diff.Files))
	for _, f := range diff.Files {
		fmt.Fprintf(&b, "- %s (%s, +%d/-%d)\n", f.Path, f.Status, f.Additions, f.Deletions)
	}

	fmt.Fprintf(&b, "\nTotals: +%d/-%d lines across %d commits by %d contributors.\n",
		diff.TotalAdditions, diff.TotalDeletions, len(diff.Commits), len(diff.Contributors))

	b.WriteString("\nRespond with ONLY a JSON object matching this schema, no prose before or after:\n")
	b.WriteString(promptSchema)
	b.WriteString("\n\nRules: bump must reflect the most significant change (breaking=major, new feature=minor, fix=patch). Every change must reference one of the listed commit shas. Confidence values must lie in [0,1].\n")

	return b.String()
}

// firstLine returns the subject line of a commit message.
func firstLine(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		return strings.TrimSpace(message[:idx])
	}
	return strings.TrimSpace(message)
}
