// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gitdiff

import (
	"context"
	"fmt"
	"log/slog"
)

// Collector gathers the complete change set between two branches.
//
// # Thread Safety
//
// Collector is safe for concurrent use.
type Collector struct {
	git *GitClient
}

// NewCollector creates a Collector operating on the given repository
// directory.
func NewCollector(workDir string) *Collector {
	return &Collector{git: NewGitClient(workDir)}
}

// Collect builds a Diff describing every commit and file change on the
// feature branch that is not on the base branch.
//
// Both branches are resolved before any diffing happens, so a missing
// branch fails fast with a *BranchNotFoundError. A feature branch that
// is fully merged (or identical to base) yields a Diff with no commits
// and no files, which is valid input for downstream analysis.
//
// # Inputs
//
//   - ctx: Context for cancellation of the underlying git commands.
//   - baseBranch: The branch being merged into (e.g. "main").
//   - featureBranch: The branch being analyzed.
//
// # Outputs
//
//   - *Diff: The collected change set.
//   - error: Branch resolution or git parsing failure.
func (c *Collector) Collect(ctx context.Context, baseBranch, featureBranch string) (*Diff, error) {
	if !c.git.IsGitRepo() {
		return nil, fmt.Errorf("not a git repository")
	}

	baseRef, err := c.git.ResolveBranch(ctx, baseBranch)
	if err != nil {
		return nil, fmt.Errorf("resolving base branch: %w", err)
	}
	featureRef, err := c.git.ResolveBranch(ctx, featureBranch)
	if err != nil {
		return nil, fmt.Errorf("resolving feature branch: %w", err)
	}

	commits, err := c.git.ListCommits(ctx, baseRef, featureRef)
	if err != nil {
		return nil, fmt.Errorf("listing commits: %w", err)
	}

	files, err := c.git.DiffStat(ctx, baseRef, featureRef)
	if err != nil {
		return nil, fmt.Errorf("computing diff stat: %w", err)
	}

	d := &Diff{
		BaseBranch:    baseBranch,
		FeatureBranch: featureBranch,
		BaseRef:       baseRef,
		FeatureRef:    featureRef,
		Commits:       commits,
		Files:         files,
	}
	summarize(d)

	slog.Info("Collected branch diff",
		"base", baseRef,
		"feature", featureRef,
		"commits", len(d.Commits),
		"files", len(d.Files),
		"additions", d.TotalAdditions,
		"deletions", d.TotalDeletions)

	return d, nil
}

// LatestTag returns the repository's highest v-prefixed tag, or ""
// when no version tag exists.
func (c *Collector) LatestTag(ctx context.Context) (string, error) {
	return c.git.LatestTag(ctx)
}

// summarize fills the derived fields of a Diff: line totals from the
// aggregate file list, the commit date range, and the distinct
// contributor list in first-seen order.
func summarize(d *Diff) {
	for _, f := range d.Files {
		d.TotalAdditions += f.Additions
		d.TotalDeletions += f.Deletions
	}

	seen := make(map[string]bool)
	for _, c := range d.Commits {
		if d.OldestCommit.IsZero() || c.AuthorDate.Before(d.OldestCommit) {
			d.OldestCommit = c.AuthorDate
		}
		if c.AuthorDate.After(d.NewestCommit) {
			d.NewestCommit = c.AuthorDate
		}

		contributor := fmt.Sprintf("%s <%s>", c.AuthorName, c.AuthorEmail)
		if !seen[contributor] {
			seen[contributor] = true
			d.Contributors = append(d.Contributors, contributor)
		}
	}
}
