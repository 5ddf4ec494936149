// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gitdiff collects the difference between two branches as an
// immutable summary: commits, file-level changes, and aggregate stats.
//
// Branch names are resolved through an ordered fallback chain (local
// ref, origin remote ref, fetch) before any diff computation. The only
// side effect in the package is the last-resort fetch; everything else
// is read-only subprocess git.
package gitdiff

import (
	"fmt"
	"time"
)

// FileStatus describes how a file was changed.
//
// Renames and copies are not distinguished at this level; they surface
// as modified. Status is inferred from line counts alone.
type FileStatus string

const (
	StatusAdded    FileStatus = "added"
	StatusModified FileStatus = "modified"
	StatusDeleted  FileStatus = "deleted"
)

// inferStatus derives a FileStatus from line counts.
//
// Pure additions mean a new file, pure deletions a removed one, and
// anything else (including renames and binary changes) is modified.
func inferStatus(additions, deletions int) FileStatus {
	switch {
	case deletions == 0 && additions > 0:
		return StatusAdded
	case additions == 0 && deletions > 0:
		return StatusDeleted
	default:
		return StatusModified
	}
}

// FileChange is one file's line-level change summary.
type FileChange struct {
	Path      string     `json:"path"`
	Status    FileStatus `json:"status"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
}

// CommitInfo is a single commit in the diff range. Created once per
// collection and never mutated.
type CommitInfo struct {
	SHA            string       `json:"sha"`
	Message        string       `json:"message"`
	AuthorName     string       `json:"author_name"`
	AuthorEmail    string       `json:"author_email"`
	AuthorDate     time.Time    `json:"author_date"`
	CommitterName  string       `json:"committer_name"`
	CommitterEmail string       `json:"committer_email"`
	CommitterDate  time.Time    `json:"committer_date"`
	ParentSHAs     []string     `json:"parent_shas"`
	Files          []FileChange `json:"files"`
}

// ShortSHA returns the abbreviated commit hash.
func (c CommitInfo) ShortSHA() string {
	if len(c.SHA) <= 8 {
		return c.SHA
	}
	return c.SHA[:8]
}

// Diff is an immutable summary of all changes reachable from the
// feature branch but not from the base branch.
//
// Commits are ordered newest first. Files is the aggregate
// branch-to-branch stat and drives the summary totals; the per-commit
// Files lists are derived independently and are informational — the two
// sets are not required to agree in shape.
type Diff struct {
	BaseBranch    string       `json:"base_branch"`
	FeatureBranch string       `json:"feature_branch"`
	BaseRef       string       `json:"base_ref"`
	FeatureRef    string       `json:"feature_ref"`
	Commits       []CommitInfo `json:"commits"`
	Files         []FileChange `json:"files"`

	TotalAdditions int `json:"total_additions"`
	TotalDeletions int `json:"total_deletions"`

	// OldestCommit and NewestCommit bound the author-date range;
	// zero when the diff has no commits.
	OldestCommit time.Time `json:"oldest_commit,omitzero"`
	NewestCommit time.Time `json:"newest_commit,omitzero"`

	// Contributors is the distinct set of "Name <email>" identities,
	// in first-seen order.
	Contributors []string `json:"contributors"`
}

// BranchNotFoundError reports a branch that could not be resolved
// locally, on the origin remote, or by fetching.
type BranchNotFoundError struct {
	Branch string
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("branch %q not found locally, on origin, or via fetch", e.Branch)
}
