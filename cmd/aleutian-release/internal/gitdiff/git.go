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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/go-diff/diff"
)

// Field and record separators for git log parsing. Unit/record
// separator control characters cannot appear in commit metadata.
const (
	logFieldSep  = "\x1f"
	logRecordSep = "\x1e"
)

// logFormat captures sha, parents, author, committer, raw body, and a
// trailing field separator so numstat lines can be split off cleanly.
const logFormat = "%x1e%H%x1f%P%x1f%an%x1f%ae%x1f%aI%x1f%cn%x1f%ce%x1f%cI%x1f%B%x1f"

// GitClient runs git operations for branch diff collection.
//
// # Thread Safety
//
// GitClient is safe for concurrent use.
type GitClient struct {
	workDir string
}

// NewGitClient creates a GitClient for the given working directory.
func NewGitClient(workDir string) *GitClient {
	return &GitClient{workDir: workDir}
}

// IsGitRepo checks if the working directory is a git repository.
func (g *GitClient) IsGitRepo() bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = g.workDir
	return cmd.Run() == nil
}

// ResolveBranch resolves a branch name to a usable ref.
//
// Resolution order: local branch, remote-tracking origin/<name>, and as
// a last resort a fetch of <name> into a local branch of the same name.
// The fetch is the only step with a side effect.
//
// # Outputs
//
//   - string: The ref to use in diff commands (name or "origin/<name>").
//   - error: *BranchNotFoundError when all three steps fail.
func (g *GitClient) ResolveBranch(ctx context.Context, name string) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("ctx must not be nil")
	}

	if g.refExists(ctx, "refs/heads/"+name) {
		return name, nil
	}

	remote := "origin/" + name
	if g.refExists(ctx, "refs/remotes/"+remote) {
		slog.Debug("Branch resolved via remote-tracking ref", "branch", name, "ref", remote)
		return remote, nil
	}

	slog.Info("Branch not found locally, attempting fetch", "branch", name)
	if err := g.fetchBranch(ctx, name); err == nil && g.refExists(ctx, "refs/heads/"+name) {
		return name, nil
	}

	return "", &BranchNotFoundError{Branch: name}
}

// refExists checks whether a fully qualified ref resolves.
func (g *GitClient) refExists(ctx context.Context, ref string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--verify", "--quiet", ref)
	cmd.Dir = g.workDir
	return cmd.Run() == nil
}

// fetchBranch fetches a branch from origin into a local ref of the
// same name.
func (g *GitClient) fetchBranch(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, "git", "fetch", "origin", name+":"+name)
	cmd.Dir = g.workDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("fetching branch %q: %w: %s", name, err, stderr.String())
	}
	return nil
}

// ListCommits returns the commits reachable from featureRef but not
// from baseRef, newest first, each with its own commit-level file stat.
func (g *GitClient) ListCommits(ctx context.Context, baseRef, featureRef string) ([]CommitInfo, error) {
	out, err := g.run(ctx,
		"log", "--numstat", "--pretty=format:"+logFormat,
		baseRef+".."+featureRef)
	if err != nil {
		return nil, err
	}
	return parseLog(out)
}

// DiffStat returns the aggregate branch-to-branch file changes for the
// base-exclusive, feature-inclusive range (three-dot diff against the
// merge base).
func (g *GitClient) DiffStat(ctx context.Context, baseRef, featureRef string) ([]FileChange, error) {
	out, err := g.run(ctx, "diff", baseRef+"..."+featureRef)
	if err != nil {
		return nil, err
	}
	return parseAggregateDiff(out)
}

// LatestTag returns the highest v-prefixed version tag, or "" when the
// repository has none.
func (g *GitClient) LatestTag(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "tag", "--list", "v*", "--sort=-v:refname")
	if err != nil {
		return "", err
	}
	lines := strings.SplitN(strings.TrimSpace(out), "\n", 2)
	if len(lines) == 0 || lines[0] == "" {
		return "", nil
	}
	return lines[0], nil
}

// run executes a git command and returns stdout.
func (g *GitClient) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

// parseLog parses git log output in logFormat with numstat blocks.
func parseLog(output string) ([]CommitInfo, error) {
	var commits []CommitInfo

	for _, record := range strings.Split(output, logRecordSep) {
		if strings.TrimSpace(record) == "" {
			continue
		}

		fields := strings.Split(record, logFieldSep)
		if len(fields) < 10 {
			return nil, fmt.Errorf("parsing git log: expected 10 fields, got %d", len(fields))
		}

		authorDate, err := time.Parse(time.RFC3339, fields[4])
		if err != nil {
			return nil, fmt.Errorf("parsing author date %q: %w", fields[4], err)
		}
		committerDate, err := time.Parse(time.RFC3339, fields[7])
		if err != nil {
			return nil, fmt.Errorf("parsing committer date %q: %w", fields[7], err)
		}

		commit := CommitInfo{
			SHA:            fields[0],
			Message:        strings.TrimSpace(fields[8]),
			AuthorName:     fields[2],
			AuthorEmail:    fields[3],
			AuthorDate:     authorDate,
			CommitterName:  fields[5],
			CommitterEmail: fields[6],
			CommitterDate:  committerDate,
			ParentSHAs:     splitParents(fields[1]),
			Files:          parseNumstat(fields[9]),
		}
		commits = append(commits, commit)
	}

	return commits, nil
}

func splitParents(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

// parseNumstat parses "additions\tdeletions\tpath" lines. Binary files
// report "-" counts and are recorded with zero lines.
func parseNumstat(block string) []FileChange {
	var changes []FileChange

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		additions, _ := strconv.Atoi(parts[0]) // "-" for binary yields 0
		deletions, _ := strconv.Atoi(parts[1])

		changes = append(changes, FileChange{
			Path:      filepath.ToSlash(parts[2]),
			Status:    inferStatus(additions, deletions),
			Additions: additions,
			Deletions: deletions,
		})
	}

	return changes
}

// parseAggregateDiff parses a unified branch-to-branch patch into
// per-file line counts.
//
// Statuses are still inferred from the counts alone, so renames and
// copies surface as modified even though the patch names both sides.
func parseAggregateDiff(patch string) ([]FileChange, error) {
	if strings.TrimSpace(patch) == "" {
		return nil, nil
	}

	fileDiffs, err := diff.ParseMultiFileDiff([]byte(patch))
	if err != nil {
		return nil, fmt.Errorf("parsing branch diff: %w", err)
	}

	changes := make([]FileChange, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		stat := fd.Stat()
		additions := int(stat.Added + stat.Changed)
		deletions := int(stat.Deleted + stat.Changed)

		changes = append(changes, FileChange{
			Path:      diffPath(fd),
			Status:    inferStatus(additions, deletions),
			Additions: additions,
			Deletions: deletions,
		})
	}

	return changes, nil
}

// diffPath picks the post-image path of a file diff, falling back to
// the pre-image for deletions, and strips the a/ b/ prefixes.
func diffPath(fd *diff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	name = strings.TrimPrefix(name, "a/")
	name = strings.TrimPrefix(name, "b/")
	return filepath.ToSlash(name)
}
