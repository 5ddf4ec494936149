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
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func TestInferStatus(t *testing.T) {
	tests := []struct {
		name      string
		additions int
		deletions int
		want      FileStatus
	}{
		{"pure additions is added", 42, 0, StatusAdded},
		{"pure deletions is deleted", 0, 17, StatusDeleted},
		{"mixed is modified", 10, 3, StatusModified},
		{"no changes is modified", 0, 0, StatusModified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inferStatus(tt.additions, tt.deletions); got != tt.want {
				t.Errorf("inferStatus(%d, %d) = %q, want %q",
					tt.additions, tt.deletions, got, tt.want)
			}
		})
	}
}

func TestParseLog(t *testing.T) {
	record := logRecordSep +
		"a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2" + logFieldSep +
		"0000000000000000000000000000000000000000" + logFieldSep +
		"Ada Lovelace" + logFieldSep +
		"ada@example.com" + logFieldSep +
		"2025-03-01T10:00:00Z" + logFieldSep +
		"Ada Lovelace" + logFieldSep +
		"ada@example.com" + logFieldSep +
		"2025-03-01T10:05:00Z" + logFieldSep +
		"feat(api): add pagination\n\nCloses #42\n" + logFieldSep +
		"\n12\t0\tinternal/api/page.go\n3\t1\tinternal/api/page_test.go\n"

	commits, err := parseLog(record)
	if err != nil {
		t.Fatalf("parseLog() error = %v", err)
	}
	if len(commits) != 1 {
		t.Fatalf("parseLog() returned %d commits, want 1", len(commits))
	}

	c := commits[0]
	if c.ShortSHA() != "a1b2c3d4" {
		t.Errorf("ShortSHA() = %q, want %q", c.ShortSHA(), "a1b2c3d4")
	}
	if !strings.HasPrefix(c.Message, "feat(api): add pagination") {
		t.Errorf("Message = %q, want conventional header preserved", c.Message)
	}
	if c.AuthorName != "Ada Lovelace" || c.AuthorEmail != "ada@example.com" {
		t.Errorf("author = %q <%q>", c.AuthorName, c.AuthorEmail)
	}
	wantDate := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if !c.AuthorDate.Equal(wantDate) {
		t.Errorf("AuthorDate = %v, want %v", c.AuthorDate, wantDate)
	}
	if len(c.Files) != 2 {
		t.Fatalf("Files count = %d, want 2", len(c.Files))
	}
	if c.Files[0].Path != "internal/api/page.go" || c.Files[0].Additions != 12 {
		t.Errorf("Files[0] = %+v", c.Files[0])
	}
	if c.Files[0].Status != StatusAdded {
		t.Errorf("Files[0].Status = %q, want %q", c.Files[0].Status, StatusAdded)
	}
}

func TestParseLog_MultipleRecords(t *testing.T) {
	rec := func(sha string) string {
		return logRecordSep + sha + logFieldSep + "" + logFieldSep +
			"Dev" + logFieldSep + "dev@example.com" + logFieldSep +
			"2025-01-02T00:00:00Z" + logFieldSep +
			"Dev" + logFieldSep + "dev@example.com" + logFieldSep +
			"2025-01-02T00:00:00Z" + logFieldSep +
			"fix: thing" + logFieldSep + "\n1\t1\tmain.go\n"
	}

	commits, err := parseLog(rec("aaaa1111aaaa1111") + rec("bbbb2222bbbb2222"))
	if err != nil {
		t.Fatalf("parseLog() error = %v", err)
	}
	if len(commits) != 2 {
		t.Fatalf("parseLog() returned %d commits, want 2", len(commits))
	}
	if commits[1].SHA != "bbbb2222bbbb2222" {
		t.Errorf("second SHA = %q", commits[1].SHA)
	}
}

func TestParseLog_Malformed(t *testing.T) {
	_, err := parseLog(logRecordSep + "abc" + logFieldSep + "only two fields")
	if err == nil {
		t.Error("parseLog() expected error for truncated record")
	}
}

func TestParseLog_Empty(t *testing.T) {
	commits, err := parseLog("")
	if err != nil {
		t.Fatalf("parseLog(\"\") error = %v", err)
	}
	if len(commits) != 0 {
		t.Errorf("parseLog(\"\") returned %d commits, want 0", len(commits))
	}
}

func TestParseNumstat_BinaryFiles(t *testing.T) {
	changes := parseNumstat("-\t-\tassets/logo.png\n5\t2\tREADME.md\n")
	if len(changes) != 2 {
		t.Fatalf("parseNumstat() returned %d changes, want 2", len(changes))
	}
	if changes[0].Additions != 0 || changes[0].Deletions != 0 {
		t.Errorf("binary file counts = +%d/-%d, want 0/0",
			changes[0].Additions, changes[0].Deletions)
	}
	if changes[1].Path != "README.md" || changes[1].Additions != 5 {
		t.Errorf("changes[1] = %+v", changes[1])
	}
}

func TestSplitParents(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"root commit", "", 0},
		{"single parent", "abc123", 1},
		{"merge commit", "abc123 def456", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitParents(tt.input); len(got) != tt.want {
				t.Errorf("splitParents(%q) = %v, want %d parents", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAggregateDiff(t *testing.T) {
	patch := `diff --git a/internal/api/page.go b/internal/api/page.go
new file mode 100644
index 0000000..1111111
--- /dev/null
+++ b/internal/api/page.go
@@ -0,0 +1,3 @@
+package api
+
+type Page struct{}
diff --git a/old.go b/old.go
deleted file mode 100644
index 2222222..0000000
--- a/old.go
+++ /dev/null
@@ -1,2 +0,0 @@
-package main
-
`

	changes, err := parseAggregateDiff(patch)
	if err != nil {
		t.Fatalf("parseAggregateDiff() error = %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("parseAggregateDiff() returned %d files, want 2", len(changes))
	}

	if changes[0].Path != "internal/api/page.go" {
		t.Errorf("changes[0].Path = %q", changes[0].Path)
	}
	if changes[0].Status != StatusAdded || changes[0].Additions != 3 {
		t.Errorf("changes[0] = %+v, want added with 3 additions", changes[0])
	}

	if changes[1].Path != "old.go" {
		t.Errorf("changes[1].Path = %q, want pre-image path for deletion", changes[1].Path)
	}
	if changes[1].Status != StatusDeleted || changes[1].Deletions != 2 {
		t.Errorf("changes[1] = %+v, want deleted with 2 deletions", changes[1])
	}
}

func TestParseAggregateDiff_Empty(t *testing.T) {
	changes, err := parseAggregateDiff("")
	if err != nil {
		t.Fatalf("parseAggregateDiff(\"\") error = %v", err)
	}
	if changes != nil {
		t.Errorf("parseAggregateDiff(\"\") = %v, want nil", changes)
	}
}

func TestBranchNotFoundError(t *testing.T) {
	err := &BranchNotFoundError{Branch: "feature/missing"}
	if !strings.Contains(err.Error(), "feature/missing") {
		t.Errorf("Error() = %q, want branch name included", err.Error())
	}
}

// initTestRepo creates a git repository with one commit on main.
func initTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %s: %v: %s", strings.Join(args, " "), err, out)
		}
	}

	run("init", "--initial-branch=main")
	run("config", "user.name", "Test")
	run("config", "user.email", "test@example.com")
	run("commit", "--allow-empty", "-m", "chore: initial commit")
	return dir
}

func TestResolveBranch(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := initTestRepo(t)
	git := NewGitClient(dir)
	ctx := context.Background()

	// A remote-tracking ref with no matching local branch. There is no
	// real remote, so a hit must come from the ref itself, not a fetch.
	cmd := exec.Command("git", "update-ref", "refs/remotes/origin/remote-only", "HEAD")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("creating remote-tracking ref: %v: %s", err, out)
	}

	t.Run("local branch resolves to itself", func(t *testing.T) {
		ref, err := git.ResolveBranch(ctx, "main")
		if err != nil {
			t.Fatalf("ResolveBranch(main) error = %v", err)
		}
		if ref != "main" {
			t.Errorf("ref = %q, want %q", ref, "main")
		}
	})

	t.Run("remote-tracking ref resolves without fetching", func(t *testing.T) {
		ref, err := git.ResolveBranch(ctx, "remote-only")
		if err != nil {
			t.Fatalf("ResolveBranch(remote-only) error = %v", err)
		}
		if ref != "origin/remote-only" {
			t.Errorf("ref = %q, want %q", ref, "origin/remote-only")
		}
		// A fetch would have failed (no origin remote) or created a
		// local branch; neither may happen on a remote-tracking hit.
		if git.refExists(ctx, "refs/heads/remote-only") {
			t.Error("remote-tracking resolution must not create a local branch")
		}
	})

	t.Run("all three misses yields BranchNotFoundError", func(t *testing.T) {
		_, err := git.ResolveBranch(ctx, "ghost")
		var berr *BranchNotFoundError
		if !errors.As(err, &berr) {
			t.Fatalf("ResolveBranch(ghost) error = %v, want *BranchNotFoundError", err)
		}
		if berr.Branch != "ghost" {
			t.Errorf("Branch = %q, want %q", berr.Branch, "ghost")
		}
	})
}

func TestIsGitRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	if !NewGitClient(initTestRepo(t)).IsGitRepo() {
		t.Error("IsGitRepo() = false for an initialized repository")
	}
	if NewGitClient(t.TempDir()).IsGitRepo() {
		t.Error("IsGitRepo() = true for an empty directory")
	}
}
