// Package diff collects the staged diff from git and splits unified diff text
// into per-file sections.
//
// # Excluded files
// Lockfiles are excluded by default: package-lock.json, pnpm-lock.yaml and
// *.lock. They are large, generated, and say nothing about intent. Options
// extends the list with extra pathspecs.
//
// # Empty diff
// When nothing is staged (or everything staged is excluded), StagedDiff returns
// ErrNoStagedChanges.
package diff

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"lmcommit/cli/internal/git"
)

// ErrNoStagedChanges is returned by StagedDiff when the index has no changes
// outside the excluded paths.
var ErrNoStagedChanges = errors.New("no staged changes")

// Staged is the staged change set: the files touched and the full diff text.
type Staged struct {
	Files []string
	Text  string
}

// Options configures StagedDiff. Nil means default exclusions only.
type Options struct {
	// Exclude lists extra git pathspec patterns (e.g. "dist/*") appended to the
	// defaults.
	Exclude []string
	// NoDefaultExcludes drops the built-in lockfile exclusions.
	NoDefaultExcludes bool
}

// DefaultExcludes are the pathspecs excluded unless Options.NoDefaultExcludes is set.
var DefaultExcludes = []string{
	"package-lock.json",
	"pnpm-lock.yaml",
	"*.lock",
}

// StagedDiff runs git diff --cached in repoRoot and returns the staged files
// and diff text. ctx cancels the git subprocesses.
func StagedDiff(ctx context.Context, repoRoot string, opts *Options) (*Staged, error) {
	if repoRoot == "" {
		return nil, fmt.Errorf("diff: repoRoot required")
	}
	args := diffArgs(opts)

	names, err := runGit(ctx, repoRoot, append([]string{"diff", "--name-only"}, args...)...)
	if err != nil {
		return nil, err
	}
	files := splitLines(names)
	if len(files) == 0 {
		return nil, ErrNoStagedChanges
	}

	text, err := runGit(ctx, repoRoot, append([]string{"diff"}, args...)...)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoStagedChanges
	}
	return &Staged{Files: files, Text: text}, nil
}

// diffArgs builds the shared arguments for both git diff invocations.
func diffArgs(opts *Options) []string {
	args := []string{"--cached", "--no-color", "--no-ext-diff", "--diff-algorithm=minimal", "--", "."}
	var patterns []string
	if opts == nil || !opts.NoDefaultExcludes {
		patterns = append(patterns, DefaultExcludes...)
	}
	if opts != nil {
		patterns = append(patterns, opts.Exclude...)
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		args = append(args, ":!"+p)
	}
	return args
}

func runGit(ctx context.Context, repoRoot string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoRoot
	cmd.Env = git.MinimalEnv()
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
