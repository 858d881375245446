// Package git provides repository discovery and the commit step.
package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"lmcommit/cli/internal/erruser"
)

// RepoRoot returns the absolute path of the git repository root containing dir.
// Runs "git rev-parse --show-toplevel" with Dir=dir.
func RepoRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	cmd.Env = MinimalEnv()
	out, err := cmd.Output()
	if err != nil {
		return "", erruser.New("The current directory must be a Git repository.", err)
	}
	root := strings.TrimSpace(string(out))
	return filepath.Abs(root)
}

// Commit records the staged changes in repoRoot with message. The message is
// fed on stdin ("git commit -F -") so quotes and newlines need no escaping.
func Commit(ctx context.Context, repoRoot, message string) error {
	if strings.TrimSpace(message) == "" {
		return erruser.New("Refusing to commit with an empty message.", nil)
	}
	cmd := exec.CommandContext(ctx, "git", "commit", "-F", "-")
	cmd.Dir = repoRoot
	cmd.Env = MinimalEnv()
	cmd.Stdin = strings.NewReader(message)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return erruser.New("git commit failed.", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out))))
	}
	return nil
}

// HeadSubject returns the subject line of the commit at HEAD.
func HeadSubject(repoRoot string) (string, error) {
	cmd := exec.Command("git", "log", "-1", "--format=%s", "HEAD")
	cmd.Dir = repoRoot
	cmd.Env = MinimalEnv()
	out, err := cmd.Output()
	if err != nil {
		return "", erruser.New("Could not read the last commit.", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Version returns the output of "git --version", used by doctor.
func Version() (string, error) {
	out, err := exec.Command("git", "--version").Output()
	if err != nil {
		return "", erruser.New("Git is not installed or not on PATH.", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// MinimalEnv is the environment for git subprocesses: PATH, HOME, no prompts or
// pager, plus any explicit author and committer identity.
func MinimalEnv() []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_PAGER=cat", // subprocess output is captured
	}
	if home := os.Getenv("HOME"); home != "" {
		env = append(env, "HOME="+home)
	} else if runtime.GOOS == "windows" {
		if profile := os.Getenv("USERPROFILE"); profile != "" {
			env = append(env, "HOME="+profile)
		}
	}
	// git commit needs an identity; pass through explicit overrides.
	for _, k := range []string{"GIT_AUTHOR_NAME", "GIT_AUTHOR_EMAIL", "GIT_COMMITTER_NAME", "GIT_COMMITTER_EMAIL"} {
		if v, ok := os.LookupEnv(k); ok {
			env = append(env, k+"="+v)
		}
	}
	return env
}
