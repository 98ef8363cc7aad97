package metadata

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrGitCommand wraps failures of the git subprocess itself.
var ErrGitCommand = errors.New("git command failed")

// ErrRepoState reports a working tree unfit for capture: untracked
// content that a patch would silently miss.
var ErrRepoState = errors.New("repository state not reproducible")

type gitExecFunc func(ctx context.Context, dir string, args ...string) ([]byte, error)

func defaultGitExec(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("MD_GIT: git %s: %s: %w", strings.Join(args, " "),
				strings.TrimSpace(string(exitErr.Stderr)), ErrGitCommand)
		}
		return nil, fmt.Errorf("MD_GIT: git %s: %v: %w", strings.Join(args, " "), err, ErrGitCommand)
	}
	return out, nil
}

// GitClient answers version-control questions about a source tree
// through the git binary. The exec function is injectable so tests run
// without git or a repository.
type GitClient struct {
	execGit gitExecFunc
}

func NewGitClient() *GitClient {
	return &GitClient{execGit: defaultGitExec}
}

// TopLevel resolves the repository root containing dir.
func (g *GitClient) TopLevel(ctx context.Context, dir string) (string, error) {
	out, err := g.execGit(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Head returns the commit id currently checked out in repo.
func (g *GitClient) Head(ctx context.Context, repo string) (string, error) {
	out, err := g.execGit(ctx, repo, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Version returns the raw `git version` line, for environment checks.
func (g *GitClient) Version(ctx context.Context) (string, error) {
	out, err := g.execGit(ctx, "", "version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// CheckNoUntracked fails when the repository or any of its submodules
// contains untracked files. A patch taken over such a tree would be
// incomplete, so capture refuses up front.
func (g *GitClient) CheckNoUntracked(ctx context.Context, repo string) error {
	out, err := g.execGit(ctx, repo, "status", "--porcelain")
	if err != nil {
		return err
	}
	if untracked := porcelainUntracked(string(out)); len(untracked) > 0 {
		return fmt.Errorf("MD_UNTRACKED: untracked files present: %s: %w",
			strings.Join(untracked, ", "), ErrRepoState)
	}

	out, err = g.execGit(ctx, repo, "submodule", "foreach", "--recursive", "--quiet",
		"git status --porcelain")
	if err != nil {
		return err
	}
	if untracked := porcelainUntracked(string(out)); len(untracked) > 0 {
		return fmt.Errorf("MD_UNTRACKED: untracked files in submodules: %s: %w",
			strings.Join(untracked, ", "), ErrRepoState)
	}
	return nil
}

// RecursivePatch captures the full uncommitted delta of repo, including
// every submodule, as one concatenated diff.
func (g *GitClient) RecursivePatch(ctx context.Context, repo string) (string, error) {
	if err := g.CheckNoUntracked(ctx, repo); err != nil {
		return "", err
	}
	top, err := g.execGit(ctx, repo, "diff", "HEAD")
	if err != nil {
		return "", err
	}
	sub, err := g.execGit(ctx, repo, "submodule", "foreach", "--recursive", "git diff HEAD")
	if err != nil {
		return "", err
	}
	return string(top) + string(sub), nil
}

func porcelainUntracked(out string) []string {
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "?? ") {
			files = append(files, strings.TrimPrefix(line, "?? "))
		}
	}
	return files
}
