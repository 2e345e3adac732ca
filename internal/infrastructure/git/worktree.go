// Package git shells out to the git binary for worktree and branch
// operations.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	domainerrors "github.com/helmware/deckhand/internal/domain/errors"
)

// WorktreeManager creates and removes the per-workspace worktrees that give
// each agent an isolated checkout.
type WorktreeManager struct {
	gitPath string

	// Root is the directory, relative to the repository root, under which
	// worktrees are created.
	Root string

	// BranchPrefix namespaces the branches created for worktrees.
	BranchPrefix string
}

// NewWorktreeManager creates a worktree manager, verifying that git is
// installed.
func NewWorktreeManager(root, branchPrefix string) (*WorktreeManager, error) {
	path, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git not found in PATH: %w", err)
	}

	return &WorktreeManager{
		gitPath:      path,
		Root:         root,
		BranchPrefix: branchPrefix,
	}, nil
}

// WorktreeInfo describes a single entry from 'git worktree list'.
type WorktreeInfo struct {
	Path   string
	Branch string
	Commit string
	Bare   bool
}

// PathFor returns the deterministic worktree path for a workspace name.
func (wm *WorktreeManager) PathFor(repoRoot, name string) string {
	return filepath.Join(repoRoot, wm.Root, name)
}

// BranchFor returns the deterministic branch name for a workspace name.
func (wm *WorktreeManager) BranchFor(name string) string {
	return wm.BranchPrefix + name
}

// Create adds a worktree for the named workspace on a fresh branch cut from
// baseBranch. The target path must not already exist; nothing is mutated if
// it does. Returns the worktree path and the branch name.
func (wm *WorktreeManager) Create(ctx context.Context, repoRoot, name, baseBranch string) (string, string, error) {
	if repoRoot == "" {
		return "", "", fmt.Errorf("repository root is required")
	}
	if name == "" {
		return "", "", fmt.Errorf("workspace name is required")
	}

	path := wm.PathFor(repoRoot, name)
	branch := wm.BranchFor(name)

	if _, err := os.Stat(path); err == nil {
		return "", "", domainerrors.NewError(domainerrors.CodeValidation,
			fmt.Sprintf("worktree path already exists: %s", path), domainerrors.ErrWorktreeExists)
	} else if !os.IsNotExist(err) {
		return "", "", fmt.Errorf("failed to check worktree path: %w", err)
	}

	args := []string{"worktree", "add", "-b", branch, path}
	if baseBranch != "" {
		args = append(args, baseBranch)
	}

	cmd := exec.CommandContext(ctx, wm.gitPath, args...)
	cmd.Dir = repoRoot

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", "", fmt.Errorf("failed to create worktree: %s: %w", strings.TrimSpace(stderr.String()), err)
	}

	return path, branch, nil
}

// Remove removes a worktree. Uncommitted changes are discarded, so callers
// treat this as best-effort cleanup.
func (wm *WorktreeManager) Remove(ctx context.Context, repoRoot, worktreePath string) error {
	if repoRoot == "" {
		return fmt.Errorf("repository root is required")
	}
	if worktreePath == "" {
		return fmt.Errorf("worktree path is required")
	}

	cmd := exec.CommandContext(ctx, wm.gitPath, "worktree", "remove", "--force", worktreePath)
	cmd.Dir = repoRoot

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to remove worktree: %s: %w", strings.TrimSpace(stderr.String()), err)
	}

	return nil
}

// List returns all worktrees for a repository.
func (wm *WorktreeManager) List(ctx context.Context, repoRoot string) ([]WorktreeInfo, error) {
	if repoRoot == "" {
		return nil, fmt.Errorf("repository root is required")
	}

	cmd := exec.CommandContext(ctx, wm.gitPath, "worktree", "list", "--porcelain")
	cmd.Dir = repoRoot

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to list worktrees: %w", err)
	}

	return parseWorktreeList(stdout.String()), nil
}

// parseWorktreeList parses the output of 'git worktree list --porcelain'.
func parseWorktreeList(output string) []WorktreeInfo {
	var worktrees []WorktreeInfo
	var current *WorktreeInfo

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if current != nil {
				worktrees = append(worktrees, *current)
				current = nil
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "worktree "):
			current = &WorktreeInfo{
				Path: strings.TrimPrefix(line, "worktree "),
			}
		case current == nil:
			// Stray attribute without a worktree header.
		case strings.HasPrefix(line, "HEAD "):
			current.Commit = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(line, "branch refs/heads/")
		case line == "bare":
			current.Bare = true
		}
	}

	if current != nil {
		worktrees = append(worktrees, *current)
	}

	return worktrees
}

// Prune removes administrative data left behind by deleted worktrees.
func (wm *WorktreeManager) Prune(ctx context.Context, repoRoot string) error {
	if repoRoot == "" {
		return fmt.Errorf("repository root is required")
	}

	cmd := exec.CommandContext(ctx, wm.gitPath, "worktree", "prune")
	cmd.Dir = repoRoot

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to prune worktrees: %w", err)
	}

	return nil
}

// IsGitRepository checks whether path is inside a git repository.
func (wm *WorktreeManager) IsGitRepository(ctx context.Context, path string) (bool, error) {
	cmd := exec.CommandContext(ctx, wm.gitPath, "rev-parse", "--git-dir")
	cmd.Dir = path

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 128 {
			return false, nil
		}
		return false, fmt.Errorf("failed to check git repository: %w", err)
	}

	return true, nil
}

// CurrentBranch returns the branch checked out at path.
func (wm *WorktreeManager) CurrentBranch(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, wm.gitPath, "branch", "--show-current")
	cmd.Dir = path

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// RepoRoot returns the top-level directory of the repository containing path.
func (wm *WorktreeManager) RepoRoot(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, wm.gitPath, "rev-parse", "--show-toplevel")
	cmd.Dir = path

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to get repository root: %w", err)
	}

	return strings.TrimSpace(stdout.String()), nil
}

// BranchExists checks whether a local branch exists in the repository.
func (wm *WorktreeManager) BranchExists(ctx context.Context, repoRoot, branch string) (bool, error) {
	if repoRoot == "" {
		return false, fmt.Errorf("repository root is required")
	}
	if branch == "" {
		return false, fmt.Errorf("branch name is required")
	}

	cmd := exec.CommandContext(ctx, wm.gitPath, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	cmd.Dir = repoRoot

	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return false, nil
	}

	return false, fmt.Errorf("failed to check branch existence: %w", err)
}

// PushBranch pushes a branch to origin, setting the upstream so a pull
// request can be opened against it.
func (wm *WorktreeManager) PushBranch(ctx context.Context, repoRoot, branch string) error {
	if repoRoot == "" {
		return fmt.Errorf("repository root is required")
	}
	if branch == "" {
		return fmt.Errorf("branch name is required")
	}

	cmd := exec.CommandContext(ctx, wm.gitPath, "push", "--set-upstream", "origin", branch)
	cmd.Dir = repoRoot

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to push branch %s: %s: %w", branch, strings.TrimSpace(stderr.String()), err)
	}

	return nil
}
