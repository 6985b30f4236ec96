package git

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrGitNotFound is returned when the git binary is not on PATH.
var ErrGitNotFound = errors.New("git not found in PATH")

// Checker answers Git questions about a directory
type Checker struct {
	Dir string
}

// NewChecker creates a checker rooted at dir
func NewChecker(dir string) *Checker {
	return &Checker{Dir: dir}
}

func (c *Checker) git(args ...string) ([]byte, error) {
	cmd := exec.Command("git", append([]string{"-C", c.Dir}, args...)...)
	output, err := cmd.Output()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, ErrGitNotFound
		}
		return nil, err
	}
	return output, nil
}

// IsGitRepository checks if Dir is within a Git repository
func (c *Checker) IsGitRepository() (bool, error) {
	if _, err := c.git("rev-parse", "--git-dir"); err != nil {
		if errors.Is(err, ErrGitNotFound) {
			return false, err
		}
		// Not in a Git repository
		return false, nil
	}
	return true, nil
}

// GetGitRoot returns the absolute path to the Git repository root
func (c *Checker) GetGitRoot() (string, error) {
	output, err := c.git("rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("failed to get Git root: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// IsDirty reports whether path has uncommitted changes, including being untracked.
// Outside a repository it reports false.
func (c *Checker) IsDirty(path string) (bool, error) {
	isRepo, err := c.IsGitRepository()
	if err != nil || !isRepo {
		return false, err
	}

	output, err := c.git("status", "--porcelain", "--", path)
	if err != nil {
		return false, fmt.Errorf("failed to check Git status: %w", err)
	}
	return len(strings.TrimSpace(string(output))) > 0, nil
}

// ResolveWorkspace picks the workspace root. An explicit directory wins;
// otherwise the Git root containing the current directory is used, and
// outside a repository (or without git) the current directory.
func ResolveWorkspace(explicit string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("failed to resolve workspace %s: %w", explicit, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("workspace %s: %w", abs, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("workspace %s is not a directory", abs)
		}
		return abs, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	checker := NewChecker(cwd)
	if isRepo, err := checker.IsGitRepository(); err == nil && isRepo {
		if root, err := checker.GetGitRoot(); err == nil {
			return filepath.Clean(root), nil
		}
	}
	return cwd, nil
}
