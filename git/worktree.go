// Package git answers the two questions the checker asks of a repository:
// where is its root and which files changed.
package git

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/flanksource/commons/logger"
	gogit "github.com/go-git/go-git/v5"
)

// FindRoot returns the absolute root of the work tree containing dir
func FindRoot(dir string) (string, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("failed to find git repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}

	root, err := filepath.Abs(worktree.Filesystem.Root())
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path of repository root: %w", err)
	}
	return root, nil
}

// ChangedFiles lists the files that are added, modified, renamed or untracked in
// the work tree containing dir, as sorted absolute paths. Deleted files are left
// out since there is nothing to read.
func ChangedFiles(dir string) ([]string, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to find git repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree status: %w", err)
	}

	root := worktree.Filesystem.Root()
	var changed []string
	for path, s := range status {
		if s.Worktree == gogit.Deleted || (s.Staging == gogit.Deleted && s.Worktree != gogit.Untracked) {
			continue
		}
		if s.Worktree == gogit.Unmodified && s.Staging == gogit.Unmodified {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(root, filepath.FromSlash(path)))
		if err != nil {
			return nil, err
		}
		changed = append(changed, abs)
	}
	sort.Strings(changed)
	logger.Debugf("%d changed files in %s", len(changed), root)
	return changed, nil
}
