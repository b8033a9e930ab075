package gitsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
)

// IsGitURL reports whether path names a git remote rather than a local
// directory.
func IsGitURL(path string) bool {
	return strings.HasSuffix(path, ".git") ||
		strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "http://")
}

// Sync clones a git repository if it doesn't exist at the given path,
// or pulls the latest changes if it does. It returns the checked out HEAD
// commit.
func Sync(ctx context.Context, url, localPath string) (string, error) {
	var repo *git.Repository
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		slog.Info("cloning repository", "url", url, "path", localPath)
		repo, err = git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{URL: url})
		if err != nil {
			return "", fmt.Errorf("failed to clone repo %s: %w", url, err)
		}
	case err == nil:
		slog.Info("pulling repository", "path", localPath)
		repo, err = git.PlainOpen(localPath)
		if err != nil {
			return "", fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return "", fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}

		err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return "", fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
	default:
		return "", fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD for repo at %s: %w", localPath, err)
	}
	return head.Hash().String(), nil
}

// LocalPath maps a git URL to a checkout directory under baseDir, e.g.
// https://github.com/a/b.git and git@github.com:a/b.git both map to
// baseDir/github.com/a/b.
func LocalPath(baseDir, repoURL string) (string, error) {
	host, repoPath, err := splitRemote(repoURL)
	if err != nil {
		return "", err
	}
	repoPath = strings.TrimSuffix(strings.Trim(repoPath, "/"), ".git")
	if repoPath == "" || slices.Contains(strings.Split(repoPath, "/"), "..") {
		return "", fmt.Errorf("could not derive a checkout path from git URL: %s", repoURL)
	}
	return filepath.Join(baseDir, host, filepath.FromSlash(repoPath)), nil
}

// splitRemote returns the host and repository path of a URL-style or
// scp-style (user@host:path) remote.
func splitRemote(repoURL string) (string, string, error) {
	if u, err := url.Parse(repoURL); err == nil && u.Host != "" {
		switch u.Scheme {
		case "https", "http", "ssh", "git":
			return u.Hostname(), u.Path, nil
		}
	}
	if userHost, repoPath, ok := strings.Cut(repoURL, ":"); ok {
		if _, host, ok := strings.Cut(userHost, "@"); ok && host != "" && !strings.ContainsAny(host, "/ ") {
			return host, repoPath, nil
		}
	}
	return "", "", fmt.Errorf("could not parse git URL: %s", repoURL)
}
