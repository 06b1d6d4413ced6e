package git

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// DetectGitRepo checks if current directory is a git repository
// Uses git rev-parse to verify we're inside a working tree
// Reference: NEXT_STEPS.md - Task 1 (Git Integration Functions)
func DetectGitRepo() error {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("not a git repository: %w", err)
	}
	return nil
}

// ParseRepoURL extracts org and repo name from git remote URL
// Supports multiple URL formats:
//   - HTTPS: https://github.com/owner/repo.git
//   - SSH: git@github.com:owner/repo.git
//   - Git protocol: git://github.com/owner/repo.git
//
// Reference: NEXT_STEPS.md - Task 1 (Git Integration Functions)
func ParseRepoURL(remoteURL string) (org, repo string, err error) {
	// Remove .git suffix if present
	remoteURL = strings.TrimSuffix(remoteURL, ".git")

	// Try HTTPS format: https://github.com/owner/repo or http://...
	httpsRegex := regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/]+)`)
	if matches := httpsRegex.FindStringSubmatch(remoteURL); len(matches) == 3 {
		return matches[1], matches[2], nil
	}

	// Try SSH format: git@github.com:owner/repo
	sshRegex := regexp.MustCompile(`git@[^:]+:([^/]+)/([^/]+)`)
	if matches := sshRegex.FindStringSubmatch(remoteURL); len(matches) == 3 {
		return matches[1], matches[2], nil
	}

	// Try git protocol: git://github.com/owner/repo
	gitRegex := regexp.MustCompile(`git://[^/]+/([^/]+)/([^/]+)`)
	if matches := gitRegex.FindStringSubmatch(remoteURL); len(matches) == 3 {
		return matches[1], matches[2], nil
	}

	return "", "", fmt.Errorf("unrecognized git URL format: %s", remoteURL)
}

// GetChangedFiles returns list of files changed in working directory
// Uses git diff to find modified files compared to HEAD
// Reference: NEXT_STEPS.md - Task 1 (Git Integration Functions)
func GetChangedFiles() ([]string, error) {
	cmd := exec.Command("git", "diff", "--name-only", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get changed files: %w", err)
	}

	files := strings.Split(strings.TrimSpace(string(output)), "\n")
	var result []string
	for _, f := range files {
		if f != "" {
			result = append(result, f)
		}
	}
	return result, nil
}

// GetCurrentBranch returns the name of the current git branch
func GetCurrentBranch() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(output)), nil
}

// GetRemoteURL returns the URL of the git remote (typically 'origin')
func GetRemoteURL() (string, error) {
	cmd := exec.Command("git", "config", "--get", "remote.origin.url")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(output)), nil
}

// GetCurrentCommitSHA returns the SHA of the current commit
func GetCurrentCommitSHA() (string, error) {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(output)), nil
}

// GetAuthorEmail returns the configured git user email
func GetAuthorEmail() (string, error) {
	cmd := exec.Command("git", "config", "user.email")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(output)), nil
}

// RemoteURLAt returns the 'origin' remote URL for the repository rooted at
// dir, or "" with no error if the repo has no configured remote (a valid
// state for a purely local repository).
func RemoteURLAt(dir string) (string, error) {
	cmd := exec.Command("git", "config", "--get", "remote.origin.url")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return "", nil
		}
		return "", fmt.Errorf("git config remote.origin.url: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// CurrentCommitSHAAt returns the SHA of the current commit in the repo
// rooted at dir, without depending on the process's own working directory.
func CurrentCommitSHAAt(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ChangedFilesSince returns the paths that differ between sinceCommit and
// HEAD in the repository rooted at dir, or every tracked file if sinceCommit
// is empty (no prior sync to diff against).
func ChangedFilesSince(dir, sinceCommit string) ([]string, error) {
	if sinceCommit == "" {
		entries, err := BlobHashes(dir)
		if err != nil {
			return nil, err
		}
		paths := make([]string, 0, len(entries))
		for _, e := range entries {
			paths = append(paths, e.Path)
		}
		return paths, nil
	}

	cmd := exec.Command("git", "diff", "--name-only", sinceCommit, "HEAD")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("diff changed files since %s: %w", sinceCommit, err)
	}

	files := strings.Split(strings.TrimSpace(string(output)), "\n")
	var result []string
	for _, f := range files {
		if f != "" {
			result = append(result, f)
		}
	}
	return result, nil
}

// IsGitRepoAt reports whether dir is inside a git working tree.
func IsGitRepoAt(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// BlobEntry is one line of `git ls-files -s` output: a tracked file's path
// and the SHA-1 hash of its blob content, independent of the file's mtime.
type BlobEntry struct {
	Path string
	Hash string
}

// BlobHashes lists every tracked file under dir together with its current
// git blob hash, used to key the local parse cache (spec.md §3, Parse Cache
// Entry): the key is content-addressed, so an incremental sync that hasn't
// touched a file's bytes gets a guaranteed cache hit regardless of mtime.
func BlobHashes(dir string) ([]BlobEntry, error) {
	cmd := exec.Command("git", "ls-files", "-s")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git ls-files -s: %w", err)
	}

	var entries []BlobEntry
	for _, line := range strings.Split(strings.TrimRight(string(output), "\n"), "\n") {
		if line == "" {
			continue
		}
		// format: "<mode> <hash> <stage>\t<path>"
		tabIdx := strings.IndexByte(line, '\t')
		if tabIdx < 0 {
			continue
		}
		fields := strings.Fields(line[:tabIdx])
		if len(fields) < 2 {
			continue
		}
		entries = append(entries, BlobEntry{Path: line[tabIdx+1:], Hash: fields[1]})
	}
	return entries, nil
}
