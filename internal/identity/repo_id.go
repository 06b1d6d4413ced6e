// Package identity computes the stable Repository Identity spec.md §4.1
// assigns to every repository this engine touches: a 12-hex-character
// digest derived from the repo's normalized remote URL, or its absolute
// path when no remote is configured.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/controlvector/cv-engine/internal/git"
)

var sshURLPattern = regexp.MustCompile(`^[\w.-]+@([^:]+):(.+)$`)

// RepoID derives the repository identity for the repo rooted at root: the
// first 12 hex characters of sha256(normalizedRemote), or
// sha256(absolutePath) when the repo has no remote. Grounded on the
// teacher's internal/git/repo.go (GetRemoteURL, ParseRepoURL), generalized
// to operate on an arbitrary root directory rather than the process cwd.
func RepoID(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	var key string
	if git.IsGitRepoAt(abs) {
		remote, err := git.RemoteURLAt(abs)
		if err != nil {
			return "", err
		}
		if remote != "" {
			key = normalizeRemote(remote)
		}
	}
	if key == "" {
		key = strings.ToLower(abs)
	}

	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:12], nil
}

// normalizeRemote collapses the https/ssh/git-protocol variants of a remote
// URL that all point at the same repository into one canonical form:
// lowercase host/path, no scheme, no credentials, no trailing ".git".
func normalizeRemote(remote string) string {
	remote = strings.TrimSpace(remote)
	remote = strings.TrimSuffix(remote, ".git")

	if m := sshURLPattern.FindStringSubmatch(remote); m != nil {
		return strings.ToLower(m[1] + "/" + strings.TrimPrefix(m[2], "/"))
	}

	remote = strings.TrimPrefix(remote, "git://")
	remote = strings.TrimPrefix(remote, "https://")
	remote = strings.TrimPrefix(remote, "http://")
	remote = strings.TrimPrefix(remote, "ssh://")

	if idx := strings.Index(remote, "@"); idx >= 0 {
		remote = remote[idx+1:]
	}

	return strings.ToLower(remote)
}

// GraphDatabaseName derives the Neo4j database name this repository's
// structural graph is stored under.
func GraphDatabaseName(repoID string) string {
	return "cv_" + repoID
}

// VectorCollectionName derives the Qdrant collection name this repository's
// embeddings are stored under.
func VectorCollectionName(repoID string) string {
	return repoID + "_chunks"
}
