// Package storage implements the On-Disk Format (spec.md §4.6): the
// manifest, sync state, and JSONL node/edge/vector shards persisted under
// a repository's .cv/ directory, with atomic tmp-file-then-rename writes
// and additive-evolution JSONL readers. No teacher file does exactly this
// (the teacher persists straight to Postgres/Neo4j), so this package is new
// code grounded on the teacher's general conventions: small single-purpose
// files, fmt.Errorf("...: %w", err) wrapping throughout, and the
// write-then-rename discipline internal/logging/logger.go uses for log
// rotation.
package storage

import (
	"os"
	"path/filepath"
)

// Dir is the hidden per-repo directory every on-disk artifact lives under.
const Dir = ".cv"

// ManifestPath returns the manifest file path under root.
func ManifestPath(root string) string {
	return filepath.Join(root, Dir, "manifest.json")
}

// SyncStatePath returns the sync state file path under root.
func SyncStatePath(root string) string {
	return filepath.Join(root, Dir, "sync_state.json")
}

// GraphNodesDir returns the directory holding node shards.
func GraphNodesDir(root string) string {
	return filepath.Join(root, Dir, "graph", "nodes")
}

// GraphEdgesDir returns the directory holding edge shards.
func GraphEdgesDir(root string) string {
	return filepath.Join(root, Dir, "graph", "edges")
}

// VectorsDir returns the directory holding vector shards.
func VectorsDir(root string) string {
	return filepath.Join(root, Dir, "vectors")
}

// CacheDir returns the (gitignored) local cache directory.
func CacheDir(root string) string {
	return filepath.Join(root, Dir, "cache")
}

// SessionsDir returns the (gitignored) session-scratch directory.
func SessionsDir(root string) string {
	return filepath.Join(root, Dir, "sessions")
}

// nodeShards and edgeShards name the known JSONL shard files spec.md §4.6
// lists under graph/nodes and graph/edges respectively.
var nodeShards = []string{"files", "symbols", "modules", "commits", "prds", "devops", "tests"}
var edgeShards = []string{"imports", "calls", "contains", "implements", "depends", "triggers", "tests"}

// EnsureSkeleton creates the full .cv/ directory layout (graph/nodes,
// graph/edges, vectors, cache, sessions) and empty shard files for every
// known node/edge type, so an empty graph still produces empty shards
// rather than absent files for known types (spec.md §4.7's edge-case
// policy).
func EnsureSkeleton(root string) error {
	dirs := []string{
		GraphNodesDir(root),
		GraphEdgesDir(root),
		VectorsDir(root),
		CacheDir(root),
		SessionsDir(root),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	for _, name := range nodeShards {
		if err := ensureFile(filepath.Join(GraphNodesDir(root), name+".jsonl")); err != nil {
			return err
		}
	}
	for _, name := range edgeShards {
		if err := ensureFile(filepath.Join(GraphEdgesDir(root), name+".jsonl")); err != nil {
			return err
		}
	}
	return nil
}

func ensureFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
