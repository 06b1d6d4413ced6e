package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// CurrentSchemaVersion is the schema version this reader/writer produces.
const CurrentSchemaVersion = "1.0.0"

// FormatTag is the only format identifier this engine recognizes on read.
const FormatTag = "cv-git-storage"

// RepositoryInfo identifies the repo this on-disk store belongs to.
type RepositoryInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Root        string `json:"root"`
	Remote      string `json:"remote,omitempty"`
}

// SyncStats summarizes the most recent sync's counts and timing.
type SyncStats struct {
	Files         int       `json:"files"`
	Symbols       int       `json:"symbols"`
	Relationships int       `json:"relationships"`
	Vectors       int       `json:"vectors"`
	LastSync      time.Time `json:"lastSync"`
	DurationMs    int64     `json:"durationMs"`
}

// EmbeddingInfo records the embedding provider/model/dimensions this
// store's vector shards were produced with (invariant 3: a provider change
// that changes dimensionality requires a rebuild).
type EmbeddingInfo struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// Manifest is the versioned header describing an on-disk store, per
// spec.md §3's Manifest entity.
type Manifest struct {
	SchemaVersion string         `json:"schemaVersion"`
	Format        string         `json:"format"`
	Repository    RepositoryInfo `json:"repository"`
	Stats         SyncStats      `json:"stats"`
	Embedding     EmbeddingInfo  `json:"embedding"`
	NodeTypes     []string       `json:"nodeTypes"`
	EdgeTypes     []string       `json:"edgeTypes"`
}

// NewManifest builds a fresh manifest for repo, with the current schema
// version and the full known node/edge type set stamped in.
func NewManifest(repo RepositoryInfo) *Manifest {
	return &Manifest{
		SchemaVersion: CurrentSchemaVersion,
		Format:        FormatTag,
		Repository:    repo,
		NodeTypes:     append([]string{}, nodeShards...),
		EdgeTypes:     append([]string{}, edgeShards...),
	}
}

// ReadManifest reads and migrates the manifest at root, or returns
// (nil, nil) if none exists yet — callers distinguish "not synced yet" from
// a read error by checking for a nil, nil return.
func ReadManifest(root string) (*Manifest, error) {
	path := ManifestPath(root)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	if m.Format != FormatTag {
		return nil, fmt.Errorf("unknown on-disk format %q (expected %q)", m.Format, FormatTag)
	}

	if err := Migrate(&m); err != nil {
		return nil, fmt.Errorf("migrate manifest %s: %w", path, err)
	}
	return &m, nil
}

// Write persists the manifest atomically (temp file + rename), always the
// last shard written in an export pass per spec.md §4.6.
func (m *Manifest) Write(root string) error {
	path := ManifestPath(root)
	tmpPath := path + ".tmp"

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp manifest %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
