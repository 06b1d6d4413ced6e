package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadShard_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph", "nodes", "files.jsonl")

	records := []FileRecord{
		{ID: "r:file:a.go", Type: "file", Path: "a.go", Language: "go"},
		{ID: "r:file:b.go", Type: "file", Path: "b.go", Language: "go"},
	}

	require.NoError(t, WriteShard(path, records))

	got, err := ReadShard[FileRecord](path)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestReadShard_MissingFileIsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	got, err := ReadShard[FileRecord](filepath.Join(dir, "missing.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteShard_OverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "files.jsonl")

	require.NoError(t, WriteShard(path, []FileRecord{{ID: "1"}, {ID: "2"}, {ID: "3"}}))
	require.NoError(t, WriteShard(path, []FileRecord{{ID: "only"}}))

	got, err := ReadShard[FileRecord](path)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "only", got[0].ID)
}

func TestEnsureSkeleton_CreatesEmptyShardsForKnownTypes(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, EnsureSkeleton(root))

	for _, name := range nodeShards {
		got, err := ReadShard[FileRecord](filepath.Join(GraphNodesDir(root), name+".jsonl"))
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestManifest_WriteThenRead(t *testing.T) {
	root := t.TempDir()
	m := NewManifest(RepositoryInfo{ID: "abc123def456", DisplayName: "demo", Root: root})
	require.NoError(t, m.Write(root))

	got, err := ReadManifest(root)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, CurrentSchemaVersion, got.SchemaVersion)
	assert.Equal(t, "abc123def456", got.Repository.ID)
}

func TestReadManifest_MissingReturnsNilNil(t *testing.T) {
	root := t.TempDir()
	got, err := ReadManifest(root)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadManifest_UnknownFormatIsRejected(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, EnsureSkeleton(root))
	m := NewManifest(RepositoryInfo{ID: "x"})
	m.Format = "something-else"
	require.NoError(t, m.Write(root))

	_, err := ReadManifest(root)
	assert.Error(t, err)
}
