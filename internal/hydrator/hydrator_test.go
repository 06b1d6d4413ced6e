package hydrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/controlvector/cv-engine/internal/graph"
	"github.com/controlvector/cv-engine/internal/parser"
	"github.com/controlvector/cv-engine/internal/storage"
)

// fakeGraphWriter is an in-memory graph.Writer double recording every
// upsert, so Load's replay can be asserted without a live Neo4j instance.
type fakeGraphWriter struct {
	files     map[string]graph.FileRecord
	symbols   map[string]parser.Symbol
	defines   int
	imports   int
	calls     int
	cleared   bool
}

func newFakeGraphWriter() *fakeGraphWriter {
	return &fakeGraphWriter{files: map[string]graph.FileRecord{}, symbols: map[string]parser.Symbol{}}
}

func (f *fakeGraphWriter) UpsertFile(ctx context.Context, repoID string, rec graph.FileRecord) error {
	f.files[rec.Path] = rec
	return nil
}
func (f *fakeGraphWriter) UpsertSymbol(ctx context.Context, repoID string, s parser.Symbol) error {
	f.symbols[s.QualifiedName] = s
	return nil
}
func (f *fakeGraphWriter) EdgeDefines(ctx context.Context, repoID, filePath, qualifiedName string, line int) error {
	f.defines++
	return nil
}
func (f *fakeGraphWriter) EdgeImports(ctx context.Context, repoID, srcFile, dstFile string, imp parser.Import) error {
	f.imports++
	return nil
}
func (f *fakeGraphWriter) EdgeCalls(ctx context.Context, repoID string, call graph.ResolvedCall) error {
	f.calls++
	return nil
}
func (f *fakeGraphWriter) Clear(ctx context.Context, repoID string) error {
	f.cleared = true
	f.files = map[string]graph.FileRecord{}
	f.symbols = map[string]parser.Symbol{}
	return nil
}
func (f *fakeGraphWriter) Stats(ctx context.Context, repoID string) (graph.Stats, error) {
	return graph.Stats{Files: len(f.files), Symbols: len(f.symbols)}, nil
}
func (f *fakeGraphWriter) Close(ctx context.Context) error { return nil }
func (f *fakeGraphWriter) Query(ctx context.Context, repoID, cypher string, params map[string]any) ([]map[string]any, error) {
	if len(f.files) == 0 {
		return nil, nil
	}
	return []map[string]any{{"f": map[string]any{"path": "anything"}}}, nil
}

func seedStore(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, storage.EnsureSkeleton(root))
	require.NoError(t, storage.WriteShard(filepath.Join(storage.GraphNodesDir(root), "files.jsonl"), []storage.FileRecord{
		{ID: "repo:file:main.go", Type: "file", Path: "main.go", Language: "go", LinesOfCode: 5},
	}))
	require.NoError(t, storage.WriteShard(filepath.Join(storage.GraphNodesDir(root), "symbols.jsonl"), []storage.SymbolRecord{
		{ID: "repo:symbol:main.main", Type: "symbol", QualifiedName: "main.main", ShortName: "main", File: "main.go", Kind: "function"},
	}))
	require.NoError(t, storage.WriteShard(filepath.Join(storage.GraphEdgesDir(root), "contains.jsonl"), []storage.EdgeRecord{
		{Source: "main.go", Target: "main.main", Type: "DEFINES", Metadata: map[string]any{"line": 3}},
	}))
	require.NoError(t, storage.WriteShard(filepath.Join(storage.GraphEdgesDir(root), "imports.jsonl"), []storage.EdgeRecord{}))
	require.NoError(t, storage.WriteShard(filepath.Join(storage.GraphEdgesDir(root), "calls.jsonl"), []storage.EdgeRecord{}))

	manifest := storage.NewManifest(storage.RepositoryInfo{ID: "repo", Root: root})
	require.NoError(t, manifest.Write(root))
}

func TestLoad_ReplaysGraphShards(t *testing.T) {
	root := t.TempDir()
	seedStore(t, root)

	gw := newFakeGraphWriter()
	h := New(gw, nil, "repo")

	res, err := h.Load(context.Background(), root, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 1, res.Symbols)
	assert.Contains(t, gw.files, "main.go")
	assert.Contains(t, gw.symbols, "main.main")
	assert.Equal(t, 1, gw.defines)
}

func TestLoad_RefusesWhenNoStoreExists(t *testing.T) {
	root := t.TempDir()
	gw := newFakeGraphWriter()
	h := New(gw, nil, "repo")

	_, err := h.Load(context.Background(), root, Options{})
	assert.Error(t, err)
}

func TestLoad_ReplaceClearsFirst(t *testing.T) {
	root := t.TempDir()
	seedStore(t, root)

	gw := newFakeGraphWriter()
	gw.files["stale.go"] = graph.FileRecord{Path: "stale.go"}

	h := New(gw, nil, "repo")
	_, err := h.Load(context.Background(), root, Options{Replace: true})
	require.NoError(t, err)

	assert.True(t, gw.cleared)
	assert.NotContains(t, gw.files, "stale.go")
}

func TestIsLoaded_FalseOnEmptyGraph(t *testing.T) {
	gw := newFakeGraphWriter()
	h := New(gw, nil, "repo")
	loaded, err := h.IsLoaded(context.Background())
	require.NoError(t, err)
	assert.False(t, loaded)
}
