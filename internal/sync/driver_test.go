package sync

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/controlvector/cv-engine/internal/cache"
	"github.com/controlvector/cv-engine/internal/config"
	"github.com/controlvector/cv-engine/internal/graph"
	"github.com/controlvector/cv-engine/internal/parser"
)

// fakeGraphWriter is an in-memory graph.Writer double so FullSync/
// IncrementalSync can be exercised without a live Neo4j instance.
type fakeGraphWriter struct {
	files   map[string]graph.FileRecord
	symbols map[string]parser.Symbol
	defines int
	imports int
	calls   int
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
func (f *fakeGraphWriter) Clear(ctx context.Context, repoID string) error { return nil }
func (f *fakeGraphWriter) Stats(ctx context.Context, repoID string) (graph.Stats, error) {
	return graph.Stats{Files: len(f.files), Symbols: len(f.symbols)}, nil
}
func (f *fakeGraphWriter) Close(ctx context.Context) error { return nil }
func (f *fakeGraphWriter) Query(ctx context.Context, repoID, cypher string, params map[string]any) ([]map[string]any, error) {
	return nil, nil
}

func newTestCacheManager(t *testing.T) *cache.Manager {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.Directory = t.TempDir()
	m, err := cache.NewManager(context.Background(), cfg, "repo", logrus.New())
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestFullSync_WritesGraphAndSkipsVectorsWhenNoWriterConfigured(t *testing.T) {
	root := initRepoWithFiles(t, map[string]string{
		"main.go": "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n",
	})

	gw := newFakeGraphWriter()
	logger := logrus.New()
	driver := New(gw, nil, newTestCacheManager(t), "repo", config.SyncConfig{}, logger)

	state, err := driver.FullSync(context.Background(), Options{Root: root})
	require.NoError(t, err)

	assert.Equal(t, 1, state.Counts.Files)
	assert.Equal(t, 0, state.Counts.Vectors)
	assert.Contains(t, gw.files, "main.go")
}

func TestIncrementalSync_OnlyTouchesChangedFiles(t *testing.T) {
	root := initRepoWithFiles(t, map[string]string{
		"a.go": "package main\n\nfunc A() {}\n",
		"b.go": "package main\n\nfunc B() {}\n",
	})

	gw := newFakeGraphWriter()
	logger := logrus.New()
	driver := New(gw, nil, newTestCacheManager(t), "repo", config.SyncConfig{}, logger)

	state, err := driver.IncrementalSync(context.Background(), []string{"a.go"}, Options{Root: root})
	require.NoError(t, err)

	assert.Equal(t, 1, state.Counts.Files)
	assert.Contains(t, gw.files, "a.go")
	assert.NotContains(t, gw.files, "b.go")
}
