package exporter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/controlvector/cv-engine/internal/graph"
	"github.com/controlvector/cv-engine/internal/parser"
	"github.com/controlvector/cv-engine/internal/storage"
)

// fakeGraphWriter is an in-memory graph.Writer double, returning
// rows shaped like the Cypher queries exportFiles/exportSymbols/exportEdges
// expect, without requiring a live Neo4j instance.
type fakeGraphWriter struct {
	files       map[string]map[string]any
	symbols     map[string]map[string]any
	importRows  []map[string]any
	callRows    []map[string]any
	definesRows []map[string]any
}

func newFakeGraphWriter() *fakeGraphWriter {
	return &fakeGraphWriter{files: map[string]map[string]any{}, symbols: map[string]map[string]any{}}
}

func (f *fakeGraphWriter) UpsertFile(ctx context.Context, repoID string, rec graph.FileRecord) error {
	f.files[rec.Path] = map[string]any{
		"path": rec.Path, "language": rec.Language, "byteSize": rec.ByteSize,
		"blobHash": rec.BlobHash, "lastModified": rec.LastModified,
		"linesOfCode": rec.LinesOfCode, "complexity": rec.Complexity,
	}
	return nil
}

func (f *fakeGraphWriter) UpsertSymbol(ctx context.Context, repoID string, s parser.Symbol) error {
	f.symbols[s.QualifiedName] = map[string]any{
		"qualifiedName": s.QualifiedName, "shortName": s.ShortName, "kind": string(s.Kind),
		"file": s.File, "startLine": s.StartLine, "endLine": s.EndLine,
		"signature": s.Signature, "docstring": s.Docstring, "returnType": s.ReturnType,
		"visibility": string(s.Visibility), "isAsync": s.IsAsync, "isStatic": s.IsStatic,
		"complexity": s.Complexity,
	}
	return nil
}

func (f *fakeGraphWriter) EdgeDefines(ctx context.Context, repoID, filePath, qualifiedName string, line int) error {
	f.definesRows = append(f.definesRows, map[string]any{"source": filePath, "target": qualifiedName, "line": line})
	return nil
}

func (f *fakeGraphWriter) EdgeImports(ctx context.Context, repoID, srcFile, dstFile string, imp parser.Import) error {
	f.importRows = append(f.importRows, map[string]any{"source": srcFile, "target": dstFile, "style": string(imp.Style), "line": imp.Line})
	return nil
}

func (f *fakeGraphWriter) EdgeCalls(ctx context.Context, repoID string, call graph.ResolvedCall) error {
	f.callRows = append(f.callRows, map[string]any{
		"source": call.FromQualifiedName, "target": call.ToQualifiedName,
		"line": call.Line, "isConditional": call.IsConditional, "callCount": 1,
	})
	return nil
}

func (f *fakeGraphWriter) Clear(ctx context.Context, repoID string) error { return nil }

func (f *fakeGraphWriter) Stats(ctx context.Context, repoID string) (graph.Stats, error) {
	return graph.Stats{Files: len(f.files), Symbols: len(f.symbols)}, nil
}

func (f *fakeGraphWriter) Close(ctx context.Context) error { return nil }

func (f *fakeGraphWriter) Query(ctx context.Context, repoID, cypher string, params map[string]any) ([]map[string]any, error) {
	switch {
	case contains(cypher, "RETURN f"):
		rows := make([]map[string]any, 0, len(f.files))
		for _, props := range f.files {
			rows = append(rows, map[string]any{"f": props})
		}
		return rows, nil
	case contains(cypher, "RETURN s"):
		rows := make([]map[string]any, 0, len(f.symbols))
		for _, props := range f.symbols {
			rows = append(rows, map[string]any{"s": props})
		}
		return rows, nil
	case contains(cypher, "IMPORTS"):
		return f.importRows, nil
	case contains(cypher, "CALLS"):
		return f.callRows, nil
	case contains(cypher, "DEFINES"):
		return f.definesRows, nil
	default:
		return nil, nil
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}

func TestExport_WritesShardsAndManifest(t *testing.T) {
	root := t.TempDir()
	gw := newFakeGraphWriter()
	require.NoError(t, gw.UpsertFile(context.Background(), "repo", graph.FileRecord{Path: "main.go", Language: "go", LinesOfCode: 10}))
	require.NoError(t, gw.UpsertSymbol(context.Background(), "repo", parser.Symbol{QualifiedName: "main.main", ShortName: "main", File: "main.go"}))
	gw.definesRows = append(gw.definesRows, map[string]any{"source": "main.go", "target": "main.main", "line": 3})

	exp := New(gw, nil, "repo", nil)
	res, err := exp.Export(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Files)
	assert.Equal(t, 1, res.Symbols)
	assert.Equal(t, 1, res.DefinesEdges)

	data, err := os.ReadFile(filepath.Join(storage.GraphNodesDir(root), "files.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "main.go")

	manifest, err := storage.ReadManifest(root)
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.Equal(t, 1, manifest.Stats.Files)
}

func TestExport_NoVectorWriterIsNotAnError(t *testing.T) {
	root := t.TempDir()
	gw := newFakeGraphWriter()
	exp := New(gw, nil, "repo", nil)
	res, err := exp.Export(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 0, res.VectorPoints)
}
