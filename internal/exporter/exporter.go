// Package exporter implements the Exporter (spec.md §4.7): snapshotting the
// live graph and vector stores into the on-disk format after a sync. No
// teacher file does this exact job (the teacher persists straight to its
// backing stores), so this is new code following the pipeline shape named
// in spec.md §4.7, grounded on the teacher's cmd/crisk-sync/main.go
// step-numbered "[N/M] doing thing..." progress style and its
// fmt.Errorf("...: %w", err) wrapping discipline.
package exporter

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/controlvector/cv-engine/internal/graph"
	"github.com/controlvector/cv-engine/internal/identity"
	"github.com/controlvector/cv-engine/internal/storage"
	"github.com/controlvector/cv-engine/internal/vector"
)

// Result summarizes one export pass.
type Result struct {
	Files         int
	Symbols       int
	ImportEdges   int
	CallEdges     int
	DefinesEdges  int
	VectorPoints  int
	Duration      time.Duration
}

// Exporter snapshots graphWriter (and, if set, vectorWriter) to root/.cv.
type Exporter struct {
	graphWriter  graph.Writer
	vectorWriter *vector.Writer
	repoID       string
	logger       Logger
}

// Logger is the minimal logging surface the exporter needs, satisfied by
// *logrus.Logger.
type Logger interface {
	Warnf(format string, args ...interface{})
}

// New builds an Exporter. vectorWriter may be nil when no vector backend is
// configured for this sync.
func New(graphWriter graph.Writer, vectorWriter *vector.Writer, repoID string, logger Logger) *Exporter {
	return &Exporter{graphWriter: graphWriter, vectorWriter: vectorWriter, repoID: repoID, logger: logger}
}

// Export runs the full seven-step pipeline from spec.md §4.7.
func (e *Exporter) Export(ctx context.Context, root string) (Result, error) {
	start := time.Now()

	// 1. Ensure directory skeleton exists.
	if err := storage.EnsureSkeleton(root); err != nil {
		return Result{}, fmt.Errorf("ensure skeleton: %w", err)
	}

	// 2. Read or create the manifest.
	manifest, err := storage.ReadManifest(root)
	if err != nil {
		return Result{}, fmt.Errorf("read manifest: %w", err)
	}
	if manifest == nil {
		manifest = storage.NewManifest(storage.RepositoryInfo{ID: e.repoID, Root: root})
	}

	var res Result

	// 3. Query File nodes, write files.jsonl.
	files, err := e.exportFiles(ctx, root)
	if err != nil {
		return Result{}, err
	}
	res.Files = len(files)

	// 4. Query Symbol nodes, write symbols.jsonl.
	symbols, err := e.exportSymbols(ctx, root)
	if err != nil {
		return Result{}, err
	}
	res.Symbols = len(symbols)

	// 5. Query IMPORTS/CALLS/DEFINES edges.
	imports, err := e.exportEdges(ctx, root, "imports.jsonl",
		`MATCH (a:File {repoId:$repoId})-[r:IMPORTS]->(b:File {repoId:$repoId})
		 RETURN a.path AS source, b.path AS target, r.style AS style, r.line AS line`, "IMPORTS")
	if err != nil {
		return Result{}, err
	}
	res.ImportEdges = imports

	calls, err := e.exportEdges(ctx, root, "calls.jsonl",
		`MATCH (a:Symbol {repoId:$repoId})-[r:CALLS]->(b:Symbol {repoId:$repoId})
		 RETURN a.qualifiedName AS source, b.qualifiedName AS target, r.line AS line, r.isConditional AS isConditional, r.callCount AS callCount`, "CALLS")
	if err != nil {
		return Result{}, err
	}
	res.CallEdges = calls

	defines, err := e.exportEdges(ctx, root, "contains.jsonl",
		`MATCH (a:File {repoId:$repoId})-[r:DEFINES]->(b:Symbol {repoId:$repoId})
		 RETURN a.path AS source, b.qualifiedName AS target, r.line AS line`, "DEFINES")
	if err != nil {
		return Result{}, err
	}
	res.DefinesEdges = defines

	// 6. Scroll vector collections, if configured.
	if e.vectorWriter != nil {
		points, dims, err := e.exportVectors(ctx, root)
		if err != nil {
			return Result{}, err
		}
		res.VectorPoints = points
		if dims == 0 {
			dims = e.vectorWriter.Dimensions()
		}
		manifest.Embedding = storage.EmbeddingInfo{
			Provider:   e.vectorWriter.Provider(),
			Model:      e.vectorWriter.Model(),
			Dimensions: dims,
		}
	} else if e.logger != nil {
		e.logger.Warnf("no vector writer configured, skipping vector export")
	}

	// 7. Update manifest stats and write atomically (last).
	res.Duration = time.Since(start)
	manifest.Stats = storage.SyncStats{
		Files:         res.Files,
		Symbols:       res.Symbols,
		Relationships: res.ImportEdges + res.CallEdges + res.DefinesEdges,
		Vectors:       res.VectorPoints,
		LastSync:      start,
		DurationMs:    res.Duration.Milliseconds(),
	}
	if err := manifest.Write(root); err != nil {
		return Result{}, fmt.Errorf("write manifest: %w", err)
	}

	return res, nil
}

func (e *Exporter) exportFiles(ctx context.Context, root string) ([]storage.FileRecord, error) {
	rows, err := e.graphWriter.Query(ctx, e.repoID,
		`MATCH (f:File {repoId:$repoId}) RETURN f`, map[string]any{"repoId": e.repoID})
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}

	records := make([]storage.FileRecord, 0, len(rows))
	for _, row := range rows {
		props := nodeProperties(row["f"])
		records = append(records, storage.FileRecord{
			ID:           fmt.Sprintf("%s:file:%s", e.repoID, stringProp(props, "path")),
			Type:         "file",
			Path:         stringProp(props, "path"),
			Language:     stringProp(props, "language"),
			ByteSize:     int64(intProp(props, "byteSize")),
			BlobHash:     stringProp(props, "blobHash"),
			LastModified: normalizeLastModified(props["lastModified"]),
			LinesOfCode:  intProp(props, "linesOfCode"),
			Complexity:   intProp(props, "complexity"),
		})
	}

	if err := storage.WriteShard(filepath.Join(storage.GraphNodesDir(root), "files.jsonl"), records); err != nil {
		return nil, fmt.Errorf("write files shard: %w", err)
	}
	return records, nil
}

func (e *Exporter) exportSymbols(ctx context.Context, root string) ([]storage.SymbolRecord, error) {
	rows, err := e.graphWriter.Query(ctx, e.repoID,
		`MATCH (s:Symbol {repoId:$repoId}) RETURN s`, map[string]any{"repoId": e.repoID})
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}

	records := make([]storage.SymbolRecord, 0, len(rows))
	for _, row := range rows {
		props := nodeProperties(row["s"])
		records = append(records, storage.SymbolRecord{
			ID:            fmt.Sprintf("%s:symbol:%s", e.repoID, stringProp(props, "qualifiedName")),
			Type:          "symbol",
			QualifiedName: stringProp(props, "qualifiedName"),
			ShortName:     stringProp(props, "shortName"),
			Kind:          stringProp(props, "kind"),
			File:          stringProp(props, "file"),
			StartLine:     intProp(props, "startLine"),
			EndLine:       intProp(props, "endLine"),
			Signature:     stringProp(props, "signature"),
			Docstring:     stringProp(props, "docstring"),
			ReturnType:    stringProp(props, "returnType"),
			Visibility:    stringProp(props, "visibility"),
			IsAsync:       boolProp(props, "isAsync"),
			IsStatic:      boolProp(props, "isStatic"),
			Complexity:    intProp(props, "complexity"),
		})
	}

	if err := storage.WriteShard(filepath.Join(storage.GraphNodesDir(root), "symbols.jsonl"), records); err != nil {
		return nil, fmt.Errorf("write symbols shard: %w", err)
	}
	return records, nil
}

func (e *Exporter) exportEdges(ctx context.Context, root, shardName, cypher, edgeType string) (int, error) {
	rows, err := e.graphWriter.Query(ctx, e.repoID, cypher, map[string]any{"repoId": e.repoID})
	if err != nil {
		return 0, fmt.Errorf("query %s edges: %w", edgeType, err)
	}

	records := make([]storage.EdgeRecord, 0, len(rows))
	for _, row := range rows {
		metadata := make(map[string]any, len(row))
		for k, v := range row {
			if k == "source" || k == "target" {
				continue
			}
			metadata[k] = v
		}
		records = append(records, storage.EdgeRecord{
			Source:   fmt.Sprintf("%v", row["source"]),
			Target:   fmt.Sprintf("%v", row["target"]),
			Type:     edgeType,
			Metadata: metadata,
		})
	}

	if err := storage.WriteShard(filepath.Join(storage.GraphEdgesDir(root), shardName), records); err != nil {
		return 0, fmt.Errorf("write %s shard: %w", shardName, err)
	}
	return len(records), nil
}

// exportVectors scrolls the live collection to disk, also returning the
// dimensionality observed on the first point (0 if the collection is empty),
// which Export uses as the declared manifest.embedding.dimensions per
// invariant I4 and scenario S4.
func (e *Exporter) exportVectors(ctx context.Context, root string) (int, int, error) {
	collection := identity.VectorCollectionName(e.repoID)
	points, err := e.scrollAll(ctx, collection)
	if err != nil {
		if e.logger != nil {
			e.logger.Warnf("collection %s unavailable, skipping: %v", collection, err)
		}
		return 0, 0, nil
	}

	records := make([]storage.VectorRecord, 0, len(points))
	dims := 0
	for _, p := range points {
		text, _ := p.Payload["text"].(string)
		records = append(records, storage.VectorRecord{ID: p.ID, Text: text, Embedding: p.Vector, Metadata: p.Payload})
		if dims == 0 {
			dims = len(p.Vector)
		}
	}
	if err := storage.WriteShard(filepath.Join(storage.VectorsDir(root), "code_chunks.jsonl"), records); err != nil {
		return 0, 0, fmt.Errorf("write vector shard: %w", err)
	}
	return len(records), dims, nil
}

func (e *Exporter) scrollAll(ctx context.Context, collection string) ([]vector.Point, error) {
	var all []vector.Point
	offset := ""
	for {
		page, err := e.vectorWriter.Scroll(ctx, collection, 100, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Points...)
		if page.NextOffset == "" {
			break
		}
		offset = page.NextOffset
	}
	return all, nil
}
