// Package hydrator implements the Hydrator (spec.md §4.8): replaying an
// on-disk store back into live graph/vector backends, the inverse of
// internal/exporter. No teacher file does this exact job either; grounded
// on the same cmd/crisk-sync/main.go step-numbered orchestration shape and
// on the Graph Writer's own MERGE-based upsert idiom, so replay is
// idempotent the same way a live sync is.
package hydrator

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/controlvector/cv-engine/internal/graph"
	"github.com/controlvector/cv-engine/internal/identity"
	"github.com/controlvector/cv-engine/internal/parser"
	"github.com/controlvector/cv-engine/internal/storage"
	"github.com/controlvector/cv-engine/internal/vector"
)

// Options controls one Load call.
type Options struct {
	// Replace clears the graph for this repo before replaying, rather than
	// merging on top of whatever is already live.
	Replace bool
	// SkipVectors skips the vector replay step entirely, even if a vector
	// writer is configured — useful when only graph queries are needed.
	SkipVectors bool
	// Isolated prefixes every vector collection name with "<repoId>_" so a
	// hydrate-for-inspection doesn't collide with another live session's
	// collections of the same repo.
	Isolated bool
}

// Result summarizes one load pass.
type Result struct {
	Files        int
	Symbols      int
	ImportEdges  int
	CallEdges    int
	VectorPoints int
}

// Hydrator replays root/.cv into graphWriter and, optionally, vectorWriter.
type Hydrator struct {
	graphWriter  graph.Writer
	vectorWriter *vector.Writer
	repoID       string
}

// New builds a Hydrator.
func New(graphWriter graph.Writer, vectorWriter *vector.Writer, repoID string) *Hydrator {
	return &Hydrator{graphWriter: graphWriter, vectorWriter: vectorWriter, repoID: repoID}
}

// IsLoaded reports whether the live graph already has any File node for
// this repo, per spec.md §4.8's cold-cache probe.
func (h *Hydrator) IsLoaded(ctx context.Context) (bool, error) {
	rows, err := h.graphWriter.Query(ctx, h.repoID,
		`MATCH (f:File {repoId:$repoId}) RETURN f LIMIT 1`, map[string]any{"repoId": h.repoID})
	if err != nil {
		return false, fmt.Errorf("probe loaded state: %w", err)
	}
	return len(rows) > 0, nil
}

// StorageInfo reads the on-disk manifest without touching any live backend.
func StorageInfo(root string) (*storage.Manifest, error) {
	return storage.ReadManifest(root)
}

// Load replays an on-disk store into the configured backends, per the
// seven-step sequence in spec.md §4.8.
func (h *Hydrator) Load(ctx context.Context, root string, opts Options) (Result, error) {
	var res Result

	// 1. Read the manifest; refuse on missing store or unknown format.
	manifest, err := storage.ReadManifest(root)
	if err != nil {
		return Result{}, fmt.Errorf("read manifest: %w", err)
	}
	if manifest == nil {
		return Result{}, fmt.Errorf("no on-disk store found at %s", root)
	}

	// 2. Optionally clear the live graph first.
	if opts.Replace {
		if err := h.graphWriter.Clear(ctx, h.repoID); err != nil {
			return Result{}, fmt.Errorf("clear graph before replace: %w", err)
		}
	}

	// 3. Stream files.jsonl, upsert File nodes.
	files, err := storage.ReadShard[storage.FileRecord](
		filepath.Join(storage.GraphNodesDir(root), "files.jsonl"))
	if err != nil {
		return Result{}, fmt.Errorf("read files shard: %w", err)
	}
	for _, f := range files {
		if err := h.graphWriter.UpsertFile(ctx, h.repoID, graph.FileRecord{
			Path:         f.Path,
			Language:     f.Language,
			ByteSize:     f.ByteSize,
			BlobHash:     f.BlobHash,
			LastModified: f.LastModified,
			LinesOfCode:  f.LinesOfCode,
			Complexity:   f.Complexity,
		}); err != nil {
			return Result{}, fmt.Errorf("upsert file %s: %w", f.Path, err)
		}
	}
	res.Files = len(files)

	// 4. Stream symbols.jsonl, upsert Symbol nodes.
	symbols, err := storage.ReadShard[storage.SymbolRecord](
		filepath.Join(storage.GraphNodesDir(root), "symbols.jsonl"))
	if err != nil {
		return Result{}, fmt.Errorf("read symbols shard: %w", err)
	}
	for _, s := range symbols {
		if err := h.graphWriter.UpsertSymbol(ctx, h.repoID, parser.Symbol{
			QualifiedName: s.QualifiedName,
			ShortName:     s.ShortName,
			Kind:          parser.SymbolKind(s.Kind),
			File:          s.File,
			StartLine:     s.StartLine,
			EndLine:       s.EndLine,
			Signature:     s.Signature,
			Docstring:     s.Docstring,
			ReturnType:    s.ReturnType,
			Visibility:    parser.Visibility(s.Visibility),
			IsAsync:       s.IsAsync,
			IsStatic:      s.IsStatic,
			Complexity:    s.Complexity,
		}); err != nil {
			return Result{}, fmt.Errorf("upsert symbol %s: %w", s.QualifiedName, err)
		}
	}
	res.Symbols = len(symbols)

	// Contains/DEFINES edges replay alongside symbols, matched by path and
	// qualified name — both endpoints already exist from steps 3-4.
	defines, err := storage.ReadShard[storage.EdgeRecord](
		filepath.Join(storage.GraphEdgesDir(root), "contains.jsonl"))
	if err != nil {
		return Result{}, fmt.Errorf("read contains shard: %w", err)
	}
	for _, d := range defines {
		line := 0
		if v, ok := d.Metadata["line"]; ok {
			line = toInt(v)
		}
		if err := h.graphWriter.EdgeDefines(ctx, h.repoID, d.Source, d.Target, line); err != nil {
			return Result{}, fmt.Errorf("replay defines %s -> %s: %w", d.Source, d.Target, err)
		}
	}

	// 5. Stream imports.jsonl, match by path, upsert IMPORTS edges.
	imports, err := storage.ReadShard[storage.EdgeRecord](
		filepath.Join(storage.GraphEdgesDir(root), "imports.jsonl"))
	if err != nil {
		return Result{}, fmt.Errorf("read imports shard: %w", err)
	}
	for _, i := range imports {
		imp := parser.Import{Source: stringMeta(i.Metadata, "source")}
		if err := h.graphWriter.EdgeImports(ctx, h.repoID, i.Source, i.Target, imp); err != nil {
			return Result{}, fmt.Errorf("replay imports %s -> %s: %w", i.Source, i.Target, err)
		}
	}
	res.ImportEdges = len(imports)

	// 6. Stream calls.jsonl, match by qualified name, upsert CALLS edges.
	calls, err := storage.ReadShard[storage.EdgeRecord](
		filepath.Join(storage.GraphEdgesDir(root), "calls.jsonl"))
	if err != nil {
		return Result{}, fmt.Errorf("read calls shard: %w", err)
	}
	for _, c := range calls {
		call := graph.ResolvedCall{
			FromQualifiedName: c.Source,
			ToQualifiedName:   c.Target,
			Line:              toInt(c.Metadata["line"]),
			IsConditional:     boolMeta(c.Metadata, "isConditional"),
		}
		if err := h.graphWriter.EdgeCalls(ctx, h.repoID, call); err != nil {
			return Result{}, fmt.Errorf("replay calls %s -> %s: %w", c.Source, c.Target, err)
		}
	}
	res.CallEdges = len(calls)

	// 7. If a vector store is configured and not skipped, replay vectors.
	if h.vectorWriter != nil && !opts.SkipVectors {
		points, err := h.loadVectors(ctx, root, manifest, opts.Isolated)
		if err != nil {
			return Result{}, fmt.Errorf("replay vectors: %w", err)
		}
		res.VectorPoints = points
	}

	return res, nil
}

// LoadVectorsOnly replays only the vector shards, skipping the graph
// entirely — used when a caller only needs semantic search restored.
func (h *Hydrator) LoadVectorsOnly(ctx context.Context, root string, opts Options) (int, error) {
	manifest, err := storage.ReadManifest(root)
	if err != nil {
		return 0, fmt.Errorf("read manifest: %w", err)
	}
	if manifest == nil {
		return 0, fmt.Errorf("no on-disk store found at %s", root)
	}
	return h.loadVectors(ctx, root, manifest, opts.Isolated)
}

func (h *Hydrator) loadVectors(ctx context.Context, root string, manifest *storage.Manifest, isolated bool) (int, error) {
	records, err := storage.ReadShard[storage.VectorRecord](
		filepath.Join(storage.VectorsDir(root), "code_chunks.jsonl"))
	if err != nil {
		return 0, fmt.Errorf("read vector shard: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	name := identity.VectorCollectionName(h.repoID)
	if isolated {
		name = h.repoID + "_isolated_chunks"
	}

	dims := manifest.Embedding.Dimensions
	if dims == 0 && len(records[0].Embedding) > 0 {
		dims = len(records[0].Embedding)
	}
	if err := h.vectorWriter.EnsureCollection(ctx, name, dims); err != nil {
		return 0, fmt.Errorf("ensure collection %s: %w", name, err)
	}

	points := make([]vector.Point, 0, len(records))
	for _, r := range records {
		payload := r.Metadata
		if payload == nil {
			payload = map[string]any{}
		}
		payload["text"] = r.Text
		points = append(points, vector.Point{ID: r.ID, Vector: r.Embedding, Payload: payload})
	}
	if err := h.vectorWriter.UpsertBatch(ctx, name, points); err != nil {
		return 0, fmt.Errorf("upsert %s points: %w", name, err)
	}
	return len(points), nil
}

func stringMeta(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolMeta(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
