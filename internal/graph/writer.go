// Package graph implements the Graph Writer (spec.md §4.4): translating
// parsed files into File/Symbol nodes and DEFINES/IMPORTS/CALLS edges,
// upserted idempotently into Neo4j. Grounded on the teacher's
// internal/graph/neo4j_client.go (driver construction, connection-pool
// tuning, ExecuteQuery usage) and internal/graph/builder.go
// (buildCompositeNodeID, idempotent MERGE style, stats tracking),
// generalized from the teacher's GitHub-activity graph (commits, PRs,
// developers) to this engine's structural graph.
package graph

import (
	"context"
	"fmt"

	"github.com/controlvector/cv-engine/internal/parser"
)

// FileRecord is the File node's property set (spec.md §3's File entity).
type FileRecord struct {
	Path         string
	Language     string
	ByteSize     int64
	BlobHash     string
	LastModified string // ISO-8601
	LinesOfCode  int
	Complexity   int
}

// Writer is the Graph Writer's operation set, matching spec.md §4.4 one for
// one: upsert_file, upsert_symbol, edge_defines, edge_imports, edge_calls,
// clear, stats, query.
type Writer interface {
	UpsertFile(ctx context.Context, repoID string, f FileRecord) error
	UpsertSymbol(ctx context.Context, repoID string, s parser.Symbol) error
	EdgeDefines(ctx context.Context, repoID, filePath, qualifiedName string, line int) error
	EdgeImports(ctx context.Context, repoID, srcFile, dstFile string, imp parser.Import) error
	EdgeCalls(ctx context.Context, repoID string, call ResolvedCall) error
	Clear(ctx context.Context, repoID string) error
	Stats(ctx context.Context, repoID string) (Stats, error)
	Query(ctx context.Context, repoID, cypher string, params map[string]any) ([]map[string]any, error)
	Close(ctx context.Context) error
}

// Neo4jWriter is the Writer backed by a *Client.
type Neo4jWriter struct {
	client *Client
}

// NewNeo4jWriter wraps an already-connected Client as a Writer.
func NewNeo4jWriter(client *Client) *Neo4jWriter {
	return &Neo4jWriter{client: client}
}

// fileNodeID builds the composite, multi-repo-safe node ID for a File,
// following the teacher's buildCompositeNodeID("<repoId>:<type>:<id>")
// convention.
func fileNodeID(repoID, path string) string {
	return fmt.Sprintf("%s:file:%s", repoID, path)
}

// symbolNodeID builds the composite node ID for a Symbol.
func symbolNodeID(repoID, qualifiedName string) string {
	return fmt.Sprintf("%s:symbol:%s", repoID, qualifiedName)
}

// UpsertFile idempotently merges a File node, stamping the current repoId
// (invariant 6) and overwriting mutable fields on re-sync (invariant: File
// "updated in place... when blob hash changes").
func (w *Neo4jWriter) UpsertFile(ctx context.Context, repoID string, f FileRecord) error {
	query := `
		MERGE (file:File {id: $id})
		SET file.repoId = $repoId,
		    file.path = $path,
		    file.language = $language,
		    file.byteSize = $byteSize,
		    file.blobHash = $blobHash,
		    file.lastModified = $lastModified,
		    file.linesOfCode = $linesOfCode,
		    file.complexity = $complexity
	`
	_, err := w.client.ExecuteQuery(ctx, query, map[string]any{
		"id":           fileNodeID(repoID, f.Path),
		"repoId":       repoID,
		"path":         f.Path,
		"language":     f.Language,
		"byteSize":     f.ByteSize,
		"blobHash":     f.BlobHash,
		"lastModified": f.LastModified,
		"linesOfCode":  f.LinesOfCode,
		"complexity":   f.Complexity,
	})
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", f.Path, err)
	}
	return nil
}

// UpsertSymbol idempotently merges a Symbol node.
func (w *Neo4jWriter) UpsertSymbol(ctx context.Context, repoID string, s parser.Symbol) error {
	query := `
		MERGE (sym:Symbol {id: $id})
		SET sym.repoId = $repoId,
		    sym.qualifiedName = $qualifiedName,
		    sym.shortName = $shortName,
		    sym.kind = $kind,
		    sym.file = $file,
		    sym.startLine = $startLine,
		    sym.endLine = $endLine,
		    sym.signature = $signature,
		    sym.docstring = $docstring,
		    sym.returnType = $returnType,
		    sym.visibility = $visibility,
		    sym.isAsync = $isAsync,
		    sym.isStatic = $isStatic,
		    sym.complexity = $complexity
	`
	_, err := w.client.ExecuteQuery(ctx, query, map[string]any{
		"id":            symbolNodeID(repoID, s.QualifiedName),
		"repoId":        repoID,
		"qualifiedName": s.QualifiedName,
		"shortName":     s.ShortName,
		"kind":          string(s.Kind),
		"file":          s.File,
		"startLine":     s.StartLine,
		"endLine":       s.EndLine,
		"signature":     s.Signature,
		"docstring":     s.Docstring,
		"returnType":    s.ReturnType,
		"visibility":    string(s.Visibility),
		"isAsync":       s.IsAsync,
		"isStatic":      s.IsStatic,
		"complexity":    s.Complexity,
	})
	if err != nil {
		return fmt.Errorf("upsert symbol %s: %w", s.QualifiedName, err)
	}
	return nil
}

// EdgeDefines merges a DEFINES edge from a File to a Symbol it declares.
// Per spec.md §4.4, edges whose endpoints don't both exist are silently
// skipped — MATCH on both sides (rather than MERGE with implicit creation)
// is what makes that a no-op instead of a dangling-node write.
func (w *Neo4jWriter) EdgeDefines(ctx context.Context, repoID, filePath, qualifiedName string, line int) error {
	query := `
		MATCH (file:File {id: $fileID})
		MATCH (sym:Symbol {id: $symID})
		MERGE (file)-[edge:DEFINES]->(sym)
		SET edge.line = $line
	`
	_, err := w.client.ExecuteQuery(ctx, query, map[string]any{
		"fileID": fileNodeID(repoID, filePath),
		"symID":  symbolNodeID(repoID, qualifiedName),
		"line":   line,
	})
	if err != nil {
		return fmt.Errorf("edge defines %s -> %s: %w", filePath, qualifiedName, err)
	}
	return nil
}

// EdgeImports merges an IMPORTS edge between two File nodes. Callers only
// invoke this for imports already resolved to an in-graph file path
// (external imports are dropped before reaching the writer, per spec.md §3's
// Import Edge entity).
func (w *Neo4jWriter) EdgeImports(ctx context.Context, repoID, srcFile, dstFile string, imp parser.Import) error {
	query := `
		MATCH (src:File {id: $srcID})
		MATCH (dst:File {id: $dstID})
		MERGE (src)-[edge:IMPORTS]->(dst)
		SET edge.source = $source,
		    edge.importedSymbols = $importedSymbols,
		    edge.style = $style,
		    edge.line = $line
	`
	_, err := w.client.ExecuteQuery(ctx, query, map[string]any{
		"srcID":           fileNodeID(repoID, srcFile),
		"dstID":           fileNodeID(repoID, dstFile),
		"source":          imp.Source,
		"importedSymbols": imp.ImportedSymbols,
		"style":           string(imp.Style),
		"line":            imp.Line,
	})
	if err != nil {
		return fmt.Errorf("edge imports %s -> %s: %w", srcFile, dstFile, err)
	}
	return nil
}

// EdgeCalls merges a CALLS edge between two already-resolved Symbol nodes.
func (w *Neo4jWriter) EdgeCalls(ctx context.Context, repoID string, call ResolvedCall) error {
	query := `
		MATCH (src:Symbol {id: $srcID})
		MATCH (dst:Symbol {id: $dstID})
		MERGE (src)-[edge:CALLS]->(dst)
		ON CREATE SET edge.line = $line, edge.isConditional = $isConditional, edge.callCount = 1
		ON MATCH SET edge.callCount = edge.callCount + 1
	`
	_, err := w.client.ExecuteQuery(ctx, query, map[string]any{
		"srcID":         symbolNodeID(repoID, call.FromQualifiedName),
		"dstID":         symbolNodeID(repoID, call.ToQualifiedName),
		"line":          call.Line,
		"isConditional": call.IsConditional,
	})
	if err != nil {
		return fmt.Errorf("edge calls %s -> %s: %w", call.FromQualifiedName, call.ToQualifiedName, err)
	}
	return nil
}

// Clear deletes every node (and incident edge) stamped with repoID, leaving
// other repositories sharing this database untouched.
func (w *Neo4jWriter) Clear(ctx context.Context, repoID string) error {
	query := `MATCH (n {repoId: $repoId}) DETACH DELETE n`
	_, err := w.client.ExecuteQuery(ctx, query, map[string]any{"repoId": repoID})
	if err != nil {
		return fmt.Errorf("clear graph for repo %s: %w", repoID, err)
	}
	return nil
}

// Stats reports the current File/Symbol node counts and total relationship
// count scoped to repoID.
func (w *Neo4jWriter) Stats(ctx context.Context, repoID string) (Stats, error) {
	query := `
		MATCH (f:File {repoId: $repoId})
		WITH count(f) AS files
		OPTIONAL MATCH (s:Symbol {repoId: $repoId})
		WITH files, count(s) AS symbols
		OPTIONAL MATCH (n {repoId: $repoId})-[r]->(m {repoId: $repoId})
		RETURN files, symbols, count(r) AS relationships
	`
	rows, err := w.client.ExecuteQuery(ctx, query, map[string]any{"repoId": repoID})
	if err != nil {
		return Stats{}, fmt.Errorf("stats for repo %s: %w", repoID, err)
	}
	if len(rows) == 0 {
		return Stats{}, nil
	}
	return Stats{
		Files:         coerceInt(rows[0]["files"]),
		Symbols:       coerceInt(rows[0]["symbols"]),
		Relationships: coerceInt(rows[0]["relationships"]),
	}, nil
}

// Query runs an arbitrary Cypher statement, for callers (the Exporter,
// diagnostics tooling) that need direct graph access beyond the named
// upsert operations.
func (w *Neo4jWriter) Query(ctx context.Context, repoID, cypher string, params map[string]any) ([]map[string]any, error) {
	return w.client.ExecuteQuery(ctx, cypher, params)
}

// Close releases the underlying driver.
func (w *Neo4jWriter) Close(ctx context.Context) error {
	return w.client.Close(ctx)
}

// coerceInt defensively coerces a Neo4j numeric result (typically int64)
// into an int, per spec.md §4.4's note that back-end schema mismatches must
// be coerced rather than trusted.
func coerceInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
