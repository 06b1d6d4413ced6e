package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/controlvector/cv-engine/internal/cache"
	"github.com/controlvector/cv-engine/internal/config"
	"github.com/controlvector/cv-engine/internal/exporter"
	"github.com/controlvector/cv-engine/internal/git"
	"github.com/controlvector/cv-engine/internal/graph"
	"github.com/controlvector/cv-engine/internal/identity"
	"github.com/controlvector/cv-engine/internal/parser"
	"github.com/controlvector/cv-engine/internal/storage"
	"github.com/controlvector/cv-engine/internal/treesitter"
	"github.com/controlvector/cv-engine/internal/vector"
)

// Driver owns the backends one sync run touches and runs them through the
// stage sequence full_sync/incremental_sync describe in spec.md §4.9.
type Driver struct {
	graphWriter  graph.Writer
	vectorWriter *vector.Writer
	cacheManager *cache.Manager
	dispatcher   *parser.Dispatcher
	syncCfg      config.SyncConfig
	repoID       string
	logger       *logrus.Logger
}

// New builds a Driver. vectorWriter may be nil (missing vector provider is a
// warning, not a failure, per spec.md §4.9's failure-semantics table).
func New(graphWriter graph.Writer, vectorWriter *vector.Writer, cacheManager *cache.Manager, repoID string, syncCfg config.SyncConfig, logger *logrus.Logger) *Driver {
	return &Driver{
		graphWriter:  graphWriter,
		vectorWriter: vectorWriter,
		cacheManager: cacheManager,
		dispatcher:   parser.NewDispatcher(treesitter.Registry()),
		syncCfg:      syncCfg,
		repoID:       repoID,
		logger:       logger,
	}
}

// FullSync re-indexes every tracked file in the repository rooted at
// opts.Root, writing the full structural graph and semantic vectors, then
// exporting to disk.
func (d *Driver) FullSync(ctx context.Context, opts Options) (*storage.SyncState, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	start := time.Now()

	// Enumerating
	entries, err := enumerateFiles(root, d.syncCfg)
	if err != nil {
		return nil, fail(StageEnumerating, err)
	}

	// Parsing
	parsed, result, hashByPath, err := d.parseEntries(ctx, root, entries)
	if err != nil {
		return nil, fail(StageParsing, err)
	}

	// GraphWrite
	if err := d.writeGraph(ctx, root, parsed, hashByPath, result); err != nil {
		return nil, fail(StageGraphWrite, err)
	}

	// VectorWrite (non-fatal)
	if !opts.SkipVectors {
		d.writeVectors(ctx, parsed, result)
	}

	return d.finish(ctx, root, opts, result, start, d.lastCommit(root), true)
}

// IncrementalSync re-indexes only changedFiles, but rebuilds the global
// call-resolution indices from the full live symbol set (new plus changed)
// since a changed file's callers elsewhere in the repo may now resolve
// differently.
func (d *Driver) IncrementalSync(ctx context.Context, changedFiles []string, opts Options) (*storage.SyncState, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	start := time.Now()

	all, err := enumerateFiles(root, d.syncCfg)
	if err != nil {
		return nil, fail(StageEnumerating, err)
	}
	changed := map[string]bool{}
	for _, f := range changedFiles {
		changed[f] = true
	}
	entries := all[:0]
	for _, e := range all {
		if changed[e.Path] {
			entries = append(entries, e)
		}
	}

	parsed, result, hashByPath, err := d.parseEntries(ctx, root, entries)
	if err != nil {
		return nil, fail(StageParsing, err)
	}

	if err := d.writeGraph(ctx, root, parsed, hashByPath, result); err != nil {
		return nil, fail(StageGraphWrite, err)
	}

	if !opts.SkipVectors {
		d.writeVectors(ctx, parsed, result)
	}

	return d.finish(ctx, root, opts, result, start, d.lastCommit(root), false)
}

func (d *Driver) parseEntries(ctx context.Context, root string, entries []git.BlobEntry) ([]*parser.ParsedFile, *Result, map[string]string, error) {
	result := &Result{PerLanguageCounts: map[string]int{}}

	var toParse []git.BlobEntry
	var fromCache []*parser.ParsedFile

	hashByPath := make(map[string]string, len(entries))
	for _, e := range entries {
		hashByPath[e.Path] = e.Hash
	}

	for _, e := range entries {
		if cached, ok := d.cacheManager.GetParsedFile(e.Hash); ok {
			content, err := os.ReadFile(filepath.Join(root, e.Path))
			if err == nil {
				cached.Content = string(content)
			}
			fromCache = append(fromCache, cached)
			continue
		}
		toParse = append(toParse, e)
	}

	inputs, err := toFileInputs(toParse, func(path string) ([]byte, error) {
		return os.ReadFile(filepath.Join(root, path))
	})
	if err != nil {
		return nil, nil, nil, err
	}

	results, err := d.dispatcher.ParseAll(ctx, inputs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("dispatch parsing: %w", err)
	}

	parsed := fromCache

	for _, r := range results {
		if r.Err != nil {
			result.ParseErrors = append(result.ParseErrors, r.Err.Error())
			continue
		}
		parsed = append(parsed, r.Parsed)
		if err := d.cacheManager.PutParsedFile(hashByPath[r.Path], r.Parsed); err != nil {
			d.logger.WithError(err).Warnf("failed to cache parsed file %s", r.Path)
		}
	}

	for _, pf := range parsed {
		result.PerLanguageCounts[pf.Language]++
	}
	result.Stage = StageParsing
	return parsed, result, hashByPath, nil
}

func (d *Driver) writeGraph(ctx context.Context, root string, parsed []*parser.ParsedFile, hashByPath map[string]string, result *Result) error {
	for _, pf := range parsed {
		info, err := os.Stat(filepath.Join(root, pf.Path))
		var size int64
		var modified string
		if err == nil {
			size = info.Size()
			modified = info.ModTime().UTC().Format(time.RFC3339)
		}
		if err := d.graphWriter.UpsertFile(ctx, d.repoID, graph.FileRecord{
			Path:         pf.Path,
			Language:     pf.Language,
			ByteSize:     size,
			BlobHash:     hashByPath[pf.Path],
			LastModified: modified,
			LinesOfCode:  countLines(pf.Content),
		}); err != nil {
			return fmt.Errorf("upsert file %s: %w", pf.Path, err)
		}

		for _, s := range pf.Symbols {
			if err := d.graphWriter.UpsertSymbol(ctx, d.repoID, s); err != nil {
				return fmt.Errorf("upsert symbol %s: %w", s.QualifiedName, err)
			}
			if err := d.graphWriter.EdgeDefines(ctx, d.repoID, pf.Path, s.QualifiedName, s.StartLine); err != nil {
				return fmt.Errorf("edge defines %s -> %s: %w", pf.Path, s.QualifiedName, err)
			}
			result.Symbols++
		}
	}
	result.Files = len(parsed)

	for _, ri := range graph.ResolveImports(parsed) {
		if err := d.graphWriter.EdgeImports(ctx, d.repoID, ri.SrcFile, ri.DstFile, ri.Import); err != nil {
			return fmt.Errorf("edge imports %s -> %s: %w", ri.SrcFile, ri.DstFile, err)
		}
		result.ImportEdges++
	}

	for _, rc := range graph.ResolveCalls(parsed) {
		if err := d.graphWriter.EdgeCalls(ctx, d.repoID, rc); err != nil {
			return fmt.Errorf("edge calls %s -> %s: %w", rc.FromQualifiedName, rc.ToQualifiedName, err)
		}
		result.CallEdges++
	}

	result.Stage = StageGraphWrite
	return nil
}

// writeVectors embeds and upserts each parsed file's chunks. Per spec.md
// §4.9's failure table, vector-write failures are logged and skipped rather
// than aborting the sync — a missing embedding is recoverable on the next
// sync, a broken graph is not.
func (d *Driver) writeVectors(ctx context.Context, parsed []*parser.ParsedFile, result *Result) {
	if d.vectorWriter == nil {
		d.logger.Warn("no vector writer configured, skipping vector write stage")
		return
	}

	collection := identity.VectorCollectionName(d.repoID)
	var dims int
	var texts []string
	var points []vector.Point
	for _, pf := range parsed {
		for _, c := range pf.Chunks {
			texts = append(texts, c.Text)
			points = append(points, vector.Point{
				ID: fmt.Sprintf("%s:%s:%s", d.repoID, pf.Path, c.ID),
				Payload: map[string]any{
					"text": c.Text, "path": pf.Path, "symbol": c.SymbolName,
					"startLine": c.StartLine, "endLine": c.EndLine,
				},
			})
		}
	}
	if len(texts) == 0 {
		return
	}

	vecs, err := d.vectorWriter.EmbedBatch(ctx, texts)
	if err != nil {
		d.logger.WithError(err).Warn("embedding batch failed, skipping vector write stage")
		return
	}
	for i, v := range vecs {
		points[i].Vector = v
		if dims == 0 {
			dims = len(v)
		}
	}

	if err := d.vectorWriter.EnsureCollection(ctx, collection, dims); err != nil {
		d.logger.WithError(err).Warn("ensure collection failed, skipping vector write stage")
		return
	}
	if err := d.vectorWriter.UpsertBatch(ctx, collection, points); err != nil {
		d.logger.WithError(err).Warn("vector upsert failed")
		return
	}
	result.VectorPoints = len(points)
	result.Stage = StageVectorWrite
}

func (d *Driver) finish(ctx context.Context, root string, opts Options, result *Result, start time.Time, lastCommit string, full bool) (*storage.SyncState, error) {
	prior, err := storage.ReadSyncState(root)
	if err != nil {
		return nil, fmt.Errorf("read prior sync state: %w", err)
	}

	state := &storage.SyncState{
		LastFullSync:        prior.LastFullSync,
		LastIncrementalSync: prior.LastIncrementalSync,
		LastCommitSynced:    lastCommit,
		PerLanguageCounts:   result.PerLanguageCounts,
		ElapsedMs:           time.Since(start).Milliseconds(),
		Errors:              result.ParseErrors,
		Counts: storage.SyncStats{
			Files:         result.Files,
			Symbols:       result.Symbols,
			Relationships: result.ImportEdges + result.CallEdges,
			Vectors:       result.VectorPoints,
			LastSync:      start,
		},
	}
	if full {
		state.LastFullSync = start
	} else {
		state.LastIncrementalSync = start
	}

	if !opts.SkipExport {
		exp := exporter.New(d.graphWriter, d.vectorWriter, d.repoID, d.logger)
		if _, err := exp.Export(ctx, root); err != nil {
			return nil, fail(StageExporting, err)
		}
	}

	if err := state.Write(root); err != nil {
		return nil, fmt.Errorf("write sync state: %w", err)
	}
	return state, nil
}

func (d *Driver) lastCommit(root string) string {
	sha, err := git.CurrentCommitSHAAt(root)
	if err != nil {
		return ""
	}
	return sha
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := 1
	for _, r := range content {
		if r == '\n' {
			n++
		}
	}
	return n
}
