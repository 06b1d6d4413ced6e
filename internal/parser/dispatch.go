package parser

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// maxConcurrentParses bounds how many files are parsed at once. Tree-sitter
// parsers are not goroutine-safe to share, but each extractor call builds
// its own *sitter.Parser, so the only resource under contention is CPU.
const maxConcurrentParses = 10

// Extractor is implemented once per language by internal/treesitter. It owns
// the tree-sitter grammar, walks the resulting CST, and returns a ParsedFile
// in the uniform schema.
type Extractor interface {
	Language() string
	Extract(path string, content []byte) (*ParsedFile, error)
}

// FileInput is one file handed to the dispatcher: its repo-relative path and
// raw bytes, plus the language the caller has already resolved for it.
type FileInput struct {
	Path     string
	Language string
	Content  []byte
}

// FileResult pairs one FileInput with its parse outcome. Err is non-nil when
// extraction failed; per spec, a parse failure is non-fatal and logged, so
// callers collect FileResult.Err rather than aborting the whole dispatch.
type FileResult struct {
	Path   string
	Parsed *ParsedFile
	Err    error
}

// Dispatcher fans a file set out across registered per-language Extractors
// with a bounded concurrency limit.
type Dispatcher struct {
	extractors map[string]Extractor
}

// NewDispatcher builds a Dispatcher from a language-name -> Extractor
// registry. Unknown languages fail fast at registration time, not mid-run.
func NewDispatcher(extractors map[string]Extractor) *Dispatcher {
	return &Dispatcher{extractors: extractors}
}

// ParseAll parses every input concurrently, bounded by maxConcurrentParses,
// and returns one FileResult per input in input order. A context cancellation
// stops scheduling further work and returns ctx.Err(); in-flight parses are
// allowed to finish since tree-sitter parse calls are not cancellable.
func (d *Dispatcher) ParseAll(ctx context.Context, files []FileInput) ([]FileResult, error) {
	results := make([]FileResult, len(files))
	sem := semaphore.NewWeighted(maxConcurrentParses)
	g, ctx := errgroup.WithContext(ctx)

	for i, f := range files {
		i, f := i, f
		if err := sem.Acquire(ctx, 1); err != nil {
			return results, fmt.Errorf("parser: dispatch cancelled: %w", err)
		}
		g.Go(func() error {
			defer sem.Release(1)
			results[i] = d.parseOne(f)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (d *Dispatcher) parseOne(f FileInput) FileResult {
	ext, ok := d.extractors[f.Language]
	if !ok {
		return FileResult{Path: f.Path, Err: fmt.Errorf("parser: no extractor registered for language %q", f.Language)}
	}
	parsed, err := ext.Extract(f.Path, f.Content)
	if err != nil {
		return FileResult{Path: f.Path, Err: fmt.Errorf("parser: %s: %w", f.Path, err)}
	}
	return FileResult{Path: f.Path, Parsed: parsed}
}
