// Package sync implements the Sync Driver (spec.md §4.9): the state machine
// that walks a repository's tracked files, dispatches them to the parser,
// writes the resulting structural graph and semantic vectors, and exports
// the result to disk. Grounded on the teacher's cmd/crisk-sync/main.go and
// cmd/crisk-ingest/main.go for the "connect to each backend, run the
// pipeline, report a step-numbered summary" shape, and on
// internal/ingestion/processor.go's ProcessorConfig/ProcessResult structs,
// which SyncOptions/State directly generalize.
package sync

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/controlvector/cv-engine/internal/config"
	"github.com/controlvector/cv-engine/internal/git"
	"github.com/controlvector/cv-engine/internal/parser"
	"github.com/controlvector/cv-engine/internal/treesitter"
)

// defaultExcludes are skipped regardless of SyncConfig.ExcludePatterns —
// vendored/dependency directories no engine should ever index.
var defaultExcludes = []string{
	".git/", "node_modules/", "vendor/", ".cv/", "dist/", "build/", "target/",
	".next/", ".nuxt/", "__pycache__/", ".venv/", "venv/",
}

// generatedSuffixes and testFixtureDirs adapt the engine's earlier
// directory-walk prototype's (internal/ingestion/walker.go, now retired in
// favor of git-tracked enumeration) generated-file and fixture-directory
// detection, so a bundled/minified/codegen'd file or a test fixture never
// becomes a graph node just because it happens to carry a supported
// extension.
var generatedSuffixes = []string{
	".min.js", ".bundle.js", ".generated.ts", ".generated.js",
	".pb.js", ".pb.ts", "_pb.js", "_pb.ts", ".pb.go",
}

var testFixtureDirs = []string{
	"/__tests__/fixtures/", "/__mocks__/", "/test/fixtures/",
	"/tests/fixtures/", "/spec/fixtures/",
}

// enumerateFiles lists every git-tracked file under root whose language is
// supported, applying the built-in excludes plus cfg's include/exclude
// patterns. Returns each file's repo-relative path, resolved language, and
// blob hash (for the parse cache key).
func enumerateFiles(root string, cfg config.SyncConfig) ([]git.BlobEntry, error) {
	entries, err := git.BlobHashes(root)
	if err != nil {
		return nil, fmt.Errorf("enumerate tracked files: %w", err)
	}

	filtered := entries[:0]
	for _, e := range entries {
		if !isSupported(e.Path) {
			continue
		}
		if isExcluded(e.Path, cfg.ExcludePatterns) {
			continue
		}
		if len(cfg.IncludePatterns) > 0 && !isIncluded(e.Path, cfg.IncludePatterns) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered, nil
}

func isSupported(path string) bool {
	return treesitter.DetectLanguage(path) != ""
}

func isExcluded(path string, extra []string) bool {
	for _, prefix := range defaultExcludes {
		if strings.Contains(path, prefix) {
			return true
		}
	}
	for _, suffix := range generatedSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	for _, dir := range testFixtureDirs {
		if strings.Contains(path, dir) {
			return true
		}
	}
	for _, pattern := range extra {
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
		if strings.Contains(path, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}
	return false
}

func isIncluded(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}
	return false
}

// toFileInputs reads each entry's content from the cache or disk (loadFn
// supplies the bytes so tests can stub the filesystem) and builds the
// parser.FileInput set ParseAll expects.
func toFileInputs(entries []git.BlobEntry, loadFn func(path string) ([]byte, error)) ([]parser.FileInput, error) {
	inputs := make([]parser.FileInput, 0, len(entries))
	for _, e := range entries {
		content, err := loadFn(e.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Path, err)
		}
		inputs = append(inputs, parser.FileInput{
			Path:     e.Path,
			Language: treesitter.DetectLanguage(e.Path),
			Content:  content,
		})
	}
	return inputs, nil
}
