// Package treesitter implements one parser.Extractor per language spec.md's
// dispatch table names, each built on github.com/tree-sitter/go-tree-sitter
// and the matching github.com/tree-sitter/tree-sitter-<lang> grammar.
package treesitter

import (
	"path/filepath"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/controlvector/cv-engine/internal/parser"
)

// extensionLanguage mirrors spec.md §4.3's dispatch table. DetectLanguage is
// the single source of truth for extension -> language so the Sync Driver's
// file walk and the parser dispatch agree on it.
var extensionLanguage = map[string]string{
	".py":   "python",
	".pyi":  "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".mts":  "typescript",
	".cts":  "typescript",
	".go":   "go",
	".rs":   "rust",
	".java": "java",
}

// DetectLanguage returns the language identifier for a file path's
// extension, or "" if the extension isn't in the supported set.
func DetectLanguage(path string) string {
	return extensionLanguage[filepath.Ext(path)]
}

func newParser(lang *sitter.Language) (*sitter.Parser, error) {
	p := sitter.NewParser()
	if err := p.SetLanguage(lang); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Registry builds the full set of extractors this engine supports, keyed by
// language name, ready to hand to parser.NewDispatcher.
func Registry() map[string]parser.Extractor {
	return map[string]parser.Extractor{
		"python":     pythonExtractor{},
		"javascript": javascriptExtractor{},
		"typescript": typescriptExtractor{},
		"go":         goExtractor{},
		"rust":       rustExtractor{},
		"java":       javaExtractor{},
	}
}
