package treesitter

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"

	"github.com/controlvector/cv-engine/internal/parser"
)

type javascriptExtractor struct{}

func (javascriptExtractor) Language() string { return "javascript" }

func (javascriptExtractor) Extract(path string, content []byte) (*parser.ParsedFile, error) {
	lang := sitter.NewLanguage(tree_sitter_javascript.Language())
	p, err := newParser(lang)
	if err != nil {
		return nil, fmt.Errorf("javascript: %w", err)
	}
	defer p.Close()

	tree := p.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("javascript: parse failed for %s", path)
	}
	defer tree.Close()

	pf := &parser.ParsedFile{Path: path, Language: "javascript", Content: string(content)}
	walkJSLike(pf, path, tree.RootNode(), content, "javascript", nil)
	return pf, nil
}
