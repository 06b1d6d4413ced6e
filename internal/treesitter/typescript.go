package treesitter

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/controlvector/cv-engine/internal/parser"
)

type typescriptExtractor struct{}

func (typescriptExtractor) Language() string { return "typescript" }

func (typescriptExtractor) Extract(path string, content []byte) (*parser.ParsedFile, error) {
	lang := sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	p, err := newParser(lang)
	if err != nil {
		return nil, fmt.Errorf("typescript: %w", err)
	}
	defer p.Close()

	tree := p.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("typescript: parse failed for %s", path)
	}
	defer tree.Close()

	pf := &parser.ParsedFile{Path: path, Language: "typescript", Content: string(content)}
	walkJSLike(pf, path, tree.RootNode(), content, "typescript", func(n *sitter.Node, exported bool) bool {
		switch n.Kind() {
		case "interface_declaration":
			name := getNodeText(n.ChildByFieldName("name"), content)
			pf.Symbols = append(pf.Symbols, parser.Symbol{
				QualifiedName: path + ":" + name, ShortName: name, Kind: parser.KindInterface,
				File:      path,
				StartLine: line1(n), EndLine: endLine1(n),
				Signature: "interface " + name, Visibility: parser.VisibilityPublic,
				Complexity: 1,
			})
			pf.Chunks = append(pf.Chunks, chunkFor(path, name, n, content))
			if exported {
				pf.Exports = append(pf.Exports, name)
			}
			return true
		case "type_alias_declaration":
			name := getNodeText(n.ChildByFieldName("name"), content)
			pf.Symbols = append(pf.Symbols, parser.Symbol{
				QualifiedName: path + ":" + name, ShortName: name, Kind: parser.KindType,
				File:      path,
				StartLine: line1(n), EndLine: endLine1(n),
				Signature: "type " + name, Visibility: parser.VisibilityPublic,
				Complexity: 1,
			})
			pf.Chunks = append(pf.Chunks, chunkFor(path, name, n, content))
			if exported {
				pf.Exports = append(pf.Exports, name)
			}
			return true
		}
		return false
	})
	return pf, nil
}
