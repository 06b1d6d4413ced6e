package treesitter

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/controlvector/cv-engine/internal/parser"
)

type javaExtractor struct{}

func (javaExtractor) Language() string { return "java" }

var javaConditionalKinds = map[string]bool{
	"if_statement": true, "for_statement": true, "enhanced_for_statement": true,
	"while_statement": true, "do_statement": true, "switch_label": true,
	"catch_clause": true, "ternary_expression": true,
}

func (javaExtractor) Extract(path string, content []byte) (*parser.ParsedFile, error) {
	lang := sitter.NewLanguage(tree_sitter_java.Language())
	p, err := newParser(lang)
	if err != nil {
		return nil, fmt.Errorf("java: %w", err)
	}
	defer p.Close()

	tree := p.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("java: parse failed for %s", path)
	}
	defer tree.Close()
	root := tree.RootNode()

	pf := &parser.ParsedFile{Path: path, Language: "java", Content: string(content)}

	var walk func(n *sitter.Node, enclosingType string, topLevel bool)
	walk = func(n *sitter.Node, enclosingType string, topLevel bool) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "class_declaration", "interface_declaration", "enum_declaration":
			sym := javaTypeSymbol(path, n, content)
			pf.Symbols = append(pf.Symbols, sym)
			pf.Chunks = append(pf.Chunks, chunkFor(path, sym.ShortName, n, content))
			if topLevel && sym.Visibility == parser.VisibilityPublic {
				pf.Exports = append(pf.Exports, sym.ShortName)
			}
			body := n.ChildByFieldName("body")
			if body != nil {
				for i := uint(0); i < body.ChildCount(); i++ {
					walk(body.Child(i), sym.ShortName, false)
				}
			}
			return
		case "method_declaration", "constructor_declaration":
			sym := javaMethodSymbol(path, n, content, enclosingType)
			pf.Symbols = append(pf.Symbols, sym)
			pf.Chunks = append(pf.Chunks, chunkFor(path, sym.QualifiedName, n, content))
			return
		case "import_declaration":
			pf.Imports = append(pf.Imports, javaImport(n, content))
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i), enclosingType, topLevel)
		}
	}
	for i := uint(0); i < root.ChildCount(); i++ {
		walk(root.Child(i), "", true)
	}
	return pf, nil
}

func javaModifiers(n *sitter.Node, code []byte) (vis parser.Visibility, isStatic bool) {
	vis = parser.VisibilityPublic // package-private defaults treated as public for cross-file graph purposes
	for i := uint(0); i < n.ChildCount(); i++ {
		m := n.Child(i)
		if m.Kind() != "modifiers" {
			continue
		}
		for j := uint(0); j < m.ChildCount(); j++ {
			switch getNodeText(m.Child(j), code) {
			case "private":
				vis = parser.VisibilityPrivate
			case "protected":
				vis = parser.VisibilityProtected
			case "static":
				isStatic = true
			}
		}
	}
	return vis, isStatic
}

func javaTypeSymbol(path string, n *sitter.Node, code []byte) parser.Symbol {
	name := getNodeText(n.ChildByFieldName("name"), code)
	kind := parser.KindClass
	keyword := "class"
	switch n.Kind() {
	case "interface_declaration":
		kind = parser.KindInterface
		keyword = "interface"
	case "enum_declaration":
		kind = parser.KindEnum
		keyword = "enum"
	}
	vis, _ := javaModifiers(n, code)
	return parser.Symbol{
		QualifiedName: path + ":" + name,
		ShortName:     name,
		Kind:          kind,
		File:          path,
		StartLine:     line1(n),
		EndLine:       endLine1(n),
		Signature:     keyword + " " + name,
		Visibility:    vis,
		Complexity:    1,
	}
}

func javaMethodSymbol(path string, n *sitter.Node, code []byte, enclosingType string) parser.Symbol {
	nameNode := n.ChildByFieldName("name")
	name := getNodeText(nameNode, code)
	params := n.ChildByFieldName("parameters")
	typeNode := n.ChildByFieldName("type")
	vis, isStatic := javaModifiers(n, code)
	sig := fmt.Sprintf("%s%s", name, getNodeText(params, code))
	if typeNode != nil {
		sig = getNodeText(typeNode, code) + " " + sig
	}
	body := n.ChildByFieldName("body")
	return parser.Symbol{
		QualifiedName: path + ":" + enclosingType + "." + name,
		ShortName:     name,
		Kind:          parser.KindMethod,
		File:          path,
		StartLine:     line1(n),
		EndLine:       endLine1(n),
		Signature:     sig,
		Parameters:    javaParameters(params, code),
		ReturnType:    getNodeText(typeNode, code),
		Visibility:    vis,
		IsStatic:      isStatic,
		Complexity:    parser.Complexity(body, parser.JavaBranchKinds),
		Calls:         walkCalls(body, code, "method_invocation", javaConditionalKinds, javaCalleeName),
	}
}

func javaParameters(params *sitter.Node, code []byte) []parser.Parameter {
	if params == nil {
		return nil
	}
	var out []parser.Parameter
	for i := uint(0); i < params.ChildCount(); i++ {
		c := params.Child(i)
		if c.Kind() != "formal_parameter" {
			continue
		}
		nameNode := c.ChildByFieldName("name")
		typeNode := c.ChildByFieldName("type")
		out = append(out, parser.Parameter{Name: getNodeText(nameNode, code), Type: getNodeText(typeNode, code)})
	}
	return out
}

func javaImport(n *sitter.Node, code []byte) parser.Import {
	var pathNode *sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c.Kind() == "scoped_identifier" || c.Kind() == "identifier" {
			pathNode = c
		}
	}
	src := getNodeText(pathNode, code)
	return parser.Import{
		Source: src, Style: parser.ImportNamed,
		IsExternal: javaIsExternal(src), Line: line1(n),
	}
}

// javaIsExternal follows spec.md's stated heuristic: java.* and javax.*
// packages are part of the platform, everything else is a third-party or
// project-internal dependency.
func javaIsExternal(importPath string) bool {
	return !strings.HasPrefix(importPath, "java.") && !strings.HasPrefix(importPath, "javax.")
}

func javaCalleeName(call *sitter.Node, code []byte) string {
	name := call.ChildByFieldName("name")
	return getNodeText(name, code)
}
