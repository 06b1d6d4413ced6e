package treesitter

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/controlvector/cv-engine/internal/parser"
)

type rustExtractor struct{}

func (rustExtractor) Language() string { return "rust" }

var rustConditionalKinds = map[string]bool{
	"if_expression": true, "if_let_expression": true, "match_arm": true,
	"while_expression": true, "while_let_expression": true, "loop_expression": true,
}

func (rustExtractor) Extract(path string, content []byte) (*parser.ParsedFile, error) {
	lang := sitter.NewLanguage(tree_sitter_rust.Language())
	p, err := newParser(lang)
	if err != nil {
		return nil, fmt.Errorf("rust: %w", err)
	}
	defer p.Close()

	tree := p.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("rust: parse failed for %s", path)
	}
	defer tree.Close()
	root := tree.RootNode()

	pf := &parser.ParsedFile{Path: path, Language: "rust", Content: string(content)}

	var walk func(n *sitter.Node, implType string)
	walk = func(n *sitter.Node, implType string) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "function_item":
			sym := rustFunctionSymbol(path, n, content, implType)
			pf.Symbols = append(pf.Symbols, sym)
			pf.Chunks = append(pf.Chunks, chunkFor(path, sym.ShortName, n, content))
			if implType == "" && sym.Visibility == parser.VisibilityPublic {
				pf.Exports = append(pf.Exports, sym.ShortName)
			}
			return
		case "struct_item", "enum_item", "trait_item":
			sym := rustTypeSymbol(path, n, content)
			pf.Symbols = append(pf.Symbols, sym)
			pf.Chunks = append(pf.Chunks, chunkFor(path, sym.ShortName, n, content))
			if sym.Visibility == parser.VisibilityPublic {
				pf.Exports = append(pf.Exports, sym.ShortName)
			}
			return
		case "impl_item":
			typeNode := n.ChildByFieldName("type")
			typeName := getNodeText(typeNode, content)
			body := n.ChildByFieldName("body")
			if body != nil {
				for i := uint(0); i < body.ChildCount(); i++ {
					walk(body.Child(i), typeName)
				}
			}
			return
		case "use_declaration":
			pf.Imports = append(pf.Imports, rustImport(n, content))
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i), implType)
		}
	}
	walk(root, "")
	return pf, nil
}

func rustVisibility(n *sitter.Node, code []byte) parser.Visibility {
	for i := uint(0); i < n.ChildCount(); i++ {
		if n.Child(i).Kind() == "visibility_modifier" {
			return parser.VisibilityPublic
		}
	}
	return parser.VisibilityPrivate
}

func rustFunctionSymbol(path string, n *sitter.Node, code []byte, implType string) parser.Symbol {
	name := getNodeText(n.ChildByFieldName("name"), code)
	params := n.ChildByFieldName("parameters")
	returnType := n.ChildByFieldName("return_type")
	sig := fmt.Sprintf("fn %s%s", name, getNodeText(params, code))
	if returnType != nil {
		sig += " -> " + getNodeText(returnType, code)
	}
	kind := parser.KindFunction
	qualified := path + ":" + name
	if implType != "" {
		kind = parser.KindMethod
		qualified = path + ":" + implType + "::" + name
	}
	isAsync := false
	for i := uint(0); i < n.ChildCount(); i++ {
		if getNodeText(n.Child(i), code) == "async" {
			isAsync = true
		}
	}
	body := n.ChildByFieldName("body")
	return parser.Symbol{
		QualifiedName: qualified,
		ShortName:     name,
		Kind:          kind,
		File:          path,
		StartLine:     line1(n),
		EndLine:       endLine1(n),
		Signature:     sig,
		Parameters:    rustParameters(params, code),
		ReturnType:    getNodeText(returnType, code),
		Visibility:    rustVisibility(n, code),
		IsAsync:       isAsync,
		Complexity:    parser.Complexity(body, parser.RustBranchKinds),
		Calls:         walkCalls(body, code, "call_expression", rustConditionalKinds, rustCalleeName),
	}
}

func rustParameters(params *sitter.Node, code []byte) []parser.Parameter {
	if params == nil {
		return nil
	}
	var out []parser.Parameter
	for i := uint(0); i < params.ChildCount(); i++ {
		c := params.Child(i)
		if c.Kind() != "parameter" {
			continue
		}
		patternNode := c.ChildByFieldName("pattern")
		typeNode := c.ChildByFieldName("type")
		out = append(out, parser.Parameter{Name: getNodeText(patternNode, code), Type: getNodeText(typeNode, code)})
	}
	return out
}

func rustTypeSymbol(path string, n *sitter.Node, code []byte) parser.Symbol {
	name := getNodeText(n.ChildByFieldName("name"), code)
	kind := parser.KindStruct
	keyword := "struct"
	switch n.Kind() {
	case "enum_item":
		kind = parser.KindEnum
		keyword = "enum"
	case "trait_item":
		kind = parser.KindTrait
		keyword = "trait"
	}
	return parser.Symbol{
		QualifiedName: path + ":" + name,
		ShortName:     name,
		Kind:          kind,
		File:          path,
		StartLine:     line1(n),
		EndLine:       endLine1(n),
		Signature:     keyword + " " + name,
		Visibility:    rustVisibility(n, code),
		Complexity:    1,
	}
}

func rustImport(n *sitter.Node, code []byte) parser.Import {
	argNode := n.ChildByFieldName("argument")
	text := getNodeText(argNode, code)
	crate := strings.SplitN(text, "::", 2)[0]
	return parser.Import{
		Source: text, Style: parser.ImportNamed,
		IsExternal: !rustInternalCrates[crate], Line: line1(n),
	}
}

var rustInternalCrates = map[string]bool{
	"std": true, "core": true, "alloc": true, "crate": true, "self": true, "super": true,
}

func rustCalleeName(call *sitter.Node, code []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return getNodeText(fn, code)
	case "field_expression":
		field := fn.ChildByFieldName("field")
		return getNodeText(field, code)
	case "scoped_identifier":
		name := fn.ChildByFieldName("name")
		return getNodeText(name, code)
	}
	return ""
}
