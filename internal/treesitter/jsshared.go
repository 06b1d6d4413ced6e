package treesitter

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/controlvector/cv-engine/internal/parser"
)

var jsConditionalKinds = map[string]bool{
	"if_statement": true, "for_statement": true, "for_in_statement": true,
	"while_statement": true, "do_statement": true, "switch_statement": true,
	"catch_clause": true, "ternary_expression": true,
}

// walkJSLike walks a JS/TS/JSX/TSX tree, emitting symbols, imports and
// exports into pf. extraNode lets the TypeScript extractor hook in
// interface_declaration/type_alias_declaration handling without duplicating
// the walk.
func walkJSLike(pf *parser.ParsedFile, path string, root *sitter.Node, code []byte, lang string, extraNode func(n *sitter.Node, exported bool) bool) {
	var walk func(n *sitter.Node, exported bool)
	walk = func(n *sitter.Node, exported bool) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "export_statement":
			isDefault := false
			for i := uint(0); i < n.ChildCount(); i++ {
				if n.Child(i).Kind() == "default" {
					isDefault = true
				}
			}
			_ = isDefault
			for i := uint(0); i < n.ChildCount(); i++ {
				walk(n.Child(i), true)
			}
			return
		case "function_declaration", "generator_function_declaration":
			sym := jsFunctionSymbol(path, n, code, "")
			pf.Symbols = append(pf.Symbols, sym)
			pf.Chunks = append(pf.Chunks, chunkFor(path, sym.ShortName, n, code))
			if exported {
				pf.Exports = append(pf.Exports, sym.ShortName)
			}
			return
		case "class_declaration":
			name := getNodeText(n.ChildByFieldName("name"), code)
			pf.Symbols = append(pf.Symbols, jsClassSymbol(path, n, code))
			pf.Chunks = append(pf.Chunks, chunkFor(path, name, n, code))
			if exported {
				pf.Exports = append(pf.Exports, name)
			}
			body := n.ChildByFieldName("body")
			for i := uint(0); i < body.ChildCount(); i++ {
				if body.Child(i).Kind() == "method_definition" {
					m := jsMethodSymbol(path, body.Child(i), code, name)
					pf.Symbols = append(pf.Symbols, m)
					pf.Chunks = append(pf.Chunks, chunkFor(path, m.QualifiedName, body.Child(i), code))
				}
			}
			return
		case "lexical_declaration", "variable_declaration":
			for i := uint(0); i < n.ChildCount(); i++ {
				decl := n.Child(i)
				if decl.Kind() != "variable_declarator" {
					continue
				}
				value := decl.ChildByFieldName("value")
				if value == nil || (value.Kind() != "arrow_function" && value.Kind() != "function_expression") {
					continue
				}
				name := getNodeText(decl.ChildByFieldName("name"), code)
				sym := jsFunctionSymbol(path, value, code, name)
				pf.Symbols = append(pf.Symbols, sym)
				pf.Chunks = append(pf.Chunks, chunkFor(path, name, n, code))
				if exported {
					pf.Exports = append(pf.Exports, name)
				}
			}
			return
		case "import_statement":
			pf.Imports = append(pf.Imports, jsImport(n, code))
			return
		}
		if extraNode != nil && extraNode(n, exported) {
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i), exported)
		}
	}
	walk(root, false)
}

func jsFunctionSymbol(path string, n *sitter.Node, code []byte, assignedName string) parser.Symbol {
	name := assignedName
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = getNodeText(nameNode, code)
	}
	if name == "" {
		name = "<anonymous>"
	}
	params := n.ChildByFieldName("parameters")
	isAsync := false
	for i := uint(0); i < n.ChildCount(); i++ {
		if n.Child(i).Kind() == "async" {
			isAsync = true
		}
	}
	return parser.Symbol{
		QualifiedName: path + ":" + name,
		ShortName:     name,
		Kind:          parser.KindFunction,
		File:          path,
		StartLine:     line1(n),
		EndLine:       endLine1(n),
		Signature:     fmt.Sprintf("function %s%s", name, getNodeText(params, code)),
		Parameters:    jsParameters(params, code),
		Visibility:    parser.VisibilityPublic,
		IsAsync:       isAsync,
		Complexity:    parser.Complexity(n.ChildByFieldName("body"), parser.JSBranchKinds),
		Calls:         walkCalls(n.ChildByFieldName("body"), code, "call_expression", jsConditionalKinds, jsCalleeName),
	}
}

func jsClassSymbol(path string, n *sitter.Node, code []byte) parser.Symbol {
	name := getNodeText(n.ChildByFieldName("name"), code)
	heritage := n.ChildByFieldName("superclass")
	sig := "class " + name
	if heritage != nil {
		sig += " extends " + getNodeText(heritage, code)
	}
	return parser.Symbol{
		QualifiedName: path + ":" + name,
		ShortName:     name,
		Kind:          parser.KindClass,
		File:          path,
		StartLine:     line1(n),
		EndLine:       endLine1(n),
		Signature:     sig,
		Visibility:    parser.VisibilityPublic,
		Complexity:    parser.Complexity(n, parser.JSBranchKinds),
	}
}

func jsMethodSymbol(path string, n *sitter.Node, code []byte, className string) parser.Symbol {
	name := getNodeText(n.ChildByFieldName("name"), code)
	params := n.ChildByFieldName("parameters")
	isStatic := false
	for i := uint(0); i < n.ChildCount(); i++ {
		if n.Child(i).Kind() == "static" {
			isStatic = true
		}
	}
	vis := parser.VisibilityPublic
	if strings.HasPrefix(name, "#") {
		vis = parser.VisibilityPrivate
	}
	return parser.Symbol{
		QualifiedName: path + ":" + className + "." + name,
		ShortName:     name,
		Kind:          parser.KindMethod,
		File:          path,
		StartLine:     line1(n),
		EndLine:       endLine1(n),
		Signature:     fmt.Sprintf("%s%s", name, getNodeText(params, code)),
		Parameters:    jsParameters(params, code),
		Visibility:    vis,
		IsStatic:      isStatic,
		Complexity:    parser.Complexity(n.ChildByFieldName("body"), parser.JSBranchKinds),
		Calls:         walkCalls(n.ChildByFieldName("body"), code, "call_expression", jsConditionalKinds, jsCalleeName),
	}
}

func jsParameters(params *sitter.Node, code []byte) []parser.Parameter {
	if params == nil {
		return nil
	}
	var out []parser.Parameter
	for i := uint(0); i < params.ChildCount(); i++ {
		c := params.Child(i)
		switch c.Kind() {
		case "identifier", "required_parameter", "optional_parameter":
			out = append(out, parser.Parameter{Name: getNodeText(c, code)})
		}
	}
	return out
}

func jsImport(n *sitter.Node, code []byte) parser.Import {
	sourceNode := n.ChildByFieldName("source")
	src := strings.Trim(getNodeText(sourceNode, code), "\"'`")
	imp := parser.Import{Source: src, Style: parser.ImportSideEffect, IsExternal: jsIsExternal(src), Line: line1(n)}

	clause := n.ChildByFieldName("import_clause")
	if clause == nil {
		return imp
	}
	for i := uint(0); i < clause.ChildCount(); i++ {
		part := clause.Child(i)
		switch part.Kind() {
		case "identifier":
			imp.ImportedSymbols = append(imp.ImportedSymbols, getNodeText(part, code))
			imp.Style = parser.ImportDefault
		case "namespace_import":
			imp.ImportedSymbols = append(imp.ImportedSymbols, getNodeText(part, code))
			imp.Style = parser.ImportNamespace
		case "named_imports":
			imp.Style = parser.ImportNamed
			for j := uint(0); j < part.ChildCount(); j++ {
				spec := part.Child(j)
				if spec.Kind() == "import_specifier" {
					imp.ImportedSymbols = append(imp.ImportedSymbols, getNodeText(spec, code))
				}
			}
		}
	}
	return imp
}

func jsIsExternal(source string) bool {
	return !strings.HasPrefix(source, ".") && !strings.HasPrefix(source, "/")
}

func jsCalleeName(call *sitter.Node, code []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return getNodeText(fn, code)
	case "member_expression":
		prop := fn.ChildByFieldName("property")
		return getNodeText(prop, code)
	}
	return ""
}
