package treesitter

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/controlvector/cv-engine/internal/parser"
)

type pythonExtractor struct{}

func (pythonExtractor) Language() string { return "python" }

var pythonConditionalKinds = map[string]bool{
	"if_statement": true, "elif_clause": true, "else_clause": true,
	"for_statement": true, "while_statement": true, "try_statement": true,
	"boolean_operator": true, "conditional_expression": true,
}

func (pythonExtractor) Extract(path string, content []byte) (*parser.ParsedFile, error) {
	lang := sitter.NewLanguage(tree_sitter_python.Language())
	p, err := newParser(lang)
	if err != nil {
		return nil, fmt.Errorf("python: %w", err)
	}
	defer p.Close()

	tree := p.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("python: parse failed for %s", path)
	}
	defer tree.Close()
	root := tree.RootNode()

	pf := &parser.ParsedFile{Path: path, Language: "python", Content: string(content)}
	dunderAll := findDunderAll(root, content)

	var walk func(n *sitter.Node, inClass string)
	walk = func(n *sitter.Node, inClass string) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "function_definition":
			sym := pythonFunctionSymbol(path, n, content, inClass)
			pf.Symbols = append(pf.Symbols, sym)
			pf.Chunks = append(pf.Chunks, chunkFor(path, sym.ShortName, n, content))
			if pythonIsExported(sym.ShortName, dunderAll) && inClass == "" {
				pf.Exports = append(pf.Exports, sym.ShortName)
			}
			return // don't descend into nested defs as siblings of inClass scanning
		case "class_definition":
			name := getNodeText(n.ChildByFieldName("name"), content)
			pf.Symbols = append(pf.Symbols, pythonClassSymbol(path, n, content))
			pf.Chunks = append(pf.Chunks, chunkFor(path, name, n, content))
			if pythonIsExported(name, dunderAll) {
				pf.Exports = append(pf.Exports, name)
			}
			body := n.ChildByFieldName("body")
			for i := uint(0); i < body.ChildCount(); i++ {
				walk(body.Child(i), name)
			}
			return
		case "import_statement", "import_from_statement":
			pf.Imports = append(pf.Imports, pythonImport(n, content))
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i), inClass)
		}
	}
	walk(root, "")
	return pf, nil
}

func pythonFunctionSymbol(path string, n *sitter.Node, code []byte, inClass string) parser.Symbol {
	nameNode := n.ChildByFieldName("name")
	name := getNodeText(nameNode, code)
	paramsNode := n.ChildByFieldName("parameters")
	returnNode := n.ChildByFieldName("return_type")
	params := getNodeText(paramsNode, code)
	signature := fmt.Sprintf("def %s%s", name, params)
	returnType := ""
	if returnNode != nil {
		returnType = getNodeText(returnNode, code)
		signature += " -> " + returnType
	}
	kind := parser.KindFunction
	qualified := path + ":" + name
	if inClass != "" {
		kind = parser.KindMethod
		qualified = path + ":" + inClass + "." + name
	}
	isAsync := false
	if prev := n.PrevSibling(); prev != nil && prev.Kind() == "async" {
		isAsync = true
	}
	body := n.ChildByFieldName("body")
	calls := walkCalls(body, code, "call", pythonConditionalKinds, pythonCalleeName)
	return parser.Symbol{
		QualifiedName: qualified,
		ShortName:     name,
		Kind:          kind,
		File:          path,
		StartLine:     line1(n),
		EndLine:       endLine1(n),
		Signature:     signature,
		Docstring:     pythonDocstring(body, code),
		ReturnType:    returnType,
		Parameters:    pythonParameters(paramsNode, code),
		Visibility:    pythonVisibility(name),
		IsAsync:       isAsync,
		Complexity:    parser.Complexity(body, parser.PythonBranchKinds),
		Calls:         calls,
	}
}

func pythonClassSymbol(path string, n *sitter.Node, code []byte) parser.Symbol {
	name := getNodeText(n.ChildByFieldName("name"), code)
	superclasses := n.ChildByFieldName("superclasses")
	signature := "class " + name
	if superclasses != nil {
		signature += getNodeText(superclasses, code)
	}
	body := n.ChildByFieldName("body")
	return parser.Symbol{
		QualifiedName: path + ":" + name,
		ShortName:     name,
		Kind:          parser.KindClass,
		File:          path,
		StartLine:     line1(n),
		EndLine:       endLine1(n),
		Signature:     signature,
		Docstring:     pythonDocstring(body, code),
		Visibility:    pythonVisibility(name),
		Complexity:    parser.Complexity(n, parser.PythonBranchKinds),
	}
}

func pythonParameters(paramsNode *sitter.Node, code []byte) []parser.Parameter {
	if paramsNode == nil {
		return nil
	}
	var params []parser.Parameter
	for i := uint(0); i < paramsNode.ChildCount(); i++ {
		child := paramsNode.Child(i)
		switch child.Kind() {
		case "identifier":
			params = append(params, parser.Parameter{Name: getNodeText(child, code)})
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			nameNode := child.ChildByFieldName("name")
			if nameNode == nil {
				nameNode = child.Child(0)
			}
			p := parser.Parameter{Name: getNodeText(nameNode, code)}
			if t := child.ChildByFieldName("type"); t != nil {
				p.Type = getNodeText(t, code)
			}
			params = append(params, p)
		}
	}
	return params
}

func pythonDocstring(body *sitter.Node, code []byte) string {
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first.Kind() == "expression_statement" && first.ChildCount() > 0 && first.Child(0).Kind() == "string" {
		return strings.Trim(getNodeText(first.Child(0), code), "\"' \t\r\n")
	}
	return ""
}

func pythonVisibility(name string) parser.Visibility {
	if strings.HasPrefix(name, "__") && !strings.HasSuffix(name, "__") {
		return parser.VisibilityPrivate
	}
	if strings.HasPrefix(name, "_") {
		return parser.VisibilityProtected
	}
	return parser.VisibilityPublic
}

func pythonIsExported(name string, dunderAll []string) bool {
	if dunderAll != nil {
		for _, n := range dunderAll {
			if n == name {
				return true
			}
		}
		return false
	}
	return !strings.HasPrefix(name, "_")
}

// findDunderAll looks for a module-level `__all__ = [...]` assignment and
// returns its string literals, or nil if no such assignment exists.
func findDunderAll(root *sitter.Node, code []byte) []string {
	var found []string
	for i := uint(0); i < root.ChildCount(); i++ {
		stmt := root.Child(i)
		if stmt.Kind() != "expression_statement" {
			continue
		}
		assign := stmt.Child(0)
		if assign == nil || assign.Kind() != "assignment" {
			continue
		}
		left := assign.ChildByFieldName("left")
		if left == nil || getNodeText(left, code) != "__all__" {
			continue
		}
		right := assign.ChildByFieldName("right")
		if right == nil {
			continue
		}
		for j := uint(0); j < right.ChildCount(); j++ {
			el := right.Child(j)
			if el.Kind() == "string" {
				found = append(found, strings.Trim(getNodeText(el, code), "\"' "))
			}
		}
	}
	return found
}

func pythonImport(n *sitter.Node, code []byte) parser.Import {
	switch n.Kind() {
	case "import_statement":
		nameNode := n.ChildByFieldName("name")
		src := getNodeText(nameNode, code)
		return parser.Import{Source: src, Style: parser.ImportNamespace, IsExternal: pythonIsExternal(src), Line: line1(n)}
	default: // import_from_statement
		module := getNodeText(n.ChildByFieldName("module_name"), code)
		var names []string
		for i := uint(0); i < n.ChildCount(); i++ {
			c := n.Child(i)
			if c.Kind() == "dotted_name" && getNodeText(c, code) != module {
				names = append(names, getNodeText(c, code))
			}
			if c.Kind() == "aliased_import" {
				names = append(names, getNodeText(c.ChildByFieldName("name"), code))
			}
			if c.Kind() == "wildcard_import" {
				names = append(names, "*")
			}
		}
		return parser.Import{Source: module, ImportedSymbols: names, Style: parser.ImportNamed, IsExternal: pythonIsExternal(module), Line: line1(n)}
	}
}

func pythonIsExternal(module string) bool {
	if strings.HasPrefix(module, ".") {
		return false
	}
	root := strings.SplitN(module, ".", 2)[0]
	return !pythonStdlib[root]
}

func pythonCalleeName(call *sitter.Node, code []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return getNodeText(fn, code)
	case "attribute":
		attr := fn.ChildByFieldName("attribute")
		return getNodeText(attr, code)
	}
	return ""
}

var pythonStdlib = map[string]bool{
	"os": true, "sys": true, "re": true, "json": true, "typing": true,
	"collections": true, "itertools": true, "functools": true, "pathlib": true,
	"asyncio": true, "logging": true, "unittest": true, "dataclasses": true,
	"abc": true, "enum": true, "datetime": true, "time": true, "math": true,
	"subprocess": true, "threading": true, "io": true, "copy": true,
}
