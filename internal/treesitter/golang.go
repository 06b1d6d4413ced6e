package treesitter

import (
	"fmt"
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"github.com/controlvector/cv-engine/internal/parser"
)

type goExtractor struct{}

func (goExtractor) Language() string { return "go" }

var goConditionalKinds = map[string]bool{
	"if_statement": true, "for_statement": true, "expression_case": true,
	"type_case": true, "communication_case": true, "select_statement": true,
}

func (goExtractor) Extract(path string, content []byte) (*parser.ParsedFile, error) {
	lang := sitter.NewLanguage(tree_sitter_go.Language())
	p, err := newParser(lang)
	if err != nil {
		return nil, fmt.Errorf("go: %w", err)
	}
	defer p.Close()

	tree := p.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("go: parse failed for %s", path)
	}
	defer tree.Close()
	root := tree.RootNode()

	pf := &parser.ParsedFile{Path: path, Language: "go", Content: string(content)}

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "function_declaration":
			sym := goFuncSymbol(path, n, content, "")
			pf.Symbols = append(pf.Symbols, sym)
			pf.Chunks = append(pf.Chunks, chunkFor(path, sym.ShortName, n, content))
			if sym.Visibility == parser.VisibilityPublic {
				pf.Exports = append(pf.Exports, sym.ShortName)
			}
		case "method_declaration":
			recv := goReceiverType(n, content)
			sym := goFuncSymbol(path, n, content, recv)
			pf.Symbols = append(pf.Symbols, sym)
			pf.Chunks = append(pf.Chunks, chunkFor(path, sym.QualifiedName, n, content))
		case "type_declaration":
			for i := uint(0); i < n.ChildCount(); i++ {
				if spec := n.Child(i); spec.Kind() == "type_spec" {
					sym := goTypeSymbol(path, spec, content)
					pf.Symbols = append(pf.Symbols, sym)
					pf.Chunks = append(pf.Chunks, chunkFor(path, sym.ShortName, n, content))
					if sym.Visibility == parser.VisibilityPublic {
						pf.Exports = append(pf.Exports, sym.ShortName)
					}
				}
			}
			return
		case "import_declaration":
			goCollectImports(n, content, pf)
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return pf, nil
}

func goVisibility(name string) parser.Visibility {
	if name == "" {
		return parser.VisibilityPrivate
	}
	if unicode.IsUpper(rune(name[0])) {
		return parser.VisibilityPublic
	}
	return parser.VisibilityPrivate
}

func goFuncSymbol(path string, n *sitter.Node, code []byte, receiverType string) parser.Symbol {
	name := getNodeText(n.ChildByFieldName("name"), code)
	params := n.ChildByFieldName("parameters")
	result := n.ChildByFieldName("result")
	sig := fmt.Sprintf("func %s%s", name, getNodeText(params, code))
	if result != nil {
		sig += " " + getNodeText(result, code)
	}
	qualified := path + ":" + name
	kind := parser.KindFunction
	if receiverType != "" {
		qualified = path + ":" + receiverType + "." + name
		kind = parser.KindMethod
		sig = fmt.Sprintf("func (%s) %s%s", receiverType, name, getNodeText(params, code))
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
		Parameters:    goParameters(params, code),
		ReturnType:    getNodeText(result, code),
		Visibility:    goVisibility(name),
		Complexity:    parser.Complexity(body, parser.GoBranchKinds),
		Calls:         walkCalls(body, code, "call_expression", goConditionalKinds, goCalleeName),
	}
}

func goReceiverType(n *sitter.Node, code []byte) string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	text := getNodeText(recv, code)
	text = strings.TrimPrefix(text, "(")
	text = strings.TrimSuffix(text, ")")
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimPrefix(fields[len(fields)-1], "*")
}

func goParameters(params *sitter.Node, code []byte) []parser.Parameter {
	if params == nil {
		return nil
	}
	var out []parser.Parameter
	for i := uint(0); i < params.ChildCount(); i++ {
		decl := params.Child(i)
		if decl.Kind() != "parameter_declaration" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		typeNode := decl.ChildByFieldName("type")
		p := parser.Parameter{Name: getNodeText(nameNode, code), Type: getNodeText(typeNode, code)}
		out = append(out, p)
	}
	return out
}

func goTypeSymbol(path string, spec *sitter.Node, code []byte) parser.Symbol {
	name := getNodeText(spec.ChildByFieldName("name"), code)
	typeNode := spec.ChildByFieldName("type")
	kind := parser.KindType
	if typeNode != nil {
		switch typeNode.Kind() {
		case "struct_type":
			kind = parser.KindStruct
		case "interface_type":
			kind = parser.KindInterface
		}
	}
	return parser.Symbol{
		QualifiedName: path + ":" + name,
		ShortName:     name,
		Kind:          kind,
		File:          path,
		StartLine:     line1(spec),
		EndLine:       endLine1(spec),
		Signature:     "type " + name + " " + strings.Fields(getNodeText(typeNode, code))[0],
		Visibility:    goVisibility(name),
		Complexity:    1,
	}
}

func goCollectImports(n *sitter.Node, code []byte, pf *parser.ParsedFile) {
	var specs []*sitter.Node
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		switch c.Kind() {
		case "import_spec":
			specs = append(specs, c)
		case "import_spec_list":
			for j := uint(0); j < c.ChildCount(); j++ {
				if c.Child(j).Kind() == "import_spec" {
					specs = append(specs, c.Child(j))
				}
			}
		}
	}
	for _, spec := range specs {
		pathNode := spec.ChildByFieldName("path")
		importPath := strings.Trim(getNodeText(pathNode, code), "\"")
		style := parser.ImportNamespace
		var syms []string
		if nameNode := spec.ChildByFieldName("name"); nameNode != nil {
			alias := getNodeText(nameNode, code)
			if alias == "_" {
				style = parser.ImportSideEffect
			} else {
				syms = append(syms, alias)
			}
		}
		pf.Imports = append(pf.Imports, parser.Import{
			Source: importPath, ImportedSymbols: syms, Style: style,
			IsExternal: goIsExternal(importPath), Line: line1(spec),
		})
	}
}

// goIsExternal follows the convention every Go toolchain uses: an import
// path is part of the standard library iff its first path segment has no
// dot, since module paths are required to be domain-qualified.
func goIsExternal(importPath string) bool {
	first := strings.SplitN(importPath, "/", 2)[0]
	return strings.Contains(first, ".")
}

func goCalleeName(call *sitter.Node, code []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return getNodeText(fn, code)
	case "selector_expression":
		field := fn.ChildByFieldName("field")
		return getNodeText(field, code)
	}
	return ""
}
