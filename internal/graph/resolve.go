package graph

import (
	"path"

	"github.com/controlvector/cv-engine/internal/parser"
)

// ResolvedCall is a CALLS edge whose callee has been matched to a concrete
// Symbol, ready for Writer.EdgeCalls.
type ResolvedCall struct {
	FromQualifiedName string
	ToQualifiedName   string
	Line              int
	IsConditional     bool
}

// ResolvedImport is an IMPORTS edge whose source specifier has been matched
// to a file already present in this sync, ready for Writer.EdgeImports.
type ResolvedImport struct {
	SrcFile string
	DstFile string
	Import  parser.Import
}

// languageExtensions lists the extensions (tried in order, after the
// specifier as written) an import source might resolve to when the
// specifier omits one — spec.md §4.4's "try the common extensions for the
// language" import-path resolution rule.
var languageExtensions = map[string][]string{
	"typescript": {".ts", ".tsx", "/index.ts", "/index.tsx"},
	"javascript": {".js", ".jsx", ".mjs", ".cjs", "/index.js", "/index.jsx"},
	"python":     {".py"},
	"go":         {".go"},
	"rust":       {".rs"},
	"java":       {".java"},
}

// ResolveImports turns each local (relative) Import in files into a
// ResolvedImport pointing at an in-sync file path, dropping imports to
// external packages or to paths that don't resolve to a known file — per
// spec.md §3's Import Edge entity ("only for local imports... dropped at
// edge-creation time").
func ResolveImports(files []*parser.ParsedFile) []ResolvedImport {
	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f.Path] = true
	}

	var resolved []ResolvedImport
	for _, f := range files {
		for _, imp := range f.Imports {
			if imp.IsExternal {
				continue
			}
			target, ok := resolveImportPath(f.Path, imp.Source, known, f.Language)
			if !ok {
				continue
			}
			resolved = append(resolved, ResolvedImport{SrcFile: f.Path, DstFile: target, Import: imp})
		}
	}
	return resolved
}

// resolveImportPath joins a relative import source against fromFile's
// directory and probes the language's common extensions (plus directory
// index files) until one names a file already known to this sync.
func resolveImportPath(fromFile, source string, known map[string]bool, language string) (string, bool) {
	dir := path.Dir(fromFile)
	joined := path.Clean(path.Join(dir, source))

	if known[joined] {
		return joined, true
	}
	for _, ext := range languageExtensions[language] {
		if candidate := joined + ext; known[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// ResolveCalls implements spec.md §4.4's three-tier call-resolution
// algorithm over every symbol parsed in this sync: same-file lookup,
// then imported-file lookup, then a global exported-symbol index,
// dropping anything still unresolved.
func ResolveCalls(files []*parser.ParsedFile) []ResolvedCall {
	symbolIndex := buildSymbolIndex(files)
	exportedIndex := buildExportedIndex(files)
	importsByFile := buildLocalImportIndex(files)

	var resolved []ResolvedCall
	for _, f := range files {
		for _, sym := range f.Symbols {
			for _, call := range sym.Calls {
				target, ok := resolveCallee(f.Path, call.Callee, symbolIndex, exportedIndex, importsByFile)
				if !ok {
					continue
				}
				resolved = append(resolved, ResolvedCall{
					FromQualifiedName: sym.QualifiedName,
					ToQualifiedName:   target,
					Line:              call.Line,
					IsConditional:     call.IsConditional,
				})
			}
		}
	}
	return resolved
}

// buildSymbolIndex maps (filePath, shortName) -> qualifiedName for every
// symbol seen in this sync.
func buildSymbolIndex(files []*parser.ParsedFile) map[string]map[string]string {
	index := make(map[string]map[string]string, len(files))
	for _, f := range files {
		byName := make(map[string]string, len(f.Symbols))
		for _, sym := range f.Symbols {
			byName[sym.ShortName] = sym.QualifiedName
		}
		index[f.Path] = byName
	}
	return index
}

// buildExportedIndex maps shortName -> qualifiedName for symbols whose name
// appears in their file's exports list, forming the global fallback tier.
func buildExportedIndex(files []*parser.ParsedFile) map[string]string {
	index := make(map[string]string)
	for _, f := range files {
		exported := make(map[string]bool, len(f.Exports))
		for _, name := range f.Exports {
			exported[name] = true
		}
		for _, sym := range f.Symbols {
			if exported[sym.ShortName] {
				index[sym.ShortName] = sym.QualifiedName
			}
		}
	}
	return index
}

// localImport describes one local import a file makes, with the imported
// names it grants into that file's scope (empty means namespace/wildcard,
// which grants everything the target exports).
type localImport struct {
	targetFile string
	granted    map[string]bool
	namespace  bool
}

// buildLocalImportIndex resolves every file's local imports once up front,
// so the per-call resolution loop can do a cheap in-memory lookup instead
// of re-resolving import paths per callee.
func buildLocalImportIndex(files []*parser.ParsedFile) map[string][]localImport {
	resolved := ResolveImports(files)
	byFile := make(map[string][]localImport)
	for _, r := range resolved {
		granted := make(map[string]bool, len(r.Import.ImportedSymbols))
		for _, name := range r.Import.ImportedSymbols {
			granted[name] = true
		}
		byFile[r.SrcFile] = append(byFile[r.SrcFile], localImport{
			targetFile: r.DstFile,
			granted:    granted,
			namespace:  r.Import.Style == parser.ImportNamespace || r.Import.Style == parser.ImportDefault,
		})
	}
	return byFile
}

// resolveCallee implements the three-tier lookup order: same-file, then
// imported-file, then global-exported, dropping on a full miss.
func resolveCallee(currentFile, callee string, symbolIndex map[string]map[string]string, exportedIndex map[string]string, importsByFile map[string][]localImport) (string, bool) {
	if byName, ok := symbolIndex[currentFile]; ok {
		if qname, ok := byName[callee]; ok {
			return qname, true
		}
	}

	for _, imp := range importsByFile[currentFile] {
		if !imp.namespace && !imp.granted[callee] {
			continue
		}
		if byName, ok := symbolIndex[imp.targetFile]; ok {
			if qname, ok := byName[callee]; ok {
				return qname, true
			}
		}
	}

	if qname, ok := exportedIndex[callee]; ok {
		return qname, true
	}

	return "", false
}
