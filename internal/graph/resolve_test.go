package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/controlvector/cv-engine/internal/parser"
)

func TestResolveCalls_SameFileTakesPriority(t *testing.T) {
	files := []*parser.ParsedFile{
		{
			Path:     "a.py",
			Language: "python",
			Symbols: []parser.Symbol{
				{QualifiedName: "a.py:helper", ShortName: "helper"},
				{QualifiedName: "a.py:run", ShortName: "run", Calls: []parser.CallRef{{Callee: "helper", Line: 5}}},
			},
		},
		{
			Path:     "b.py",
			Language: "python",
			Exports:  []string{"helper"},
			Symbols: []parser.Symbol{
				{QualifiedName: "b.py:helper", ShortName: "helper"},
			},
		},
	}

	resolved := ResolveCalls(files)

	assert.Len(t, resolved, 1)
	assert.Equal(t, "a.py:run", resolved[0].FromQualifiedName)
	assert.Equal(t, "a.py:helper", resolved[0].ToQualifiedName, "same-file symbol must win over the global exported index")
}

func TestResolveCalls_FallsBackToImportedFile(t *testing.T) {
	files := []*parser.ParsedFile{
		{
			Path:     "main.ts",
			Language: "typescript",
			Imports: []parser.Import{
				{Source: "./util", ImportedSymbols: []string{"format"}, Style: parser.ImportNamed, IsExternal: false, Line: 1},
			},
			Symbols: []parser.Symbol{
				{QualifiedName: "main.ts:run", ShortName: "run", Calls: []parser.CallRef{{Callee: "format", Line: 10}}},
			},
		},
		{
			Path:     "util.ts",
			Language: "typescript",
			Exports:  []string{"format"},
			Symbols: []parser.Symbol{
				{QualifiedName: "util.ts:format", ShortName: "format"},
			},
		},
	}

	resolved := ResolveCalls(files)

	assert.Len(t, resolved, 1)
	assert.Equal(t, "util.ts:format", resolved[0].ToQualifiedName)
}

func TestResolveCalls_FallsBackToGlobalExportedIndex(t *testing.T) {
	files := []*parser.ParsedFile{
		{
			Path:     "main.go",
			Language: "go",
			Symbols: []parser.Symbol{
				{QualifiedName: "main.go:Run", ShortName: "Run", Calls: []parser.CallRef{{Callee: "Parse", Line: 3}}},
			},
		},
		{
			Path:     "other/parser.go",
			Language: "go",
			Exports:  []string{"Parse"},
			Symbols: []parser.Symbol{
				{QualifiedName: "other/parser.go:Parse", ShortName: "Parse"},
			},
		},
	}

	resolved := ResolveCalls(files)

	assert.Len(t, resolved, 1)
	assert.Equal(t, "other/parser.go:Parse", resolved[0].ToQualifiedName)
}

func TestResolveCalls_UnresolvedCalleeIsDropped(t *testing.T) {
	files := []*parser.ParsedFile{
		{
			Path:     "a.py",
			Language: "python",
			Symbols: []parser.Symbol{
				{QualifiedName: "a.py:run", ShortName: "run", Calls: []parser.CallRef{{Callee: "print", Line: 1}}},
			},
		},
	}

	resolved := ResolveCalls(files)

	assert.Empty(t, resolved)
}

func TestResolveImports_DropsExternalAndUnresolvable(t *testing.T) {
	files := []*parser.ParsedFile{
		{
			Path:     "main.ts",
			Language: "typescript",
			Imports: []parser.Import{
				{Source: "react", IsExternal: true, Line: 1},
				{Source: "./util", IsExternal: false, Line: 2},
				{Source: "./missing", IsExternal: false, Line: 3},
			},
		},
		{Path: "util.ts", Language: "typescript"},
	}

	resolved := ResolveImports(files)

	assert.Len(t, resolved, 1)
	assert.Equal(t, "util.ts", resolved[0].DstFile)
}

func TestResolveImports_MatchesDirectoryIndexFile(t *testing.T) {
	files := []*parser.ParsedFile{
		{
			Path:     "main.js",
			Language: "javascript",
			Imports: []parser.Import{
				{Source: "./lib", IsExternal: false, Line: 1},
			},
		},
		{Path: "lib/index.js", Language: "javascript"},
	}

	resolved := ResolveImports(files)

	assert.Len(t, resolved, 1)
	assert.Equal(t, "lib/index.js", resolved[0].DstFile)
}
