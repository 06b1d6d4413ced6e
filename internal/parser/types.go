// Package parser defines the uniform schema every language extractor in
// internal/treesitter emits, plus the bounded-fan-out dispatcher that drives
// them across a file set.
package parser

// SymbolKind enumerates the structural roles a Symbol can play in the graph.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindStruct    SymbolKind = "struct"
	KindEnum      SymbolKind = "enum"
	KindTrait     SymbolKind = "trait"
	KindType      SymbolKind = "type"
	KindVariable  SymbolKind = "variable"
)

// Visibility captures the access level a symbol was declared with.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPrivate   Visibility = "private"
)

// Parameter is one entry in a symbol's declared parameter list.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// CallRef is a call site found inside a symbol's body. Callee is the short
// (unqualified) name as written at the call site; resolution into a
// qualified symbol happens later, in the Graph Writer.
type CallRef struct {
	Callee        string `json:"callee"`
	Line          int    `json:"line"`
	IsConditional bool   `json:"isConditional"`
}

// Symbol is one named declaration extracted from a file: a function, method,
// class, interface, struct, enum, trait, type alias, or top-level variable.
type Symbol struct {
	QualifiedName string      `json:"qualifiedName"`
	ShortName     string      `json:"shortName"`
	Kind          SymbolKind  `json:"kind"`
	File          string      `json:"file"`
	StartLine     int         `json:"startLine"`
	EndLine       int         `json:"endLine"`
	Signature     string      `json:"signature"`
	Docstring     string      `json:"docstring,omitempty"`
	ReturnType    string      `json:"returnType,omitempty"`
	Parameters    []Parameter `json:"parameters,omitempty"`
	Visibility    Visibility  `json:"visibility"`
	IsAsync       bool        `json:"isAsync,omitempty"`
	IsStatic      bool        `json:"isStatic,omitempty"`
	Complexity    int         `json:"complexity"`
	Calls         []CallRef   `json:"calls,omitempty"`
}

// ImportStyle distinguishes how an import binds names into scope.
type ImportStyle string

const (
	ImportDefault    ImportStyle = "default"
	ImportNamed      ImportStyle = "named"
	ImportNamespace  ImportStyle = "namespace"
	ImportSideEffect ImportStyle = "side-effect"
)

// Import is one import/require/use declaration found in a file.
type Import struct {
	Source          string      `json:"source"`
	ImportedSymbols []string    `json:"importedSymbols,omitempty"`
	Style           ImportStyle `json:"style"`
	IsExternal      bool        `json:"isExternal"`
	Line            int         `json:"line"`
}

// Chunk is one unit of text handed to the embedding pipeline, normally the
// full source span of a single symbol.
type Chunk struct {
	ID         string `json:"id"`
	StartLine  int    `json:"startLine"`
	EndLine    int    `json:"endLine"`
	Text       string `json:"text"`
	SymbolName string `json:"symbolName,omitempty"`
}

// ParsedFile is the uniform output of every language extractor: everything
// the Graph Writer and Vector Writer need from one source file, independent
// of which language produced it.
type ParsedFile struct {
	Path     string   `json:"path"`
	Language string   `json:"language"`
	Content  string   `json:"-"`
	Symbols  []Symbol `json:"symbols"`
	Imports  []Import `json:"imports"`
	Exports  []string `json:"exports"`
	Chunks   []Chunk  `json:"chunks"`
}
