package graph

// GraphNode is a single node upsert: a File or Symbol, labeled and keyed by
// a composite, multi-repo-safe ID. Grounded on the teacher's
// internal/graph/backend.go GraphNode/GraphEdge shape, carried over
// unchanged since the property-bag design generalizes cleanly from the
// teacher's GitHub-activity nodes (Commit, Developer, Issue) to this
// engine's structural nodes (File, Symbol).
type GraphNode struct {
	Label      string                 // Node type: "File", "Symbol"
	ID         string                 // Composite ID: "<repoId>:file:<path>" or "<repoId>:symbol:<qualifiedName>"
	Properties map[string]interface{} // Node properties (repoId always included)
}

// GraphEdge is a single edge upsert between two GraphNode IDs.
type GraphEdge struct {
	Label      string                 // Edge type: "DEFINES", "IMPORTS", "CALLS"
	From       string                 // Source node ID
	To         string                 // Target node ID
	Properties map[string]interface{} // Edge properties (line, isConditional, etc.)
}

// Stats summarizes the current contents of a repo's structural graph, as
// returned by Writer.Stats (spec.md §4.4's `stats() → {files, symbols,
// relationships}`).
type Stats struct {
	Files         int
	Symbols       int
	Relationships int
}
