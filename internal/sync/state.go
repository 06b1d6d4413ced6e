package sync

import "fmt"

// Stage names one step of the Sync Driver's state machine (spec.md §4.9):
// Idle -> Enumerating -> Parsing -> GraphWrite -> VectorWrite -> Exporting -> Idle.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageEnumerating Stage = "enumerating"
	StageParsing     Stage = "parsing"
	StageGraphWrite  Stage = "graph_write"
	StageVectorWrite Stage = "vector_write"
	StageExporting   Stage = "exporting"
)

// StageError wraps a failure with the stage it happened in, so callers (and
// the CLI's step-numbered output) can report exactly where a sync broke
// without the caller needing to reconstruct it from the error string.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("sync failed at stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func fail(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// Options tunes one sync run.
type Options struct {
	// Root is the repository's working tree root (defaults to ".").
	Root string
	// SkipVectors disables the VectorWrite stage entirely — useful for a
	// structure-only sync, or when no embedding provider is configured.
	SkipVectors bool
	// SkipExport disables the final on-disk export — used by callers (tests,
	// a "sync then hydrate elsewhere" pipeline) that handle export separately.
	SkipExport bool
}

// Result summarizes one full_sync/incremental_sync call: the final counts,
// per-language breakdown, and any non-fatal per-file errors collected along
// the way.
type Result struct {
	Stage             Stage
	Files             int
	Symbols           int
	ImportEdges       int
	CallEdges         int
	DefinesEdges      int
	VectorPoints      int
	PerLanguageCounts map[string]int
	ParseErrors       []string
	LastCommitSynced  string
}
