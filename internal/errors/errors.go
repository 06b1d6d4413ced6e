// Package errors implements the engine's typed error taxonomy: every
// failure path produces an *Error carrying a Type, a Policy describing how
// the caller should react, and enough Context to diagnose it without a
// debugger attached.
package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// ErrorType is the taxonomy spec.md §7 defines for this engine.
type ErrorType int

const (
	// ConfigError — missing or invalid configuration (bad URL, unreadable
	// cv.yaml, missing required credential).
	ConfigError ErrorType = iota
	// GitErrorType — git invocation failed (not a repo, no remote, dirty
	// ls-files output).
	GitErrorType
	// ParseErrorType — a language extractor failed on one file.
	ParseErrorType
	// GraphErrorType — the graph backend rejected a read or write.
	GraphErrorType
	// VectorErrorType — the vector backend or an embedding provider failed.
	VectorErrorType
	// StorageErrorType — the on-disk format could not be read or written.
	StorageErrorType
	// CancelErrorType — the operation was cancelled via context, not a
	// genuine failure.
	CancelErrorType
)

func (t ErrorType) String() string {
	switch t {
	case ConfigError:
		return "CONFIG"
	case GitErrorType:
		return "GIT"
	case ParseErrorType:
		return "PARSE"
	case GraphErrorType:
		return "GRAPH"
	case VectorErrorType:
		return "VECTOR"
	case StorageErrorType:
		return "STORAGE"
	case CancelErrorType:
		return "CANCEL"
	default:
		return "UNKNOWN"
	}
}

// Policy describes how a caller running a sync pipeline should react to an
// error of this kind, per spec.md §7.
type Policy int

const (
	// Fatal aborts the whole sync; the driver transitions to a failed
	// state and nothing further runs.
	Fatal Policy = iota
	// Logged means the operation continues past this error but records it
	// (e.g. one file failed to parse; the rest of the sync proceeds).
	Logged
	// NonFatal means the error is an expected, non-exceptional outcome
	// (e.g. context cancellation) and needs no alarm.
	NonFatal
)

func (p Policy) String() string {
	switch p {
	case Fatal:
		return "fatal"
	case Logged:
		return "logged"
	case NonFatal:
		return "non-fatal"
	default:
		return "unknown"
	}
}

// defaultPolicy is the policy spec.md §7 assigns to each error type absent
// an explicit override.
func defaultPolicy(t ErrorType) Policy {
	switch t {
	case ParseErrorType:
		return Logged
	case CancelErrorType:
		return NonFatal
	default:
		return Fatal
	}
}

// Error is a structured, contextual error carrying its taxonomy type, the
// caller's reaction policy, and an optional wrapped cause.
type Error struct {
	Type       ErrorType
	Policy     Policy
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// WithContext attaches a diagnostic key/value pair and returns e for
// chaining.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Is reports whether target is an *Error of the same Type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsFatal reports whether this error's policy requires aborting the
// enclosing operation.
func (e *Error) IsFatal() bool { return e.Policy == Fatal }

// DetailedString renders the error with its type, policy, cause, context
// and captured stack trace, for verbose/debug logging.
func (e *Error) DetailedString() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] [%s] %s\n", e.Policy, e.Type, e.Message))
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf("caused by: %v\n", e.Cause))
	}
	if len(e.Context) > 0 {
		sb.WriteString("context:\n")
		for k, v := range e.Context {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, v))
		}
	}
	if e.StackTrace != "" {
		sb.WriteString(fmt.Sprintf("stack trace:\n%s\n", e.StackTrace))
	}
	return sb.String()
}

func captureStackTrace(skip int) string {
	var sb strings.Builder
	for i := skip; i < skip+10; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			break
		}
		sb.WriteString(fmt.Sprintf("  %s:%d %s\n", file, line, fn.Name()))
	}
	return sb.String()
}

// New creates an *Error of the given type with its default policy.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:       errType,
		Policy:     defaultPolicy(errType),
		Message:    message,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Wrap wraps err as an *Error of the given type, or returns nil if err is
// nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Type:       errType,
		Policy:     defaultPolicy(errType),
		Message:    message,
		Cause:      err,
		Context:    make(map[string]interface{}),
		StackTrace: captureStackTrace(2),
	}
}

// Convenience constructors, one per taxonomy member.

func NewConfigError(format string, args ...interface{}) *Error {
	return New(ConfigError, fmt.Sprintf(format, args...))
}

func WrapGitError(err error, format string, args ...interface{}) *Error {
	return Wrap(err, GitErrorType, fmt.Sprintf(format, args...))
}

func WrapParseError(err error, format string, args ...interface{}) *Error {
	return Wrap(err, ParseErrorType, fmt.Sprintf(format, args...))
}

func WrapGraphError(err error, format string, args ...interface{}) *Error {
	return Wrap(err, GraphErrorType, fmt.Sprintf(format, args...))
}

func WrapVectorError(err error, format string, args ...interface{}) *Error {
	return Wrap(err, VectorErrorType, fmt.Sprintf(format, args...))
}

func WrapStorageError(err error, format string, args ...interface{}) *Error {
	return Wrap(err, StorageErrorType, fmt.Sprintf(format, args...))
}

func NewCancelError(format string, args ...interface{}) *Error {
	return New(CancelErrorType, fmt.Sprintf(format, args...))
}

// IsFatal reports whether err, if an *Error, has Fatal policy. A plain
// (non-taxonomy) error is treated as fatal since its blast radius is
// unknown.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		return e.IsFatal()
	}
	return true
}

// GetPolicy returns err's reaction policy, defaulting to Fatal for errors
// outside this package's taxonomy.
func GetPolicy(err error) Policy {
	if err == nil {
		return NonFatal
	}
	if e, ok := err.(*Error); ok {
		return e.Policy
	}
	return Fatal
}

// GetType returns err's taxonomy type, or StorageErrorType for unrecognized
// errors (the broadest bucket, since most untyped failures in this engine
// originate from I/O).
func GetType(err error) ErrorType {
	if err == nil {
		return CancelErrorType
	}
	if e, ok := err.(*Error); ok {
		return e.Type
	}
	return StorageErrorType
}
