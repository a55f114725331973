package codes

import (
	"errors"
	"fmt"
)

// Kind classifies a fatal build failure.
type Kind string

const (
	CompileFailed    Kind = "CompileFailed"
	ArtifactNotFound Kind = "ArtifactNotFound"
	RelocationFailed Kind = "RelocationFailed"
	TestFailed       Kind = "TestFailed"
	Interrupted      Kind = "Interrupted"
	ConfigInvalid    Kind = "ConfigInvalid"
)

// Error is a fatal failure tied to the target or stage that produced it.
// None of these are retried.
type Error struct {
	Kind Kind
	// Target is the build target name, empty for test stages.
	Target string
	// Stage names the step that failed (compile, relocate, native, downstream...).
	Stage string
	// Diagnostic holds captured tool output, if any.
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	subject := e.Stage
	if e.Target != "" {
		subject = e.Target + "/" + e.Stage
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, subject, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, subject)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind so errors.Is(err, &Error{Kind: TestFailed}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind && (t.Target == "" || t.Target == e.Target)
}

// New creates an Error of the given kind.
func New(kind Kind, target, stage string, err error) *Error {
	return &Error{Kind: kind, Target: target, Stage: stage, Err: err}
}

// WithDiagnostic attaches captured tool output.
func (e *Error) WithDiagnostic(diag string) *Error {
	e.Diagnostic = diag
	return e
}

// AsError extracts the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}

	return nil, false
}

// IsKind reports whether err carries a failure of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}
