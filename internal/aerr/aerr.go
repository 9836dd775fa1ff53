// Package aerr defines the verifier's error kinds as sentinel errors
// usable with errors.Is/errors.As, wrapped with fmt.Errorf("...: %w",
// err) at call sites rather than a custom error struct hierarchy.
package aerr

import "errors"

// Kind sentinels. Wrap with fmt.Errorf("context: %w", KindX) at the call
// site so errors.Is still matches the kind while keeping a useful message.
var (
	// ErrInputParse: malformed JSON/GML/XML, unknown atom, missing field.
	ErrInputParse = errors.New("input parse error")

	// ErrNameResolution: duplicate router/interface name, dangling link
	// endpoint.
	ErrNameResolution = errors.New("name resolution error")

	// ErrUnsupportedMode: e.g. EXACT-mode tracing, which is not
	// implemented.
	ErrUnsupportedMode = errors.New("unsupported mode")

	// ErrSolverFailure: engine selector out of range, or an internal
	// solver precondition violated.
	ErrSolverFailure = errors.New("solver failure")

	// ErrSpurious: concretization could not realize an abstract trace.
	// Soft: the verifier downgrades to MAYBE and continues the mode
	// ladder rather than treating this as fatal.
	ErrSpurious = errors.New("spurious trace")

	// ErrInternal: invariant violation that should never fire outside of
	// a bug.
	ErrInternal = errors.New("internal error")
)
