// Package xerr defines the error type shared across xorprop's packages.
package xerr

import "fmt"

// Kind classifies an Error so callers can branch with errors.Is against
// the package-level sentinel Kinds below instead of string-matching.
type Kind int

const (
	// KindOther is the zero value: an error with no specific classification.
	KindOther Kind = iota
	// KindTriviallyUnsat marks an empty-LHS constraint with rhs=1.
	KindTriviallyUnsat
	// KindBoundClash marks two disagreeing bounds installed on one variable.
	KindBoundClash
	// KindRowConflict marks a Bland's-rule selection with no flippable pivot.
	KindRowConflict
	// KindConfig marks a bad adapter configuration option.
	KindConfig
	// KindInvariant marks a cross-check invariant violation (programmer error).
	KindInvariant
)

// Error is the package error type. System names the package (e.g. "xorsolver",
// "normalize"), Op names the failing operation, and Message gives details.
type Error struct {
	System  string
	Op      string
	Message string
	Kind    Kind
	err     error
}

func (e *Error) Error() string {
	if e.System != "" {
		return fmt.Sprintf("%s.%s: %s", e.System, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to a wrapped cause.
func (e *Error) Unwrap() error {
	return e.err
}

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, xerr.Sentinel(xerr.KindBoundClash)).
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind && other.System == "" && other.Op == ""
}

// New builds an Error with no specific Kind.
func New(system, op, message string) *Error {
	return &Error{System: system, Op: op, Message: message}
}

// Wrap builds an Error that carries cause as its Unwrap target.
func Wrap(system, op, message string, cause error) *Error {
	return &Error{System: system, Op: op, Message: message, err: cause}
}

// WithKind builds a classified Error.
func WithKind(kind Kind, system, op, message string) *Error {
	return &Error{System: system, Op: op, Message: message, Kind: kind}
}

// Sentinel returns a comparison target for errors.Is(err, xerr.Sentinel(kind)).
func Sentinel(kind Kind) *Error {
	return &Error{Kind: kind}
}
