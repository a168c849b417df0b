package ir

import (
	"errors"
	"fmt"
)

// Kind categorizes a compile-time failure.
type Kind int

const (
	// Contract is a graph-construction defect: an incomplete cycle, a
	// reentrant placeholder visit, a double finalize or connect.
	Contract Kind = iota

	// NotImplemented is a topology the deployment layer has no transport for.
	NotImplemented

	// Invalid is a request that can never be satisfied, such as a network
	// edge that terminates on an unresolved tick.
	Invalid

	// MissingEndpoint is a reference to a process, cluster or external
	// process the provider was not given.
	MissingEndpoint
)

func (k Kind) String() string {
	switch k {
	case Contract:
		return "contract violation"
	case NotImplemented:
		return "not implemented"
	case Invalid:
		return "invalid"
	case MissingEndpoint:
		return "missing endpoint"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a fatal compile-time error.
//
// Errors of every kind indicate a defect in the layer that built the graph,
// not a runtime condition, so the core never recovers from them.
type Error struct {
	// Kind identifies the error category.
	Kind Kind

	// Op names the pass or operation that failed, e.g. "emit".
	Op string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Fatalf aborts the current pass with an *Error.
func Fatalf(kind Kind, op, format string, args ...any) {
	panic(&Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)})
}

// Recover converts an abort raised by Fatalf into an error stored in *errp.
// Panics that do not carry *Error are re-raised.
//
// Use it only at an outermost entry point:
//
//	func Compile(...) (_ *Result, err error) {
//		defer ir.Recover(&err)
//		...
//	}
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*Error); ok {
		*errp = e
		return
	}
	panic(r)
}

// IsKind reports whether err wraps an *Error of the given kind.
// Uses errors.As to handle wrapped errors.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
