package ir

// Expr is an opaque code fragment in the target runtime's language: a
// closure, a sink or source expression, a transport descriptor.
type Expr string

// IsZero reports whether e is absent.
func (e Expr) IsZero() bool { return e == "" }

func (e Expr) String() string { return string(e) }

// Type is the optional element type of a node's output stream.
type Type string

// IsZero reports whether t is absent.
func (t Type) IsZero() bool { return t == "" }

func (t Type) String() string { return string(t) }
