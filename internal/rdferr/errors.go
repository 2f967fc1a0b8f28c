// Package rdferr collects the typed error values that cross component
// boundaries per the store's error handling design: parsers, the
// dictionary, the storage backend, and the SPARQL pipeline all propagate
// one of these instead of ad-hoc strings, so a host can switch on kind
// with errors.As rather than scanning error text.
package rdferr

import "fmt"

// SyntaxError is raised by the RDF text parsers and the SPARQL parser on a
// grammar mismatch. Parsers do not attempt recovery; everything parsed
// before the failure point is discarded.
type SyntaxError struct {
	Line, Column int
	Detail       string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Column, e.Detail)
}

// UndefinedPrefix is raised when a prefixed name uses a prefix that was
// never declared by a @prefix/PREFIX directive.
type UndefinedPrefix struct {
	Name string
}

func (e *UndefinedPrefix) Error() string {
	return fmt.Sprintf("undefined prefix: %s", e.Name)
}

// UnsupportedBuiltin is raised by the SPARQL parser when an expression
// calls a function name outside the builtin family in §4.5.
type UnsupportedBuiltin struct {
	Name string
}

func (e *UnsupportedBuiltin) Error() string {
	return fmt.Sprintf("unsupported builtin function: %s", e.Name)
}

// UnsupportedFeature covers grammar the parser recognizes but the
// executor has no evaluation strategy for (an unregistered SERVICE
// endpoint, for instance).
type UnsupportedFeature struct {
	Detail string
}

func (e *UnsupportedFeature) Error() string {
	return fmt.Sprintf("unsupported feature: %s", e.Detail)
}

// UnknownID is returned by the dictionary when resolving an id that was
// never interned, or was interned after the snapshot being read from.
type UnknownID struct {
	ID uint64
}

func (e *UnknownID) Error() string {
	return fmt.Sprintf("unknown term id: %d", e.ID)
}

// InvalidTerm is returned by the dictionary on a malformed language tag
// or datatype IRI at intern time.
type InvalidTerm struct {
	Detail string
}

func (e *InvalidTerm) Error() string {
	return fmt.Sprintf("invalid term: %s", e.Detail)
}

// OutOfIDs is returned once the dictionary's id counter saturates.
type OutOfIDs struct{}

func (e *OutOfIDs) Error() string { return "dictionary: out of term ids" }

// StorageError wraps a backend-specific failure.
type StorageError struct {
	Detail string
	Err    error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage error: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("storage error: %s", e.Detail)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Cancelled is returned by an operator iterator, a query, or an update
// statement when the caller's cancellation flag was observed set.
type Cancelled struct{}

func (e *Cancelled) Error() string { return "cancelled" }

// IOError wraps a failure from the host-supplied LOAD fetch interface.
type IOError struct {
	Detail string
	Err    error
}

func (e *IOError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("io error: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("io error: %s", e.Detail)
}

func (e *IOError) Unwrap() error { return e.Err }

// QueryTimeout is returned when an external clock cancels a query before
// it completed.
type QueryTimeout struct{}

func (e *QueryTimeout) Error() string { return "query timeout" }
