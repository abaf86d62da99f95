// Package xerrors defines the error taxonomy shared by every package in
// this module, following the sentinel-plus-typed-struct pattern the
// teacher lineage uses for its own errors (see the root package's
// original errors.go).
package xerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a StoreError. It is not itself an error type; it is
// attached to StoreError so callers can branch on category with
// Is(err, kind), or by inspecting KindOf(err).
type Kind int

const (
	// Unknown is the zero value; never returned by this module's code.
	Unknown Kind = iota
	// AlreadyExists indicates a directory, set name, or graph name collision.
	AlreadyExists
	// NotFound indicates a missing set, graph, cell, or gene.
	NotFound
	// InvalidInput indicates a caller-supplied value violates a precondition
	// (negative count, duplicate gene within a cell, missing CellName,
	// duplicate cell name, malformed regex, probability outside [0,1]).
	InvalidInput
	// CapacityExhausted indicates an interning table or fixed-capacity
	// container could not accept another entry.
	CapacityExhausted
	// IOError indicates a failure opening, mapping, truncating, or
	// syncing a backing file.
	IOError
	// Corrupt indicates a magic-number or size mismatch on re-open.
	Corrupt
	// Cancelled indicates a long-running build was cooperatively cancelled.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case AlreadyExists:
		return "already_exists"
	case NotFound:
		return "not_found"
	case InvalidInput:
		return "invalid_input"
	case CapacityExhausted:
		return "capacity_exhausted"
	case IOError:
		return "io_error"
	case Corrupt:
		return "corrupt"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// StoreError is the concrete error type returned by fatal, ingest, and
// structural operations across the module. Set-algebra and graph-creation
// operations that spec.md classifies as user-driven queries do not return
// this type; they report AlreadyExists/NotFound as boolean return values
// with a diagnostic written to an output sink instead (see sets.Registry,
// which logs it through store.Logger.LogSetOp).
type StoreError struct {
	Kind    Kind
	Op      string // the operation that failed, e.g. "AddCell", "Vector.Resize"
	Message string
	cause   error
}

func (e *StoreError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error { return e.cause }

// New creates a StoreError with no wrapped cause.
func New(kind Kind, op, message string) *StoreError {
	return &StoreError{Kind: kind, Op: op, Message: message}
}

// Wrap creates a StoreError that wraps an underlying cause.
func Wrap(kind Kind, op, message string, cause error) *StoreError {
	return &StoreError{Kind: kind, Op: op, Message: message, cause: cause}
}

// KindOf returns the Kind of err if it is (or wraps) a *StoreError, and
// Unknown otherwise.
func KindOf(err error) Kind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return Unknown
}

// Is reports whether err is a StoreError of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
