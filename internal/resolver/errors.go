package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// Structural error kinds, as reported to callers.
const (
	KindCycleDetected    = "CycleDetected"
	KindUnknownReference = "UnknownReference"
	KindEmptyChain       = "EmptyChain"
)

// CycleError signals that following base references revisits a model. Path
// lists the walk from the requested model up to and including the repeated id.
type CycleError struct{ Path []string }

func (e *CycleError) Error() string {
	return "cycle detected: " + strings.Join(e.Path, " -> ")
}

// UnknownReferenceError signals a base reference to a model that is not loaded.
type UnknownReferenceError struct {
	ID           string
	ReferencedBy string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("unknown reference: %s (base of %s)", e.ID, e.ReferencedBy)
}

// EmptyChainError signals that the requested model itself is not loaded.
type EmptyChainError struct{ ID string }

func (e *EmptyChainError) Error() string { return "model not found: " + e.ID }

// ResolutionError wraps a structural error with the stage it occurred in.
type ResolutionError struct {
	Stage Stage
	Err   error
}

func (e *ResolutionError) Error() string { return e.Err.Error() }

func (e *ResolutionError) Unwrap() error { return e.Err }

// IsCycle reports whether err is, or wraps, a CycleError.
func IsCycle(err error) bool {
	var e *CycleError
	return errors.As(err, &e)
}

// IsUnknownReference reports whether err is, or wraps, an UnknownReferenceError.
func IsUnknownReference(err error) bool {
	var e *UnknownReferenceError
	return errors.As(err, &e)
}

// IsEmptyChain reports whether err is, or wraps, an EmptyChainError.
func IsEmptyChain(err error) bool {
	var e *EmptyChainError
	return errors.As(err, &e)
}

// Kind returns the structural error kind of err, or "" when err is not structural.
func Kind(err error) string {
	switch {
	case IsCycle(err):
		return KindCycleDetected
	case IsUnknownReference(err):
		return KindUnknownReference
	case IsEmptyChain(err):
		return KindEmptyChain
	}
	return ""
}
