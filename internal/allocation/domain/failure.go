package domain

import (
	"errors"
	"fmt"
)

// FailureKind is the closed set of outcome classifications. Components
// classify failures, they never retry; only the batch consumer acts on
// the transient bit.
type FailureKind string

const (
	KindInvalidArguments         FailureKind = "InvalidArgumentsError"
	KindDuplicateEventRaised     FailureKind = "DuplicateEventRaisedError"
	KindDuplicateStockAllocation FailureKind = "DuplicateStockAllocationError"
	KindDepletedStockAllocation  FailureKind = "DepletedStockAllocationError"
	KindUnrecognized             FailureKind = "UnrecognizedError"
)

// Failure is a classified outcome. Only KindUnrecognized is transient:
// every other kind reproduces the same result on retry.
type Failure struct {
	Kind      FailureKind
	Transient bool
	Cause     error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %v", f.Kind, f.Cause)
	}
	return string(f.Kind)
}

func (f *Failure) Unwrap() error { return f.Cause }

// NewFailure classifies cause under kind. The transient bit is derived
// from the kind, never chosen by the caller.
func NewFailure(kind FailureKind, cause error) *Failure {
	return &Failure{
		Kind:      kind,
		Transient: kind == KindUnrecognized,
		Cause:     cause,
	}
}

func invalidArguments(cause error) *Failure {
	return NewFailure(KindInvalidArguments, cause)
}

// KindOf reports the failure kind carried by err, if any.
func KindOf(err error) (FailureKind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}

// HasKind reports whether err carries the given failure kind.
func HasKind(err error, kind FailureKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsTransient reports whether err is worth redelivering. Unclassified
// errors are treated as transient: an unknown failure must not ack a
// message that might have had no effect.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Transient
	}
	return true
}
