// Package fillerr defines the cross-cutting error taxonomy used across the
// filler core (spec.md §7), plus the propagation policy each kind implies
// for the scheduler and canceller. Grounded on the teacher's
// sentinel-error-per-package style (pkg/ledger/errors.go), generalized
// into a typed Kind carried on a single error type since the kind itself
// drives retry/terminal behavior in several packages, not just its message.
package fillerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the scheduler/canceller should react to
// it.
type Kind int

const (
	KindConfig Kind = iota
	KindValidation
	KindInsufficientBalance
	KindRPC
	KindSimulation
	KindTimeout
	KindStateConflict
	KindProofUnavailable
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindValidation:
		return "ValidationError"
	case KindInsufficientBalance:
		return "InsufficientBalance"
	case KindRPC:
		return "RpcError"
	case KindSimulation:
		return "SimulationError"
	case KindTimeout:
		return "Timeout"
	case KindStateConflict:
		return "StateConflict"
	case KindProofUnavailable:
		return "ProofUnavailable"
	case KindFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Retriable reports whether the scheduler should re-queue the order that
// produced this kind of error, per spec.md §7's propagation policy.
func (k Kind) Retriable() bool {
	switch k {
	case KindRPC, KindTimeout, KindProofUnavailable:
		return true
	default:
		return false
	}
}

// Terminal reports whether this kind ends the order/cancellation run
// outright rather than being absorbed or retried.
func (k Kind) Terminal() bool {
	switch k {
	case KindValidation, KindStateConflict, KindFatal:
		return true
	default:
		return false
	}
}

// Error wraps an underlying cause with a Kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of kind for op, wrapping err.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error, defaulting to KindFatal for unrecognized errors — an error with
// no known kind should never be treated as silently retriable.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindFatal
}
