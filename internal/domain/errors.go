package domain

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error categories every layer above the
// Persistent Store deals in. The HTTP adapter is the only place that maps
// a Kind to a status code; nothing below it knows what an HTTP status is.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindInsufficientFunds
	KindConflict
	KindInFlight
	KindContention
	KindCorruption
	KindInfrastructure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case KindConflict:
		return "CONFLICT"
	case KindInFlight:
		return "IN_FLIGHT"
	case KindContention:
		return "CONTENTION"
	case KindCorruption:
		return "CORRUPTION"
	case KindInfrastructure:
		return "INFRASTRUCTURE"
	default:
		return "UNKNOWN"
	}
}

// Error is the one error type the engine, router, coordinator, and
// reporting layers return. Callers that need to branch on category use
// errors.As and inspect Kind; nobody string-matches Message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func IsKind(err error, kind Kind) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind == kind
	}
	return false
}
