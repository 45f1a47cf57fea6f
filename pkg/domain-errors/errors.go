// Package domainerrors defines code-carrying errors shared across services.
//
// Services and primitives return these so transports can translate them into
// HTTP statuses without inspecting error strings, and so callers can branch on
// HasCode instead of errors.Is against a zoo of sentinels. Infrastructure
// facts (not found in a store, expired, conflict) use pkg/platform/sentinel;
// everything that crosses a service boundary is wrapped into a coded error.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and caller branching.
type Code string

const (
	// CodeCryptoFailure signals missing or malformed key material, or a
	// signature primitive that failed outright. Never retried, always
	// surfaced to the caller.
	CodeCryptoFailure Code = "crypto_failure"

	// CodePrecondition signals a proof requested for a claim the prover
	// cannot honestly satisfy. The engine fails loudly before producing
	// any output rather than silently proving a false claim.
	CodePrecondition Code = "precondition_failed"

	// CodeInvalidReference signals a revocation target that does not
	// address an existing, non-genesis block.
	CodeInvalidReference Code = "invalid_reference"

	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeConflict     Code = "conflict"
	CodeUnavailable  Code = "unavailable"
	CodeInternal     Code = "internal_error"
)

// Error is a domain error with a stable code and a human-readable message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is makes errors.Is usable against freshly constructed domain errors:
// two domain errors match when code and message agree.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error while keeping the
// cause reachable through errors.Is/As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			break
		}
	}
	return false
}

// CodeOf returns the outermost code carried by err, or CodeInternal when err
// carries none. Useful for transports that must always produce a status.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status transports should emit.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidInput, CodePrecondition, CodeInvalidReference:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeCryptoFailure, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Description returns the message transports may expose to clients. Internal
// and crypto failures deliberately expose no detail.
func Description(err error) string {
	var de *Error
	if !errors.As(err, &de) {
		return ""
	}
	switch de.Code {
	case CodeInternal, CodeCryptoFailure:
		return ""
	default:
		return de.Message
	}
}
