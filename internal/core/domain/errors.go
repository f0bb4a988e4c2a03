// Package domain defines the board element model and its invariants.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a board domain error with a structured error code.
// Codes follow BM-<AREA>-<NNNN>; the first digit of NNNN mirrors the HTTP
// status class the error maps to.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// Element and message errors (ELEM).
var (
	// ErrInvalidMessage indicates a message that could not be decoded or that
	// carries neither a tool nor a children batch.
	ErrInvalidMessage = NewDomainError("BM-ELEM-4000", "invalid message")

	// ErrUnknownType indicates an element type the store does not recognize.
	ErrUnknownType = NewDomainError("BM-ELEM-4001", "unrecognized element type")

	// ErrMissingID indicates an element mutation without an id.
	ErrMissingID = NewDomainError("BM-ELEM-4002", "element id is required")

	// ErrBlockedTool indicates a message produced by a tool on the block list.
	ErrBlockedTool = NewDomainError("BM-ELEM-4003", "tool is blocked")

	// ErrElementNotFound indicates an update or delete naming a missing element.
	ErrElementNotFound = NewDomainError("BM-ELEM-4040", "element not found")

	// ErrParentNotFound indicates a child message naming a missing parent.
	ErrParentNotFound = NewDomainError("BM-ELEM-4041", "parent element not found")
)

// Board errors (BOARD).
var (
	// ErrInvalidBoardName indicates an empty or oversized board name.
	ErrInvalidBoardName = NewDomainError("BM-BOARD-4000", "invalid board name")

	// ErrBoardNotFound indicates the board has neither resident state nor a snapshot.
	ErrBoardNotFound = NewDomainError("BM-BOARD-4040", "board not found")
)

// System errors (SYS).
var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("BM-SYS-5000", "internal server error")

	// ErrServiceUnavailable indicates the server is shutting down.
	ErrServiceUnavailable = NewDomainError("BM-SYS-5030", "service unavailable")

	// ErrRateLimited indicates too many requests or messages.
	ErrRateLimited = NewDomainError("BM-SYS-4290", "too many requests")
)
