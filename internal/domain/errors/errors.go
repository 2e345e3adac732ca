// Package errors provides domain-specific errors for the deckhand application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common domain error conditions.
var (
	ErrWorkspaceNotFound   = errors.New("workspace not found")
	ErrNameTaken           = errors.New("workspace name already registered")
	ErrOrphanedSlot        = errors.New("workspace is not mapped to any slot")
	ErrWorktreeExists      = errors.New("worktree path already exists")
	ErrTrackerUnavailable  = errors.New("tracker client unavailable")
	ErrAgentNotLive        = errors.New("agent process is not live")
	ErrSlotHostUnavailable = errors.New("slot host unavailable")
)

// ErrorCode categorizes errors for handling and reporting.
type ErrorCode string

const (
	CodeValidation   ErrorCode = "VALIDATION"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeExecution    ErrorCode = "EXECUTION"
	CodeConfig       ErrorCode = "CONFIG"
	CodePrecondition ErrorCode = "PRECONDITION"
)

// DeckhandError wraps errors with additional context for debugging and handling.
type DeckhandError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns a formatted error string including the code, message, and cause if present.
func (e *DeckhandError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for use with errors.Is and errors.As.
func (e *DeckhandError) Unwrap() error {
	return e.Cause
}

// NewError creates a new DeckhandError with the given code, message, and optional cause.
func NewError(code ErrorCode, message string, cause error) *DeckhandError {
	return &DeckhandError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// New creates a new validation error scoped to a domain.
func New(domain, message string) *DeckhandError {
	return &DeckhandError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("[%s] %s", domain, message),
	}
}

// Is reports whether err matches target using errors.Is semantics.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
