package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrTaskNotFound      = NewError(ErrCodeNotFound, "task not found")
	ErrBundleNotFound    = NewError(ErrCodeNotFound, "bundle not found")
	ErrChallengeNotFound = NewError(ErrCodeNotFound, "challenge not found")

	// Lock conflicts. A caller receiving one of these should surface it to
	// the user and offer a refresh, never retry silently.
	ErrLockedByOther = NewError(ErrCodeConflict, "task is locked by another reviewer")
	ErrNotLockHolder = NewError(ErrCodeConflict, "lock is held by a different user")

	// Review-queue claim conflicts.
	ErrClaimedByOther   = NewError(ErrCodeConflict, "task review is already claimed by another reviewer")
	ErrNotClaimant      = NewError(ErrCodeConflict, "task review is not claimed by this user")
	ErrConflictingClaim = NewError(ErrCodeConflict, "task review claim was taken over")

	// Permission failures, fatal to the request.
	ErrNotAuthorized = NewError(ErrCodeForbidden, "user is not authorized for this review action")
	ErrNotReviewer   = NewError(ErrCodeForbidden, "user is not flagged as a reviewer")

	// Bundle validation failures.
	ErrEmptyBundle         = NewError(ErrCodeInvalid, "bundle must contain at least one task")
	ErrInvalidBundleMember = NewError(ErrCodeInvalid, "task is not eligible for bundling")

	ErrInvalidPayload = NewError(ErrCodeInvalid, "invalid payload")
	ErrUnauthorized   = NewError(ErrCodeUnauthorized, "unauthorized")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
