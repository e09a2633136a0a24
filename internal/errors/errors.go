// Package errors provides standardized domain errors with codes for Keepsake.
//
// Usage:
//
//	// In services - return typed errors
//	if !validation.ValidateBookName(req.Name) {
//	    return errors.Validation("book name must be between 1 and 100 characters")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrSizeLimit) {
//	    // the whole save was rejected, nothing was written
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeRemoteFault:
//	        // caller decides whether to retry
//	    case errors.CodeValidation:
//	        // fix the input, no remote call was made
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeValidation    Code = "VALIDATION"
	CodeSizeLimit     Code = "SIZE_LIMIT"
	CodeRemoteFault   Code = "REMOTE_FAULT"
	CodeDataIntegrity Code = "DATA_INTEGRITY"
	CodeNotFound      Code = "NOT_FOUND"
	CodeForbidden     Code = "FORBIDDEN"
	CodeInternal      Code = "INTERNAL"

	// Auth codes relabel faults originating in the identity provider.
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeEmailInUse         Code = "EMAIL_IN_USE"
	CodeEmailUnverified    Code = "EMAIL_UNVERIFIED"
	CodeAccountDisabled    Code = "ACCOUNT_DISABLED"
	CodeTooManyRequests    Code = "TOO_MANY_REQUESTS"
	CodeWeakPassword       Code = "WEAK_PASSWORD"
	CodeUnsupported        Code = "UNSUPPORTED"

	// Image intake codes.
	CodeFileTooLarge    Code = "FILE_TOO_LARGE"
	CodeInvalidFileType Code = "INVALID_FILE_TYPE"
)

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrSizeLimit          = &Error{Code: CodeSizeLimit, Message: "size limit exceeded"}
	ErrRemoteFault        = &Error{Code: CodeRemoteFault, Message: "remote fault"}
	ErrDataIntegrity      = &Error{Code: CodeDataIntegrity, Message: "data integrity violation"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrEmailInUse         = &Error{Code: CodeEmailInUse, Message: "email already in use"}
	ErrEmailUnverified    = &Error{Code: CodeEmailUnverified, Message: "email not verified"}
	ErrAccountDisabled    = &Error{Code: CodeAccountDisabled, Message: "account disabled"}
	ErrTooManyRequests    = &Error{Code: CodeTooManyRequests, Message: "too many requests"}
	ErrWeakPassword       = &Error{Code: CodeWeakPassword, Message: "weak password"}
	ErrUnsupported        = &Error{Code: CodeUnsupported, Message: "unsupported operation"}
	ErrFileTooLarge       = &Error{Code: CodeFileTooLarge, Message: "file too large"}
	ErrInvalidFileType    = &Error{Code: CodeInvalidFileType, Message: "invalid file type"}
)

// Constructor functions for creating errors with custom messages.

// New creates an error with an explicit code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// SizeLimit creates a size limit error.
func SizeLimit(msg string) *Error {
	return &Error{Code: CodeSizeLimit, Message: msg}
}

// SizeLimitf creates a size limit error with formatted message.
func SizeLimitf(format string, args ...any) *Error {
	return &Error{Code: CodeSizeLimit, Message: fmt.Sprintf(format, args...)}
}

// RemoteFault creates a remote fault error.
func RemoteFault(msg string) *Error {
	return &Error{Code: CodeRemoteFault, Message: msg}
}

// DataIntegrity creates a data integrity error.
func DataIntegrity(msg string) *Error {
	return &Error{Code: CodeDataIntegrity, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// InvalidCredentials creates an invalid credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Unsupported creates an unsupported operation error.
func Unsupported(msg string) *Error {
	return &Error{Code: CodeUnsupported, Message: msg}
}

// FileTooLargef creates a file too large error with formatted message.
func FileTooLargef(format string, args ...any) *Error {
	return &Error{Code: CodeFileTooLarge, Message: fmt.Sprintf(format, args...)}
}

// InvalidFileTypef creates an invalid file type error with formatted message.
func InvalidFileTypef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidFileType, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
