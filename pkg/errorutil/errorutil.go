package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned in the response envelope.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeInvalidCredential = "INVALID_CREDENTIALS"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternal          = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code so callers can use errors.Is with the
// package-level sentinels.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code && other.Message == "" && e.Code != ""
}

// Sentinels for errors.Is checks; they carry only a code.
var (
	ErrValidation        = &DomainError{Code: CodeValidation}
	ErrInvalidCredential = &DomainError{Code: CodeInvalidCredential}
	ErrUnauthenticated   = &DomainError{Code: CodeUnauthenticated}
	ErrForbidden         = &DomainError{Code: CodeForbidden}
	ErrNotFound          = &DomainError{Code: CodeNotFound}
	ErrConflict          = &DomainError{Code: CodeConflict}
	ErrInvalidTransition = &DomainError{Code: CodeInvalidTransition}
	ErrInternal          = &DomainError{Code: CodeInternal}
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewInvalidCredential never says whether the email or the password was wrong.
// cause is kept for logs only.
func NewInvalidCredential(cause error) error {
	return &DomainError{
		Code:       CodeInvalidCredential,
		Message:    "invalid email or password",
		HTTPStatus: http.StatusUnauthorized,
		Err:        cause,
	}
}

func NewUnauthenticated(message string) error {
	return NewDomainError(CodeUnauthenticated, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("cannot move ticket from %s to %s", from, to),
		http.StatusConflict,
		map[string]any{"from": from, "to": to})
}

func NewRateLimited(retryAfterSeconds int) error {
	return NewDomainError(CodeRateLimited, "too many requests", http.StatusTooManyRequests,
		map[string]any{"retry_after": retryAfterSeconds})
}

// NewInternalError hides err behind a generic message. It is how store failures
// reach the caller.
func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError. Anything that is not
// already a DomainError is treated as a store or infrastructure failure.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		if domainErr.HTTPStatus == 0 {
			copied := *domainErr
			copied.HTTPStatus = http.StatusInternalServerError
			return &copied
		}
		return domainErr
	}
	return NewInternalError(err).(*DomainError)
}
