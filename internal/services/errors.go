package services

import (
	"errors"
	"fmt"

	"annuaire/internal/constants"
)

// ServiceError represents a service-level error with an error code
// and a human-readable message suitable for the front-end.
type ServiceError struct {
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new service error
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

// WrapServiceError wraps an existing error with a service error
func WrapServiceError(code, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, Err: err}
}

// IsServiceError checks if an error is a ServiceError and returns its code
func IsServiceError(err error) (string, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code, true
	}
	return "", false
}

// HasCode reports whether err is a ServiceError carrying the given code.
func HasCode(err error, code string) bool {
	got, ok := IsServiceError(err)
	return ok && got == code
}

// Pre-defined service errors for common cases
var (
	ErrPermissionDenied    = NewServiceError(constants.ErrCodePermissionDenied, "permission denied")
	ErrAdminOnly           = NewServiceError(constants.ErrCodePermissionDenied, "administrator privileges required")
	ErrNotFound            = NewServiceError(constants.ErrCodeNotFound, "not found")
	ErrAccountNotFound     = NewServiceError(constants.ErrCodeNotFound, "account not found")
	ErrContactNotFound     = NewServiceError(constants.ErrCodeNotFound, "no contact matches the selector")
	ErrDuplicateUsername   = NewServiceError(constants.ErrCodeDuplicateUsername, "username already exists")
	ErrDuplicateEmail      = NewServiceError(constants.ErrCodeDuplicateEmail, "email address already in use")
	ErrUnknownAccount      = NewServiceError(constants.ErrCodeUnknownAccount, "grantee account does not exist")
	ErrInvalidCredential   = NewServiceError(constants.ErrCodeInvalidCredential, "invalid credentials")
	ErrAlreadyBootstrapped = NewServiceError(constants.ErrCodeAlreadyBootstrapped, "an account already exists")
	ErrNotBootstrapped     = NewServiceError(constants.ErrCodeNotBootstrapped, "no account exists yet: create the first administrator")
	ErrSelfDelete          = NewServiceError(constants.ErrCodePermissionDenied, "administrators cannot delete their own account")
)

// Validation errors with context

func ErrValidation(reason string) *ServiceError {
	return &ServiceError{
		Code:    constants.ErrCodeValidation,
		Message: reason,
	}
}

func ErrValidationAtRow(rowIndex int, reason string) *ServiceError {
	return &ServiceError{
		Code:    constants.ErrCodeValidation,
		Message: fmt.Sprintf("row %d: %s", rowIndex, reason),
	}
}

func ErrFormat(reason string) *ServiceError {
	return &ServiceError{
		Code:    constants.ErrCodeFormatError,
		Message: reason,
	}
}

// WrapStorageError wraps a recordstore failure for surfacing to the caller.
func WrapStorageError(err error) *ServiceError {
	return WrapServiceError(constants.ErrCodeStorageError, "storage operation failed", err)
}
