package services

import (
	"errors"
	"fmt"
	"testing"

	"annuaire/internal/constants"
)

func TestServiceError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *ServiceError
		wantStr string
	}{
		{
			name:    "formats error without wrapped error",
			err:     NewServiceError(constants.ErrCodeNotFound, "account not found"),
			wantStr: "NOT_FOUND: account not found",
		},
		{
			name:    "formats error with wrapped error",
			err:     WrapServiceError(constants.ErrCodeStorageError, "operation failed", errors.New("disk full")),
			wantStr: "STORAGE_ERROR: operation failed: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantStr {
				t.Errorf("Error() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	inner := errors.New("underlying")
	err := WrapServiceError(constants.ErrCodeStorageError, "outer", inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
	if NewServiceError(constants.ErrCodeNotFound, "x").Unwrap() != nil {
		t.Error("Unwrap should return nil when nothing is wrapped")
	}
}

func TestIsServiceError(t *testing.T) {
	code, ok := IsServiceError(ErrPermissionDenied)
	if !ok || code != constants.ErrCodePermissionDenied {
		t.Errorf("IsServiceError = (%q, %v), want (%q, true)", code, ok, constants.ErrCodePermissionDenied)
	}

	// Works through wrapping.
	wrapped := fmt.Errorf("context: %w", ErrAccountNotFound)
	code, ok = IsServiceError(wrapped)
	if !ok || code != constants.ErrCodeNotFound {
		t.Errorf("IsServiceError through wrap = (%q, %v), want (%q, true)", code, ok, constants.ErrCodeNotFound)
	}

	if _, ok := IsServiceError(errors.New("plain")); ok {
		t.Error("plain error should not be a ServiceError")
	}
	if _, ok := IsServiceError(nil); ok {
		t.Error("nil should not be a ServiceError")
	}
}

func TestHasCode(t *testing.T) {
	if !HasCode(ErrDuplicateUsername, constants.ErrCodeDuplicateUsername) {
		t.Error("expected matching code")
	}
	if HasCode(ErrDuplicateUsername, constants.ErrCodeNotFound) {
		t.Error("expected mismatched code to fail")
	}
}

func TestErrValidationAtRow(t *testing.T) {
	err := ErrValidationAtRow(3, "email is malformed")

	if err.Code != constants.ErrCodeValidation {
		t.Errorf("Code = %q, want %q", err.Code, constants.ErrCodeValidation)
	}
	if want := "row 3: email is malformed"; err.Message != want {
		t.Errorf("Message = %q, want %q", err.Message, want)
	}
}
