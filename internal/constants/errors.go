package constants

// Service Error Codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodePermissionDenied    = "PERMISSION_DENIED"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeDuplicateUsername   = "DUPLICATE_USERNAME"
	ErrCodeDuplicateEmail      = "DUPLICATE_EMAIL"
	ErrCodeUnknownAccount      = "UNKNOWN_ACCOUNT"
	ErrCodeInvalidCredential   = "INVALID_CREDENTIAL"
	ErrCodeStorageError        = "STORAGE_ERROR"
	ErrCodeFormatError         = "FORMAT_ERROR"
	ErrCodeNotBootstrapped     = "NOT_BOOTSTRAPPED"
	ErrCodeAlreadyBootstrapped = "ALREADY_BOOTSTRAPPED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)
