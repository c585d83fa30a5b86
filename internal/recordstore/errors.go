package recordstore

import (
	"errors"
	"fmt"
)

// ErrorKind classifies storage failures.
type ErrorKind int

const (
	// IOFailure covers filesystem-level errors (open, rename, sync).
	IOFailure ErrorKind = iota
	// SchemaMismatch means the file exists but its header or column count
	// does not match the declared schema.
	SchemaMismatch
	// EncodingError means the file content is not valid CSV.
	EncodingError
)

func (k ErrorKind) String() string {
	switch k {
	case IOFailure:
		return "io_failure"
	case SchemaMismatch:
		return "schema_mismatch"
	case EncodingError:
		return "encoding_error"
	default:
		return "unknown"
	}
}

// StorageError is the error type returned by all Store operations.
type StorageError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage %s on %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("storage %s on %s", e.Kind, e.Path)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func newStorageError(kind ErrorKind, path string, err error) *StorageError {
	return &StorageError{Kind: kind, Path: path, Err: err}
}

// IsKind reports whether err is a StorageError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
