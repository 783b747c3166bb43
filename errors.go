package hdfskit

import (
	"errors"
	"fmt"
)

// Common filesystem errors. Every error returned across the provider
// boundary wraps exactly one of these.
var (
	ErrNotExist         = errors.New("file does not exist")
	ErrExist            = errors.New("file already exists")
	ErrNotEmpty         = errors.New("directory not empty")
	ErrPermission       = errors.New("permission denied")
	ErrNotDir           = errors.New("not a directory")
	ErrNotLink          = errors.New("not a symbolic link")
	ErrNotSupported     = errors.New("operation not supported")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrProviderMismatch = errors.New("provider mismatch")
	ErrIO               = errors.New("i/o error")
	ErrClosed           = errors.New("file system closed")
)

// PathError records an error and the operation and file path(s) that caused it
type PathError struct {
	Op    string
	Path  string
	Other string
	Err   error
}

// Error implements the error interface
func (e *PathError) Error() string {
	if e.Other != "" {
		return fmt.Sprintf("%s %s -> %s: %v", e.Op, e.Path, e.Other, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// IsNotExist reports whether an error indicates that a file or directory
// does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsExist reports whether an error indicates that a file or directory
// already exists
func IsExist(err error) bool {
	return errors.Is(err, ErrExist)
}

// IsPermission reports whether an error indicates that permission is denied
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}

// IsNotSupported reports whether an error indicates an unsupported operation
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrNotSupported)
}

// IsInvalidArgument reports whether an error is a local precondition failure
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func argError(op, path, format string, args ...any) error {
	return &PathError{
		Op:   op,
		Path: path,
		Err:  fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...)),
	}
}

func unsupported(op, path string) error {
	return &PathError{Op: op, Path: path, Err: ErrNotSupported}
}
