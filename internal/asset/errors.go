package asset

import (
	"errors"
	"fmt"
)

var (
	// ErrFilesystem is the root of all local write failures.
	ErrFilesystem = errors.New("filesystem error")

	// ErrUnsafeFilename is returned for filenames that would escape the
	// destination directory.
	ErrUnsafeFilename = errors.New("unsafe asset filename")

	// ErrUnexpectedStatus is returned when a file host answers with a
	// non-success status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// FilesystemError describes a failed local file operation.
type FilesystemError struct {
	// Op is the operation ("create temp", "write", "rename", ...).
	Op string

	// Path is the file or directory involved.
	Path string

	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrFilesystem, e.Op, e.Path, e.Err)
}

// Unwrap allows errors.Is(err, ErrFilesystem) and access to the os error.
func (e *FilesystemError) Unwrap() []error {
	return []error{ErrFilesystem, e.Err}
}
