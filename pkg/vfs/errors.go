package vfs

import (
	"errors"
	"fmt"
)

// These errors provide a consistent failure taxonomy across all backends.
// Backends fail with the most specific kind they can detect and wrap it with
// the failing URL's raw string, so an uncaught failure always names its path:
//
//	return fmt.Errorf("%s: %w", u, vfs.ErrNotFound)
//
// Callers classify with errors.Is. The generic algorithms in this package
// propagate these unchanged, except at the three documented coercion points
// (Exists, IsDir, DeepMTime).
var (
	// ErrNotFound indicates the entry does not exist.
	ErrNotFound = errors.New("no such file or directory")

	// ErrAlreadyExists indicates the entry exists and overwriting was not
	// requested.
	ErrAlreadyExists = errors.New("file already exists")

	// ErrNotADirectory indicates a directory operation was applied to a file.
	ErrNotADirectory = errors.New("not a directory")

	// ErrIsADirectory indicates a file operation was applied to a directory.
	ErrIsADirectory = errors.New("is a directory")

	// ErrNotSupported indicates the backend lacks the capability
	// (permissions on blob stores, properties on most filesystems).
	ErrNotSupported = errors.New("operation not supported by this backend")

	// ErrInvalidConfiguration indicates a structurally malformed credential
	// source or backend configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrAuthFailed indicates the backend rejected the supplied credentials.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrIO is the generic I/O failure when nothing more specific applies.
	ErrIO = errors.New("i/o error")
)

func notSupported(u URL, what string) error {
	return fmt.Errorf("%s: %s: %w", u, what, ErrNotSupported)
}
