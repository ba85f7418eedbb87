package fsys

import "errors"

var (
	// ErrFormatInvalid means the source does not hold this filesystem.
	ErrFormatInvalid = errors.New("not a recognized filesystem")
	ErrDamaged       = errors.New("filesystem structure is damaged")

	ErrInvalidState  = errors.New("operation not allowed in current access mode")
	ErrFilesOpen     = errors.New("files are still open")
	ErrFileOpen      = errors.New("file is already open for writing")
	ErrReadOnly      = errors.New("filesystem is read-only")
	ErrInvalidEntry  = errors.New("file entry is no longer valid")
	ErrAlreadyClosed = errors.New("volume already closed")

	ErrNotFound = errors.New("file not found")
	ErrExists   = errors.New("a file with that name already exists")
	ErrBadName  = errors.New("invalid filename")
	ErrDiskFull = errors.New("disk full")
	ErrDirFull  = errors.New("directory full")

	// ErrNotSupported is returned by drivers for operations they don't
	// implement, so callers can feature-detect.
	ErrNotSupported = errors.New("operation not supported by this filesystem")
)
