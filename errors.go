package batchrename

import (
	"errors"
	"fmt"
)

var (
	ErrConflicts    = errors.New("preview contains conflicting names")
	ErrNoUndo       = errors.New("no rename batch available to undo")
	ErrTargetExists = errors.New("target name is already in use")
	ErrInvalidName  = errors.New("invalid file name")
)

// DirectoryReadError is returned when the target directory cannot be listed.
// It is handled by the caller before any preview is attempted.
type DirectoryReadError struct {
	Path string
	Err  error
}

func (e *DirectoryReadError) Error() string {
	return fmt.Sprintf("cannot read directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryReadError) Unwrap() error {
	return e.Err
}
