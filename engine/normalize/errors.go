package normalize

import (
	"errors"
	"fmt"
)

var (
	// ErrNotDirectory is returned when the configured root is not a directory.
	ErrNotDirectory = errors.New("root is not a directory")
	// ErrWatchUnsupported is returned by Watch on filesystems fsnotify cannot observe.
	ErrWatchUnsupported = errors.New("watch mode requires the OS filesystem")
)

// FileError describes a failed filesystem operation on one path of the tree.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

func newFileError(op, path string, err error) error {
	return &FileError{Op: op, Path: path, Err: err}
}
