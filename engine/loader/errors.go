package loader

import (
	"errors"
	"fmt"
)

// ErrFile is matched by every failure to read or decode an image file.
var ErrFile = errors.New("loader: file error")

// FileError reports the file that failed to load.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("loader: %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrFile and the underlying cause to errors.Is and errors.As.
func (e *FileError) Unwrap() []error {
	return []error{ErrFile, e.Err}
}

func fileError(path string, err error) error {
	return &FileError{Path: path, Err: err}
}
