package docbind

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when using a closed [Renderer] or [Binder].
	ErrClosed = errors.New("docbind: renderer is closed")

	// ErrNothingRendered is returned by [Binder.MergeLinked] when every
	// discovered file failed to render, so there is nothing to merge.
	ErrNothingRendered = errors.New("docbind: no file rendered successfully")
)

// NotFoundError reports a root or target file that does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("docbind: file not found: %s", e.Path)
}

// InvalidInputError reports an argument the operation cannot work with,
// such as a negative depth bound or a non-HTML root file.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "docbind: invalid input: " + e.Reason
}

// RenderError reports a single file that failed to render. It is
// collected into a [MergeReport] rather than aborting the merge.
type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("docbind: rendering %s: %v", e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
