package walker

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Sentinel kinds for walk failures. Every *Error unwraps to exactly one of
// them, so callers can use errors.Is(err, ErrMaxDepthExceeded) and friends.
var (
	ErrReadFile         = stderrors.New("read file")
	ErrMaxDepthExceeded = stderrors.New("maximum depth exceeded")
	ErrResolutionFailed = stderrors.New("resolution failed")
	ErrExtractionFailed = stderrors.New("script extraction failed")
	ErrPathTraversal    = stderrors.New("path traversal")
	ErrTooManyModules   = stderrors.New("too many modules")
	ErrFileTooLarge     = stderrors.New("file too large")
	ErrNoEntries        = stderrors.New("no entry points")
)

// Error is a fatal walk failure.
type Error struct {
	Kind      error
	Path      string
	Specifier string
	Depth     int
	Reason    string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Specifier != "" {
		fmt.Fprintf(&b, " (specifier %q)", e.Specifier)
	}
	if e.Kind == ErrMaxDepthExceeded {
		fmt.Fprintf(&b, " at depth %d", e.Depth)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
