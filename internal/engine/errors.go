package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for malformed constructor input: an unknown
	// object kind, a bad alignment, a zero direction vector or a bad interval.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when an operation names an id that is not live.
	ErrNotFound = errors.New("object not found")

	// ErrWrongType is returned when an operation needs a specific object kind.
	ErrWrongType = errors.New("wrong object type")

	// ErrUndefined is returned by a plotted function for a parameter where it has
	// no value. The renderer breaks the curve there instead of failing.
	ErrUndefined = errors.New("undefined at parameter")
)

// RenderError reports a failure raised by a user-supplied callable while an
// object was being drawn.
type RenderError struct {
	ID  ID
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render object %d: %v", e.ID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func notFound(id ID) error {
	return fmt.Errorf("%w: id %d", ErrNotFound, id)
}
