// Package timeline drives the court timeline: it loads day snapshots with
// generation tokens, applies operator clicks, and dispatches booking commands.
package timeline

import (
	"errors"
	"fmt"
)

// Desk errors.
var (
	ErrStaleGeneration   = errors.New("snapshot belongs to a superseded refresh")
	ErrNoSelection       = errors.New("nothing selected")
	ErrInvalidSelection  = errors.New("selection must be one contiguous range on one court")
	ErrActionUnavailable = errors.New("action is not available for this selection")
	ErrNoGrid            = errors.New("timeline not loaded yet")
	ErrSourceGone        = errors.New("nothing to move at source anymore")
	ErrCrossDay          = errors.New("move would run past the end of the day")
)

// FetchFailure wraps a failed read. The affected court renders empty and the
// rest of the refresh proceeds.
type FetchFailure struct {
	ResourceID string
	Err        error
}

func (e *FetchFailure) Error() string {
	if e.ResourceID == "" {
		return fmt.Sprintf("fetch failed: %v", e.Err)
	}
	return fmt.Sprintf("fetch failed for %s: %v", e.ResourceID, e.Err)
}

func (e *FetchFailure) Unwrap() error { return e.Err }

// CommandFailure wraps a rejected or failed command. The grid is not
// changed and the selection is kept for a retry.
type CommandFailure struct {
	Op  string
	Err error
}

func (e *CommandFailure) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *CommandFailure) Unwrap() error { return e.Err }

// ValidationFailure is raised before any network call.
type ValidationFailure struct {
	Op  string
	Err error
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("cannot %s: %v", e.Op, e.Err)
}

func (e *ValidationFailure) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationFailure.
func IsValidation(err error) bool {
	var v *ValidationFailure
	return errors.As(err, &v)
}

// IsCommand reports whether err is a CommandFailure.
func IsCommand(err error) bool {
	var c *CommandFailure
	return errors.As(err, &c)
}
