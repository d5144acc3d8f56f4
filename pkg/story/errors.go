package story

import (
	"errors"
	"fmt"
)

// ErrDeadLink is returned when following a link that has neither a
// target passage nor an action.
var ErrDeadLink = errors.New("link has neither a target passage nor an action")

// ErrNoStart is returned by Begin when no start passage is configured.
var ErrNoStart = errors.New("no start passage configured")

// StateError reports an operation attempted in a state that does not
// allow it.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	switch e.State {
	case StatePaused:
		return fmt.Sprintf("cannot %s: story is paused; call Resume or Reset first", e.Op)
	case StatePlaying, StateExiting:
		return fmt.Sprintf("cannot %s: a passage is already playing", e.Op)
	default:
		return fmt.Sprintf("cannot %s in state %q", e.Op, string(e.State))
	}
}

// NotFoundError reports a passage or link lookup that found nothing.
type NotFoundError struct {
	Kind string // "passage" or "link"
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Kind == "link" {
		return fmt.Sprintf("no link named %q in the current output", e.Name)
	}
	return fmt.Sprintf("passage %q is not defined", e.Name)
}
