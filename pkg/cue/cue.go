// Package cue discovers and dispatches the lifecycle callbacks a host
// attaches to passages. Hosts register targets (named bags of
// handlers); the engine asks the registry which cues apply to the
// passages currently on stage and invokes them at the right moments.
package cue

import "context"

// Kind names a moment in passage playback.
type Kind string

const (
	Enter      Kind = "Enter"      // passage became current or was embedded
	Exit       Kind = "Exit"       // passage is being left
	Update     Kind = "Update"     // host-driven tick; handlers must be synchronous
	Output     Kind = "Output"     // an item landed in the output buffer
	Done       Kind = "Done"       // thread ended naturally
	ActionDone Kind = "ActionDone" // link action thread ended naturally
	Aborted    Kind = "Aborted"    // thread ended via an abort item
)

// Op is an asynchronous follow-up returned by a cue handler. The
// engine hands it to the scheduler fire-and-forget and never waits on
// it. A handler that returns nil has no follow-up.
type Op func(ctx context.Context) error

// Binding is one discovered handler, resolved for a concrete
// (passage, kind) key.
type Binding struct {
	Target  string // target name, for logging
	Passage string
	Kind    Kind

	h *handler
}

// Async reports whether the handler may return an Op.
func (b Binding) Async() bool { return b.h.async }
