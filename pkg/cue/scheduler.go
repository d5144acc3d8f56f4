package cue

import (
	"context"
	"log/slog"
)

// Scheduler runs the asynchronous follow-ups cue handlers return. The
// engine never waits on a scheduled op; error handling is the
// scheduler's business.
type Scheduler interface {
	Schedule(op Op)
}

// GoScheduler runs ops on their own goroutines. Returned errors and
// panics are logged and swallowed.
type GoScheduler struct {
	logger *slog.Logger
}

// NewGoScheduler creates a goroutine-backed scheduler.
func NewGoScheduler(logger *slog.Logger) *GoScheduler {
	return &GoScheduler{logger: logger}
}

func (g *GoScheduler) Schedule(op Op) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				g.logger.Error("scheduled cue op panicked", "panic", rec)
			}
		}()
		if err := op(context.Background()); err != nil {
			g.logger.Error("scheduled cue op failed", "err", err)
		}
	}()
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(op Op)

func (f SchedulerFunc) Schedule(op Op) { f(op) }
