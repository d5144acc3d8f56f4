// Package cli carries the plumbing the skein commands share: logger
// construction, deck loading and signal-aware contexts.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/weftworks/skein"
	"github.com/weftworks/skein/internal/logging"
	"github.com/weftworks/skein/pkg/adapters/deckfile"
	"github.com/weftworks/skein/pkg/deck"
)

// Logger builds the command logger: debug-level text on stderr, or a
// no-op logger so structured noise stays out of the narrative flow.
func Logger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// LoadDeck reads the YAML deck at path.
func LoadDeck(path string) (*deck.Deck, error) {
	d, err := deckfile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load deck: %w", err)
	}
	return d, nil
}

// BuildStory loads the deck and constructs a story from it.
func BuildStory(path string, opts ...skein.Option) (*skein.Story, error) {
	d, err := LoadDeck(path)
	if err != nil {
		return nil, err
	}
	return skein.New(d, opts...)
}

// SignalContext is a context cancelled by SIGINT or SIGTERM that
// remembers which signal did it.
type SignalContext struct {
	context.Context
	Cancel func()

	mu     sync.Mutex
	sigVal os.Signal
}

// NewSignalContext wires a cancellable context to SIGINT/SIGTERM.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, Cancel: cancel}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-ctx.Done():
		}
	}()
	return sc
}

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}
