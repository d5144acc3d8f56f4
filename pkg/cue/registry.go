package cue

import (
	"io"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/weftworks/skein/pkg/story"
)

// Registry resolves which cue handlers apply to a (passage, kind) key
// and dispatches them. Discovery results are cached per key, negative
// results included; the cache and the snapshot of targets it was
// computed against are dropped only by InvalidateCache.
type Registry struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	sched   Scheduler
	targets []*Target
	active  []*Target // snapshot discovery runs against, built lazily
	cache   map[key][]Binding
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for skipped and misconfigured
// handlers.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithScheduler sets the scheduler that runs async cue results.
func WithScheduler(s Scheduler) RegistryOption {
	return func(r *Registry) {
		r.sched = s
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		cache: make(map[key][]Binding),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if r.sched == nil {
		r.sched = NewGoScheduler(r.logger)
	}
	return r
}

// AddTarget registers a target. The change is not visible to
// discovery until InvalidateCache is called; the registry keeps
// serving the snapshot it already resolved against.
func (r *Registry) AddTarget(t *Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, t)
}

// RemoveTarget unregisters a target by identity. Like AddTarget, it
// takes effect at the next InvalidateCache.
func (r *Registry) RemoveTarget(t *Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := slices.Index(r.targets, t); i >= 0 {
		r.targets = slices.Delete(r.targets, i, i+1)
	}
}

// InvalidateCache drops all cached discovery results and the target
// snapshot. Hosts call it after changing the target set.
func (r *Registry) InvalidateCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[key][]Binding)
	r.active = nil
}

// Find returns the bindings for a (passage, kind) key: at most one
// handler per target, explicit bindings beating convention names,
// targets contributing in registration order.
func (r *Registry) Find(passage string, kind Kind) []Binding {
	k := key{passage, kind}

	r.mu.RLock()
	bs, ok := r.cache[k]
	r.mu.RUnlock()
	if ok {
		return bs
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if bs, ok := r.cache[k]; ok {
		return bs
	}
	if r.active == nil {
		r.active = slices.Clone(r.targets)
	}
	bs = make([]Binding, 0, 2)
	for _, t := range r.active {
		if h := t.find(passage, kind); h != nil {
			bs = append(bs, Binding{Target: t.name, Passage: passage, Kind: kind, h: h})
		}
	}
	r.cache[k] = bs
	return bs
}

// FindScoped walks passage markers (in whatever order the caller
// supplies) and collects the bindings for each distinct passage
// level. When maxLevels is positive the walk stops after that many
// levels contributed at least one binding.
func (r *Registry) FindScoped(markers iter.Seq[*story.PassageMarker], kind Kind, maxLevels int) []Binding {
	var bs []Binding
	levels := 0
	seen := make(map[string]bool)
	for m := range markers {
		if m.Passage == nil {
			continue
		}
		name := m.Passage.Name
		if seen[name] {
			continue
		}
		seen[name] = true
		found := r.Find(name, kind)
		if len(found) == 0 {
			continue
		}
		bs = append(bs, found...)
		levels++
		if maxLevels > 0 && levels >= maxLevels {
			break
		}
	}
	return bs
}

// SyncOnly filters out async-capable bindings, logging each exclusion.
// The Update cue cache is built through it: update handlers must not
// return follow-up operations.
func (r *Registry) SyncOnly(bs []Binding) []Binding {
	kept := make([]Binding, 0, len(bs))
	for _, b := range bs {
		if b.Async() {
			r.logger.Warn("cue handler must not return a value for this cue; skipping",
				"target", b.Target, "passage", b.Passage, "cue", b.Kind)
			continue
		}
		kept = append(kept, b)
	}
	return kept
}

// Invoke calls each binding with the dispatch arguments. A handler
// whose parameters do not match the arguments is skipped with a
// warning; the rest of the batch still runs. Async results go to the
// scheduler fire-and-forget. A panicking handler is recovered and
// logged so playback can continue.
func (r *Registry) Invoke(bs []Binding, args ...any) {
	for _, b := range bs {
		r.invokeOne(b, args)
	}
}

func (r *Registry) invokeOne(b Binding, args []any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("cue handler panicked",
				"target", b.Target, "passage", b.Passage, "cue", b.Kind, "panic", rec)
		}
	}()
	op, err := b.h.call(args)
	if err != nil {
		r.logger.Warn("cue handler skipped",
			"target", b.Target, "passage", b.Passage, "cue", b.Kind, "err", err)
		return
	}
	if op != nil {
		r.sched.Schedule(op)
	}
}
